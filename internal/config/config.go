// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// IsDevelopment reports whether the app runs in development mode. Error
// responses carry full detail only in development.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations. Everything the server writes
// lives under BasePath.
type DataConfig struct {
	BasePath string
}

// DatabasePath is the SQLite database file.
func (d DataConfig) DatabasePath() string {
	return filepath.Join(d.BasePath, "trailhead.db")
}

// ImagesPath is the root directory for processed tour and user images.
func (d DataConfig) ImagesPath() string {
	return filepath.Join(d.BasePath, "img")
}

// SearchIndexPath is the bleve index directory.
func (d DataConfig) SearchIndexPath() string {
	return filepath.Join(d.BasePath, "search.bleve")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	PublicURL    string        // Base URL used in emails and cookies (default: http://localhost:{port})
	CORSOrigins  []string      // Allowed CORS origins
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for session tokens (32 bytes)
	SessionTokenKey []byte
	// SessionDuration is how long a login stays valid (default: 90 days).
	SessionDuration time.Duration
	// SecureCookies marks session cookies Secure, required outside development.
	SecureCookies bool
}

// MailConfig holds outgoing email configuration. An empty Host selects the
// log-only mailer used in development.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	FromAddr string
}

// RateLimitConfig bounds how many API requests one client may make.
type RateLimitConfig struct {
	// Requests per Window per client IP.
	Requests int
	Window   time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	publicURL := flag.String("public-url", "", "Public base URL for links in emails")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	sessionDuration := flag.String("session-duration", "", "Login session lifetime (e.g., 2160h)")

	mailHost := flag.String("mail-host", "", "SMTP host (empty logs emails instead of sending)")
	mailPort := flag.String("mail-port", "", "SMTP port (default: 587)")
	mailFrom := flag.String("mail-from", "", "From address for outgoing email")

	rateLimitRequests := flag.String("rate-limit-requests", "", "Max API requests per window per IP (default: 100)")
	rateLimitWindow := flag.String("rate-limit-window", "", "Rate limit window (default: 1h)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:      getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			PublicURL: getConfigValue(*publicURL, "PUBLIC_URL", ""),
		},
		Auth: AuthConfig{
			SessionTokenKey: nil, // Set by auth.LoadOrGenerateKey in main
		},
		Mail: MailConfig{
			Host:     getConfigValue(*mailHost, "MAIL_HOST", ""),
			Port:     getIntConfigValue(*mailPort, "MAIL_PORT", 587),
			Username: getConfigValue("", "MAIL_USERNAME", ""),
			Password: getConfigValue("", "MAIL_PASSWORD", ""),
			FromName: getConfigValue("", "MAIL_FROM_NAME", "Trailhead"),
			FromAddr: getConfigValue(*mailFrom, "MAIL_FROM_ADDR", "hello@trailhead.test"),
		},
		RateLimit: RateLimitConfig{
			Requests: getIntConfigValue(*rateLimitRequests, "RATE_LIMIT_REQUESTS", 100),
		},
	}

	if origins := getConfigValue(*corsOrigins, "CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}

	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	// Parse session duration. 2160h is 90 days.
	sessionDurationStr := getConfigValue(*sessionDuration, "SESSION_DURATION", "2160h")
	parsedSession, err := time.ParseDuration(sessionDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session duration %q: %w", sessionDurationStr, err)
	}
	cfg.Auth.SessionDuration = parsedSession
	cfg.Auth.SecureCookies = !cfg.App.IsDevelopment()

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	rateLimitWindowStr := getConfigValue(*rateLimitWindow, "RATE_LIMIT_WINDOW", "1h")
	rateLimitWindowDuration, err := time.ParseDuration(rateLimitWindowStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit window %q: %w", rateLimitWindowStr, err)
	}
	cfg.RateLimit.Window = rateLimitWindowDuration

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive, got %d", c.RateLimit.Requests)
	}

	if c.Mail.Host != "" && c.Mail.FromAddr == "" {
		return errors.New("MAIL_FROM_ADDR is required when MAIL_HOST is set")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Trailhead", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
