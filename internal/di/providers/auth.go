package providers

import (
	"github.com/samber/do/v2"

	"github.com/trailheadapp/trailhead-server/internal/auth"
	"github.com/trailheadapp/trailhead-server/internal/config"
	"github.com/trailheadapp/trailhead-server/internal/logger"
)

// AuthKey wraps the session token key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the session token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.SessionTokenKey = key

	log.Info("Session token key loaded", "session_duration", cfg.Auth.SessionDuration)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenServiceFromBytes([]byte(authKey), cfg.Auth.SessionDuration)
}
