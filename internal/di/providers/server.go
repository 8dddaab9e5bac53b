package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/trailheadapp/trailhead-server/internal/api"
	"github.com/trailheadapp/trailhead-server/internal/config"
	"github.com/trailheadapp/trailhead-server/internal/http/response"
	"github.com/trailheadapp/trailhead-server/internal/logger"
	"github.com/trailheadapp/trailhead-server/internal/ratelimit"
	"github.com/trailheadapp/trailhead-server/internal/service"
)

// publicDir holds the static front-end assets served under /public.
const publicDir = "public"

// RateLimiterHandle wraps the keyed rate limiter with Shutdownable.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-IP API rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	limiter := ratelimit.ForWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	authService := do.MustInvoke[*service.AuthService](i)
	tourService := do.MustInvoke[*service.TourService](i)
	userService := do.MustInvoke[*service.UserService](i)
	reviewService := do.MustInvoke[*service.ReviewService](i)

	// The index is rebuilt from the database at every boot so it never
	// drifts from the store.
	if err := tourService.RebuildSearchIndex(context.Background()); err != nil {
		return nil, err
	}
	log.Info("Search index rebuilt")

	handler := api.NewServer(api.Options{
		Auth:    authService,
		Tours:   tourService,
		Users:   userService,
		Reviews: reviewService,
		Translator: &response.Translator{
			Logger: log.Logger,
			Debug:  cfg.App.IsDevelopment(),
		},
		Limiter:       limiterHandle.KeyedRateLimiter,
		Logger:        log.Logger,
		CORSOrigins:   cfg.Server.CORSOrigins,
		SecureCookies: cfg.Auth.SecureCookies,
		ImagesDir:     cfg.Data.ImagesPath(),
		PublicDir:     publicDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "public_url", cfg.Server.PublicURL)

	return &HTTPServerHandle{Server: srv}, nil
}
