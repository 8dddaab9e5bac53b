// Package api provides the HTTP server, handlers, and rendered views for the
// Trailhead application.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/http/response"
	"github.com/trailheadapp/trailhead-server/internal/ratelimit"
	"github.com/trailheadapp/trailhead-server/internal/service"
)

// Options carries everything the server needs to route requests.
type Options struct {
	Auth    *service.AuthService
	Tours   *service.TourService
	Users   *service.UserService
	Reviews *service.ReviewService

	Translator *response.Translator
	Limiter    *ratelimit.KeyedRateLimiter
	Logger     *slog.Logger

	// CORSOrigins lists the allowed browser origins. Empty allows any.
	CORSOrigins []string
	// SecureCookies marks session cookies Secure, required outside development.
	SecureCookies bool
	// ImagesDir is the on-disk root served under /img.
	ImagesDir string
	// PublicDir is the static asset root served under /public.
	PublicDir string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	auth    *service.AuthService
	tours   *service.TourService
	users   *service.UserService
	reviews *service.ReviewService

	translator    *response.Translator
	limiter       *ratelimit.KeyedRateLimiter
	logger        *slog.Logger
	secureCookies bool
	imagesDir     string
	publicDir     string
	corsOrigins   []string

	router *chi.Mux
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		auth:          opts.Auth,
		tours:         opts.Tours,
		users:         opts.Users,
		reviews:       opts.Reviews,
		translator:    opts.Translator,
		limiter:       opts.Limiter,
		logger:        opts.Logger,
		secureCookies: opts.SecureCookies,
		imagesDir:     opts.ImagesDir,
		publicDir:     opts.PublicDir,
		corsOrigins:   opts.CORSOrigins,
		router:        chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack shared by every route.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.corsMiddleware())
		r.Use(s.rateLimit)
		r.Use(limitJSONBody)

		r.Route("/tours", s.tourRoutes)
		r.Route("/users", s.userRoutes)
		r.Route("/reviews", s.reviewRoutes)
	})

	// Rendered views. A stale session just renders the logged-out state.
	s.router.Group(func(r chi.Router) {
		r.Use(s.loadUser)
		r.Get("/", s.handleOverviewPage)
		r.Get("/tour/{slug}", s.handleTourPage)
		r.Get("/login", s.handleLoginPage)
		r.Get("/me", s.handleAccountPage)
		r.Post("/submit-user-data", s.handleSubmitUserData)
	})

	if s.publicDir != "" {
		s.router.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(s.publicDir))))
	}
	if s.imagesDir != "" {
		s.router.Handle("/img/*", http.StripPrefix("/img/", http.FileServer(http.Dir(s.imagesDir))))
	}

	s.router.NotFound(s.handleNotFound)
}

func (s *Server) tourRoutes(r chi.Router) {
	r.With(aliasTopTours).Get("/top-5-cheap", getAll[domain.Tour](s, s.tours, "tours", nil))
	r.Get("/tour-stats", s.handleTourStats)
	r.With(s.protect, s.allow(actionViewMonthlyPlan)).Get("/monthly-plan/{year}", s.handleMonthlyPlan)
	r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", s.handleToursWithin)
	r.Get("/distances/{latlng}/unit/{unit}", s.handleDistances)
	r.Get("/search", s.handleSearchTours)

	r.Get("/", getAll[domain.Tour](s, s.tours, "tours", nil))
	r.Get("/{id}", readOne[domain.Tour](s, s.tours, "tour"))
	r.Group(func(r chi.Router) {
		r.Use(s.protect, s.allow(actionManageTours))
		r.Post("/", createOne[domain.Tour](s, s.tours, "tour"))
		r.Patch("/{id}", s.handleUpdateTour)
		r.Delete("/{id}", deleteOne[domain.Tour](s, s.tours))
	})

	r.Route("/{tourID}/reviews", func(r chi.Router) {
		r.Use(s.protect)
		r.Get("/", getAll[domain.Review](s, s.reviews, "reviews", scopeReviewsToTour))
		r.With(s.allow(actionCreateReview)).Post("/", s.handleCreateReview)
	})
}

func (s *Server) userRoutes(r chi.Router) {
	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Post("/forgot-password", s.handleForgotPassword)
	r.Patch("/reset-password/{token}", s.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.protect)
		r.Patch("/update-my-password", s.handleUpdatePassword)
		r.Get("/me", s.handleGetMe)
		r.Patch("/update-me", s.handleUpdateMe)
		r.Delete("/delete-me", s.handleDeleteMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.protect, s.allow(actionManageUsers))
		r.Get("/", getAll[domain.User](s, s.users, "users", nil))
		r.Post("/", createOne[domain.User](s, s.users, "user"))
		r.Get("/{id}", readOne[domain.User](s, s.users, "user"))
		r.Patch("/{id}", s.handleAdminUpdateUser)
		r.Delete("/{id}", deleteOne[domain.User](s, s.users))
	})
}

func (s *Server) reviewRoutes(r chi.Router) {
	r.Use(s.protect)
	r.Get("/", getAll[domain.Review](s, s.reviews, "reviews", nil))
	r.With(s.allow(actionCreateReview)).Post("/", s.handleCreateReview)
	r.Get("/{id}", readOne[domain.Review](s, s.reviews, "review"))
	r.Group(func(r chi.Router) {
		r.Use(s.allow(actionModerateReviews))
		r.Patch("/{id}", s.handleUpdateReview)
		r.Delete("/{id}", s.handleDeleteReview)
	})
}

// corsMiddleware builds the CORS handler for the API routes.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// handleNotFound answers unknown API paths with the JSON envelope and
// everything else with the rendered error page.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		response.NotFound(w, fmt.Sprintf("Can't find %s on this server!", r.URL.Path), s.logger)
		return
	}
	s.renderError(w, r, http.StatusNotFound, "Page not found.")
}
