package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"golang.org/x/time/rate"
)

// DefaultMaxBodyBytes caps recommendation request bodies.
const DefaultMaxBodyBytes = 1 << 20

// RouterConfig controls the middleware stack around the handlers.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *Metrics

	// RateLimit is the sustained requests/second allowed on /api. Zero
	// disables rate limiting.
	RateLimit      rate.Limit
	RateLimitBurst int

	// LogsAuth, when set, requires a valid bearer token on log listings.
	LogsAuth *jwtauth.JWTAuth

	// EnableCORS allows any origin, for development.
	EnableCORS bool

	MaxBodyBytes int64
}

// NewRouter assembles the full HTTP surface: system endpoints plus the /api
// routes served by h.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoveryMiddleware(logger, cfg.Metrics))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if cfg.EnableCORS {
		r.Use(CORSMiddleware(
			[]string{"*"},
			[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
			[]string{"Content-Type", "Authorization", RequestIDHeader},
		))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// System endpoints (no rate limiting)
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	var logsGuard []func(http.Handler) http.Handler
	if cfg.LogsAuth != nil {
		logsGuard = append(logsGuard, jwtauth.Verifier(cfg.LogsAuth), AuthenticatorMiddleware)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			burst := cfg.RateLimitBurst
			if burst <= 0 {
				burst = int(cfg.RateLimit)
			}
			r.Use(RateLimitMiddleware(rate.NewLimiter(cfg.RateLimit, burst), cfg.Metrics))
		}
		r.Use(BodyLimitMiddleware(maxBody))
		r.Mount("/", h.Routes(logsGuard...))
	})

	return r
}
