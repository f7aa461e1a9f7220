package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actuallystonmai/flick-found/internal/handler"
)

type Options struct {
	// RequestTimeout bounds every request. Generation with retries needs about a minute.
	RequestTimeout time.Duration
	// GenerateLimit is the number of generation requests per client IP per GenerateWindow. Zero disables it.
	GenerateLimit  int
	GenerateWindow time.Duration
	// CORSOrigins lists browser origins allowed to call the API. Empty disables CORS headers.
	CORSOrigins []string
}

func Setup(h *handler.Handler, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if opts.GenerateWindow <= 0 {
		opts.GenerateWindow = time.Minute
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users/{owner}", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.With(generateLimiter(opts)).Post("/recommendations", h.CreateRecommendations)
		r.Get("/recommendations", h.GetRecommendations)
		r.Get("/upcoming", h.GetUpcoming)
		r.Get("/preferences", h.GetPreferences)
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}

func generateLimiter(opts Options) func(http.Handler) http.Handler {
	if opts.GenerateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		opts.GenerateLimit,
		opts.GenerateWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","message":"Too many generation requests, slow down"}`))
		}),
	)
}
