package api

import (
	"contest_room/internal/api/handler"
	"contest_room/internal/api/middleware"
	"contest_room/internal/app/service"
	"contest_room/internal/platform/metrics"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	// RequestTimeout bounds each request, including every executor call of a submission.
	RequestTimeout time.Duration
}

func NewRouter(
	contestService *service.ContestService,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts RouterOptions,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger, m))
	r.Use(chiMiddleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	contestHandler := handler.NewContestHandler(contestService, logger)
	contestHandler.RegisterRoutes(r)

	leaderboardHandler := handler.NewLeaderboardHandler(contestService, logger)
	leaderboardHandler.RegisterRoutes(r)

	return r
}
