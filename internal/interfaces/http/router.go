// Package http builds the API route tree and the server that serves it.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/interfaces/http/handlers"
	"github.com/bangunhq/estimator/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies for the
// full route tree.  Nil handlers leave their routes unmounted, which keeps
// handler tests small.
type RouterConfig struct {
	EstimateHandler *handlers.EstimateHandler
	BoqHandler      *handlers.BoqHandler
	MaterialHandler *handlers.MaterialHandler
	PaymentHandler  *handlers.PaymentHandler
	WorkerHandler   *handlers.WorkerHandler
	HealthHandler   *handlers.HealthHandler

	RateLimiter middleware.Allower
	Metrics     http.Handler

	AllowedOrigins []string
	Logger         logging.Logger
}

// NewRouter constructs the HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestLogging(cfg.Logger))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerEstimateRoutes(api, cfg.EstimateHandler)
		registerBoqRoutes(api, cfg.BoqHandler)
		registerMaterialRoutes(api, cfg.MaterialHandler)
		registerPaymentRoutes(api, cfg.PaymentHandler)
		registerWorkerRoutes(api, cfg.WorkerHandler)
	})

	return r
}

func registerEstimateRoutes(r chi.Router, h *handlers.EstimateHandler) {
	if h == nil {
		return
	}
	r.Route("/estimates", func(er chi.Router) {
		er.Post("/", h.Submit)
		er.Get("/{jobID}/status", h.Status)
		er.Get("/{jobID}", h.Result)
	})
}

func registerBoqRoutes(r chi.Router, h *handlers.BoqHandler) {
	if h == nil {
		return
	}
	r.Route("/boq", func(br chi.Router) {
		br.Post("/", h.Submit)
		br.Get("/{jobID}/status", h.Status)
		br.Get("/{jobID}", h.Result)
	})
}

func registerMaterialRoutes(r chi.Router, h *handlers.MaterialHandler) {
	if h == nil {
		return
	}
	r.Route("/materials", func(mr chi.Router) {
		mr.Get("/", h.Search)
		mr.Get("/price", h.Price)
		mr.Post("/prices", h.BatchPrices)
	})
}

func registerPaymentRoutes(r chi.Router, h *handlers.PaymentHandler) {
	if h == nil {
		return
	}
	r.Post("/payments/webhooks/midtrans", h.Webhook)
}

func registerWorkerRoutes(r chi.Router, h *handlers.WorkerHandler) {
	if h == nil {
		return
	}
	r.Route("/workers", func(wr chi.Router) {
		wr.Get("/", h.ListByTrade)
		wr.Get("/{workerID}/preview", h.Preview)
	})
}
