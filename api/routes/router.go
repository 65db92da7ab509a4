package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/receiptwise/backend/api/controllers"
	"github.com/receiptwise/backend/api/middleware"
	"github.com/receiptwise/backend/internal/receipts"
	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/logger"
	"github.com/receiptwise/backend/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Receipts    receipts.Service
	Extractor   controllers.Extractor
	Categorizer controllers.Categorizer
	Images      controllers.ImageStore
	RateLimiter middleware.RateLimiterStore
	Metrics     *metrics.PipelineMetrics
	Registry    *prometheus.Registry
	Pingers     map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	uploadPolicy := middleware.NewRateLimitPolicy(
		"upload",
		cfg.RateLimit.UploadWindow,
		cfg.RateLimit.UploadIPLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.With(middleware.RateLimit(uploadPolicy, deps.RateLimiter, logg)).
				Post("/receipts", controllers.UploadReceipt(deps.Receipts, deps.Extractor, deps.Categorizer, deps.Images, cfg.Upload, deps.Metrics, logg))

			r.Get("/receipts", controllers.ListReceipts(deps.Receipts, logg))
			r.Get("/receipts/{receiptID}", controllers.GetReceipt(deps.Receipts, logg))
			r.Patch("/receipts/{receiptID}", controllers.UpdateReceipt(deps.Receipts, logg))
			r.Delete("/receipts/{receiptID}", controllers.DeleteReceipt(deps.Receipts, logg))
			r.Get("/receipts/{receiptID}/history", controllers.ReceiptHistory(deps.Receipts, logg))

			r.Get("/options", controllers.Options(deps.Receipts, cfg.Options, logg))
			r.Get("/images/{fileName}", controllers.ReceiptImage(deps.Images, logg))
		})
	})

	return r
}
