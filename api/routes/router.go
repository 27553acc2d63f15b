package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignaciomazza/ofistur-billing/api/controllers"
	billingcontrollers "github.com/ignaciomazza/ofistur-billing/api/controllers/billing"
	"github.com/ignaciomazza/ofistur-billing/api/middleware"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// Deps carries the services the router exposes.
type Deps struct {
	AnchorRunner billingcontrollers.AnchorRunner
	Presentment  billingcontrollers.PresentmentBuilder
	Importer     billingcontrollers.ResponseImporter
	Charges      billingcontrollers.ChargesLister
	Pingers      map[string]controllers.Pinger
	CORSOrigins  []string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(deps.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Post("/anchor-runs", billingcontrollers.AnchorRun(deps.AnchorRunner, logg))
		r.Route("/batches", func(r chi.Router) {
			r.Post("/presentment", billingcontrollers.PresentmentPrepare(deps.Presentment, logg))
			r.Post("/export", billingcontrollers.PresentmentExport(deps.Presentment, logg))
			r.Post("/{batchId}/responses", billingcontrollers.ImportResponses(deps.Importer, logg))
		})
		r.Get("/charges", billingcontrollers.ListCharges(deps.Charges, logg))
	})

	return r
}
