package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pdv-backend/api/controllers"
	pdvcontrollers "github.com/angelmondragon/pdv-backend/api/controllers/pdv"
	"github.com/angelmondragon/pdv-backend/api/middleware"
	"github.com/angelmondragon/pdv-backend/internal/pdv"
	"github.com/angelmondragon/pdv-backend/pkg/config"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/redis"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

// RedisStore is the redis surface the HTTP layer needs.
type RedisStore interface {
	redis.IdempotencyStore
	Ping(context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	engine pdv.Engine,
	calendar *storeday.Calendar,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{"db": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisStore != nil {
		deps["redis"] = redisStore
		idempotencyStore = redisStore
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/pdv", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.StoreContext(logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.PDV.IdempotencyTTL, logg))

		r.Route("/cash", func(r chi.Router) {
			r.Post("/open", pdvcontrollers.OpenCash(engine, logg))
			r.Get("/current", pdvcontrollers.GetCurrentCash(engine, logg))
			r.Post("/close", pdvcontrollers.CloseCash(engine, logg))
			r.Post("/expenses", pdvcontrollers.RecordExpense(engine, logg))
		})

		r.Post("/sales", pdvcontrollers.CreateSale(engine, logg))
		r.Get("/sales", pdvcontrollers.ListSales(engine, calendar, logg))
		r.Get("/sales/{saleId}", pdvcontrollers.GetSale(engine, logg))

		r.Get("/reports/sales", pdvcontrollers.SalesReport(engine, calendar, logg))
	})

	return r
}
