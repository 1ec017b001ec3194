package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderdesk-backend/api/controllers"
	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/warehouses"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimiter middleware.RateLimitStore
	Gatherer    prometheus.Gatherer

	Orders     orders.Service
	Warehouses warehouses.Service
	Pricing    pricing.AdminService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.Origins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}, logg))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	authOpts := middleware.AuthOptions{
		JWT:              cfg.JWT,
		AllowDummyTokens: cfg.Auth.AllowDummyTokens && !cfg.App.IsProd(),
	}
	ratePolicy := middleware.RateLimitPolicy{Limit: cfg.RateLimit.PerMinute, Window: cfg.RateLimit.Window}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(ratePolicy, deps.RateLimiter, logg))

		r.Get("/ping", controllers.PublicPing())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authOpts, logg))

			r.Get("/me/ping", controllers.PrivatePing())
			r.Get("/warehouses", controllers.WarehouseList(deps.Warehouses, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleSales, enums.RoleAdmin))
				r.Post("/quotes", controllers.OrderQuote(deps.Orders, logg))
				r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			})

			r.Route("/admin/pricing/rulesets", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Post("/", controllers.AdminCreateRuleSet(deps.Pricing, logg))
				r.Get("/active", controllers.AdminActiveRuleSet(deps.Pricing, logg))
				r.Put("/{ruleSetId}/tiers", controllers.AdminReplaceTiers(deps.Pricing, logg))
			})
		})
	})

	return r
}
