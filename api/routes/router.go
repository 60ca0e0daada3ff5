package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/repairdesk-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/repairdesk-backend/api/controllers/orders"
	"github.com/angelmondragon/repairdesk-backend/api/middleware"
	"github.com/angelmondragon/repairdesk-backend/internal/catalog"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	"github.com/angelmondragon/repairdesk-backend/internal/orders"
	"github.com/angelmondragon/repairdesk-backend/internal/payments"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/repairdesk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	idempotencyStore pkgredis.IdempotencyStore,
	tenancyService tenancy.Service,
	customerService customers.Service,
	catalogService catalog.Service,
	orderService orders.Service,
	paymentService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if len(cfg.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.BranchScope(tenancyService, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(orderService, logg))
			r.Get("/", ordercontrollers.List(orderService, logg))
			r.Get("/by-number/{orderNumber}", ordercontrollers.ByNumber(orderService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(orderService, logg))
				r.Patch("/status", ordercontrollers.UpdateStatus(orderService, logg))
				r.With(middleware.RequireAdministrator(logg)).Delete("/", ordercontrollers.Delete(orderService, logg))
				r.Post("/photos", ordercontrollers.AddPhoto(orderService, cfg.Orders.MaxPhotoBytes, logg))
				r.Get("/history", ordercontrollers.History(orderService, logg))
				r.Post("/payments", ordercontrollers.RecordPayment(paymentService, logg))
				r.Get("/payments", ordercontrollers.ListPayments(paymentService, logg))
				r.Get("/balance", ordercontrollers.Balance(paymentService, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/resolve", controllers.CustomerResolve(customerService, logg))
			r.Get("/{customerId}", controllers.CustomerGet(customerService, logg))
			r.Patch("/{customerId}", controllers.CustomerUpdate(customerService, logg))
			r.With(middleware.RequireAdministrator(logg)).Delete("/{customerId}", controllers.CustomerDelete(customerService, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/equipment-types", controllers.EquipmentTypes(catalogService, logg))
			r.Get("/brand-models", controllers.BrandModels(catalogService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdministrator(logg))
			r.Delete("/branches/{branchId}", controllers.AdminDeleteBranch(tenancyService, logg))
			r.Post("/tenants/{tenantId}/disable", controllers.AdminDisableTenant(tenancyService, logg))
		})
	})

	return r
}
