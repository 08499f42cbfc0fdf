package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storepay-backend/api/controllers"
	"github.com/angelmondragon/storepay-backend/api/middleware"
	"github.com/angelmondragon/storepay-backend/internal/banks"
	"github.com/angelmondragon/storepay-backend/internal/notifications"
	"github.com/angelmondragon/storepay-backend/internal/payments"
	"github.com/angelmondragon/storepay-backend/pkg/config"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
	"github.com/angelmondragon/storepay-backend/pkg/redis"
)

// Params carries everything the HTTP surface is built from.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   redis.IdempotencyStore
	Admins        middleware.AdminChecker
	Payments      payments.Service
	Banks         banks.Service
	Notifications notifications.Service
	// Gatherer backs the metrics endpoint; nil means the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	if cfg.Metrics.Enabled {
		gatherer := p.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Idempotency is attached per route so the middleware sees the full pattern.
	idempotent := middleware.Idempotency(p.Idempotency, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.With(idempotent).Post("/payments", controllers.MakePayment(p.Payments, logg))
		r.Get("/payments/me", controllers.UserPayments(p.Payments, logg))
		r.Get("/banks", controllers.ListBanks(p.Banks, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.With(idempotent).Post("/{notificationID}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.With(idempotent).Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequirePlatformAdmin(p.Admins, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.AllPayments(p.Payments, logg))
			r.Get("/query", controllers.QueryPayments(p.Payments, logg))
			r.With(idempotent).Post("/{paymentID}/approve", controllers.ApprovePayment(p.Payments, logg))
			r.With(idempotent).Post("/{paymentID}/disprove", controllers.DisprovePayment(p.Payments, logg))
		})
	})

	return r
}
