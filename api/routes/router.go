package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haanhtuan/storefront-backend/api/controllers"
	"github.com/haanhtuan/storefront-backend/api/middleware"
	"github.com/haanhtuan/storefront-backend/internal/cart"
	checkoutsvc "github.com/haanhtuan/storefront-backend/internal/checkout"
	"github.com/haanhtuan/storefront-backend/internal/notifications"
	"github.com/haanhtuan/storefront-backend/internal/payments"
	"github.com/haanhtuan/storefront-backend/internal/products"
	"github.com/haanhtuan/storefront-backend/pkg/config"
	"github.com/haanhtuan/storefront-backend/pkg/db"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs. Redis and the
// payment services are optional so the API can boot without the gateway
// configured.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          redis.Pinger
	Products       products.Service
	Cart           cart.Service
	Checkout       checkoutsvc.Service
	PaymentSession payments.Session
	Finalizer      payments.Finalizer
	Notifications  notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.Products, logg))
			r.Get("/{slug}", controllers.GetProduct(p.Products, logg))
		})

		// Gateway callbacks authenticate by signature, not by shopper.
		if p.Finalizer != nil {
			r.Route("/payments", func(r chi.Router) {
				r.Get("/return", controllers.PaymentReturn(p.Finalizer, logg))
				r.Get("/ipn", controllers.PaymentIPN(p.Finalizer, logg))
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.UserContext(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(p.Cart, logg))
				r.Post("/lines", controllers.AddCartLine(p.Cart, logg))
				r.Put("/lines/{lineID}", controllers.UpdateCartLine(p.Cart, logg))
				r.Delete("/lines/{lineID}", controllers.RemoveCartLine(p.Cart, logg))
				r.Delete("/", controllers.ClearCart(p.Cart, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/cod", controllers.PlaceCODOrder(p.Checkout, logg))
				if p.PaymentSession != nil {
					r.Post("/gateway", controllers.CreatePaymentSession(p.PaymentSession, logg))
				}
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(p.Checkout, logg))
				r.Get("/{orderID}", controllers.GetOrder(p.Checkout, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(p.Notifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(p.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			})
		})
	})

	return r
}
