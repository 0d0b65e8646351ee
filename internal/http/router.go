package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Session  *SessionHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Payment  *PaymentHandler
}

// NewRouter wires every storefront route behind the shared middleware chain.
func NewRouter(log *zap.Logger, sessions *session.Store, h Handlers, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(log))
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware(sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/success", h.Payment.Success)
	r.Get("/cancel", h.Payment.Cancel)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.Session.GetSession)
			r.Put("/", h.Session.PutSession)
			r.Delete("/", h.Session.DeleteSession)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Get("/badge", h.Cart.Badge)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{product_id}", h.Cart.ChangeQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.Checkout.InitiateCheckout)
			r.Get("/step-up", h.Checkout.GetStepUp)
			r.Delete("/step-up", h.Checkout.CancelStepUp)
		})
		r.Get("/orders", h.Orders.ListOrders)
	})

	return otelhttp.NewHandler(r, "storefront")
}
