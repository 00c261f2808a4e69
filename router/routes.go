package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/coursepay/handler"
	"github.com/mstgnz/coursepay/infra/middle"
	"github.com/mstgnz/coursepay/infra/response"
)

// Handlers is everything the router mounts
type Handlers struct {
	Payment *handler.PaymentHandler
	Health  *handler.HealthHandler
	Metrics http.Handler

	// RateLimiter, when set, guards the client facing payment routes.
	// Webhooks come from the gateways and are not limited.
	RateLimiter *middle.RateLimiter
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers) {
	r.Get("/health", h.Health.CheckHealth)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api/payment", func(r chi.Router) {
		if h.RateLimiter != nil {
			r.Use(middle.RateLimitMiddleware(h.RateLimiter))
		}
		r.Post("/create-order", h.Payment.CreateOrder)
		r.Post("/verify-payment", h.Payment.VerifyPayment)
		r.Get("/status/{gateway}/{id}", h.Payment.GetStatus)
		r.Post("/refund", h.Payment.Refund)
	})

	r.Post("/api/webhook/{gateway}", h.Payment.HandleWebhook)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
}
