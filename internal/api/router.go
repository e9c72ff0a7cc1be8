/**
 * @description
 * This file sets up the HTTP router for the payments-service using the chi
 * library. It defines the API routes, applies middleware, and connects routes
 * to their corresponding handlers.
 *
 * @notes
 * - Tier pricing is public so the marketplace can show fees to anonymous
 *   visitors. Everything that touches money movement or history requires a
 *   verified bearer token.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jamii/payments-service/internal/app"
	"github.com/jamii/payments-service/internal/config"
)

// NewRouter creates and configures a new chi router for the service.
func NewRouter(cfg config.Config, service *app.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers := NewPaymentHandlers(service)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public pricing surface.
	r.Get("/api/v1/tiers", handlers.ListTiersHandler)
	r.Get("/api/v1/tiers/{tierID}", handlers.GetTierHandler)

	// Authenticated payment surface.
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(cfg.AuthJWKSURL))

		r.Post("/api/payment/process", handlers.ProcessPaymentHandler)
		r.Get("/api/payment/methods", handlers.ListPaymentMethodsHandler)
		r.Post("/api/payment/methods", handlers.SavePaymentMethodHandler)
		r.Delete("/api/payment/methods/{methodID}", handlers.DeletePaymentMethodHandler)
		r.Post("/api/payment/methods/{methodID}/default", handlers.SetDefaultPaymentMethodHandler)

		r.Get("/api/v1/payments/transactions", handlers.ListTransactionsHandler)
		r.Get("/api/v1/payments/transactions/export", handlers.ExportTransactionsHandler)
		r.Get("/api/v1/payments/earnings", handlers.EarningsHandler)
	})

	return r
}
