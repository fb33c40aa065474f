/**
 * @description
 * This file sets up the HTTP router for the payments-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * middleware stack: request logging, panic recovery, timeouts, CORS, body size
 * limits, and the per-IP rate limits.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the browser frontend.
 */

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/globepay/payments-service/internal/app"
)

// RouterConfig carries the router's tunables from the configuration layer.
type RouterConfig struct {
	CORSOrigin      string
	Limiter         app.LimiterStore
	APIRateLimit    int
	AuthRateLimit   int
	RateLimitWindow time.Duration
}

// NewRouter creates and returns the service's HTTP router.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(BodyLimit)
	r.Use(RateLimit(cfg.Limiter, "api", cfg.APIRateLimit, cfg.RateLimitWindow, msgTooManyRequests))

	authLimiter := RateLimit(cfg.Limiter, "auth", cfg.AuthRateLimit, cfg.RateLimitWindow, msgTooManyAuth)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]any{"message": "payments-service is healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/register", h.RegisterHandler)
			r.With(authLimiter).Post("/login", h.LoginHandler)
			r.With(h.RequireUser).Get("/me", h.MeHandler)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(h.RequireUser)
			r.Post("/", h.CreatePaymentHandler)
			r.Get("/", h.ListMyPaymentsHandler)
			r.Get("/{paymentID}", h.GetPaymentHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(authLimiter).Post("/login", h.AdminLoginHandler)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Get("/stats", h.StatsHandler)
				r.Get("/payments", h.ListAllPaymentsHandler)
				r.Get("/payments/pending", h.PendingPaymentsHandler)
				r.Patch("/payments/{paymentID}/verify", h.VerifyPaymentHandler)
				r.Patch("/payments/{paymentID}/reject", h.RejectPaymentHandler)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, fmt.Sprintf("Cannot find %s on this server", r.URL.Path), nil)
	})

	return r
}
