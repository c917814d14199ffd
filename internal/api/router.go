package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvidal/shop-funnel/internal/engine"
)

// NewRouter creates and configures the HTTP router. limiter may be nil when
// no redis is configured; the webhook routes then run unthrottled.
func NewRouter(wh *WebhookHandler, limiter *engine.RateLimiter, rateLimit int) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/health", HealthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		r.With(throttle(limiter, rateLimit, "carts")).Post("/carts", wh.Carts)
		r.With(throttle(limiter, rateLimit, "checkouts")).Post("/checkouts", wh.Checkouts)
	})

	return r
}

// throttle applies the sliding-window limiter per webhook topic. 429 tells
// Shopify to redeliver later, so shedding load here loses nothing.
func throttle(limiter *engine.RateLimiter, limit int, topic string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow(r.Context(), topic, limit) {
				respondError(w, http.StatusTooManyRequests, "rate limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
