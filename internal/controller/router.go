package controller

import (
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/config"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/checkout-gateway/internal/middleware"
	"github.com/cassiomorais/checkout-gateway/internal/service"
	"github.com/cassiomorais/checkout-gateway/internal/webhook"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Pool               *pgxpool.Pool
	RedisClient        *redis.Client
	OrderRepo          order.Repository
	MethodService      *service.MethodService
	TransactionService *service.TransactionService
	Assembler          *service.Assembler
	Charges            gateway.ChargeAttemptAPI
	Syncer             *webhook.Syncer
	Metrics            *observability.Metrics
	CORSConfig         config.CORSConfig
	WebhookSecret      string
	Log                zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	checkoutH := NewCheckoutController(deps.MethodService, deps.TransactionService)
	returnH := NewReturnController(deps.OrderRepo, deps.TransactionService, deps.Assembler, deps.Charges)
	webhookH := NewWebhookController(deps.Syncer, deps.WebhookSecret, deps.Log)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Storefront routes carry the customer's cookie-backed session for the
	// browser-side cache tier.
	session := customMW.Session()

	r.Route("/api/v1", func(r chi.Router) {
		r.With(session).Get("/carts/{id}/payment-methods", checkoutH.ListMethods)
		r.With(session).Get("/carts/{id}/iframe", checkoutH.Iframe)
		r.With(session).Post("/carts/{id}/checkout", checkoutH.Checkout)
	})

	r.Post("/webhook", webhookH.Handle)
	r.Get("/return/{orderID}", returnH.Return)

	return r
}
