package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/bootstrap"
	"github.com/cassiomorais/checkout-gateway/internal/cache"
	"github.com/cassiomorais/checkout-gateway/internal/controller"
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	infraRedis "github.com/cassiomorais/checkout-gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/checkout-gateway/internal/middleware"
	"github.com/cassiomorais/checkout-gateway/internal/repository/postgres"
	"github.com/cassiomorais/checkout-gateway/internal/service"
	"github.com/cassiomorais/checkout-gateway/internal/webhook"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "checkout-gateway", "checkout_gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	entityRepo := postgres.NewEntityRepository(app.Pool)
	cartRepo := postgres.NewCartRepository(app.Pool)
	orderRepo := postgres.NewOrderRepository(app.Pool)
	statusRepo := postgres.NewOrderStatusRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Cache tiers ---
	metaStore := infraRedis.NewMetadataStore(app.Redis)
	sessionStore := middleware.NewCookieSessionStore()
	cacheManager := cache.NewManager(sessionStore, metaStore, app.Metrics, app.Logger)

	// --- Remote gateway ---
	remote := buildRemote(app)

	// --- Services ---
	asm := service.NewAssembler(entityRepo, orderRepo, app.Config.Gateway, app.Config.Checkout)
	txService := service.NewTransactionService(
		cartRepo, orderRepo, remote, remote, remote,
		cacheManager, asm, app.Config.Gateway, app.Config.Checkout, app.Metrics, app.Logger,
	)
	methodService := service.NewMethodService(
		cartRepo, txService, remote, cacheManager, app.Config.Gateway, app.Metrics, app.Logger,
	)
	syncer := webhook.NewSyncer(
		remote, orderRepo, statusRepo, txManager, cacheManager, app.Config.Gateway.SpaceID, app.Metrics, app.Logger,
	)

	// --- One-shot installation tasks ---
	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := statusRepo.EnsureDefaults(setupCtx); err != nil {
		cancel()
		app.Logger.Fatal().Err(err).Msg("Failed to bootstrap order statuses")
	}
	if err := webhook.EnsureSignatures(setupCtx, remote, app.Config.Gateway.SpaceID, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Webhook signature bootstrap failed, continuing")
	}
	cancel()

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:               app.Pool,
		RedisClient:        app.Redis,
		OrderRepo:          orderRepo,
		MethodService:      methodService,
		TransactionService: txService,
		Assembler:          asm,
		Charges:            remote,
		Syncer:             syncer,
		Metrics:            app.Metrics,
		CORSConfig:         app.Config.Server.CORS,
		WebhookSecret:      app.Config.Gateway.AppSecret,
		Log:                app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error().Err(err).Msg("Server error")
	}
	app.Logger.Info().Msg("Server exited")
}

// buildRemote selects the live REST client when credentials are configured
// and the in-memory stand-in otherwise, wrapping either in the
// circuit-breaking client.
func buildRemote(app *bootstrap.App) *gateway.Client {
	cfg := app.Config.Gateway
	if cfg.APIKey != "" {
		rest := gateway.NewRESTGateway(cfg.BaseURL, cfg.UserID, cfg.APIKey)
		app.Logger.Info().Str("base_url", cfg.BaseURL).Msg("Using live payment gateway")
		return gateway.NewClient(rest, rest, rest, rest, rest, app.Metrics)
	}

	mock := gateway.NewMockGateway(
		gateway.WithLatency(50*time.Millisecond),
		gateway.WithMethods(
			method.Configuration{SpaceID: cfg.SpaceID, ID: 1, Name: "Card", SortOrder: 1, Kind: method.KindFull},
			method.Configuration{SpaceID: cfg.SpaceID, ID: 2, Name: "Invoice", SortOrder: 2, Kind: method.KindFull},
		),
		gateway.WithListeners(gateway.Listener{ID: 1, Name: "transaction", Active: true}),
	)
	app.Logger.Warn().Msg("No gateway API key configured, using in-memory mock gateway")
	return gateway.NewClient(mock, mock, mock, mock, mock, app.Metrics)
}
