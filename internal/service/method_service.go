package service

import (
	"context"

	"github.com/cassiomorais/checkout-gateway/internal/cache"
	"github.com/cassiomorais/checkout-gateway/internal/domain/cart"
	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/config"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// MethodOptions tune a payment-method resolution.
type MethodOptions struct {
	// FailSilently turns remote failures into an empty method list instead
	// of an error, for rendering paths that must not break the page.
	// Configuration problems are surfaced regardless.
	FailSilently bool
	// ForceReload bypasses valid cache entries and refetches from the
	// remote service.
	ForceReload bool
}

// MethodService answers which payment methods a cart can check out with,
// caching aggressively and degrading to stale data when the remote service
// is down.
type MethodService struct {
	carts        cart.Repository
	transactions *TransactionService
	methods      gateway.MethodAPI
	cache        *cache.Manager
	cfg          config.GatewayConfig
	metrics      *observability.Metrics
	log          zerolog.Logger
}

// NewMethodService creates a MethodService.
func NewMethodService(
	carts cart.Repository,
	transactions *TransactionService,
	methods gateway.MethodAPI,
	cacheManager *cache.Manager,
	gatewayCfg config.GatewayConfig,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *MethodService {
	return &MethodService{
		carts:        carts,
		transactions: transactions,
		methods:      methods,
		cache:        cacheManager,
		cfg:          gatewayCfg,
		metrics:      metrics,
		log:          log,
	}
}

// Possible returns the payment method configurations available for the cart.
//
// A valid cache entry on any tier answers without a remote call. On a cache
// miss the cart's transaction is resolved and the remote service queried; a
// recoverable failure there falls back to the freshest stale entry,
// re-persisted with a new expiry so the checkout stays usable through the
// outage. With neither a fresh answer nor a fallback, the cache is cleared
// and the failure either propagates or, under FailSilently, collapses to an
// empty list.
func (s *MethodService) Possible(ctx context.Context, cartID int64, opts MethodOptions) ([]method.Configuration, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	hash := c.Fingerprint()
	log := observability.ForCart(s.log, cartID)

	cached, fallback, ok := s.cache.Methods(ctx, cartID, hash)
	if ok {
		if !opts.ForceReload {
			return cached, nil
		}
		// A forced reload keeps the still-valid entry around as its own
		// fallback in case the refetch fails.
		if fallback == nil {
			fallback = &cache.MethodsFallback{Methods: cached, Hash: hash}
		}
	}

	fresh, err := s.fetch(ctx, cartID)
	if err == nil {
		if werr := s.cache.SetMethods(ctx, cartID, hash, fresh); werr != nil {
			log.Warn().Err(werr).Msg("payment method cache write failed")
		}
		return fresh, nil
	}

	// Configuration problems are never masked by fallback or silence; the
	// merchant has to fix the setup.
	if !domainErrors.IsRecoverable(err) {
		return nil, err
	}

	if fallback != nil {
		log.Warn().Err(err).Msg("serving stale payment methods after remote failure")
		if werr := s.cache.RefreshFallback(ctx, cartID, fallback); werr != nil {
			log.Warn().Err(werr).Msg("fallback re-persist failed")
		}
		return fallback.Methods, nil
	}

	s.cache.ClearMethods(ctx, cartID)
	if opts.FailSilently {
		log.Warn().Err(err).Msg("payment method fetch failed, degrading to empty list")
		return []method.Configuration{}, nil
	}
	return nil, err
}

func (s *MethodService) fetch(ctx context.Context, cartID int64) ([]method.Configuration, error) {
	tx, err := s.transactions.Resolve(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.methods.FetchPossible(ctx, tx.SpaceID, tx.ID, gateway.IntegrationIframe)
}
