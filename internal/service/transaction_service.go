package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/cache"
	"github.com/cassiomorais/checkout-gateway/internal/domain/cart"
	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/config"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout-gateway/pkg/retry"
	"github.com/rs/zerolog"
)

// confirmAttempts is the hard cap on confirm tries. Only version conflicts
// are retried; every attempt re-reads the remote state first.
const confirmAttempts = 5

// Resolution outcomes, used as metric labels.
const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeReused  = "reused"
)

// TransactionService is the reconciliation engine between local carts and
// remote, versioned transactions. The remote service owns the transaction;
// this service only converges it towards the cart's current contents.
type TransactionService struct {
	carts   cart.Repository
	orders  order.Repository
	tx      gateway.TransactionAPI
	methods gateway.MethodAPI
	iframe  gateway.IframeAPI
	cache   *cache.Manager
	asm     *Assembler
	cfg     config.GatewayConfig
	wait    config.CheckoutConfig
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewTransactionService creates a TransactionService.
func NewTransactionService(
	carts cart.Repository,
	orders order.Repository,
	tx gateway.TransactionAPI,
	methods gateway.MethodAPI,
	iframe gateway.IframeAPI,
	cacheManager *cache.Manager,
	asm *Assembler,
	gatewayCfg config.GatewayConfig,
	checkoutCfg config.CheckoutConfig,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *TransactionService {
	return &TransactionService{
		carts:   carts,
		orders:  orders,
		tx:      tx,
		methods: methods,
		iframe:  iframe,
		cache:   cacheManager,
		asm:     asm,
		cfg:     gatewayCfg,
		wait:    checkoutCfg,
		metrics: metrics,
		log:     log,
	}
}

// Resolve returns the pending remote transaction for the cart, creating or
// updating one as needed so it reflects the cart's current contents.
//
// The decision tree, in order: a valid cached snapshot short-circuits
// everything; no mapping or a mapping from another space means create; a
// mapped transaction that no longer exists or left the pending state means
// create; a changed cart (currency, customer or fingerprint) means update
// against version+1; otherwise the remote transaction is reused unchanged.
func (s *TransactionService) Resolve(ctx context.Context, cartID int64) (*transaction.Transaction, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, c)
}

func (s *TransactionService) resolve(ctx context.Context, c *cart.Cart) (*transaction.Transaction, error) {
	hash := c.Fingerprint()
	log := observability.ForCart(s.log, c.ID)

	if cached, ok := s.cache.Transaction(ctx, c.ID, hash); ok && cached.IsPending() {
		s.metrics.TransactionsResolved.WithLabelValues(outcomeReused).Inc()
		return cached, nil
	}

	mp, ok := s.cache.Mapping(ctx, c.ID)
	if !ok || !mp.Matches(s.cfg.SpaceID) {
		return s.create(ctx, c, hash)
	}

	remote, err := s.tx.Read(ctx, s.cfg.SpaceID, mp.TransactionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) {
			log.Info().Int64("transaction_id", mp.TransactionID).Msg("mapped transaction gone, creating a new one")
			return s.create(ctx, c, hash)
		}
		return nil, err
	}
	if !remote.IsPending() {
		log.Info().
			Int64("transaction_id", remote.ID).
			Str("state", string(remote.State)).
			Msg("mapped transaction no longer pending, creating a new one")
		return s.create(ctx, c, hash)
	}

	if s.changed(ctx, c, remote, hash) {
		return s.update(ctx, c, remote, hash)
	}

	// Nothing to push remotely; refresh the snapshot so the next request
	// skips the read.
	if err := s.cache.SetTransaction(ctx, c.ID, hash, remote); err != nil {
		log.Warn().Err(err).Msg("snapshot cache write failed")
	}
	s.metrics.TransactionsResolved.WithLabelValues(outcomeReused).Inc()
	return remote, nil
}

// changed reports whether the remote transaction drifted from the cart. The
// recorded fingerprint catches item-level edits; currency and customer are
// compared directly because either invalidates the pricing context.
func (s *TransactionService) changed(ctx context.Context, c *cart.Cart, remote *transaction.Transaction, hash string) bool {
	if remote.CurrencyCode != c.CurrencyCode {
		return true
	}
	var customerID string
	if c.CustomerID != 0 {
		customerID = fmt.Sprintf("%d", c.CustomerID)
	}
	if remote.CustomerID != customerID {
		return true
	}
	stored, ok := s.cache.CartHash(ctx, c.ID)
	return !ok || stored != hash
}

func (s *TransactionService) create(ctx context.Context, c *cart.Cart, hash string) (*transaction.Transaction, error) {
	draft, err := s.asm.Draft(ctx, c)
	if err != nil {
		return nil, err
	}
	created, err := s.tx.Create(ctx, s.cfg.SpaceID, draft)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetMapping(ctx, c.ID, transaction.Mapping{
		SpaceID:       created.SpaceID,
		TransactionID: created.ID,
	}); err != nil {
		// Without the mapping the next request would orphan this transaction
		// and create another; surface instead of silently leaking.
		return nil, fmt.Errorf("persist transaction mapping: %w", err)
	}

	s.afterWrite(ctx, c, created, hash)
	s.metrics.TransactionsResolved.WithLabelValues(outcomeCreated).Inc()
	log := observability.ForTransaction(s.log, created.SpaceID, created.ID)
	log.Info().Int64("cart_id", c.ID).Msg("transaction created")
	return created, nil
}

func (s *TransactionService) update(ctx context.Context, c *cart.Cart, remote *transaction.Transaction, hash string) (*transaction.Transaction, error) {
	draft, err := s.asm.Draft(ctx, c)
	if err != nil {
		return nil, err
	}

	pending := remote.NextPending()
	// The browser fingerprint from the original create stays attached across
	// updates.
	device := pending.DeviceSessionIdentifier
	pending.Draft = *draft
	if device != "" {
		pending.DeviceSessionIdentifier = device
	}

	updated, err := s.tx.Update(ctx, s.cfg.SpaceID, pending)
	if err != nil {
		if errors.Is(err, domainErrors.ErrVersionConflict) {
			s.metrics.VersionConflicts.WithLabelValues("update").Inc()
		}
		return nil, err
	}

	s.afterWrite(ctx, c, updated, hash)
	s.metrics.TransactionsResolved.WithLabelValues(outcomeUpdated).Inc()
	log := observability.ForTransaction(s.log, updated.SpaceID, updated.ID)
	log.Info().Int64("cart_id", c.ID).Int64("version", updated.Version).Msg("transaction updated")
	return updated, nil
}

// afterWrite refreshes every cache that a remote create or update makes
// stale: the snapshot, the recorded cart fingerprint, the iframe URL and the
// payment-method list. The method refresh is eager but best effort; a failure
// here only costs the next request a remote fetch.
func (s *TransactionService) afterWrite(ctx context.Context, c *cart.Cart, tx *transaction.Transaction, hash string) {
	log := observability.ForCart(s.log, c.ID)

	if err := s.cache.SetTransaction(ctx, c.ID, hash, tx); err != nil {
		log.Warn().Err(err).Msg("snapshot cache write failed")
	}
	if err := s.cache.SetCartHash(ctx, c.ID, hash); err != nil {
		log.Warn().Err(err).Msg("cart hash write failed")
	}
	s.cache.InvalidateJavascriptURL(ctx, c.ID)

	methods, err := s.methods.FetchPossible(ctx, tx.SpaceID, tx.ID, gateway.IntegrationIframe)
	if err != nil {
		log.Warn().Err(err).Msg("eager payment method refresh failed")
		return
	}
	if err := s.cache.SetMethods(ctx, c.ID, hash, methods); err != nil {
		log.Warn().Err(err).Msg("payment method cache write failed")
	}
}

// Confirm submits the cart's transaction for payment with the chosen payment
// method. Version conflicts from concurrent writers (typically webhook-driven
// state changes) are absorbed by re-reading and retrying, at most
// confirmAttempts times with no backoff. A transaction that left the pending
// state mid-flight fails with ErrCheckoutExpired.
func (s *TransactionService) Confirm(ctx context.Context, cartID, methodID int64) (*transaction.Transaction, []*order.Order, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.orders.ListByCart(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	if len(orders) == 0 {
		return nil, nil, domainErrors.ErrOrderNotFound
	}

	base, err := s.resolve(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	isConflict := func(err error) bool {
		return errors.Is(err, domainErrors.ErrVersionConflict)
	}

	attempt := 0
	confirmed, err := retry.DoWithResult(ctx, retry.FixedConfig(confirmAttempts, isConflict), func() (*transaction.Transaction, error) {
		attempt++
		if attempt > 1 {
			s.metrics.ConfirmRetries.Inc()
		}

		remote, err := s.tx.Read(ctx, s.cfg.SpaceID, base.ID)
		if err != nil {
			return nil, err
		}
		if !remote.IsPending() {
			return nil, domainErrors.ErrCheckoutExpired
		}

		pending := remote.NextPending()
		if err := s.asm.ConfirmFields(ctx, pending, c, orders, methodID); err != nil {
			return nil, err
		}
		tx, err := s.tx.Confirm(ctx, s.cfg.SpaceID, pending)
		if isConflict(err) {
			s.metrics.VersionConflicts.WithLabelValues("confirm").Inc()
		}
		return tx, err
	})
	if err != nil {
		log := observability.ForTransaction(s.log, s.cfg.SpaceID, base.ID)
		log.Warn().Err(err).Int("attempts", attempt).Msg("confirm failed")
		return nil, nil, err
	}

	// The cart is spent. Drop its caches and mapping so a fresh cart cycle
	// starts clean, and record the order-level mapping for post-checkout
	// lookups.
	s.cache.InvalidateCart(ctx, cartID, "confirm")
	s.cache.ClearMapping(ctx, cartID)
	mp := transaction.Mapping{SpaceID: confirmed.SpaceID, TransactionID: confirmed.ID}
	for _, o := range orders {
		if err := s.cache.SetOrderMapping(ctx, o.ID, mp); err != nil {
			s.log.Warn().Err(err).Int64("order_id", o.ID).Msg("order mapping write failed")
		}
	}

	log := observability.ForTransaction(s.log, confirmed.SpaceID, confirmed.ID)
	log.Info().Int64("cart_id", cartID).Int("attempts", attempt).Msg("transaction confirmed")
	return confirmed, orders, nil
}

// WaitForState polls the remote transaction tied to the order until it
// reaches one of the wanted states or the wait budget runs out. It reports
// whether a wanted state was observed; timing out is not an error.
func (s *TransactionService) WaitForState(ctx context.Context, orderID int64, states ...transaction.State) bool {
	mp, ok := s.cache.OrderMapping(ctx, orderID)
	if !ok {
		return false
	}

	deadline := time.Now().Add(s.wait.WaitTimeout)
	for {
		remote, err := s.tx.Read(ctx, mp.SpaceID, mp.TransactionID)
		if err == nil {
			for _, want := range states {
				if remote.State == want {
					return true
				}
			}
		}
		if time.Now().Add(s.wait.PollInterval).After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.wait.PollInterval):
		}
	}
}

// JavascriptURL returns the iframe bootstrap URL for the cart's transaction,
// served from cache while the cart is unchanged.
func (s *TransactionService) JavascriptURL(ctx context.Context, cartID int64) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", err
	}
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return "", err
	}
	hash := c.Fingerprint()

	if url, ok := s.cache.JavascriptURL(ctx, c.ID, hash); ok {
		return url, nil
	}

	tx, err := s.resolve(ctx, c)
	if err != nil {
		return "", err
	}
	url, err := s.iframe.JavascriptURL(ctx, tx.SpaceID, tx.ID)
	if err != nil {
		return "", err
	}
	if err := s.cache.SetJavascriptURL(ctx, c.ID, hash, tx.SpaceID, tx.ID, url); err != nil {
		log := observability.ForCart(s.log, c.ID)
		log.Warn().Err(err).Msg("javascript url cache write failed")
	}
	return url, nil
}

// PaymentPageURL returns the hosted payment page URL for the cart's
// transaction. Never cached: the remote URL embeds short-lived credentials.
func (s *TransactionService) PaymentPageURL(ctx context.Context, cartID int64) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", err
	}
	tx, err := s.Resolve(ctx, cartID)
	if err != nil {
		return "", err
	}
	return s.iframe.PaymentPageURL(ctx, tx.SpaceID, tx.ID)
}

// PaymentPageFor returns the hosted payment page URL for an already-resolved
// transaction, without re-running reconciliation.
func (s *TransactionService) PaymentPageFor(ctx context.Context, tx *transaction.Transaction) (string, error) {
	return s.iframe.PaymentPageURL(ctx, tx.SpaceID, tx.ID)
}

// ByOrder reads the remote transaction an order was confirmed against.
func (s *TransactionService) ByOrder(ctx context.Context, orderID int64) (*transaction.Transaction, error) {
	mp, ok := s.cache.OrderMapping(ctx, orderID)
	if !ok {
		return nil, domainErrors.ErrNoMapping
	}
	return s.tx.Read(ctx, mp.SpaceID, mp.TransactionID)
}
