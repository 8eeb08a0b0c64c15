package webhook

import (
	"context"
	"fmt"
	"strconv"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Outcome labels for webhook metrics.
const (
	outcomeApplied = "applied"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// Event is the remote service's webhook notification body. Only transaction
// entities are subscribed to; the state is re-read from the remote service
// rather than trusted from the payload.
type Event struct {
	EventID  int64  `json:"eventId"`
	SpaceID  int64  `json:"spaceId"`
	EntityID int64  `json:"entityId"`
	Listener string `json:"listenerEntityTechnicalName"`
	State    string `json:"state"`
}

// CacheInvalidator is the slice of the cache layer the sync needs.
type CacheInvalidator interface {
	InvalidateCart(ctx context.Context, cartID int64, trigger string)
}

// Transactor runs fn atomically against the order store.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Syncer applies remote transaction state changes to platform orders. One
// transaction can cover several orders; all of them move together.
type Syncer struct {
	tx       gateway.TransactionAPI
	orders   order.Repository
	statuses order.StatusRepository
	txm      Transactor
	cache    CacheInvalidator
	spaceID  int64
	metrics  *observability.Metrics
	log      zerolog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(
	tx gateway.TransactionAPI,
	orders order.Repository,
	statuses order.StatusRepository,
	txm Transactor,
	cache CacheInvalidator,
	spaceID int64,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Syncer {
	return &Syncer{
		tx:       tx,
		orders:   orders,
		statuses: statuses,
		txm:      txm,
		cache:    cache,
		spaceID:  spaceID,
		metrics:  metrics,
		log:      log,
	}
}

// Apply processes one webhook notification. Events for foreign spaces and
// states with no storefront meaning are acknowledged without effect, so the
// remote service does not redeliver them. The authoritative state comes from
// re-reading the transaction, never from the notification body.
func (s *Syncer) Apply(ctx context.Context, ev Event) error {
	if ev.SpaceID != s.spaceID {
		s.metrics.WebhookEvents.WithLabelValues(ev.State, outcomeSkipped).Inc()
		s.log.Debug().Int64("space_id", ev.SpaceID).Msg("webhook for foreign space ignored")
		return nil
	}

	remote, err := s.tx.Read(ctx, s.spaceID, ev.EntityID)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(ev.State, outcomeFailed).Inc()
		return fmt.Errorf("read transaction %d: %w", ev.EntityID, err)
	}
	log := observability.ForTransaction(s.log, remote.SpaceID, remote.ID)

	key, relevant := order.KeyForState(remote.State)
	if !relevant {
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeSkipped).Inc()
		log.Debug().Str("state", string(remote.State)).Msg("transaction state not order-relevant")
		return nil
	}

	status, err := s.statuses.GetByKey(ctx, key)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeFailed).Inc()
		return fmt.Errorf("look up order status %s: %w", key, err)
	}

	cartID, err := cartIDFromTransaction(remote)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeFailed).Inc()
		return err
	}

	orders, err := s.orders.ListByCart(ctx, cartID)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeFailed).Inc()
		return fmt.Errorf("list orders for cart %d: %w", cartID, err)
	}
	if len(orders) == 0 {
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeSkipped).Inc()
		log.Warn().Int64("cart_id", cartID).Msg("webhook for cart without orders")
		return nil
	}

	// All orders of the cart move in one database transaction so a failed
	// delivery never leaves half a cart updated.
	applied := false
	err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		for _, o := range orders {
			if o.StatusID == status.ID {
				continue
			}
			if err := s.orders.UpdateStatus(ctx, o.ID, status.ID); err != nil {
				return fmt.Errorf("update order %d: %w", o.ID, err)
			}
			applied = true
			log.Info().
				Int64("order_id", o.ID).
				Str("status", string(status.Key)).
				Msg("order status synchronized")
		}
		return nil
	})
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeFailed).Inc()
		return err
	}

	if applied {
		s.cache.InvalidateCart(ctx, cartID, "webhook")
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeApplied).Inc()
	} else {
		// Redelivery of an already-applied event; acknowledging keeps the
		// handler idempotent.
		s.metrics.WebhookEvents.WithLabelValues(string(remote.State), outcomeSkipped).Inc()
	}
	return nil
}

// cartIDFromTransaction recovers the originating cart from the metadata the
// assembler stamped at create time.
func cartIDFromTransaction(tx *transaction.Transaction) (int64, error) {
	raw, ok := tx.MetaData["cart_id"]
	if !ok {
		return 0, fmt.Errorf("transaction %d carries no cart metadata: %w", tx.ID, domainErrors.ErrCartNotFound)
	}
	cartID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cartID <= 0 {
		return 0, fmt.Errorf("transaction %d carries malformed cart metadata %q: %w", tx.ID, raw, domainErrors.ErrCartNotFound)
	}
	return cartID, nil
}
