package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	"github.com/sony/gobreaker/v2"
)

// Client bundles the remote service ports behind circuit breakers so a
// flapping gateway stops being hammered. It satisfies the same port
// interfaces it wraps.
type Client struct {
	tx        TransactionAPI
	methods   MethodAPI
	iframe    IframeAPI
	charges   ChargeAttemptAPI
	listeners WebhookListenerAPI
	metrics   *observability.Metrics

	txBreaker     *gobreaker.CircuitBreaker[*transaction.Transaction]
	methodBreaker *gobreaker.CircuitBreaker[[]method.Configuration]
	urlBreaker    *gobreaker.CircuitBreaker[string]
}

func NewClient(tx TransactionAPI, methods MethodAPI, iframe IframeAPI, charges ChargeAttemptAPI, listeners WebhookListenerAPI, metrics *observability.Metrics) *Client {
	return &Client{
		tx:            tx,
		methods:       methods,
		iframe:        iframe,
		charges:       charges,
		listeners:     listeners,
		metrics:       metrics,
		txBreaker:     newBreaker[*transaction.Transaction]("gateway-transaction"),
		methodBreaker: newBreaker[[]method.Configuration]("gateway-methods"),
		urlBreaker:    newBreaker[string]("gateway-urls"),
	}
}

// record classifies the call for the gateway metrics. Conflicts and missing
// entities get their own outcome so dashboards can tell contention from
// outage.
func (c *Client) record(operation string, start time.Time, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrVersionConflict):
		outcome = "conflict"
	case errors.Is(err, domainErrors.ErrTransactionNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	c.metrics.GatewayCalls.WithLabelValues(operation, outcome).Inc()
	c.metrics.GatewayCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// translate maps breaker rejections onto the gateway outage sentinel. An open
// circuit stands in for the outage it shields, so callers keep their stale
// fallbacks and silent-failure behavior while the breaker is tripped.
func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", err, domainErrors.ErrGatewayUnavailable)
	}
	return err
}

func newBreaker[T any](name string) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		// Conflicts and missing entities are caller problems, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, domainErrors.ErrVersionConflict) ||
				errors.Is(err, domainErrors.ErrTransactionNotFound)
		},
	})
}

func (c *Client) Create(ctx context.Context, spaceID int64, draft *transaction.Draft) (*transaction.Transaction, error) {
	start := time.Now()
	tx, err := c.txBreaker.Execute(func() (*transaction.Transaction, error) {
		return c.tx.Create(ctx, spaceID, draft)
	})
	err = translate(err)
	c.record("create", start, err)
	return tx, err
}

func (c *Client) Read(ctx context.Context, spaceID, id int64) (*transaction.Transaction, error) {
	start := time.Now()
	tx, err := c.txBreaker.Execute(func() (*transaction.Transaction, error) {
		return c.tx.Read(ctx, spaceID, id)
	})
	err = translate(err)
	c.record("read", start, err)
	return tx, err
}

func (c *Client) Update(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error) {
	start := time.Now()
	tx, err := c.txBreaker.Execute(func() (*transaction.Transaction, error) {
		return c.tx.Update(ctx, spaceID, pending)
	})
	err = translate(err)
	c.record("update", start, err)
	return tx, err
}

func (c *Client) Confirm(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error) {
	start := time.Now()
	tx, err := c.txBreaker.Execute(func() (*transaction.Transaction, error) {
		return c.tx.Confirm(ctx, spaceID, pending)
	})
	err = translate(err)
	c.record("confirm", start, err)
	return tx, err
}

func (c *Client) FetchPossible(ctx context.Context, spaceID, transactionID int64, integration string) ([]method.Configuration, error) {
	start := time.Now()
	methods, err := c.methodBreaker.Execute(func() ([]method.Configuration, error) {
		return c.methods.FetchPossible(ctx, spaceID, transactionID, integration)
	})
	err = translate(err)
	c.record("fetch_possible", start, err)
	return methods, err
}

func (c *Client) JavascriptURL(ctx context.Context, spaceID, transactionID int64) (string, error) {
	start := time.Now()
	url, err := c.urlBreaker.Execute(func() (string, error) {
		return c.iframe.JavascriptURL(ctx, spaceID, transactionID)
	})
	err = translate(err)
	c.record("javascript_url", start, err)
	return url, err
}

func (c *Client) PaymentPageURL(ctx context.Context, spaceID, transactionID int64) (string, error) {
	start := time.Now()
	url, err := c.urlBreaker.Execute(func() (string, error) {
		return c.iframe.PaymentPageURL(ctx, spaceID, transactionID)
	})
	err = translate(err)
	c.record("payment_page_url", start, err)
	return url, err
}

func (c *Client) SearchByTransaction(ctx context.Context, spaceID, transactionID int64) ([]ChargeAttempt, error) {
	return c.charges.SearchByTransaction(ctx, spaceID, transactionID)
}

func (c *Client) ListActive(ctx context.Context, spaceID int64) ([]Listener, error) {
	return c.listeners.ListActive(ctx, spaceID)
}

func (c *Client) UpdateListener(ctx context.Context, spaceID int64, listener Listener) error {
	return c.listeners.UpdateListener(ctx, spaceID, listener)
}
