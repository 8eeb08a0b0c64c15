package gateway

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
)

// IntegrationIframe is the display context payment methods are requested for.
const IntegrationIframe = "iframe"

// TransactionAPI is the remote transaction resource service. Update and
// Confirm fail with a ConflictError when the submitted version is stale.
type TransactionAPI interface {
	Create(ctx context.Context, spaceID int64, draft *transaction.Draft) (*transaction.Transaction, error)
	Read(ctx context.Context, spaceID, id int64) (*transaction.Transaction, error)
	Update(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error)
	Confirm(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error)
}

// MethodAPI answers which payment method configurations a transaction can use
// in a given display context.
type MethodAPI interface {
	FetchPossible(ctx context.Context, spaceID, transactionID int64, integration string) ([]method.Configuration, error)
}

// IframeAPI retrieves the checkout iframe and payment-page URLs for a
// transaction.
type IframeAPI interface {
	JavascriptURL(ctx context.Context, spaceID, transactionID int64) (string, error)
	PaymentPageURL(ctx context.Context, spaceID, transactionID int64) (string, error)
}

// ChargeAttempt is one authorization/capture try against a transaction.
type ChargeAttempt struct {
	ID            int64  `json:"id"`
	TransactionID int64  `json:"transaction_id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// ChargeAttemptAPI searches charge attempts by transaction.
type ChargeAttemptAPI interface {
	SearchByTransaction(ctx context.Context, spaceID, transactionID int64) ([]ChargeAttempt, error)
}

// Listener is a remote webhook listener registration.
type Listener struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Active           bool   `json:"active"`
	SignatureEnabled bool   `json:"signature_enabled"`
}

// WebhookListenerAPI manages webhook listener registrations, used only by the
// one-shot signature bootstrap.
type WebhookListenerAPI interface {
	ListActive(ctx context.Context, spaceID int64) ([]Listener, error)
	UpdateListener(ctx context.Context, spaceID int64, listener Listener) error
}

// APIError is a transport- or HTTP-level failure from the remote service. It
// unwraps to ErrGatewayUnavailable so fallback policies can match it.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway api error (status %d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return domainErrors.ErrGatewayUnavailable
}

// NewAPIError creates an APIError.
func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// ConflictError is the optimistic-concurrency rejection: another writer
// advanced the transaction version first.
type ConflictError struct {
	TransactionID   int64
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on transaction %d: submitted %d, remote at %d",
		e.TransactionID, e.ExpectedVersion, e.ActualVersion)
}

func (e *ConflictError) Unwrap() error {
	return domainErrors.ErrVersionConflict
}
