package order

import (
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
)

// Order mirrors the host platform's order entity. Orders confirmed together
// share one remote transaction through the same cart id.
type Order struct {
	ID           int64  `json:"id"`
	CartID       int64  `json:"cart_id"`
	CustomerID   int64  `json:"customer_id"`
	CurrencyCode string `json:"currency_code"`
	Reference    string `json:"reference"`
	TotalCents   int64  `json:"total_cents"`
	StatusID     int64  `json:"status_id"`
}

// Message is a customer comment attached to an order.
type Message struct {
	ID      int64  `json:"id"`
	OrderID int64  `json:"order_id"`
	Body    string `json:"body"`
}

// StatusKey is the stable configuration key a platform order status is looked
// up by. Statuses are created once per shop installation if missing.
type StatusKey string

const (
	StatusRedirected StatusKey = "GATEWAY_STATE_REDIRECTED"
	StatusAuthorized StatusKey = "GATEWAY_STATE_AUTHORIZED"
	StatusWaiting    StatusKey = "GATEWAY_STATE_WAITING"
	StatusManual     StatusKey = "GATEWAY_STATE_MANUAL"
	StatusCompleted  StatusKey = "GATEWAY_STATE_COMPLETED"
	StatusFailed     StatusKey = "GATEWAY_STATE_FAILED"
)

// Status is the platform-native order status entity synchronized 1:1 with
// well-known remote transaction states.
type Status struct {
	ID   int64     `json:"id"`
	Key  StatusKey `json:"key"`
	Name string    `json:"name"`
	Paid bool      `json:"paid"`
}

// Defaults lists the statuses bootstrapped on installation.
func Defaults() []Status {
	return []Status{
		{Key: StatusRedirected, Name: "Payment in processing"},
		{Key: StatusAuthorized, Name: "Payment authorized", Paid: true},
		{Key: StatusWaiting, Name: "Waiting for payment confirmation"},
		{Key: StatusManual, Name: "Manual decision required"},
		{Key: StatusCompleted, Name: "Payment completed", Paid: true},
		{Key: StatusFailed, Name: "Payment failed"},
	}
}

// KeyForState maps a remote transaction state to the platform order status
// key it should drive. States with no storefront meaning return false.
func KeyForState(s transaction.State) (StatusKey, bool) {
	switch s {
	case transaction.StateConfirmed, transaction.StateProcessing:
		return StatusRedirected, true
	case transaction.StateAuthorized:
		return StatusAuthorized, true
	case transaction.StateCompleted:
		return StatusWaiting, true
	case transaction.StateFulfill:
		return StatusCompleted, true
	case transaction.StateDecline:
		return StatusManual, true
	case transaction.StateFailed, transaction.StateVoided:
		return StatusFailed, true
	default:
		return "", false
	}
}
