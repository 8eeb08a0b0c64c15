package controller

import (
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
)

// --- Request DTOs ---

// CheckoutRequest holds the input for confirming a cart's transaction.
type CheckoutRequest struct {
	PaymentMethodID int64 `json:"payment_method_id" validate:"required,gt=0"`
}

// --- Response DTOs ---

// MethodResponse represents one selectable payment method.
type MethodResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

// MethodListResponse represents the payment methods available for a cart.
type MethodListResponse struct {
	Methods []MethodResponse `json:"methods"`
}

// IframeResponse carries the URL the storefront loads the checkout iframe
// from.
type IframeResponse struct {
	JavascriptURL string `json:"javascript_url"`
}

// CheckoutResponse represents a confirmed checkout.
type CheckoutResponse struct {
	TransactionID  int64   `json:"transaction_id"`
	State          string  `json:"state"`
	OrderIDs       []int64 `json:"order_ids"`
	PaymentPageURL string  `json:"payment_page_url,omitempty"`
}

// ReturnResponse represents the outcome shown after the customer returns
// from the payment page.
type ReturnResponse struct {
	OrderID       int64  `json:"order_id"`
	Outcome       string `json:"outcome"`
	State         string `json:"state,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromMethods converts hydrated method configurations to API responses.
func FromMethods(methods []method.Configuration) *MethodListResponse {
	resp := &MethodListResponse{Methods: make([]MethodResponse, 0, len(methods))}
	for _, m := range methods {
		h := m.Hydrate()
		resp.Methods = append(resp.Methods, MethodResponse{
			ID:          h.ID,
			Name:        h.Name,
			Description: h.Description,
			ImageURL:    h.ImageURL,
			SortOrder:   h.SortOrder,
		})
	}
	return resp
}

// FromCheckout converts a confirmed transaction and its orders to an API
// response.
func FromCheckout(tx *transaction.Transaction, orders []*order.Order, paymentPageURL string) *CheckoutResponse {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return &CheckoutResponse{
		TransactionID:  tx.ID,
		State:          string(tx.State),
		OrderIDs:       ids,
		PaymentPageURL: paymentPageURL,
	}
}
