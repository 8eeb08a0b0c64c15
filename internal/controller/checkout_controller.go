package controller

import (
	"net/http"
	"strconv"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/service"
	"github.com/go-chi/chi/v5"
)

// CheckoutController handles the storefront-facing checkout endpoints.
type CheckoutController struct {
	methods      *service.MethodService
	transactions *service.TransactionService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(methods *service.MethodService, transactions *service.TransactionService) *CheckoutController {
	return &CheckoutController{methods: methods, transactions: transactions}
}

// ListMethods handles GET /api/v1/carts/{id}/payment-methods
func (h *CheckoutController) ListMethods(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	opts := service.MethodOptions{
		FailSilently: r.URL.Query().Get("silent") == "true",
		ForceReload:  r.URL.Query().Get("reload") == "true",
	}
	methods, err := h.methods.Possible(r.Context(), cartID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromMethods(methods))
}

// Iframe handles GET /api/v1/carts/{id}/iframe
func (h *CheckoutController) Iframe(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	url, err := h.transactions.JavascriptURL(r.Context(), cartID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IframeResponse{JavascriptURL: url})
}

// Checkout handles POST /api/v1/carts/{id}/checkout
func (h *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	confirmed, orders, err := h.transactions.Confirm(r.Context(), cartID, req.PaymentMethodID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Best effort; the storefront can also drive the payment from the
	// already-loaded iframe.
	pageURL, err := h.transactions.PaymentPageFor(r.Context(), confirmed)
	if err != nil {
		pageURL = ""
	}

	writeJSON(w, http.StatusOK, FromCheckout(confirmed, orders, pageURL))
}

func cartIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, domainErrors.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
