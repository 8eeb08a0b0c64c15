package controller

import (
	"net/http"
	"strconv"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	"github.com/cassiomorais/checkout-gateway/internal/service"
	"github.com/go-chi/chi/v5"
)

// ReturnController handles the customer's redirect back from the payment
// page. Requests are authenticated by the HMAC token embedded in the return
// URL at confirm time, not by a session.
type ReturnController struct {
	orders       order.Repository
	transactions *service.TransactionService
	asm          *service.Assembler
	charges      gateway.ChargeAttemptAPI
}

// NewReturnController creates a new ReturnController.
func NewReturnController(
	orders order.Repository,
	transactions *service.TransactionService,
	asm *service.Assembler,
	charges gateway.ChargeAttemptAPI,
) *ReturnController {
	return &ReturnController{
		orders:       orders,
		transactions: transactions,
		asm:          asm,
		charges:      charges,
	}
}

// Return handles GET /return/{orderID}
func (h *ReturnController) Return(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, domainErrors.NewValidationError("orderID", "must be a positive integer"))
		return
	}

	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !h.asm.VerifyReturnToken(o, r.URL.Query().Get("token")) {
		writeError(w, domainErrors.ErrInvalidReturnToken)
		return
	}

	outcome := r.URL.Query().Get("outcome")
	resp := ReturnResponse{OrderID: orderID, Outcome: outcome}

	switch outcome {
	case "success":
		// The webhook may still be in flight; give it a bounded window to
		// land before reporting the state.
		h.transactions.WaitForState(r.Context(), orderID,
			transaction.StateAuthorized, transaction.StateCompleted, transaction.StateFulfill)
	case "failure":
		resp.FailureReason = h.failureReason(r, orderID)
	default:
		writeError(w, domainErrors.NewValidationError("outcome", "must be success or failure"))
		return
	}

	if tx, err := h.transactions.ByOrder(r.Context(), orderID); err == nil {
		resp.State = string(tx.State)
	}
	writeJSON(w, http.StatusOK, resp)
}

// failureReason surfaces the remote decline message, when one exists.
func (h *ReturnController) failureReason(r *http.Request, orderID int64) string {
	tx, err := h.transactions.ByOrder(r.Context(), orderID)
	if err != nil {
		return ""
	}
	attempts, err := h.charges.SearchByTransaction(r.Context(), tx.SpaceID, tx.ID)
	if err != nil {
		return ""
	}
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].FailureReason != "" {
			return attempts[i].FailureReason
		}
	}
	return ""
}
