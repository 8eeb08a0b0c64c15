package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/webhook"
	"github.com/rs/zerolog"
)

// maxWebhookBody caps notification payloads; real events are a few hundred
// bytes.
const maxWebhookBody = 64 << 10

// WebhookController receives transaction state notifications from the remote
// service.
type WebhookController struct {
	syncer *webhook.Syncer
	secret string
	log    zerolog.Logger
}

// NewWebhookController creates a new WebhookController. With an empty secret
// signature verification is skipped, for setups where the listener predates
// signing.
func NewWebhookController(syncer *webhook.Syncer, secret string, log zerolog.Logger) *WebhookController {
	return &WebhookController{syncer: syncer, secret: secret, log: log}
}

// Handle handles POST /webhook
func (h *WebhookController) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("body", "unreadable body"))
		return
	}

	if h.secret != "" && !h.verifySignature(body, r.Header.Get("X-Signature")) {
		h.log.Warn().Msg("webhook signature mismatch")
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "invalid signature", Code: "invalid_signature"})
		return
	}

	var ev webhook.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, domainErrors.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	// Non-2xx makes the remote service redeliver, which is what we want for
	// transient failures.
	if err := h.syncer.Apply(r.Context(), ev); err != nil {
		h.log.Error().Err(err).Int64("entity_id", ev.EntityID).Msg("webhook processing failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "processing failed", Code: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookController) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
