package webhook

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout-gateway/internal/gateway"
	"github.com/rs/zerolog"
)

// EnsureSignatures walks the space's active webhook listeners and enables
// payload signing on any that still deliver unsigned. Run once at startup;
// listeners already signing are left untouched, so repeated runs are no-ops.
func EnsureSignatures(ctx context.Context, api gateway.WebhookListenerAPI, spaceID int64, log zerolog.Logger) error {
	listeners, err := api.ListActive(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("list webhook listeners: %w", err)
	}

	for _, l := range listeners {
		if l.SignatureEnabled {
			continue
		}
		l.SignatureEnabled = true
		if err := api.UpdateListener(ctx, spaceID, l); err != nil {
			return fmt.Errorf("enable signature on listener %d: %w", l.ID, err)
		}
		log.Info().Int64("listener_id", l.ID).Str("name", l.Name).Msg("webhook listener signature enabled")
	}
	return nil
}
