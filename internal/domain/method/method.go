package method

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cassiomorais/checkout-gateway/internal/domain/errors"
)

// Kind tags a Configuration as either the full remote object or a bare
// reference rebuilt from the compact session encoding.
type Kind string

const (
	KindFull      Kind = "full"
	KindReference Kind = "reference"
)

// Configuration identifies a payment method configuration on the remote
// platform. A reference carries only (space id, id); hydration turns it into
// a stub that is equivalent to a full object for display and selection.
type Configuration struct {
	SpaceID     int64  `json:"space_id"`
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
	Kind        Kind   `json:"kind"`
}

// NewReference builds a bare reference to a remote configuration.
func NewReference(spaceID, id int64) Configuration {
	return Configuration{SpaceID: spaceID, ID: id, Kind: KindReference}
}

// Hydrate fills the display fields a stub needs. Full objects pass through
// unchanged.
func (c Configuration) Hydrate() Configuration {
	if c.Kind == KindFull {
		return c
	}
	out := c
	if out.Name == "" {
		out.Name = fmt.Sprintf("Payment method %d", c.ID)
	}
	return out
}

// CompactKey returns the "spaceId:id" form used by the session tier.
func (c Configuration) CompactKey() string {
	return fmt.Sprintf("%d:%d", c.SpaceID, c.ID)
}

// EncodeCompact serializes configurations into the delimited session-tier
// string: "spaceId:id|spaceId:id|...".
func EncodeCompact(methods []Configuration) string {
	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		parts = append(parts, m.CompactKey())
	}
	return strings.Join(parts, "|")
}

// DecodeCompact parses the delimited session encoding back into references.
// A malformed segment fails the whole decode; callers treat that as a cache
// miss.
func DecodeCompact(s string) ([]Configuration, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	out := make([]Configuration, 0, len(parts))
	for _, p := range parts {
		spaceStr, idStr, ok := strings.Cut(p, ":")
		if !ok {
			return nil, errors.NewValidationError("methods", "malformed compact segment "+p)
		}
		spaceID, err := strconv.ParseInt(spaceStr, 10, 64)
		if err != nil {
			return nil, errors.NewValidationError("methods", "malformed space id in "+p)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, errors.NewValidationError("methods", "malformed id in "+p)
		}
		out = append(out, NewReference(spaceID, id))
	}
	return out, nil
}
