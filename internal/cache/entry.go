package cache

import (
	"encoding/json"
	"time"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
)

// Entry is the generic cache record stored in every tier: a cart fingerprint,
// an absolute expiry, and an opaque payload. An entry answers a read only
// while the stored hash equals the cart's current fingerprint and the expiry
// has not passed; an entry that fails either check is kept around as a
// fallback candidate for remote outages.
type Entry struct {
	Hash    string          `json:"hash"`
	Expires int64           `json:"expires"`
	Payload json.RawMessage `json:"payload"`
}

// NewEntry builds an entry expiring ttl from now with the payload marshalled
// to JSON.
func NewEntry(hash string, ttl time.Duration, now time.Time, payload any) (*Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, domainErrors.NewDomainError("cache_encode", "encode cache payload", err)
	}
	return &Entry{
		Hash:    hash,
		Expires: now.Add(ttl).Unix(),
		Payload: raw,
	}, nil
}

// Valid reports whether the entry may answer a read for the given fingerprint.
func (e *Entry) Valid(hash string, now time.Time) bool {
	return e != nil && e.Hash != "" && e.Hash == hash && e.Expires >= now.Unix()
}

// Expired reports whether the expiry has passed, regardless of fingerprint.
func (e *Entry) Expired(now time.Time) bool {
	return e == nil || e.Expires < now.Unix()
}

// Refresh returns a copy of the entry with a new expiry, used when a stale
// entry is re-persisted after a remote failure.
func (e *Entry) Refresh(ttl time.Duration, now time.Time) *Entry {
	out := *e
	out.Expires = now.Add(ttl).Unix()
	return &out
}

// Encode serializes the entry for a byte-oriented tier.
func (e *Entry) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEntry parses a stored entry. Unknown fields are ignored for forward
// compatibility; a record missing any required field is a cache miss, not an
// error worth surfacing.
func DecodeEntry(raw []byte) (*Entry, error) {
	if len(raw) == 0 {
		return nil, domainErrors.ErrCacheMiss
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, domainErrors.ErrCacheMiss
	}
	if e.Hash == "" || e.Expires == 0 || len(e.Payload) == 0 {
		return nil, domainErrors.ErrCacheMiss
	}
	return &e, nil
}
