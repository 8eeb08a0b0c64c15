package cache

import (
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_ValidWithinTTL(t *testing.T) {
	now := time.Now()
	e, err := NewEntry("hash-a", 60*time.Second, now, map[string]string{"k": "v"})
	require.NoError(t, err)

	assert.True(t, e.Valid("hash-a", now))
	assert.True(t, e.Valid("hash-a", now.Add(59*time.Second)))
}

func TestEntry_InvalidAfterExpiry(t *testing.T) {
	now := time.Now()
	e, err := NewEntry("hash-a", 60*time.Second, now, "payload")
	require.NoError(t, err)

	assert.False(t, e.Valid("hash-a", now.Add(61*time.Second)))
}

func TestEntry_InvalidOnHashMismatch(t *testing.T) {
	now := time.Now()
	e, err := NewEntry("hash-a", 60*time.Second, now, "payload")
	require.NoError(t, err)

	assert.False(t, e.Valid("hash-b", now))
}

func TestEntry_EmptyHashNeverValid(t *testing.T) {
	e := &Entry{Hash: "", Expires: time.Now().Add(time.Hour).Unix(), Payload: []byte(`"x"`)}
	assert.False(t, e.Valid("", time.Now()))
}

func TestEntry_RefreshExtendsExpiry(t *testing.T) {
	now := time.Now()
	e, err := NewEntry("hash-a", 60*time.Second, now, "payload")
	require.NoError(t, err)

	later := now.Add(2 * time.Minute)
	assert.False(t, e.Valid("hash-a", later))

	refreshed := e.Refresh(60*time.Second, later)
	assert.True(t, refreshed.Valid("hash-a", later))
	assert.Equal(t, e.Hash, refreshed.Hash)
	assert.Equal(t, e.Payload, refreshed.Payload)
	// The original is untouched.
	assert.False(t, e.Valid("hash-a", later))
}

func TestEntry_EncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now()
	e, err := NewEntry("hash-a", 60*time.Second, now, []int64{1, 2, 3})
	require.NoError(t, err)

	raw, err := e.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, e.Hash, decoded.Hash)
	assert.Equal(t, e.Expires, decoded.Expires)
	assert.JSONEq(t, string(e.Payload), string(decoded.Payload))
}

func TestDecodeEntry_MissingFieldsIsCacheMiss(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "{{"},
		{"no hash", `{"expires": 123, "payload": "x"}`},
		{"no expires", `{"hash": "h", "payload": "x"}`},
		{"no payload", `{"hash": "h", "expires": 123}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEntry([]byte(tc.raw))
			assert.ErrorIs(t, err, domainErrors.ErrCacheMiss)
		})
	}
}

func TestDecodeEntry_IgnoresUnknownFields(t *testing.T) {
	raw := []byte(`{"hash": "h", "expires": 123, "payload": "x", "extra": true}`)
	e, err := DecodeEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, "h", e.Hash)
}
