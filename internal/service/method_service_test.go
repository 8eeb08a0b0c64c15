package service

import (
	"context"
	"testing"
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/cache"
	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/config"
	"github.com/cassiomorais/checkout-gateway/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPossible_FetchesAndCaches(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))

	methods, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "Card", methods[0].Name)

	// Resolving the transaction triggered one eager fetch, the service at
	// most one more; after that the cache answers.
	fetchesAfterFirst := f.remote.fetches

	again, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, fetchesAfterFirst, f.remote.fetches)
}

func TestPossible_ServesStaleOnRemoteFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))

	_, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)

	// Everything cached has expired and the remote service is down.
	f.advance(cache.MethodsTTL + time.Second)
	f.remote.failAll = true

	methods, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)
	assert.Len(t, methods, 2)
}

func TestPossible_StaleFallbackIsRePersisted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))

	_, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)

	f.advance(cache.MethodsTTL + time.Second)
	f.remote.failAll = true

	_, err = f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)

	// The fallback got a fresh expiry, so the next call during the outage is
	// a plain cache hit with no further remote attempts.
	attempts := f.remote.fetches + f.remote.reads + f.remote.creates

	methods, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)
	assert.Len(t, methods, 2)
	assert.Equal(t, attempts, f.remote.fetches+f.remote.reads+f.remote.creates)
}

func TestPossible_SilentFailureDegradesToEmptyList(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))
	f.remote.failAll = true

	methods, err := f.methods.Possible(ctx, 7, MethodOptions{FailSilently: true})
	require.NoError(t, err)
	assert.Empty(t, methods)
	assert.NotNil(t, methods)
}

func TestPossible_LoudFailurePropagates(t *testing.T) {
	f := newServiceFixture(t)
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))
	f.remote.failAll = true

	_, err := f.methods.Possible(context.Background(), 7, MethodOptions{})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayUnavailable)
}

func TestPossible_ConfigIncompleteNeverSilenced(t *testing.T) {
	f := newServiceFixture(t)
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))

	broken := *f.methods
	broken.cfg = config.GatewayConfig{}

	_, err := broken.Possible(context.Background(), 7, MethodOptions{FailSilently: true})
	assert.ErrorIs(t, err, domainErrors.ErrConfigIncomplete)
}

func TestPossible_ForceReloadRefetches(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))

	_, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)
	before := f.remote.fetches

	_, err = f.methods.Possible(ctx, 7, MethodOptions{ForceReload: true})
	require.NoError(t, err)
	assert.Greater(t, f.remote.fetches, before)
}

func TestPossible_ForceReloadKeepsValidEntryAsFallback(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.carts.AddCart(testutil.NewTestCart(7, "EUR"))

	_, err := f.methods.Possible(ctx, 7, MethodOptions{})
	require.NoError(t, err)

	// Cache still valid, remote down: the forced reload must not lose the
	// good entry it just bypassed.
	f.remote.failAll = true

	methods, err := f.methods.Possible(ctx, 7, MethodOptions{ForceReload: true})
	require.NoError(t, err)
	assert.Len(t, methods, 2)
}

func TestPossible_UnknownCart(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.methods.Possible(context.Background(), 999, MethodOptions{})
	assert.ErrorIs(t, err, domainErrors.ErrCartNotFound)
}
