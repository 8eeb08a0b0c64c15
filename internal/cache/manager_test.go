package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFixture struct {
	manager *Manager
	session *MemorySessionStore
	meta    *MemoryMetadataStore
	now     time.Time
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		session: NewMemorySessionStore(),
		meta:    NewMemoryMetadataStore(),
		now:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	f.manager = NewManager(f.session, f.meta, metrics, zerolog.Nop(), WithClock(func() time.Time {
		return f.now
	}))
	return f
}

func (f *managerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func testTransaction() *transaction.Transaction {
	return &transaction.Transaction{
		SpaceID: 5,
		ID:      1001,
		State:   transaction.StatePending,
		Version: 1,
		Draft:   transaction.Draft{CurrencyCode: "EUR"},
	}
}

func TestManager_TransactionRoundTrip(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	_, ok := f.manager.Transaction(ctx, 7, "hash-a")
	assert.False(t, ok)

	require.NoError(t, f.manager.SetTransaction(ctx, 7, "hash-a", testTransaction()))

	got, ok := f.manager.Transaction(ctx, 7, "hash-a")
	require.True(t, ok)
	assert.Equal(t, int64(1001), got.ID)
	assert.Equal(t, int64(1), got.Version)
}

func TestManager_TransactionMissOnHashChange(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetTransaction(ctx, 7, "hash-a", testTransaction()))

	_, ok := f.manager.Transaction(ctx, 7, "hash-b")
	assert.False(t, ok)
}

func TestManager_TransactionMissAfterTTL(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetTransaction(ctx, 7, "hash-a", testTransaction()))
	f.advance(SnapshotTTL + time.Second)

	_, ok := f.manager.Transaction(ctx, 7, "hash-a")
	assert.False(t, ok)
}

func TestManager_PersistentTierSurvivesLocalLoss(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetTransaction(ctx, 7, "hash-a", testTransaction()))

	// A new manager simulates the next request on another instance sharing
	// the metadata store.
	metrics := observability.NewMetrics("test2", prometheus.NewRegistry())
	fresh := NewManager(NewMemorySessionStore(), f.meta, metrics, zerolog.Nop(), WithClock(func() time.Time {
		return f.now
	}))

	got, ok := fresh.Transaction(ctx, 7, "hash-a")
	require.True(t, ok)
	assert.Equal(t, int64(1001), got.ID)
}

func testMethods() []method.Configuration {
	return []method.Configuration{
		{SpaceID: 5, ID: 31, Name: "Card", Kind: method.KindFull},
		{SpaceID: 5, ID: 32, Name: "Invoice", Kind: method.KindFull},
	}
}

func TestManager_MethodsRoundTrip(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetMethods(ctx, 7, "hash-a", testMethods()))

	got, fb, ok := f.manager.Methods(ctx, 7, "hash-a")
	require.True(t, ok)
	assert.Nil(t, fb)
	require.Len(t, got, 2)
	assert.Equal(t, "Card", got[0].Name)
}

func TestManager_MethodsSessionTierServesOtherInstance(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetMethods(ctx, 7, "hash-a", testMethods()))

	// Same session, different instance with an empty metadata store: only
	// the cookie tier can answer, with hydrated references.
	metrics := observability.NewMetrics("test2", prometheus.NewRegistry())
	fresh := NewManager(f.session, NewMemoryMetadataStore(), metrics, zerolog.Nop(), WithClock(func() time.Time {
		return f.now
	}))

	got, _, ok := fresh.Methods(ctx, 7, "hash-a")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, int64(31), got[0].ID)
	assert.Equal(t, method.KindReference, got[0].Kind)
	assert.NotEmpty(t, got[0].Name)
}

func TestManager_MethodsStaleEntryBecomesFallback(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetMethods(ctx, 7, "hash-a", testMethods()))
	f.advance(MethodsTTL + time.Second)

	got, fb, ok := f.manager.Methods(ctx, 7, "hash-a")
	assert.False(t, ok)
	assert.Nil(t, got)
	require.NotNil(t, fb)
	assert.Equal(t, "hash-a", fb.Hash)
	assert.Len(t, fb.Methods, 2)
}

func TestManager_RefreshFallbackRevalidates(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetMethods(ctx, 7, "hash-a", testMethods()))
	f.advance(MethodsTTL + time.Second)

	_, fb, ok := f.manager.Methods(ctx, 7, "hash-a")
	require.False(t, ok)
	require.NotNil(t, fb)

	require.NoError(t, f.manager.RefreshFallback(ctx, 7, fb))

	got, _, ok := f.manager.Methods(ctx, 7, "hash-a")
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestManager_CorruptSessionValueDegradesToMiss(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	f.session.SetValue(ctx, sessionMethodsName(7), "!!not-base64!!")

	_, fb, ok := f.manager.Methods(ctx, 7, "hash-a")
	assert.False(t, ok)
	assert.Nil(t, fb)
}

func TestManager_ClearMethodsDropsEveryTier(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetMethods(ctx, 7, "hash-a", testMethods()))
	f.manager.ClearMethods(ctx, 7)

	_, fb, ok := f.manager.Methods(ctx, 7, "hash-a")
	assert.False(t, ok)
	assert.Nil(t, fb)
	_, sessionLeft := f.session.Value(ctx, sessionMethodsName(7))
	assert.False(t, sessionLeft)
}

func TestManager_JavascriptURLRoundTrip(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetJavascriptURL(ctx, 7, "hash-a", 5, 1001, "https://pay.example.com/js"))

	url, ok := f.manager.JavascriptURL(ctx, 7, "hash-a")
	require.True(t, ok)
	assert.Equal(t, "https://pay.example.com/js", url)

	f.manager.InvalidateJavascriptURL(ctx, 7)
	_, ok = f.manager.JavascriptURL(ctx, 7, "hash-a")
	assert.False(t, ok)
}

func TestManager_MappingLifecycle(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	_, ok := f.manager.Mapping(ctx, 7)
	assert.False(t, ok)

	require.NoError(t, f.manager.SetMapping(ctx, 7, transaction.Mapping{SpaceID: 5, TransactionID: 1001}))

	mp, ok := f.manager.Mapping(ctx, 7)
	require.True(t, ok)
	assert.True(t, mp.Matches(5))
	assert.False(t, mp.Matches(6))

	f.manager.ClearMapping(ctx, 7)
	_, ok = f.manager.Mapping(ctx, 7)
	assert.False(t, ok)
}

func TestManager_OrderMappingRoundTrip(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetOrderMapping(ctx, 42, transaction.Mapping{SpaceID: 5, TransactionID: 1001}))

	mp, ok := f.manager.OrderMapping(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, int64(1001), mp.TransactionID)
}

func TestManager_InvalidateCartKeepsMapping(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetTransaction(ctx, 7, "hash-a", testTransaction()))
	require.NoError(t, f.manager.SetMethods(ctx, 7, "hash-a", testMethods()))
	require.NoError(t, f.manager.SetJavascriptURL(ctx, 7, "hash-a", 5, 1001, "https://pay.example.com/js"))
	require.NoError(t, f.manager.SetCartHash(ctx, 7, "hash-a"))
	require.NoError(t, f.manager.SetMapping(ctx, 7, transaction.Mapping{SpaceID: 5, TransactionID: 1001}))

	f.manager.InvalidateCart(ctx, 7, "test")

	_, ok := f.manager.Transaction(ctx, 7, "hash-a")
	assert.False(t, ok)
	_, fb, ok := f.manager.Methods(ctx, 7, "hash-a")
	assert.False(t, ok)
	assert.Nil(t, fb)
	_, ok = f.manager.JavascriptURL(ctx, 7, "hash-a")
	assert.False(t, ok)
	_, ok = f.manager.CartHash(ctx, 7)
	assert.False(t, ok)

	// The mapping belongs to the reconciliation engine, not the cache sweep.
	_, ok = f.manager.Mapping(ctx, 7)
	assert.True(t, ok)
}

func TestManager_CartHashRoundTrip(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetCartHash(ctx, 7, "hash-a"))

	h, ok := f.manager.CartHash(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "hash-a", h)
}

func boundedManager(now *time.Time, capacity int) *Manager {
	return NewManager(
		NewMemorySessionStore(), NewMemoryMetadataStore(),
		observability.NewMetrics("test", prometheus.NewRegistry()), zerolog.Nop(),
		WithClock(func() time.Time { return *now }), WithLocalCapacity(capacity),
	)
}

func (m *Manager) localKeys() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make(map[string]bool, len(m.local))
	for k := range m.local {
		keys[k] = true
	}
	return keys
}

func TestManager_LocalTierNeverExceedsCapacity(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := boundedManager(&now, 3)
	ctx := context.Background()

	for id := int64(1); id <= 10; id++ {
		require.NoError(t, m.SetTransaction(ctx, id, "hash-a", testTransaction()))
	}

	assert.LessOrEqual(t, len(m.localKeys()), 3)
}

func TestManager_LocalTierEvictsExpiredBeforeLive(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := boundedManager(&now, 3)
	ctx := context.Background()

	require.NoError(t, m.SetTransaction(ctx, 1, "hash-a", testTransaction()))
	require.NoError(t, m.SetTransaction(ctx, 2, "hash-a", testTransaction()))

	// Carts 1 and 2 run out their TTL; cart 3 is written fresh, filling the
	// tier to capacity.
	now = now.Add(SnapshotTTL + time.Second)
	require.NoError(t, m.SetTransaction(ctx, 3, "hash-a", testTransaction()))

	// The next insert sweeps the expired entries instead of a live one.
	require.NoError(t, m.SetTransaction(ctx, 4, "hash-a", testTransaction()))

	keys := m.localKeys()
	assert.False(t, keys[transactionKey(1)])
	assert.False(t, keys[transactionKey(2)])
	assert.True(t, keys[transactionKey(3)])
	assert.True(t, keys[transactionKey(4)])
}

func TestManager_LocalTierRewriteDoesNotEvict(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := boundedManager(&now, 2)
	ctx := context.Background()

	require.NoError(t, m.SetTransaction(ctx, 1, "hash-a", testTransaction()))
	require.NoError(t, m.SetTransaction(ctx, 2, "hash-a", testTransaction()))

	// Overwriting a resident key must not push out its neighbor.
	require.NoError(t, m.SetTransaction(ctx, 1, "hash-b", testTransaction()))

	keys := m.localKeys()
	assert.True(t, keys[transactionKey(1)])
	assert.True(t, keys[transactionKey(2)])
}
