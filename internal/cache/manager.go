package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Tier TTLs. Writes stamp expiry = now + TTL.
const (
	MethodsTTL  = 120 * time.Second
	SnapshotTTL = 60 * time.Second
	IframeTTL   = 300 * time.Second
)

// Key kinds, used for metric labels.
const (
	kindTransaction = "transaction"
	kindMethods     = "methods"
	kindURL         = "javascript_url"
	kindCartHash    = "cart_hash"
	kindMapping     = "mapping"
)

// Tier names.
const (
	tierLocal      = "local"
	tierSession    = "session"
	tierPersistent = "persistent"
)

func transactionKey(cartID int64) string { return fmt.Sprintf("pgw:cart:%d:transaction", cartID) }
func methodsKey(cartID int64) string     { return fmt.Sprintf("pgw:cart:%d:methods", cartID) }
func urlKey(cartID int64) string         { return fmt.Sprintf("pgw:cart:%d:jsurl", cartID) }
func cartHashKey(cartID int64) string    { return fmt.Sprintf("pgw:cart:%d:hash", cartID) }
func mappingKey(cartID int64) string     { return fmt.Sprintf("pgw:cart:%d:mapping", cartID) }

func orderMappingKey(orderID int64) string { return fmt.Sprintf("pgw:order:%d:mapping", orderID) }

func sessionMethodsName(cartID int64) string { return fmt.Sprintf("pgw_methods_%d", cartID) }

// transactionSnapshot is the persisted shape of the transaction cache.
type transactionSnapshot struct {
	SpaceID       int64                    `json:"space_id"`
	TransactionID int64                    `json:"transaction_id"`
	Data          *transaction.Transaction `json:"data"`
}

// urlSnapshot is the persisted shape of the javascript-URL cache.
type urlSnapshot struct {
	SpaceID       int64  `json:"space_id"`
	TransactionID int64  `json:"transaction_id"`
	URL           string `json:"url"`
}

// MethodsFallback is a stale-but-structurally-valid payment-method entry kept
// as the answer of last resort when the remote fetch fails.
type MethodsFallback struct {
	Methods []method.Configuration
	Hash    string
}

// defaultLocalCapacity bounds the in-process tier when one Manager is shared
// across requests. Entries are small (a snapshot, a method list, a URL), so
// this covers a few thousand concurrently active carts.
const defaultLocalCapacity = 4096

// Manager serves cached checkout state per cart across three tiers: a bounded
// in-process map, the cookie-backed session, and the persistent cart metadata
// store. Reads prefer the freshest valid tier; writes go to every tier. A
// single Manager is shared process-wide: the local tier evicts expired entries
// once it reaches capacity and never grows past it, so abandoned carts cost at
// most one slot until their TTL runs out.
type Manager struct {
	mu       sync.Mutex
	local    map[string]*Entry
	capacity int
	session  SessionStore
	meta     MetadataStore
	metrics  *observability.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

type ManagerOption func(*Manager)

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLocalCapacity overrides the local tier's entry cap.
func WithLocalCapacity(n int) ManagerOption {
	return func(m *Manager) { m.capacity = n }
}

func NewManager(session SessionStore, meta MetadataStore, metrics *observability.Metrics, log zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		local:    make(map[string]*Entry),
		capacity: defaultLocalCapacity,
		session:  session,
		meta:     meta,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// storeLocal inserts the entry into the local tier, evicting once the cap is
// reached: expired entries first, then arbitrary ones until a slot frees up.
func (m *Manager) storeLocal(key string, e *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.local[key]; !exists && len(m.local) >= m.capacity {
		now := m.now()
		for k, old := range m.local {
			if old.Expired(now) {
				delete(m.local, k)
			}
		}
		for k := range m.local {
			if len(m.local) < m.capacity {
				break
			}
			delete(m.local, k)
		}
	}
	m.local[key] = e
}

// read consults the local then persistent tier. It returns the first valid
// entry (promoting persistent hits into the local map) and, separately, the
// best structurally-valid-but-stale candidate for fallback use.
func (m *Manager) read(ctx context.Context, key, kind, hash string) (valid, stale *Entry) {
	now := m.now()

	m.mu.Lock()
	if e, ok := m.local[key]; ok {
		if e.Valid(hash, now) {
			m.mu.Unlock()
			m.metrics.CacheHits.WithLabelValues(kind, tierLocal).Inc()
			return e, nil
		}
		stale = e
	}
	m.mu.Unlock()

	raw, err := m.meta.Get(ctx, key)
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("metadata tier read failed")
		return nil, stale
	}
	e, err := DecodeEntry(raw)
	if err != nil {
		return nil, stale
	}
	if !e.Valid(hash, now) {
		return nil, e
	}

	m.storeLocal(key, e)
	m.metrics.CacheHits.WithLabelValues(kind, tierPersistent).Inc()
	return e, stale
}

// write stores the entry in the local and persistent tiers.
func (m *Manager) write(ctx context.Context, key string, e *Entry) error {
	m.storeLocal(key, e)

	raw, err := e.Encode()
	if err != nil {
		return err
	}
	return m.meta.Set(ctx, key, raw)
}

// purge removes the key from the local and persistent tiers.
func (m *Manager) purge(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.local, key)
	m.mu.Unlock()
	if err := m.meta.Delete(ctx, key); err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("metadata tier delete failed")
	}
}

// --- Transaction snapshot ---

// Transaction returns the cached transaction snapshot if it is still
// representative of the cart contents.
func (m *Manager) Transaction(ctx context.Context, cartID int64, hash string) (*transaction.Transaction, bool) {
	e, _ := m.read(ctx, transactionKey(cartID), kindTransaction, hash)
	if e == nil {
		m.metrics.CacheMisses.WithLabelValues(kindTransaction).Inc()
		return nil, false
	}
	var snap transactionSnapshot
	if err := json.Unmarshal(e.Payload, &snap); err != nil || snap.Data == nil {
		m.metrics.CacheMisses.WithLabelValues(kindTransaction).Inc()
		return nil, false
	}
	return snap.Data, true
}

// SetTransaction caches the transaction snapshot with the snapshot TTL.
func (m *Manager) SetTransaction(ctx context.Context, cartID int64, hash string, tx *transaction.Transaction) error {
	e, err := NewEntry(hash, SnapshotTTL, m.now(), transactionSnapshot{
		SpaceID:       tx.SpaceID,
		TransactionID: tx.ID,
		Data:          tx,
	})
	if err != nil {
		return err
	}
	return m.write(ctx, transactionKey(cartID), e)
}

// --- Payment methods ---

// Methods returns the cached payment-method list if any tier holds a valid
// entry, walking local, session, then persistent. The second return value is
// the preferred fallback candidate when no tier is valid: session-tier stale
// wins over persistent-tier stale.
func (m *Manager) Methods(ctx context.Context, cartID int64, hash string) ([]method.Configuration, *MethodsFallback, bool) {
	now := m.now()
	var fallback *MethodsFallback

	// Local tier.
	m.mu.Lock()
	localEntry := m.local[methodsKey(cartID)]
	m.mu.Unlock()
	if localEntry != nil {
		if methods, err := decodeMethodsPayload(localEntry.Payload); err == nil {
			if localEntry.Valid(hash, now) {
				m.metrics.CacheHits.WithLabelValues(kindMethods, tierLocal).Inc()
				return methods, nil, true
			}
			fallback = &MethodsFallback{Methods: methods, Hash: localEntry.Hash}
		}
	}

	// Session tier: compact references, base64-encoded. Read failures
	// degrade silently to a miss.
	if m.session != nil {
		if e, methods, ok := m.readSessionMethods(ctx, cartID); ok {
			if e.Valid(hash, now) {
				m.metrics.CacheHits.WithLabelValues(kindMethods, tierSession).Inc()
				return methods, nil, true
			}
			fallback = &MethodsFallback{Methods: methods, Hash: e.Hash}
		}
	}

	// Persistent tier: full objects.
	raw, err := m.meta.Get(ctx, methodsKey(cartID))
	if err != nil {
		m.log.Warn().Err(err).Int64("cart_id", cartID).Msg("metadata tier read failed")
	} else if e, derr := DecodeEntry(raw); derr == nil {
		if methods, merr := decodeMethodsPayload(e.Payload); merr == nil {
			if e.Valid(hash, now) {
				m.storeLocal(methodsKey(cartID), e)
				m.metrics.CacheHits.WithLabelValues(kindMethods, tierPersistent).Inc()
				return methods, nil, true
			}
			if fallback == nil {
				fallback = &MethodsFallback{Methods: methods, Hash: e.Hash}
			}
		}
	}

	m.metrics.CacheMisses.WithLabelValues(kindMethods).Inc()
	return nil, fallback, false
}

// SetMethods writes the payment-method list to all three tiers: full objects
// locally and persistently, the compact reference string in the session.
func (m *Manager) SetMethods(ctx context.Context, cartID int64, hash string, methods []method.Configuration) error {
	e, err := NewEntry(hash, MethodsTTL, m.now(), methods)
	if err != nil {
		return err
	}
	if err := m.write(ctx, methodsKey(cartID), e); err != nil {
		return err
	}
	m.writeSessionMethods(ctx, cartID, hash, methods)
	return nil
}

// RefreshFallback re-persists a stale entry with a fresh expiry after a
// remote failure, keeping the checkout UI populated through the outage.
func (m *Manager) RefreshFallback(ctx context.Context, cartID int64, fb *MethodsFallback) error {
	m.metrics.CacheFallbacks.WithLabelValues(kindMethods).Inc()
	return m.SetMethods(ctx, cartID, fb.Hash, fb.Methods)
}

func (m *Manager) readSessionMethods(ctx context.Context, cartID int64) (*Entry, []method.Configuration, bool) {
	v, ok := m.session.Value(ctx, sessionMethodsName(cartID))
	if !ok || v == "" {
		return nil, nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, nil, false
	}
	e, err := DecodeEntry(raw)
	if err != nil {
		return nil, nil, false
	}
	var compact string
	if err := json.Unmarshal(e.Payload, &compact); err != nil {
		return nil, nil, false
	}
	refs, err := method.DecodeCompact(compact)
	if err != nil {
		return nil, nil, false
	}
	hydrated := make([]method.Configuration, 0, len(refs))
	for _, r := range refs {
		hydrated = append(hydrated, r.Hydrate())
	}
	return e, hydrated, true
}

func (m *Manager) writeSessionMethods(ctx context.Context, cartID int64, hash string, methods []method.Configuration) {
	if m.session == nil {
		return
	}
	e, err := NewEntry(hash, MethodsTTL, m.now(), method.EncodeCompact(methods))
	if err != nil {
		return
	}
	raw, err := e.Encode()
	if err != nil {
		return
	}
	m.session.SetValue(ctx, sessionMethodsName(cartID), base64.StdEncoding.EncodeToString(raw))
}

func decodeMethodsPayload(raw json.RawMessage) ([]method.Configuration, error) {
	var methods []method.Configuration
	if err := json.Unmarshal(raw, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// --- Javascript URL ---

// JavascriptURL returns the cached iframe bootstrap URL.
func (m *Manager) JavascriptURL(ctx context.Context, cartID int64, hash string) (string, bool) {
	e, _ := m.read(ctx, urlKey(cartID), kindURL, hash)
	if e == nil {
		m.metrics.CacheMisses.WithLabelValues(kindURL).Inc()
		return "", false
	}
	var snap urlSnapshot
	if err := json.Unmarshal(e.Payload, &snap); err != nil || snap.URL == "" {
		m.metrics.CacheMisses.WithLabelValues(kindURL).Inc()
		return "", false
	}
	return snap.URL, true
}

// SetJavascriptURL caches the iframe bootstrap URL with the iframe TTL.
func (m *Manager) SetJavascriptURL(ctx context.Context, cartID int64, hash string, spaceID, transactionID int64, url string) error {
	e, err := NewEntry(hash, IframeTTL, m.now(), urlSnapshot{
		SpaceID:       spaceID,
		TransactionID: transactionID,
		URL:           url,
	})
	if err != nil {
		return err
	}
	return m.write(ctx, urlKey(cartID), e)
}

// InvalidateJavascriptURL drops only the URL cache, used after a transaction
// create or update changes what the iframe must load.
func (m *Manager) InvalidateJavascriptURL(ctx context.Context, cartID int64) {
	m.purge(ctx, urlKey(cartID))
}

// --- Cart hash ---

// CartHash returns the fingerprint recorded when the transaction was last
// synchronized with the cart. Stored as an opaque string, not an Entry.
func (m *Manager) CartHash(ctx context.Context, cartID int64) (string, bool) {
	raw, err := m.meta.Get(ctx, cartHashKey(cartID))
	if err != nil {
		m.log.Warn().Err(err).Int64("cart_id", cartID).Msg("metadata tier read failed")
		return "", false
	}
	if len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

// SetCartHash records the cart fingerprint the remote transaction reflects.
func (m *Manager) SetCartHash(ctx context.Context, cartID int64, hash string) error {
	return m.meta.Set(ctx, cartHashKey(cartID), []byte(hash))
}

// --- Cart-transaction mapping ---

// Mapping returns the persisted cart-transaction association.
func (m *Manager) Mapping(ctx context.Context, cartID int64) (*transaction.Mapping, bool) {
	raw, err := m.meta.Get(ctx, mappingKey(cartID))
	if err != nil {
		m.log.Warn().Err(err).Int64("cart_id", cartID).Msg("metadata tier read failed")
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	var mp transaction.Mapping
	if err := json.Unmarshal(raw, &mp); err != nil || mp.TransactionID == 0 {
		return nil, false
	}
	return &mp, true
}

// SetMapping persists the cart-transaction association.
func (m *Manager) SetMapping(ctx context.Context, cartID int64, mp transaction.Mapping) error {
	raw, err := json.Marshal(mp)
	if err != nil {
		return err
	}
	return m.meta.Set(ctx, mappingKey(cartID), raw)
}

// ClearMapping drops the cart-transaction association.
func (m *Manager) ClearMapping(ctx context.Context, cartID int64) {
	m.purge(ctx, mappingKey(cartID))
}

// OrderMapping returns the order-transaction association recorded at confirm
// time, so post-checkout flows can find the transaction after the cart's
// mapping is gone.
func (m *Manager) OrderMapping(ctx context.Context, orderID int64) (*transaction.Mapping, bool) {
	raw, err := m.meta.Get(ctx, orderMappingKey(orderID))
	if err != nil {
		m.log.Warn().Err(err).Int64("order_id", orderID).Msg("metadata tier read failed")
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	var mp transaction.Mapping
	if err := json.Unmarshal(raw, &mp); err != nil || mp.TransactionID == 0 {
		return nil, false
	}
	return &mp, true
}

// SetOrderMapping persists the order-transaction association.
func (m *Manager) SetOrderMapping(ctx context.Context, orderID int64, mp transaction.Mapping) error {
	raw, err := json.Marshal(mp)
	if err != nil {
		return err
	}
	return m.meta.Set(ctx, orderMappingKey(orderID), raw)
}

// ClearMethods drops the payment-method cache from every tier, used when a
// remote fetch fails with no fallback to serve.
func (m *Manager) ClearMethods(ctx context.Context, cartID int64) {
	m.purge(ctx, methodsKey(cartID))
	if m.session != nil {
		m.session.DeleteValue(ctx, sessionMethodsName(cartID))
	}
}

// InvalidateCart clears every cache key for the cart across all tiers:
// transaction snapshot, payment methods (including the session value),
// javascript URL and cart hash. The mapping is left to the reconciliation
// engine, which owns its lifecycle.
func (m *Manager) InvalidateCart(ctx context.Context, cartID int64, trigger string) {
	m.metrics.CacheInvalidations.WithLabelValues(trigger).Inc()
	m.purge(ctx, transactionKey(cartID))
	m.purge(ctx, methodsKey(cartID))
	m.purge(ctx, urlKey(cartID))
	m.purge(ctx, cartHashKey(cartID))
	if m.session != nil {
		m.session.DeleteValue(ctx, sessionMethodsName(cartID))
	}
	m.log.Debug().Int64("cart_id", cartID).Str("trigger", trigger).Msg("cart caches invalidated")
}
