package cache

import (
	"context"
	"sync"
)

// MetadataStore is the persistent cart-metadata tier: the host platform's
// durable key-value capability. Get returns nil, nil when the key is absent.
type MetadataStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionStore is the cookie-backed session tier: named string values with
// explicit write-back handled by the host. Implementations resolve the
// customer's session from the context. Decode failures on read degrade
// silently to a miss.
type SessionStore interface {
	Value(ctx context.Context, name string) (string, bool)
	SetValue(ctx context.Context, name, value string)
	DeleteValue(ctx context.Context, name string)
}

// MemoryMetadataStore is an in-process MetadataStore, used in tests and as
// the degraded mode when no durable store is configured.
type MemoryMetadataStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{data: make(map[string][]byte)}
}

func (s *MemoryMetadataStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryMetadataStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *MemoryMetadataStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// MemorySessionStore is an in-process SessionStore for tests and for flows
// with no cookie context.
type MemorySessionStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{values: make(map[string]string)}
}

func (s *MemorySessionStore) Value(ctx context.Context, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *MemorySessionStore) SetValue(ctx context.Context, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *MemorySessionStore) DeleteValue(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}
