package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// metadataRetention bounds how long abandoned cart metadata lingers. Entries
// carry their own expiry; this only keeps dead carts from accumulating.
const metadataRetention = 7 * 24 * time.Hour

// MetadataStore implements the persistent cart-metadata tier on Redis.
type MetadataStore struct {
	client *redis.Client
}

// NewMetadataStore creates a Redis-backed metadata store.
func NewMetadataStore(client *redis.Client) *MetadataStore {
	return &MetadataStore{client: client}
}

// Get returns the stored value, or nil, nil when the key is absent.
func (s *MetadataStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

func (s *MetadataStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, metadataRetention).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *MetadataStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
