package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a namespaced byte store with per-key expiry.
type Storage struct {
	db     redis.UniversalClient
	prefix string
}

// NewStorage wraps client; every key is stored under prefix.
func NewStorage(client redis.UniversalClient, prefix string) *Storage {
	if client == nil {
		panic("redis: client cannot be nil")
	}
	return &Storage{db: client, prefix: prefix}
}

// Get returns the stored value or ErrCacheMiss.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

// Set stores val under key. A zero ttl keeps the key until it is deleted.
func (s *Storage) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.db.Set(ctx, s.prefix+key, val, ttl).Err()
}

// Delete removes key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.db.Del(ctx, s.prefix+key).Err()
}
