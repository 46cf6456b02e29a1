package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/uvensys/gatekeeper/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

// Store implements store.Interface on top of valkey (or redis). It is the
// backend to use when both bots share configuration, since bbolt files can
// only be opened by one process. Every key is prefixed with the configured
// prefix so other applications can share the database.
type Store struct {
	rdb    *valkey.Client
	prefix string
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("can't delete from valkey: %w", err)
	}

	switch n {
	case 0:
		return fmt.Errorf("%w: %d key(s) deleted", store.ErrNotFound, n)
	default:
		return nil
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err != nil {
		if valkey.HasErrorPrefix(err, "redis: nil") {
			return nil, fmt.Errorf("%w: %w", store.ErrNotFound, err)
		}

		return nil, fmt.Errorf("can't fetch from valkey: %w", err)
	}

	return []byte(result), nil
}

// Set stores value under key. A zero expiry maps to a key without TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	if _, err := s.rdb.Set(ctx, s.key(key), string(value), expiry).Result(); err != nil {
		return fmt.Errorf("can't set %q in valkey: %w", key, err)
	}

	return nil
}
