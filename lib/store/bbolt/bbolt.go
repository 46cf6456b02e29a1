package bbolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uvensys/gatekeeper/lib/store"
	"go.etcd.io/bbolt"
)

// ErrNotExists is returned by Delete for keys that were never set.
var ErrNotExists = errors.New("bbolt: value does not exist in store")

var (
	keyData   = []byte("data")
	keyExpiry = []byte("expiry")
	never     = []byte("never")
)

// Store implements store.Interface backed by bbolt[1].
//
// Every value lives in its own bucket with two keys:
//
// 1. data - The raw data, usually in JSON
// 2. expiry - The expiry time formatted as a time.RFC3339Nano timestamp string,
// or "never"
//
// Keeping the expiry next to the data lets the cleanup pass scan expiry times
// without decoding records. Guild configuration and reaction-role mappings
// are written with no expiry and survive restarts.
//
// bbolt takes an exclusive file lock, so only one bot process can use a given
// database file. Run the verification and reaction-role bots against
// different files or use the valkey backend.
//
// [1]: https://github.com/etcd-io/bbolt
type Store struct {
	bdb *bbolt.DB
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.bdb.Close()
}

// Delete a key from the datastore. If the key does not exist, return an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(key)) == nil {
			return fmt.Errorf("%w: %w: %q", store.ErrNotFound, ErrNotExists, key)
		}

		return tx.DeleteBucket([]byte(key))
	})
}

func parseExpiry(raw []byte) (time.Time, error) {
	if bytes.Equal(raw, never) {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, string(raw))
}

// Get a value from the datastore.
//
// If the value has expired, deletion runs in the background and a "key not
// found" error is returned.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		itemBucket := tx.Bucket([]byte(key))
		if itemBucket == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		expiryStr := itemBucket.Get(keyExpiry)
		if expiryStr == nil {
			return fmt.Errorf("[unexpected] %w: %q (expiry is nil)", store.ErrNotFound, key)
		}

		expiry, err := parseExpiry(expiryStr)
		if err != nil {
			return fmt.Errorf("[unexpected] %w: %w", store.ErrCantDecode, err)
		}

		if !expiry.IsZero() && time.Now().After(expiry) {
			go s.Delete(context.Background(), key)
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		dataStr := itemBucket.Get(keyData)
		if dataStr == nil {
			return fmt.Errorf("[unexpected] %w: %q (data is nil)", store.ErrNotFound, key)
		}

		result = make([]byte, len(dataStr))
		copy(result, dataStr)

		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// Set a value into the store with a given expiry. A zero expiry never expires.
func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	var expires []byte
	if expiry > 0 {
		expires = []byte(time.Now().Add(expiry).Format(time.RFC3339Nano))
	} else {
		expires = never
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		valueBkt, err := tx.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return fmt.Errorf("%w: %w: %q (create bucket)", store.ErrCantEncode, err, key)
		}

		if err := valueBkt.Put(keyExpiry, expires); err != nil {
			return fmt.Errorf("%w: %q (expiry)", store.ErrCantEncode, key)
		}

		if err := valueBkt.Put(keyData, value); err != nil {
			return fmt.Errorf("%w: %q (data)", store.ErrCantEncode, key)
		}

		return nil
	})
}

func (s *Store) cleanup(ctx context.Context) (int, error) {
	now := time.Now()
	var expired [][]byte

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(key []byte, valueBkt *bbolt.Bucket) error {
			expiryStr := valueBkt.Get(keyExpiry)
			if expiryStr == nil {
				slog.Warn("while running cleanup, expiry is not set somehow, file a bug?", "key", string(key))
				return nil
			}

			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return fmt.Errorf("[unexpected] %w in bucket %q: %w", store.ErrCantDecode, string(key), err)
			}

			if !expiry.IsZero() && now.After(expiry) {
				expired = append(expired, append([]byte(nil), key...))
			}

			return nil
		})
	}); err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		return 0, nil
	}

	// Buckets can't be removed while ForEach walks them.
	return len(expired), s.bdb.Update(func(tx *bbolt.Tx) error {
		for _, key := range expired {
			if err := tx.DeleteBucket(key); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
		}

		return nil
	})
}

func (s *Store) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.cleanup(ctx)
			if err != nil {
				slog.Error("error during bbolt cleanup", "err", err)
				continue
			}
			if n != 0 {
				slog.Debug("bbolt cleanup", "removed", n)
			}
		}
	}
}
