package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cached value could not be used
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a key-value backend for serialized responses.
type Store interface {
	// Get returns the stored value or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of 0 keeps the value until the
	// backend evicts it.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Name identifies the backend in metrics and logs.
	Name() string

	// Close releases backend connections.
	Close() error
}
