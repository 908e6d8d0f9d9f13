package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Manager applies the key scheme, entry TTL and metrics on top of a Store.
type Manager struct {
	store  Store
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEntryTTL sets an expiry on stored entries. The default of 0 leaves
// eviction to the backend: stale buckets are simply never addressed again.
func WithEntryTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock used to pick time buckets.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a cache manager writing keys under prefix.
func NewManager(store Store, prefix string, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	m := &Manager{
		store:  store,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key builds the key for url in the current time bucket.
func (m *Manager) Key(url string, requestsPerHour int) CacheKey {
	return CacheKey{
		Prefix:          m.prefix,
		URL:             url,
		RequestsPerHour: requestsPerHour,
		At:              m.now(),
	}
}

// Get retrieves a cached value.
// Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key CacheKey) ([]byte, error) {
	backend := m.store.Name()

	data, err := m.store.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%s get: %w", backend, err)
	}
	if len(data) == 0 {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(backend).Inc()
	return data, nil
}

// Set stores value under key.
func (m *Manager) Set(ctx context.Context, key CacheKey, value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("%w: empty value", ErrInvalidEntry)
	}

	backend := m.store.Name()
	if err := m.store.Set(ctx, key.String(), value, m.ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("%s set: %w", backend, err)
	}

	CacheWrittenBytes.WithLabelValues(backend).Add(float64(len(value)))
	return nil
}

// Prefix returns the key prefix.
func (m *Manager) Prefix() string { return m.prefix }

// Store returns the underlying backend.
func (m *Manager) Store() Store { return m.store }

// Close closes the underlying backend.
func (m *Manager) Close() error {
	return m.store.Close()
}
