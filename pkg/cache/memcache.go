package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const (
	// memcacheMaxKeyLen is the protocol limit on key length.
	memcacheMaxKeyLen = 250

	// memcacheRelativeTTLLimit is the largest expiration memcached reads as
	// a relative offset; larger values are taken as unix timestamps.
	memcacheRelativeTTLLimit = 30 * 24 * time.Hour
)

// MemcacheStore is a Store backed by one or more memcached servers.
type MemcacheStore struct {
	client *memcache.Client
}

// NewMemcacheStore connects to servers, all listening on port.
// A server that already carries a port is used as is.
func NewMemcacheStore(servers []string, port int) (*MemcacheStore, error) {
	if len(servers) == 0 {
		return nil, errors.New("at least one memcache server is required")
	}

	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err == nil {
			addrs = append(addrs, s)
			continue
		}
		if port <= 0 {
			return nil, fmt.Errorf("memcache server %q has no port", s)
		}
		addrs = append(addrs, net.JoinHostPort(s, strconv.Itoa(port)))
	}

	return &MemcacheStore{client: memcache.New(addrs...)}, nil
}

// Get implements Store.
func (s *MemcacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := s.client.Get(memcacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("memcache get: %w", err)
	}
	return item.Value, nil
}

// Set implements Store.
func (s *MemcacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item := &memcache.Item{
		Key:        memcacheKey(key),
		Value:      value,
		Expiration: memcacheExpiration(ttl, time.Now()),
	}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("memcache set: %w", err)
	}
	return nil
}

// Ping checks that every server is reachable.
func (s *MemcacheStore) Ping() error {
	return s.client.Ping()
}

// Name implements Store.
func (s *MemcacheStore) Name() string { return "memcache" }

// Close implements Store. gomemcache keeps only idle connections, which are
// reclaimed with the client.
func (s *MemcacheStore) Close() error { return nil }

// memcacheKey returns key unchanged when memcached accepts it, otherwise a
// stable digest of it.
func memcacheKey(key string) string {
	if len(key) <= memcacheMaxKeyLen && legalMemcacheKey(key) {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func legalMemcacheKey(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}

func memcacheExpiration(ttl time.Duration, now time.Time) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > memcacheRelativeTTLLimit {
		return int32(now.Add(ttl).Unix())
	}
	secs := int32(ttl / time.Second)
	if secs == 0 {
		secs = 1
	}
	return secs
}
