// Package cache provides response caching for the Upcoming client.
//
// Cached responses are addressed by a time-bucketed key:
//
//	{prefix}:{bucket}:{url}
//	bucket = floor(unix_seconds * requests_per_hour / 3600)
//
// The bucket advances every 3600/requests_per_hour seconds, after which
// the old key is no longer addressed and the next call goes to the API.
// Entries are not deleted by the client; by default they live until the
// backend evicts them. WithEntryTTL adds an explicit expiry.
//
// The bucket bounds freshness only. Concurrent callers that miss the same
// key may all reach the API, so it gives no rate-limiting guarantee.
//
// # Backends
//
//	// memcached
//	store, err := cache.NewMemcacheStore([]string{"localhost"}, 11211)
//
//	// Redis
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//
//	// In-process
//	store := cache.NewMemoryStore()
//
// # Basic Usage
//
//	manager := cache.NewManager(store, "upcoming")
//	key := manager.Key(url, 1)
//	data, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		_ = manager.Set(ctx, key, encoded)
//	}
//
// # Metrics
//
//   - upcoming_cache_hits_total{backend} - Cache hits
//   - upcoming_cache_misses_total - Cache misses
//   - upcoming_cache_written_bytes_total{backend} - Bytes written
//   - upcoming_cache_errors_total{operation} - Backend errors
package cache
