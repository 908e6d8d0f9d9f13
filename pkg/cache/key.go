package cache

import (
	"strconv"
	"strings"
	"time"
)

// secondsPerHour is the width of the rate window requests-per-hour refers to.
const secondsPerHour = 3600

// Bucket returns the time bucket for t at the given requests-per-hour rate:
// floor(unix_seconds * requestsPerHour / 3600). Values below 1 are treated
// as 1.
//
// The bucket partitions the cache into windows of Window(requestsPerHour).
// It bounds how stale a cached response can get; it is not a rate limiter.
func Bucket(t time.Time, requestsPerHour int) int64 {
	rph := normalizeRate(requestsPerHour)
	return floorDiv(t.Unix()*int64(rph), secondsPerHour)
}

// Window returns the lifetime of a single bucket.
func Window(requestsPerHour int) time.Duration {
	return time.Hour / time.Duration(normalizeRate(requestsPerHour))
}

// CacheKey identifies a cached API response.
type CacheKey struct {
	// Prefix namespaces keys of one application in a shared backend.
	Prefix string

	// URL is the full request URL including api_key.
	URL string

	// RequestsPerHour selects the bucket width.
	RequestsPerHour int

	// At is the moment the key is computed for.
	At time.Time
}

// String renders the key as prefix:bucket:url.
//
// Example:
//
//	upcoming:490000:http://upcoming.yahooapis.com/services/rest/?method=event.search&api_key=x
func (k CacheKey) String() string {
	var b strings.Builder
	b.Grow(len(k.Prefix) + len(k.URL) + 24)
	b.WriteString(k.Prefix)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(Bucket(k.At, k.RequestsPerHour), 10))
	b.WriteByte(':')
	b.WriteString(k.URL)
	return b.String()
}

func normalizeRate(requestsPerHour int) int {
	if requestsPerHour < 1 {
		return 1
	}
	return requestsPerHour
}

// floorDiv rounds toward negative infinity so pre-epoch times still floor.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
