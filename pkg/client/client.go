// Package client provides the Upcoming.org API client with optional
// response caching.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/upcoming-client/pkg/cache"
	"github.com/Sternrassler/upcoming-client/pkg/response"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Prometheus metrics for API calls.
var (
	upcomingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upcoming_requests_total",
		Help: "Total Upcoming API calls by method and outcome",
	}, []string{"method", "status"})

	upcomingRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upcoming_request_duration_seconds",
		Help:    "Upcoming API call duration in seconds by method",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	upcomingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upcoming_errors_total",
		Help: "Total Upcoming API errors by class",
	}, []string{"class"})
)

const (
	// DefaultHost is the public Upcoming REST endpoint.
	DefaultHost = "upcoming.yahooapis.com/services/rest"

	// DefaultKeyPrefix prefixes cache keys when Config.KeyPrefix is empty.
	DefaultKeyPrefix = "upcoming"

	tracerName = "github.com/Sternrassler/upcoming-client/pkg/client"
)

// Params are the query parameters of an API method.
type Params map[string]string

// Client is the Upcoming API client.
//
// A Client owns its HTTP transport and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
	tracer     trace.Tracer
	inflight   singleflight.Group

	Event     *Namespace
	Auth      *Namespace
	Metro     *Namespace
	State     *Namespace
	Country   *Namespace
	Venue     *Namespace
	Category  *Namespace
	Watchlist *Namespace
	User      *Namespace
	Group     *Namespace
}

// Config holds the client configuration.
type Config struct {
	// Host is the API host and path, e.g. "upcoming.yahooapis.com/services/rest".
	// A scheme prefix ("https://...") overrides Scheme.
	Host string

	// APIKey is sent as the api_key query parameter on every call.
	APIKey string

	// Scheme defaults to "http".
	Scheme string

	// Caching. A nil Cache disables caching.
	Cache           cache.Store
	KeyPrefix       string
	EntryTTL        time.Duration // 0 leaves eviction to the backend
	RequestsPerHour int           // Width of the cache time bucket, default 1

	// Coalesce collapses concurrent cache misses on the same key into a
	// single request.
	Coalesce bool

	// Transport. HTTPClient wins over Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string

	// Observability. Nil values fall back to the global zerolog logger and
	// the global OpenTelemetry tracer provider.
	Logger         *zerolog.Logger
	TracerProvider trace.TracerProvider

	// Clock selects cache time buckets, default time.Now.
	Clock func() time.Time
}

// DefaultConfig returns a configuration without caching.
func DefaultConfig(host, apiKey string) Config {
	return Config{
		Host:            host,
		APIKey:          apiKey,
		Scheme:          "http",
		KeyPrefix:       DefaultKeyPrefix,
		RequestsPerHour: 1,
		Timeout:         30 * time.Second,
	}
}

// New creates a new Upcoming client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	host := strings.TrimSpace(cfg.Host)
	if scheme, rest, ok := strings.Cut(host, "://"); ok {
		cfg.Scheme = scheme
		host = rest
	}
	cfg.Host = strings.TrimRight(host, "/")
	if cfg.Host == "" {
		return nil, fmt.Errorf("api host is required")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.RequestsPerHour < 1 {
		cfg.RequestsPerHour = 1
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	// Initialize logger
	logger := log.With().Str("component", "upcoming-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger,
		tracer:     tp.Tracer(tracerName),
	}

	if cfg.Cache != nil {
		c.cache = cache.NewManager(cfg.Cache, cfg.KeyPrefix,
			cache.WithEntryTTL(cfg.EntryTTL),
			cache.WithClock(cfg.Clock),
		)
	}

	c.Event = c.Namespace(NamespaceEvent)
	c.Auth = c.Namespace(NamespaceAuth)
	c.Metro = c.Namespace(NamespaceMetro)
	c.State = c.Namespace(NamespaceState)
	c.Country = c.Namespace(NamespaceCountry)
	c.Venue = c.Namespace(NamespaceVenue)
	c.Category = c.Namespace(NamespaceCategory)
	c.Watchlist = c.Namespace(NamespaceWatchlist)
	c.User = c.Namespace(NamespaceUser)
	c.Group = c.Namespace(NamespaceGroup)

	return c, nil
}

// Namespace returns a forwarding facade for any namespace, including ones
// without a Client field.
func (c *Client) Namespace(name string) *Namespace {
	return &Namespace{client: c, name: name}
}

// Call invokes namespace.method with params and returns the decoded result.
// A stat="fail" envelope is returned as *APIError.
func (c *Client) Call(ctx context.Context, namespace, method string, params Params) (*response.Result, error) {
	fullMethod := namespace + "." + method

	ctx, span := c.tracer.Start(ctx, "upcoming "+fullMethod,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upcoming.namespace", namespace),
			attribute.String("upcoming.method", method),
		))
	defer span.End()

	startTime := time.Now()
	defer func() {
		upcomingRequestDuration.WithLabelValues(fullMethod).Observe(time.Since(startTime).Seconds())
	}()

	resp, hit, err := c.fetch(ctx, c.BuildURL(namespace, method, params), c.config.RequestsPerHour)
	span.SetAttributes(attribute.Bool("upcoming.cache_hit", hit))
	if err == nil && resp == nil {
		err = &TransportError{Err: errors.New("no response")}
	}
	if err == nil && resp.Failed() {
		err = &APIError{Message: resp.Failure.Message, Code: resp.Failure.Code}
	}

	if err != nil {
		errClass := ClassifyError(err)
		status := "error"
		if errClass != "" {
			status = string(errClass)
			upcomingErrorsTotal.WithLabelValues(string(errClass)).Inc()
		}
		upcomingRequestsTotal.WithLabelValues(fullMethod, status).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		event := c.logger.Error()
		if errClass == ErrorClassAPI {
			event = c.logger.Warn()
		}
		event.Err(err).
			Str("namespace", namespace).
			Str("method", method).
			Str("error_class", string(errClass)).
			Dur("duration", time.Since(startTime)).
			Msg("Upcoming call failed")
		return nil, err
	}

	status := "ok"
	if hit {
		status = "cached"
	}
	upcomingRequestsTotal.WithLabelValues(fullMethod, status).Inc()

	c.logger.Debug().
		Str("namespace", namespace).
		Str("method", method).
		Bool("cache_hit", hit).
		Int("count", resp.Result.Count).
		Dur("duration", time.Since(startTime)).
		Msg("Upcoming call succeeded")

	return resp.Result, nil
}

// BuildURL returns the request URL for namespace.method. Query parameters
// are sorted by name and api_key always carries the configured key.
func (c *Client) BuildURL(namespace, method string, params Params) string {
	query := make(url.Values, len(params)+1)
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("api_key", c.config.APIKey)

	return c.config.Scheme + "://" + c.config.Host +
		"/?method=" + url.QueryEscape(namespace+"."+method) +
		"&" + query.Encode()
}

// Fetch returns the decoded response for url, going through the cache when
// one is configured. requestsPerHour selects the cache time bucket.
func (c *Client) Fetch(ctx context.Context, rawURL string, requestsPerHour int) (*response.Response, error) {
	resp, _, err := c.fetch(ctx, rawURL, requestsPerHour)
	return resp, err
}

func (c *Client) fetch(ctx context.Context, rawURL string, requestsPerHour int) (*response.Response, bool, error) {
	if c.cache == nil {
		resp, err := c.PerformRequest(ctx, rawURL)
		return resp, false, err
	}

	key := c.cache.Key(rawURL, requestsPerHour)
	if !c.config.Coalesce {
		return c.fetchCached(ctx, key)
	}

	return c.fetchShared(ctx, key)
}

// fetchShared collapses concurrent fetches of key into one. The shared fetch
// is detached from the caller that started it and bounded by the HTTP client
// timeout; each caller stops waiting when its own ctx ends. Callers that
// joined a shared fetch get their own copy of the response.
func (c *Client) fetchShared(ctx context.Context, key cache.CacheKey) (*response.Response, bool, error) {
	type result struct {
		resp *response.Response
		hit  bool
	}

	ch := c.inflight.DoChan(key.String(), func() (any, error) {
		sharedCtx := context.WithoutCancel(ctx)
		if timeout := c.httpClient.Timeout; timeout > 0 {
			var cancel context.CancelFunc
			sharedCtx, cancel = context.WithTimeout(sharedCtx, timeout)
			defer cancel()
		}
		resp, hit, err := c.fetchCached(sharedCtx, key)
		return result{resp: resp, hit: hit}, err
	})

	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("fetch: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		r := res.Val.(result)
		if res.Shared {
			return r.resp.Clone(), r.hit, nil
		}
		return r.resp, r.hit, nil
	}
}

// fetchCached serves key from the cache, or performs the request and stores
// the encoded response. Backend errors and undecodable entries count as
// misses.
func (c *Client) fetchCached(ctx context.Context, key cache.CacheKey) (*response.Response, bool, error) {
	cacheKey := key.String()

	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		resp, decodeErr := response.DecodeJSON(data)
		if decodeErr == nil {
			c.logger.Debug().Str("cache_key", cacheKey).Bool("cache_hit", true).Msg("Cache hit")
			return resp, true, nil
		}
		c.logger.Warn().Err(decodeErr).Str("cache_key", cacheKey).Msg("Discarding undecodable cache entry")
	case errors.Is(err, cache.ErrCacheMiss):
		c.logger.Debug().Str("cache_key", cacheKey).Bool("cache_hit", false).Msg("Cache miss")
	default:
		c.logger.Warn().Err(err).Str("cache_key", cacheKey).Msg("Cache get error")
	}

	resp, err := c.PerformRequest(ctx, key.URL)
	if err != nil {
		return nil, false, err
	}
	if resp == nil {
		return nil, false, nil
	}

	data, err = response.Encode(resp)
	if err != nil {
		return nil, false, err
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		c.logger.Warn().Err(err).Str("cache_key", cacheKey).Msg("Failed to cache response")
	}

	stored, err := response.DecodeJSON(data)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

// PerformRequest issues a single GET for url and decodes the envelope.
// A request that produces no response body fails with *TransportError.
func (c *Client) PerformRequest(ctx context.Context, rawURL string) (*response.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("perform request: %w", ctxErr)
		}
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("read response body: %w", err)}
	}
	if len(body) == 0 {
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("empty response body (status %d)", resp.StatusCode)}
	}

	decoded, err := response.Decode(body)
	if err != nil {
		var decodeErr *response.DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.StatusCode = resp.StatusCode
		}
		return nil, err
	}
	return decoded, nil
}

// Cache returns the cache manager, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Close releases idle connections and closes the cache store passed in
// Config.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
