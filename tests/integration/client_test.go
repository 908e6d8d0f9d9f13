//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/upcoming-client/internal/testutil"
	"github.com/Sternrassler/upcoming-client/pkg/cache"
	"github.com/Sternrassler/upcoming-client/pkg/client"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// testTransport redirects requests for the public API host to the mock server.
type testTransport struct {
	mockServer *testutil.MockUpcoming
}

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "upcoming.yahooapis.com" {
		req.URL.Scheme = "http"
		req.URL.Host = strings.TrimPrefix(t.mockServer.URL(), "http://")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func newClient(t *testing.T, redisClient *redis.Client, mock *testutil.MockUpcoming) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(client.DefaultHost, "integration-key")
	cfg.Cache = cache.NewRedisStore(redisClient)
	cfg.KeyPrefix = "upcoming-it"
	cfg.EntryTTL = time.Hour
	cfg.HTTPClient = &http.Client{
		Transport: &testTransport{mockServer: mock},
		Timeout:   30 * time.Second,
	}

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullRequestFlow tests the complete flow: Cache Miss → API → Cache Store → Cache Hit.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockUpcoming()
	defer mock.Close()

	mock.SetResponse("event.search", testutil.NewItemsResponse("event",
		[]string{"id", "1", "name", "Earth Day Fair", "venue_id", "10"},
		[]string{"id", "2", "name", "Beach Cleanup", "venue_id", "11"},
	))

	c := newClient(t, redisClient, mock)
	ctx := context.Background()

	// Request 1: cache miss
	result1, err := c.Event.Call(ctx, "search", client.Params{"search_text": "earthday"})
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if result1.Count != 2 || len(result1.List) != 2 {
		t.Fatalf("Request 1 result = %+v", result1)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 1: API requests = %d, want 1", mock.RequestCount())
	}

	// The entry lives in Redis under the prefixed key with the configured TTL
	key := c.Cache().Key(c.BuildURL("event", "search", client.Params{"search_text": "earthday"}), 1)
	ttl, err := redisClient.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL lookup failed: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("TTL = %v, want positive", ttl)
	}

	// Request 2: cache hit
	result2, err := c.Event.Call(ctx, "search", client.Params{"search_text": "earthday"})
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 2: API requests = %d, want 1", mock.RequestCount())
	}
	if result2.List[1].Value("name") != "Beach Cleanup" {
		t.Errorf("cached list order changed: %+v", result2.List)
	}

	// Different params: separate key
	if _, err := c.Event.Call(ctx, "search", client.Params{"search_text": "music"}); err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("After request 3: API requests = %d, want 2", mock.RequestCount())
	}
}

// TestAPIErrorPropagation tests that stat="fail" envelopes surface as APIError.
func TestAPIErrorPropagation(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockUpcoming()
	defer mock.Close()

	mock.SetResponse("venue.getInfo", testutil.NewFailResponse("Venue not found"))

	c := newClient(t, redisClient, mock)

	_, err := c.Venue.Call(context.Background(), "getInfo", client.Params{"venue_id": "0"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *client.APIError", err)
	}
	if apiErr.Message != "Venue not found" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

// TestRedisUnavailable tests that a dead cache backend degrades to direct requests.
func TestRedisUnavailable(t *testing.T) {
	mock := testutil.NewMockUpcoming()
	defer mock.Close()

	deadRedis := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	c := newClient(t, deadRedis, mock)
	defer c.Close()

	for i := 0; i < 2; i++ {
		if _, err := c.Category.Call(context.Background(), "getList", nil); err != nil {
			t.Fatalf("Call %d failed: %v", i+1, err)
		}
	}
	if mock.RequestCount() != 2 {
		t.Errorf("API requests = %d, want 2", mock.RequestCount())
	}
}
