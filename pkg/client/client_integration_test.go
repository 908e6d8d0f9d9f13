//go:build integration

package client

import (
	"context"
	"testing"

	"github.com/Sternrassler/upcoming-client/internal/testutil"
	"github.com/Sternrassler/upcoming-client/pkg/cache"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMemcacheContainer starts memcached and returns a store connected to it.
func setupMemcacheContainer(t *testing.T) (*cache.MemcacheStore, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "memcached:1.6-alpine",
		ExposedPorts: []string{"11211/tcp"},
		WaitingFor:   wait.ForListeningPort("11211/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start memcached container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "11211")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	store, err := cache.NewMemcacheStore([]string{host}, port.Int())
	if err != nil {
		t.Fatalf("Failed to create memcache store: %v", err)
	}

	cleanup := func() {
		store.Close()
		container.Terminate(ctx)
	}

	return store, cleanup
}

func TestIntegration_MemcacheFlow(t *testing.T) {
	store, cleanup := setupMemcacheContainer(t)
	defer cleanup()

	if err := store.Ping(); err != nil {
		t.Fatalf("memcached not reachable: %v", err)
	}

	mock := testutil.NewMockUpcoming()
	defer mock.Close()

	mock.SetResponse("event.search", testutil.NewItemsResponse("event",
		[]string{"id", "1", "name", "Earth Day"},
	))

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.Cache = store
		cfg.KeyPrefix = "integration"
	})
	ctx := context.Background()

	// Request 1: miss, goes to the API
	first, err := c.Event.Call(ctx, "search", Params{"search_text": "earth day"})
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 1: requests = %d, want 1", mock.RequestCount())
	}

	// Request 2: served from memcached
	second, err := c.Event.Call(ctx, "search", Params{"search_text": "earth day"})
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 2: requests = %d, want 1", mock.RequestCount())
	}

	if second.List[0].Value("name") != first.List[0].Value("name") {
		t.Errorf("cached item = %v, want %v", second.List[0], first.List[0])
	}
}
