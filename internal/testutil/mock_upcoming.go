// Package testutil provides testing utilities for the Upcoming client.
package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API method.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpcoming is a configurable mock Upcoming REST server for testing.
// Handlers are registered per API method (e.g. "event.search").
type MockUpcoming struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount  int
	methodCounts  map[string]int
	lastQuery     map[string]string
	lastUserAgent string
}

// NewMockUpcoming creates a new mock Upcoming server.
func NewMockUpcoming() *MockUpcoming {
	mock := &MockUpcoming{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		methodCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Query().Get("method")

		mock.mu.Lock()
		mock.requestCount++
		mock.methodCounts[method]++
		mock.lastQuery = make(map[string]string)
		for k := range r.URL.Query() {
			mock.lastQuery[k] = r.URL.Query().Get(k)
		}
		mock.lastUserAgent = r.UserAgent()
		handler, exists := mock.handlers[method]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpcoming) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpcoming) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpcoming) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.methodCounts = make(map[string]int)
	m.lastQuery = nil
	m.lastUserAgent = ""
}

// SetHandler sets a custom handler for an API method.
func (m *MockUpcoming) SetHandler(method string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = handler
}

// SetResponse configures a fixed response for an API method.
func (m *MockUpcoming) SetResponse(method string, resp MockResponse) {
	m.SetHandler(method, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockUpcoming) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// MethodCount returns the number of requests for one API method.
func (m *MockUpcoming) MethodCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.methodCounts[method]
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockUpcoming) LastQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.lastQuery))
	for k, v := range m.lastQuery {
		out[k] = v
	}
	return out
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockUpcoming) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// defaultHandler answers every unknown method with an empty result.
func (m *MockUpcoming) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(EmptyEnvelope()))
}

// EmptyEnvelope returns a successful envelope without items.
func EmptyEnvelope() string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<rsp stat="ok" version="1.0" resultcount="0"></rsp>`
}

// ItemsEnvelope returns a successful envelope with one element per item.
// Attributes are written in the order given by each item's pairs.
func ItemsEnvelope(element string, items ...[]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<rsp stat="ok" version="1.0" resultcount="%d">`+"\n", len(items))
	for _, pairs := range items {
		b.WriteString("  <" + element)
		for i := 0; i+1 < len(pairs); i += 2 {
			fmt.Fprintf(&b, ` %s="%s"`, pairs[i], html.EscapeString(pairs[i+1]))
		}
		b.WriteString(" />\n")
	}
	b.WriteString("</rsp>")
	return b.String()
}

// FailEnvelope returns a stat="fail" envelope.
func FailEnvelope(msg string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<rsp stat="fail" version="1.0">` + "\n" +
		`  <error msg="` + html.EscapeString(msg) + `" />` + "\n" +
		`</rsp>`
}

// NewItemsResponse creates a 200 OK response listing items.
func NewItemsResponse(element string, items ...[]string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       ItemsEnvelope(element, items...),
		Headers:    map[string]string{"Content-Type": "text/xml; charset=utf-8"},
	}
}

// NewFailResponse creates a 200 OK response carrying an API error.
func NewFailResponse(msg string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       FailEnvelope(msg),
		Headers:    map[string]string{"Content-Type": "text/xml; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 response with a non-XML body.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal Server Error",
		Headers:    map[string]string{"Content-Type": "text/plain"},
	}
}

// NewEmptyResponse creates a response without a body.
func NewEmptyResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusOK}
}
