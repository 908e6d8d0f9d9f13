package client

import (
	"context"

	"github.com/Sternrassler/upcoming-client/pkg/response"
)

// API namespaces. Method names inside a namespace are not validated; they
// are sent to the API as given.
const (
	NamespaceEvent     = "event"
	NamespaceAuth      = "auth"
	NamespaceMetro     = "metro"
	NamespaceState     = "state"
	NamespaceCountry   = "country"
	NamespaceVenue     = "venue"
	NamespaceCategory  = "category"
	NamespaceWatchlist = "watchlist"
	NamespaceUser      = "user"
	NamespaceGroup     = "group"
)

// Namespaces lists every namespace exposed as a Client field.
var Namespaces = []string{
	NamespaceEvent,
	NamespaceAuth,
	NamespaceMetro,
	NamespaceState,
	NamespaceCountry,
	NamespaceVenue,
	NamespaceCategory,
	NamespaceWatchlist,
	NamespaceUser,
	NamespaceGroup,
}

// Namespace forwards calls to its Client with a fixed namespace, so that
//
//	c.Event.Call(ctx, "search", params)
//
// is the same as
//
//	c.Call(ctx, "event", "search", params)
type Namespace struct {
	client *Client
	name   string
}

// Name returns the namespace.
func (n *Namespace) Name() string { return n.name }

// Call invokes namespace.method on the API.
func (n *Namespace) Call(ctx context.Context, method string, params Params) (*response.Result, error) {
	return n.client.Call(ctx, n.name, method, params)
}
