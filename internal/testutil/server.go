package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/catalog"
	"github.com/clothhaven/storefront/internal/httpserver"
	"github.com/clothhaven/storefront/internal/httpserver/middleware"
	"github.com/clothhaven/storefront/internal/inventory"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin routes.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithQuantityCap sets the fallback quantity cap for selections.
func WithQuantityCap(n int) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.QuantityCap = n
	}
}

// WithConsole wires a custom inventory console.
func WithConsole(console httpserver.InventoryConsole) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Console = console
	}
}

// WithBackend serves catalog, cart and inventory from the given in-memory backend.
func WithBackend(t testing.TB, mem *backend.Memory) ServerOption {
	t.Helper()

	agg, err := catalog.NewAggregator(catalog.Deps{Products: mem, Images: mem, Variants: mem})
	if err != nil {
		t.Fatalf("catalog aggregator: %v", err)
	}
	console, err := inventory.NewConsole(mem, nil)
	if err != nil {
		t.Fatalf("inventory console: %v", err)
	}
	t.Cleanup(console.Close)

	return func(cfg *httpserver.Config) {
		cfg.Catalog = agg
		cfg.Cart = mem
		cfg.Console = console
	}
}

// NewServer constructs an httptest server running the storefront HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		Authenticator:  middleware.DefaultAuthenticator(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
