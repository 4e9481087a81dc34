package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/catalog"
	custommw "github.com/clothhaven/storefront/internal/httpserver/middleware"
	"github.com/clothhaven/storefront/internal/inventory"
	"github.com/clothhaven/storefront/internal/platform/observability"
)

// CatalogService serves display-ready catalog entries.
type CatalogService interface {
	Entry(ctx context.Context, productID string) (catalog.Entry, error)
	List(ctx context.Context) ([]catalog.Entry, error)
}

// CartService forwards purchasable selections to the backend.
type CartService interface {
	AddToCart(ctx context.Context, req backend.AddToCartRequest) (backend.Cart, error)
}

// InventoryConsole is the admin console driven by the inventory routes.
type InventoryConsole interface {
	List(ctx context.Context, filter *int64) error
	Create(ctx context.Context, draft backend.VariantDraft) error
	BatchCreate(ctx context.Context, raw []byte) error
	Update(ctx context.Context, id int64, patch backend.VariantPatch) error
	SetQuantity(ctx context.Context, id int64, quantity int) error
	ToggleAvailability(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64, confirm inventory.Confirmer) error
	DismissError()
	Snapshot() inventory.State
}

// Config holds runtime options for the storefront HTTP server.
type Config struct {
	Address          string
	BasePath         string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	RequestTimeout   time.Duration
	Authenticator    custommw.Authenticator
	AdminRoles       []string
	CSRFCookieName   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
	QuantityCap      int
	Logger           *zap.Logger

	Catalog CatalogService
	Cart    CartService
	Console InventoryConsole
}

// New constructs the HTTP server with its middleware stack. Services left nil are served
// from the in-memory demo backend.
func New(cfg Config) *http.Server {
	logger := observability.Or(cfg.Logger)
	applyDemoServices(&cfg, logger)

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware())
	router.Use(chimw.Timeout(requestTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	mountStorefrontRoutes(router, &storefrontHandlers{
		catalog:     cfg.Catalog,
		cart:        cfg.Cart,
		quantityCap: cfg.QuantityCap,
	})

	basePath := normalizeBasePath(cfg.BasePath)
	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}
	roles := cfg.AdminRoles
	if len(roles) == 0 {
		roles = []string{"admin"}
	}

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		Roles:         roles,
		CSRF: custommw.CSRFConfig{
			CookieName: cfg.CSRFCookieName,
			CookiePath: basePath,
			HeaderName: cfg.CSRFHeaderName,
			Secure:     cfg.CSRFCookieSecure,
		},
	}, &inventoryHandlers{console: cfg.Console})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	Roles         []string
	CSRF          custommw.CSRFConfig
}

func mountStorefrontRoutes(router chi.Router, h *storefrontHandlers) {
	router.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.listCatalog)
		r.Get("/catalog/{productId}", h.getEntry)
		r.Post("/catalog/{productId}/cart", h.addToCart)
		r.Get("/colors/{name}", h.resolveColor)
	})
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions, h *inventoryHandlers) {
	router.Route(base, func(r chi.Router) {
		r.Use(custommw.ConsoleBase(base))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Auth(opts.Authenticator))
		r.Use(custommw.RequireRole(opts.Roles...))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/", h.page)
		r.Get("/inventory", h.page)
		RegisterFragment(r, "/inventory/table", h.table)
		r.Post("/inventory", h.create)
		r.Post("/inventory/batch", h.batch)
		r.Post("/inventory/error/dismiss", h.dismiss)
		r.Post("/inventory/{variantId}", h.update)
		r.Post("/inventory/{variantId}/quantity", h.setQuantity)
		r.Post("/inventory/{variantId}/availability", h.toggleAvailability)
		r.Post("/inventory/{variantId}/delete", h.delete)
	})
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}

func applyDemoServices(cfg *Config, logger *zap.Logger) {
	if cfg.Catalog != nil && cfg.Cart != nil && cfg.Console != nil {
		return
	}
	demo := backend.NewDemoMemory()
	if cfg.Catalog == nil {
		agg, err := catalog.NewAggregator(catalog.Deps{
			Products: demo,
			Images:   demo,
			Variants: demo,
			Logger:   logger,
		})
		if err == nil {
			cfg.Catalog = agg
		}
	}
	if cfg.Cart == nil {
		cfg.Cart = demo
	}
	if cfg.Console == nil {
		console, err := inventory.NewConsole(demo, logger)
		if err == nil {
			cfg.Console = console
		}
	}
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
