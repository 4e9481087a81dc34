package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/catalog"
	"github.com/clothhaven/storefront/internal/colors"
	"github.com/clothhaven/storefront/internal/platform/httpx"
	"github.com/clothhaven/storefront/internal/platform/observability"
	"github.com/clothhaven/storefront/internal/selection"
)

const maxCartBodyBytes = 16 << 10

type storefrontHandlers struct {
	catalog     CatalogService
	cart        CartService
	quantityCap int
}

type catalogListResponse struct {
	Entries []catalog.Entry `json:"entries"`
}

type entryResponse struct {
	Entry     catalog.Entry      `json:"entry"`
	Selection selection.Snapshot `json:"selection"`
}

type colorResponse struct {
	Name       string `json:"name"`
	Normalized string `json:"normalized"`
	Hex        string `json:"hex"`
	CSS        string `json:"css"`
	Known      bool   `json:"known"`
}

type addToCartPayload struct {
	UserID     int64  `json:"userId"`
	Size       string `json:"size"`
	Color      string `json:"color"`
	Quantity   int    `json:"quantity"`
	ImageIndex int    `json:"imageIndex"`
}

type addToCartResponse struct {
	Cart      backend.Cart       `json:"cart"`
	Selection selection.Snapshot `json:"selection"`
}

func (h *storefrontHandlers) listCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, catalogListResponse{Entries: entries})
}

func (h *storefrontHandlers) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.catalog.Entry(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	machine := selection.New(selection.BoundsFor(entry, h.quantityCap))
	httpx.WriteJSON(w, http.StatusOK, entryResponse{Entry: entry, Selection: machine.Snapshot()})
}

func (h *storefrontHandlers) resolveColor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c := colors.Resolve(name)
	httpx.WriteJSON(w, http.StatusOK, colorResponse{
		Name:       name,
		Normalized: colors.Normalize(name),
		Hex:        c.Hex(),
		CSS:        c.CSS(),
		Known:      colors.Known(name),
	})
}

func (h *storefrontHandlers) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload addToCartPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCartBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_payload", "request body must be a JSON object", http.StatusBadRequest))
		return
	}
	if payload.UserID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_user", "userId is required", http.StatusBadRequest))
		return
	}

	entry, err := h.catalog.Entry(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	machine := selection.New(selection.BoundsFor(entry, h.quantityCap))
	if payload.Size != "" {
		if err := machine.SelectSize(payload.Size); err != nil {
			writeSelectionError(w, r, err, machine)
			return
		}
	}
	if payload.Color != "" {
		if err := machine.SelectColor(payload.Color); err != nil {
			writeSelectionError(w, r, err, machine)
			return
		}
	}
	if payload.Quantity != 0 {
		machine.SetQuantity(payload.Quantity)
	}
	machine.SelectImage(payload.ImageIndex)

	line, err := machine.Line(payload.UserID)
	if err != nil {
		writeSelectionError(w, r, err, machine)
		return
	}

	cart, err := h.cart.AddToCart(ctx, line)
	if err != nil {
		observability.FromContext(ctx).Warn("add to cart failed",
			zap.Int64("product_id", line.ProductID),
			zap.Error(err),
		)
		writeBackendError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, addToCartResponse{Cart: cart, Selection: machine.Snapshot()})
}

func (h *storefrontHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "Product not found", http.StatusNotFound))
	case errors.Is(err, catalog.ErrProductsUnavailable):
		observability.FromContext(ctx).Warn("catalog unavailable", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is temporarily unavailable", http.StatusBadGateway))
	default:
		observability.FromContext(ctx).Error("catalog request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

func writeSelectionError(w http.ResponseWriter, r *http.Request, err error, machine *selection.Machine) {
	code := "invalid_selection"
	if errors.Is(err, selection.ErrNotPurchasable) {
		code = "not_purchasable"
	}
	httpx.WriteError(r.Context(), w, httpx.NewError(code, err.Error(), http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"selection": machine.Snapshot()}))
}

func writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		httpx.WriteError(r.Context(), w, httpx.NewError("backend_rejected", backend.OperatorMessage(err), statusErr.StatusCode))
		return
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("backend_unavailable", backend.OperatorMessage(err), http.StatusBadGateway))
}
