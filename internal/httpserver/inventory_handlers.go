package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/clothhaven/storefront/internal/backend"
	custommw "github.com/clothhaven/storefront/internal/httpserver/middleware"
	"github.com/clothhaven/storefront/internal/inventory"
	inventorytpl "github.com/clothhaven/storefront/internal/templates/inventory"
)

const maxBatchBytes = 1 << 20

type inventoryHandlers struct {
	console InventoryConsole
}

func (h *inventoryHandlers) page(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.console.List(r.Context(), filter); errors.Is(err, inventory.ErrClosed) {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	basePath := custommw.BasePathFromContext(ctx)
	data := inventorytpl.PageData{
		Title:     "Inventory",
		BasePath:  basePath,
		CSRFToken: custommw.CSRFTokenFromContext(ctx),
		Table:     inventorytpl.BuildTable(h.console.Snapshot(), basePath, ""),
	}
	templ.Handler(inventorytpl.Page(data)).ServeHTTP(w, r)
}

func (h *inventoryHandlers) table(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.renderTable(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.respond(w, r, h.console.List(r.Context(), filter))
}

func (h *inventoryHandlers) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderTable(w, r, http.StatusBadRequest, "form could not be read")
		return
	}
	draft, err := inventory.ParseDraft(r.PostForm)
	if err != nil {
		h.renderTable(w, r, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	h.respond(w, r, h.console.Create(r.Context(), draft))
}

func (h *inventoryHandlers) batch(w http.ResponseWriter, r *http.Request) {
	var raw []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
		if err != nil {
			h.renderTable(w, r, http.StatusRequestEntityTooLarge, "batch payload is too large")
			return
		}
		raw = body
	} else {
		raw = []byte(r.PostFormValue("payload"))
	}
	h.respond(w, r, h.console.BatchCreate(r.Context(), raw))
}

func (h *inventoryHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.variantID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderTable(w, r, http.StatusBadRequest, "form could not be read")
		return
	}
	patch, err := parsePatch(r)
	if err != nil {
		h.renderTable(w, r, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	h.respond(w, r, h.console.Update(r.Context(), id, patch))
}

func (h *inventoryHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.variantID(w, r)
	if !ok {
		return
	}
	quantity, err := inventory.ParseQuantity(r.PostFormValue("quantity"))
	if err != nil {
		h.renderTable(w, r, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	h.respond(w, r, h.console.SetQuantity(r.Context(), id, quantity))
}

func (h *inventoryHandlers) toggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.variantID(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.console.ToggleAvailability(r.Context(), id))
}

func (h *inventoryHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.variantID(w, r)
	if !ok {
		return
	}
	confirmed := strings.EqualFold(strings.TrimSpace(r.PostFormValue("confirm")), "yes")
	h.respond(w, r, h.console.Delete(r.Context(), id, func(int64) bool { return confirmed }))
}

func (h *inventoryHandlers) dismiss(w http.ResponseWriter, r *http.Request) {
	h.console.DismissError()
	h.renderTable(w, r, http.StatusOK, "")
}

// respond maps console errors onto statuses. Failures the console records are shown in
// the table's error banner with a 200 so htmx swaps them in.
func (h *inventoryHandlers) respond(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrBusy):
		http.Error(w, "another inventory operation is in progress", http.StatusConflict)
	case errors.Is(err, inventory.ErrClosed):
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case errors.Is(err, inventory.ErrNotConfirmed):
		http.Error(w, "delete must be confirmed", http.StatusBadRequest)
	case errors.Is(err, inventory.ErrUnknownEntry):
		http.Error(w, "variant is not in the current list", http.StatusNotFound)
	default:
		h.renderTable(w, r, http.StatusOK, "")
	}
}

func (h *inventoryHandlers) renderTable(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := inventorytpl.BuildTable(h.console.Snapshot(), custommw.BasePathFromContext(r.Context()), message)
	templ.Handler(inventorytpl.Table(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *inventoryHandlers) variantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "variantId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid variant id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("product"))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New("product filter must be a number")
	}
	return &id, nil
}

// parsePatch reads only the fields present on the form.
func parsePatch(r *http.Request) (backend.VariantPatch, error) {
	var patch backend.VariantPatch
	form := r.PostForm
	if form.Has("quantity") {
		q, err := inventory.ParseQuantity(form.Get("quantity"))
		if err != nil {
			return patch, err
		}
		patch.Quantity = &q
	}
	if form.Has("availability") {
		v, err := strconv.ParseBool(strings.TrimSpace(form.Get("availability")))
		if err != nil {
			return patch, &inventory.ValidationError{Field: "availability", Message: "availability must be true or false"}
		}
		patch.Availability = &v
	}
	if form.Has("color") {
		c := strings.TrimSpace(form.Get("color"))
		patch.Color = &c
	}
	if form.Has("size") {
		s := strings.TrimSpace(form.Get("size"))
		patch.Size = &s
	}
	if patch.Empty() {
		return patch, &inventory.ValidationError{Field: "patch", Message: "nothing to update"}
	}
	return patch, nil
}

func validationMessage(err error) string {
	var vErr *inventory.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return err.Error()
}
