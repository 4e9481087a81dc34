package httpserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/httpserver/middleware"
	"github.com/clothhaven/storefront/internal/inventory"
	"github.com/clothhaven/storefront/internal/testutil"
)

const operatorToken = "ops-token"

type adminSession struct {
	t    *testing.T
	ts   *httptest.Server
	csrf string
}

// openAdmin loads the console page and captures the issued csrf cookie.
func openAdmin(t *testing.T, ts *httptest.Server) (*adminSession, *goquery.Document) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/admin/inventory", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+operatorToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return &adminSession{t: t, ts: ts, csrf: token}, testutil.ParseHTML(t, body)
}

func (s *adminSession) post(path string, form url.Values) (int, *goquery.Document) {
	s.t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", s.csrf)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: s.csrf})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, testutil.ParseHTML(s.t, body)
}

func (s *adminSession) fragment(query string) (int, *goquery.Document) {
	s.t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.ts.URL+"/admin/inventory/table"+query, nil)
	require.NoError(s.t, err)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	req.Header.Set("HX-Request", "true")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, testutil.ParseHTML(s.t, body)
}

func rowIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find("tr[data-variant-id]").Each(func(_ int, s *goquery.Selection) {
		ids = append(ids, s.AttrOr("data-variant-id", ""))
	})
	return ids
}

func TestInventoryRequiresAuth(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, err := http.Get(ts.URL + "/admin/inventory")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInventoryRejectsNonAdmin(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "viewer", Roles: []string{"viewer"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/admin/inventory", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer viewer")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryPageRendersWorkingSet(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithBackend(t, backend.NewDemoMemory()))
	session, doc := openAdmin(t, ts)

	require.Equal(t, "Inventory", doc.Find("title").First().Text())
	require.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, rowIDs(doc))
	require.Contains(t, doc.Find("body").AttrOr("hx-headers", ""), session.csrf)
	require.Equal(t, "/admin/inventory", doc.Find("form#inventory-create").AttrOr("hx-post", ""))
	require.Equal(t, "Delete variant 2?", doc.Find(`tr[data-variant-id="2"] button.delete`).AttrOr("hx-confirm", ""))
	require.Equal(t, "/admin/inventory/2/delete", doc.Find(`tr[data-variant-id="2"] button.delete`).AttrOr("hx-post", ""))
	require.Equal(t, "/admin/inventory/1/quantity", doc.Find(`tr[data-variant-id="1"] form.quantity`).AttrOr("hx-post", ""))
	require.Equal(t, "#93c5fd", strings.TrimPrefix(doc.Find(`tr[data-variant-id="1"] .swatch`).AttrOr("style", ""), "background-color: "))
}

func TestInventoryFragmentRequiresHTMX(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithBackend(t, backend.NewDemoMemory()))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/admin/inventory/table", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	session, _ := openAdmin(t, ts)
	status, doc := session.fragment("?product=3")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "3", doc.Find("section#inventory-table").AttrOr("data-filter", ""))
	require.Equal(t, []string{"5", "6"}, rowIDs(doc))

	status, doc = session.fragment("?product=42")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "No variants found for product 42.", doc.Find("p.empty").Text())
}

func TestInventoryMutationsRelist(t *testing.T) {
	t.Parallel()

	mem := backend.NewDemoMemory()
	ts := testutil.NewServer(t, testutil.WithBackend(t, mem))
	session, _ := openAdmin(t, ts)

	t.Run("create", func(t *testing.T) {
		status, doc := session.post("/admin/inventory", url.Values{
			"productId": {"3"}, "color": {"Red"}, "size": {"10Y"}, "quantity": {"2"},
		})
		require.Equal(t, http.StatusOK, status)
		require.Len(t, rowIDs(doc), 7)
		require.Equal(t, 0, doc.Find("[data-error]").Length())

		created := mem.Variants()[6]
		require.Equal(t, "Red", created.Color)
		require.Equal(t, 2, created.Quantity)
		require.True(t, created.Availability)
	})

	t.Run("quantity", func(t *testing.T) {
		status, doc := session.post("/admin/inventory/1/quantity", url.Values{"quantity": {"9"}})
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "9", doc.Find(`tr[data-variant-id="1"] input[name="quantity"]`).AttrOr("value", ""))
		require.Equal(t, 9, mem.Variants()[0].Quantity)
	})

	t.Run("toggle availability", func(t *testing.T) {
		status, doc := session.post("/admin/inventory/3/availability", nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "true", doc.Find(`tr[data-variant-id="3"]`).AttrOr("data-available", ""))
		require.True(t, mem.Variants()[2].Availability)
	})

	t.Run("update", func(t *testing.T) {
		status, doc := session.post("/admin/inventory/4", url.Values{"size": {"XL"}})
		require.Equal(t, http.StatusOK, status)
		require.Contains(t, doc.Find(`tr[data-variant-id="4"]`).Text(), "XL")

		updated := mem.Variants()[3]
		require.Equal(t, "XL", updated.Size)
		require.Equal(t, 3, updated.Quantity)
	})

	t.Run("delete requires confirmation", func(t *testing.T) {
		before := mem.MutationCalls()
		status, _ := session.post("/admin/inventory/2/delete", nil)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, before, mem.MutationCalls())

		status, doc := session.post("/admin/inventory/2/delete", url.Values{"confirm": {"yes"}})
		require.Equal(t, http.StatusOK, status)
		require.NotContains(t, rowIDs(doc), "2")
		require.Len(t, mem.Variants(), 6)
	})
}

func TestInventoryRejectsBadInputBeforeStore(t *testing.T) {
	t.Parallel()

	mem := backend.NewDemoMemory()
	ts := testutil.NewServer(t, testutil.WithBackend(t, mem))
	session, _ := openAdmin(t, ts)

	status, doc := session.post("/admin/inventory", url.Values{"productId": {"abc"}})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, doc.Find("[data-error] span").Text(), `"abc" is not a number`)

	status, _ = session.post("/admin/inventory/1/quantity", url.Values{"quantity": {"lots"}})
	require.Equal(t, http.StatusUnprocessableEntity, status)

	status, doc = session.post("/admin/inventory/1", url.Values{})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "nothing to update", doc.Find("[data-error] span").Text())

	status, _ = session.post("/admin/inventory/abc/quantity", url.Values{"quantity": {"1"}})
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = session.post("/admin/inventory/99/availability", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, doc = session.post("/admin/inventory/batch", url.Values{"payload": {`{"productId": 1}`}})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Batch JSON must be an array of items", doc.Find("[data-error] span").Text())

	require.Zero(t, mem.MutationCalls())
}

func TestInventoryBatchCreate(t *testing.T) {
	t.Parallel()

	mem := backend.NewDemoMemory()
	ts := testutil.NewServer(t, testutil.WithBackend(t, mem))
	session, _ := openAdmin(t, ts)

	status, doc := session.post("/admin/inventory/batch", url.Values{
		"payload": {`[{"productId": 7, "color": "Black", "size": "M"}, {"productId": 7, "color": "Black", "size": "L", "quantity": 4}]`},
	})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, rowIDs(doc), 8)
	require.Equal(t, 1, mem.Calls(backend.OpCreateVariants))
}

func TestInventoryBackendErrorIsShownAndDismissed(t *testing.T) {
	t.Parallel()

	mem := backend.NewDemoMemory()
	ts := testutil.NewServer(t, testutil.WithBackend(t, mem))
	session, _ := openAdmin(t, ts)

	mem.SetFailure(backend.OpUpdateVariant, &backend.StatusError{StatusCode: http.StatusNotFound, Message: "Not found"})
	status, doc := session.post("/admin/inventory/1/quantity", url.Values{"quantity": {"3"}})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Not found", doc.Find("[data-error] span").Text())
	require.Len(t, rowIDs(doc), 6)

	status, doc = session.post("/admin/inventory/error/dismiss", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, doc.Find("[data-error]").Length())
}

func TestInventoryMutationWithoutCSRFIsForbidden(t *testing.T) {
	t.Parallel()

	mem := backend.NewDemoMemory()
	ts := testutil.NewServer(t, testutil.WithBackend(t, mem))

	form := url.Values{"productId": {"1"}}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/admin/inventory", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, mem.MutationCalls())
}

func TestInventoryBusyConsoleConflicts(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithConsole(&busyConsole{}))
	session, _ := openAdmin(t, ts)

	status, _ := session.post("/admin/inventory/1/quantity", url.Values{"quantity": {"3"}})
	require.Equal(t, http.StatusConflict, status)
}

type busyConsole struct{}

func (busyConsole) List(context.Context, *int64) error { return inventory.ErrBusy }
func (busyConsole) Create(context.Context, backend.VariantDraft) error {
	return inventory.ErrBusy
}
func (busyConsole) BatchCreate(context.Context, []byte) error { return inventory.ErrBusy }
func (busyConsole) Update(context.Context, int64, backend.VariantPatch) error {
	return inventory.ErrBusy
}
func (busyConsole) SetQuantity(context.Context, int64, int) error { return inventory.ErrBusy }
func (busyConsole) ToggleAvailability(context.Context, int64) error {
	return inventory.ErrBusy
}
func (busyConsole) Delete(context.Context, int64, inventory.Confirmer) error {
	return inventory.ErrBusy
}
func (busyConsole) DismissError() {}
func (busyConsole) Snapshot() inventory.State {
	return inventory.State{Busy: true}
}

type tokenAuthenticator struct {
	Token string
	Roles []string
}

func (t *tokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token != t.Token {
		return nil, middleware.ErrUnauthorized
	}
	return &middleware.User{
		UID:   "tester",
		Email: "tester@example.com",
		Token: token,
		Roles: t.Roles,
	}, nil
}
