package httpserver_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/testutil"
)

type entryBody struct {
	Entry struct {
		ID              int64    `json:"id"`
		Name            string   `json:"name"`
		PriceLabel      string   `json:"priceLabel"`
		Category        string   `json:"category"`
		Images          []string `json:"images"`
		AvailableSizes  []string `json:"availableSizes"`
		AvailableColors []string `json:"availableColors"`
		InStock         bool     `json:"inStock"`
		TotalQuantity   int      `json:"totalQuantity"`
	} `json:"entry"`
	Selection struct {
		State       string `json:"state"`
		Quantity    int    `json:"quantity"`
		CanPurchase bool   `json:"canPurchase"`
	} `json:"selection"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestCatalogListKeepsCollectionOrder(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithBackend(t, backend.NewDemoMemory()))
	resp, err := http.Get(ts.URL + "/api/catalog")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var payload struct {
		Entries []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	ids := make([]int64, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []int64{1, 2, 3, 4, 7}, ids)
}

func TestCatalogEntry(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithBackend(t, backend.NewDemoMemory()))

	t.Run("variant backed entry", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/catalog/1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got entryBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "Oxford Shirt", got.Entry.Name)
		require.Equal(t, "LKR 4,500", got.Entry.PriceLabel)
		require.Equal(t, "Men's Wear", got.Entry.Category)
		require.Equal(t, []string{"S", "M", "L"}, got.Entry.AvailableSizes)
		require.Equal(t, []string{"Light Blue", "White"}, got.Entry.AvailableColors)
		require.Equal(t, 13, got.Entry.TotalQuantity)
		require.Equal(t, "no_selection", got.Selection.State)
		require.Equal(t, 1, got.Selection.Quantity)
		require.False(t, got.Selection.CanPurchase)
	})

	t.Run("legacy fields and placeholder image", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/catalog/04")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got entryBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, int64(4), got.Entry.ID)
		require.Equal(t, []string{"https://placehold.co/600x800?text=No+Image"}, got.Entry.Images)
		require.Equal(t, []string{"White"}, got.Entry.AvailableColors)
		require.Equal(t, []string{"Free"}, got.Entry.AvailableSizes)
		require.True(t, got.Entry.InStock)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/catalog/99")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var got errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "product_not_found", got.Error)
	})
}

func TestCatalogUnavailable(t *testing.T) {
	t.Parallel()

	mem := backend.NewDemoMemory()
	mem.SetFailure(backend.OpListProducts, errors.New("connection refused"))
	ts := testutil.NewServer(t, testutil.WithBackend(t, mem))

	for _, path := range []string{"/api/catalog", "/api/catalog/1"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadGateway, resp.StatusCode, path)
	}
	require.Zero(t, mem.Calls(backend.OpListProductImages))
}

func TestResolveColor(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, err := http.Get(ts.URL + "/api/colors/Navy%20Blue")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Normalized string `json:"normalized"`
		Hex        string `json:"hex"`
		Known      bool   `json:"known"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "navy blue", got.Normalized)
	require.False(t, got.Known)
	require.Regexp(t, `^#[0-9a-f]{6}$`, got.Hex)
}

func TestAddToCart(t *testing.T) {
	t.Parallel()

	post := func(t *testing.T, url string, payload any) *http.Response {
		t.Helper()
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		resp, err := http.Post(url, "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("full selection is forwarded with clamped quantity", func(t *testing.T) {
		mem := backend.NewDemoMemory()
		ts := testutil.NewServer(t, testutil.WithBackend(t, mem))

		resp := post(t, ts.URL+"/api/catalog/1/cart", map[string]any{
			"userId": 42, "size": "M", "color": "Light Blue", "quantity": 50,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var got struct {
			Cart      backend.Cart `json:"cart"`
			Selection struct {
				State    string `json:"state"`
				Quantity int    `json:"quantity"`
			} `json:"selection"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, int64(42), got.Cart.UserID)
		require.Len(t, got.Cart.Items, 1)
		require.Equal(t, 6, got.Cart.Items[0].Quantity)
		require.Equal(t, "Light Blue", got.Cart.Items[0].Color)
		require.Equal(t, "fully_selected", got.Selection.State)
		require.Equal(t, 1, mem.Calls(backend.OpAddToCart))
	})

	t.Run("partial selection is not purchasable", func(t *testing.T) {
		mem := backend.NewDemoMemory()
		ts := testutil.NewServer(t, testutil.WithBackend(t, mem))

		resp := post(t, ts.URL+"/api/catalog/1/cart", map[string]any{"userId": 42, "size": "M"})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var got errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "not_purchasable", got.Error)
		require.Zero(t, mem.Calls(backend.OpAddToCart))
	})

	t.Run("chosen variant must be in stock", func(t *testing.T) {
		mem := backend.NewDemoMemory()
		ts := testutil.NewServer(t, testutil.WithBackend(t, mem))

		for _, sel := range []map[string]any{
			{"userId": 42, "size": "M", "color": "White", "quantity": 3},
			{"userId": 42, "size": "S", "color": "White"},
		} {
			resp := post(t, ts.URL+"/api/catalog/1/cart", sel)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

			var got errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			require.Equal(t, "not_purchasable", got.Error)
		}
		require.Zero(t, mem.Calls(backend.OpAddToCart))
	})

	t.Run("unknown option is rejected", func(t *testing.T) {
		ts := testutil.NewServer(t, testutil.WithBackend(t, backend.NewDemoMemory()))

		resp := post(t, ts.URL+"/api/catalog/1/cart", map[string]any{"userId": 42, "size": "XXL", "color": "White"})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var got errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "invalid_selection", got.Error)
	})

	t.Run("missing user is a bad request", func(t *testing.T) {
		ts := testutil.NewServer(t, testutil.WithBackend(t, backend.NewDemoMemory()))

		resp := post(t, ts.URL+"/api/catalog/1/cart", map[string]any{"size": "M", "color": "White"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("backend rejection keeps its status and message", func(t *testing.T) {
		mem := backend.NewDemoMemory()
		mem.SetFailure(backend.OpAddToCart, &backend.StatusError{StatusCode: http.StatusBadRequest, Message: "Invalid productId"})
		ts := testutil.NewServer(t, testutil.WithBackend(t, mem))

		resp := post(t, ts.URL+"/api/catalog/1/cart", map[string]any{"userId": 1, "size": "L", "color": "White"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var got errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "Invalid productId", got.Message)
	})
}
