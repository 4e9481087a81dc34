package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/clothhaven/storefront/internal/platform/observability"
)

// DefaultTimeout bounds each backend request when no timeout is configured.
const DefaultTimeout = 8 * time.Second

const (
	requestIDHeader = "X-Request-ID"
	variantsPath    = "/colors-size-quantity-availability"
	maxErrorBody    = 1 << 16
)

// Operation names shared by the REST client spans and the in-memory call counters.
const (
	OpListProducts          = "ListProducts"
	OpListProductImages     = "ListProductImages"
	OpListVariants          = "ListVariants"
	OpListVariantsByProduct = "ListVariantsByProduct"
	OpGetVariant            = "GetVariant"
	OpVariantExists         = "VariantExists"
	OpCreateVariant         = "CreateVariant"
	OpCreateVariants        = "CreateVariants"
	OpUpdateVariant         = "UpdateVariant"
	OpDeleteVariant         = "DeleteVariant"
	OpAddToCart             = "AddToCart"
)

// Service is the full backend surface. Client and Memory both implement it.
type Service interface {
	ListProducts(ctx context.Context) ([]ProductRecord, error)
	ListProductImages(ctx context.Context, productID int64) ([]ImageRecord, error)
	ListVariants(ctx context.Context) ([]VariantRecord, error)
	ListVariantsByProduct(ctx context.Context, productID int64) ([]VariantRecord, error)
	GetVariant(ctx context.Context, id int64) (VariantRecord, error)
	VariantExists(ctx context.Context, id int64) (bool, error)
	CreateVariant(ctx context.Context, draft VariantDraft) (VariantRecord, error)
	CreateVariants(ctx context.Context, drafts []VariantDraft) ([]VariantRecord, error)
	UpdateVariant(ctx context.Context, id int64, patch VariantPatch) (VariantRecord, error)
	DeleteVariant(ctx context.Context, id int64) error
	AddToCart(ctx context.Context, req AddToCartRequest) (Cart, error)
}

var (
	_ Service = (*Client)(nil)
	_ Service = (*Memory)(nil)
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the backend REST service.
type Client struct {
	base        *url.URL
	http        HTTPClient
	logger      *zap.Logger
	instruments *observability.ClientInstruments
	requestID   func() string
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport. The default is an http.Client with the
// configured timeout.
func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger for failed calls.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = observability.Or(logger)
	}
}

// WithInstruments attaches span and latency recording.
func WithInstruments(instruments *observability.ClientInstruments) ClientOption {
	return func(c *Client) {
		c.instruments = instruments
	}
}

// WithRequestIDGenerator overrides the X-Request-ID generator.
func WithRequestIDGenerator(fn func() string) ClientOption {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// NewClient constructs a Client rooted at baseURL. A zero timeout selects the default.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("backend: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(trimmed, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: base URL %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:      parsed,
		http:      &http.Client{Timeout: timeout},
		logger:    observability.NoopLogger(),
		requestID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListProducts returns the full product collection.
func (c *Client) ListProducts(ctx context.Context) ([]ProductRecord, error) {
	var out []ProductRecord
	err := c.call(ctx, OpListProducts, http.MethodGet, "/products/get-products", "/products/get-products", nil, &out)
	return out, err
}

// ListProductImages returns the image set for a product.
func (c *Client) ListProductImages(ctx context.Context, productID int64) ([]ImageRecord, error) {
	var out []ImageRecord
	endpoint := "/images/product/" + strconv.FormatInt(productID, 10)
	err := c.call(ctx, OpListProductImages, http.MethodGet, "/images/product/{productId}", endpoint, nil, &out)
	return out, err
}

// ListVariants returns every variant record.
func (c *Client) ListVariants(ctx context.Context) ([]VariantRecord, error) {
	var out []VariantRecord
	err := c.call(ctx, OpListVariants, http.MethodGet, variantsPath, variantsPath, nil, &out)
	return out, err
}

// ListVariantsByProduct returns the variant records of one product.
func (c *Client) ListVariantsByProduct(ctx context.Context, productID int64) ([]VariantRecord, error) {
	var out []VariantRecord
	endpoint := variantsPath + "/product/" + strconv.FormatInt(productID, 10)
	err := c.call(ctx, OpListVariantsByProduct, http.MethodGet, variantsPath+"/product/{productId}", endpoint, nil, &out)
	return out, err
}

// GetVariant fetches a single variant record.
func (c *Client) GetVariant(ctx context.Context, id int64) (VariantRecord, error) {
	var out VariantRecord
	err := c.call(ctx, OpGetVariant, http.MethodGet, variantsPath+"/{id}", variantPath(id), nil, &out)
	return out, err
}

// VariantExists asks the backend whether a variant id is persisted.
func (c *Client) VariantExists(ctx context.Context, id int64) (bool, error) {
	var out bool
	err := c.call(ctx, OpVariantExists, http.MethodGet, variantsPath+"/{id}/exists", variantPath(id)+"/exists", nil, &out)
	return out, err
}

// CreateVariant persists one variant record.
func (c *Client) CreateVariant(ctx context.Context, draft VariantDraft) (VariantRecord, error) {
	var out VariantRecord
	err := c.call(ctx, OpCreateVariant, http.MethodPost, variantsPath, variantsPath, draft, &out)
	return out, err
}

// CreateVariants persists a batch of variant records.
func (c *Client) CreateVariants(ctx context.Context, drafts []VariantDraft) ([]VariantRecord, error) {
	if drafts == nil {
		drafts = []VariantDraft{}
	}
	var out []VariantRecord
	err := c.call(ctx, OpCreateVariants, http.MethodPost, variantsPath+"/batch", variantsPath+"/batch", drafts, &out)
	return out, err
}

// UpdateVariant sends a partial update for one record.
func (c *Client) UpdateVariant(ctx context.Context, id int64, patch VariantPatch) (VariantRecord, error) {
	var out VariantRecord
	err := c.call(ctx, OpUpdateVariant, http.MethodPut, variantsPath+"/{id}", variantPath(id), patch, &out)
	return out, err
}

// DeleteVariant removes one record.
func (c *Client) DeleteVariant(ctx context.Context, id int64) error {
	return c.call(ctx, OpDeleteVariant, http.MethodDelete, variantsPath+"/{id}", variantPath(id), nil, nil)
}

// AddToCart adds a purchasable line to the user's cart.
func (c *Client) AddToCart(ctx context.Context, req AddToCartRequest) (Cart, error) {
	var out Cart
	err := c.call(ctx, OpAddToCart, http.MethodPost, "/cart/add", "/cart/add", req, &out)
	return out, err
}

func variantPath(id int64) string {
	return variantsPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) call(ctx context.Context, operation, method, route, endpoint string, payload, out any) error {
	ctx, finish := c.instruments.Start(ctx, operation, method, route)
	logger := c.logger.With(
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("route", route),
	)

	req, err := c.newJSONRequest(ctx, method, endpoint, payload)
	if err != nil {
		finish(0, err)
		return err
	}
	logger = logger.With(zap.String("request_id", req.Header.Get(requestIDHeader)))

	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", ErrTransport, method, route, err)
		finish(0, err)
		logger.Warn("backend request failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := errorFromResponse(resp)
		finish(resp.StatusCode, statusErr)
		logger.Warn("backend returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", statusErr.Message),
		)
		return statusErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			err = fmt.Errorf("backend: decode %s: %w", operation, err)
			finish(resp.StatusCode, err)
			logger.Warn("backend response undecodable", zap.Error(err))
			return err
		}
	}
	finish(resp.StatusCode, nil)
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("backend: encode payload: %w", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, c.requestID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) resolve(endpoint string) string {
	ref := &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	return c.base.ResolveReference(ref).String()
}

func errorFromResponse(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	var quoted string
	msg := strings.TrimSpace(string(body))
	switch {
	case len(body) == 0:
	case json.Unmarshal(body, &quoted) == nil:
		msg = quoted
	case json.Unmarshal(body, &payload) == nil:
		if payload.Message != "" {
			msg = payload.Message
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
