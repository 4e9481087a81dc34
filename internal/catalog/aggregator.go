package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/platform/observability"
)

const defaultConcurrency = 4

var (
	// ErrNotFound indicates the requested product is absent from the collection. Callers
	// render a not-found state for it.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrProductsUnavailable wraps failures fetching the product collection.
	ErrProductsUnavailable = errors.New("catalog: product collection unavailable")
)

// ProductSource serves the full product collection.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]backend.ProductRecord, error)
}

// ImageSource serves the images of one product.
type ImageSource interface {
	ListProductImages(ctx context.Context, productID int64) ([]backend.ImageRecord, error)
}

// VariantSource serves the variant records of one product.
type VariantSource interface {
	ListVariantsByProduct(ctx context.Context, productID int64) ([]backend.VariantRecord, error)
}

// Deps bundles constructor inputs for the Aggregator. Variants is optional.
type Deps struct {
	Products    ProductSource
	Images      ImageSource
	Variants    VariantSource
	Options     Options
	Concurrency int
	Logger      *zap.Logger
}

// Aggregator builds Entries from independently fetched product, image and variant data.
type Aggregator struct {
	products    ProductSource
	images      ImageSource
	variants    VariantSource
	opts        Options
	concurrency int
	logger      *zap.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(deps Deps) (*Aggregator, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog: product source is required")
	}
	if deps.Images == nil {
		return nil, errors.New("catalog: image source is required")
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Aggregator{
		products:    deps.Products,
		images:      deps.Images,
		variants:    deps.Variants,
		opts:        deps.Options,
		concurrency: concurrency,
		logger:      observability.Or(deps.Logger),
	}, nil
}

// Entry builds the entry for productID. The product collection is fetched before any
// image or variant request is issued.
func (a *Aggregator) Entry(ctx context.Context, productID string) (Entry, error) {
	products, err := a.products.ListProducts(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrProductsUnavailable, err)
	}

	want := NormalizeID(productID)
	for _, p := range products {
		if strconv.FormatInt(p.ProductID, 10) == want {
			return a.build(ctx, p), nil
		}
	}
	return Entry{}, ErrNotFound
}

// List builds entries for every product, in collection order. Per-product fetches run
// concurrently.
func (a *Aggregator) List(ctx context.Context) ([]Entry, error) {
	products, err := a.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProductsUnavailable, err)
	}

	entries := make([]Entry, len(products))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, p := range products {
		g.Go(func() error {
			entries[i] = a.build(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *Aggregator) build(ctx context.Context, p backend.ProductRecord) Entry {
	logger := a.logger.With(zap.Int64("product_id", p.ProductID))

	images, err := a.images.ListProductImages(ctx, p.ProductID)
	if err != nil {
		logger.Warn("catalog: image fetch failed, using placeholder", zap.Error(err))
		images = nil
	}

	var variants []backend.VariantRecord
	if a.variants != nil {
		variants, err = a.variants.ListVariantsByProduct(ctx, p.ProductID)
		if err != nil {
			logger.Warn("catalog: variant fetch failed, using legacy fields", zap.Error(err))
			variants = nil
		}
	}

	return Merge(p, images, variants, a.opts)
}
