package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/catalog"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
func idPtr(n int64) *int64    { return &n }

func tee() backend.ProductRecord {
	return backend.ProductRecord{ProductID: 7, Name: "Tee", ProductPrice: decimal.NewFromInt(1500)}
}

func TestMergeBareProduct(t *testing.T) {
	t.Parallel()

	entry := catalog.Merge(tee(), nil, nil, catalog.Options{})

	require.Equal(t, int64(7), entry.ID)
	require.Equal(t, "Tee", entry.Name)
	require.Equal(t, catalog.DefaultPlaceholderImage, entry.ImageURL)
	require.Equal(t, []string{catalog.DefaultPlaceholderImage}, entry.Images)
	require.Equal(t, []string{"Free"}, entry.AvailableSizes)
	require.Equal(t, []string{"Black"}, entry.AvailableColors)
	require.Equal(t, 0, entry.TotalQuantity)
	require.True(t, entry.InStock)
	require.Equal(t, catalog.Uncategorized, entry.Category)
	require.Equal(t, "LKR 1,500", entry.PriceLabel)
	require.False(t, entry.HasVariants())
	require.Len(t, entry.Swatches, 1)
	require.Equal(t, "#000000", entry.Swatches[0].Value)
}

func TestMergeCustomPlaceholder(t *testing.T) {
	t.Parallel()

	images := []backend.ImageRecord{{ImageID: 1, ProductID: 7, ImageURL: "   "}}
	entry := catalog.Merge(tee(), images, nil, catalog.Options{PlaceholderImageURL: "/static/none.png"})
	require.Equal(t, "/static/none.png", entry.ImageURL)
}

func TestMergeLegacyFields(t *testing.T) {
	t.Parallel()

	p := tee()
	p.Name = "  "
	p.CategoryID = 2
	p.Size = strPtr("M")
	p.Colour = strPtr("Floral")
	p.InStock = boolPtr(false)
	p.StockQuantity = intPtr(12)

	entry := catalog.Merge(p, nil, nil, catalog.Options{})
	require.Equal(t, "Unnamed", entry.Name)
	require.Equal(t, "Women's Wear", entry.Category)
	require.Equal(t, []string{"M"}, entry.AvailableSizes)
	require.Equal(t, []string{"Floral"}, entry.AvailableColors)
	require.False(t, entry.InStock)
	require.Equal(t, 12, entry.TotalQuantity)

	p.TotalQuantity = intPtr(20)
	p.AvailableSizes = []string{"S", "M", "S", ""}
	entry = catalog.Merge(p, nil, nil, catalog.Options{})
	require.Equal(t, 20, entry.TotalQuantity)
	require.Equal(t, []string{"S", "M"}, entry.AvailableSizes)
}

func TestMergeVariantsWinOverLegacy(t *testing.T) {
	t.Parallel()

	p := tee()
	p.CategoryID = 1
	p.Size = strPtr("XL")
	p.Colour = strPtr("Green")
	p.InStock = boolPtr(false)
	p.TotalQuantity = intPtr(99)

	images := []backend.ImageRecord{
		{ImageID: 1, ProductID: 7, ImageURL: "https://img.example/front.jpg"},
		{ImageID: 2, ProductID: 7, ImageURL: "https://img.example/back.jpg"},
	}
	variants := []backend.VariantRecord{
		{ID: idPtr(1), ProductID: 7, Color: "Red", Size: "S", Availability: false, Quantity: 0},
		{ID: idPtr(2), ProductID: 7, Color: "Red", Size: "M", Availability: true, Quantity: 5},
		{ID: idPtr(3), ProductID: 7, Color: "Blue", Size: "M", Availability: true, Quantity: 2},
		{ID: idPtr(4), ProductID: 8, Color: "Pink", Size: "XS", Availability: true, Quantity: 50},
	}

	entry := catalog.Merge(p, images, variants, catalog.Options{})
	require.Equal(t, "https://img.example/front.jpg", entry.ImageURL)
	require.Len(t, entry.Images, 2)
	require.Equal(t, "Men's Wear", entry.Category)
	require.Equal(t, []string{"S", "M"}, entry.AvailableSizes)
	require.Equal(t, []string{"Red", "Blue"}, entry.AvailableColors)
	require.True(t, entry.InStock)
	require.Equal(t, 7, entry.TotalQuantity)
	require.Len(t, entry.Variants, 3)

	sizes := entry.SizesFor("Red")
	require.Equal(t, []catalog.SizeOption{{Size: "S", Available: false}, {Size: "M", Available: true}}, sizes)
	require.Empty(t, entry.SizesFor("Pink"))
}

func TestMergeAllVariantsUnavailable(t *testing.T) {
	t.Parallel()

	p := tee()
	p.InStock = boolPtr(true)
	variants := []backend.VariantRecord{
		{ProductID: 7, Color: "Red", Size: "M", Availability: false, Quantity: 0},
	}
	entry := catalog.Merge(p, nil, variants, catalog.Options{})
	require.False(t, entry.InStock)
	require.Equal(t, 0, entry.TotalQuantity)
}

func TestMergeToleratesDuplicateVariants(t *testing.T) {
	t.Parallel()

	variants := []backend.VariantRecord{
		{ID: idPtr(10), ProductID: 7, Color: "Red", Size: "M", Availability: true, Quantity: 3},
		{ID: idPtr(11), ProductID: 7, Color: "Red", Size: "M", Availability: false, Quantity: 4},
	}
	entry := catalog.Merge(tee(), nil, variants, catalog.Options{})
	require.Equal(t, []string{"M"}, entry.AvailableSizes)
	require.Equal(t, []string{"Red"}, entry.AvailableColors)
	require.Equal(t, 7, entry.TotalQuantity)

	opt, ok := entry.Variant("Red", "M")
	require.True(t, ok)
	require.Equal(t, int64(10), opt.ID)
	require.True(t, opt.Available)
	require.Equal(t, 7, opt.Quantity)
}

func TestMergeSanitisesDescription(t *testing.T) {
	t.Parallel()

	p := tee()
	p.Description = `<p>Soft &amp; light <script>alert(1)</script><b>cotton</b></p>`
	entry := catalog.Merge(p, nil, nil, catalog.Options{})
	require.Equal(t, "Soft & light cotton", entry.Description)
}

func TestMergeRendersMarkdownDescription(t *testing.T) {
	t.Parallel()

	p := tee()
	p.Description = "Soft **cotton**. See the [care guide](https://clothhaven.example/care).\n\n<script>alert(1)</script>"
	entry := catalog.Merge(p, nil, nil, catalog.Options{})

	require.Contains(t, entry.DescriptionHTML, "<strong>cotton</strong>")
	require.Contains(t, entry.DescriptionHTML, `rel="nofollow"`)
	require.NotContains(t, entry.DescriptionHTML, "<script>")
	require.Equal(t, "", catalog.Merge(tee(), nil, nil, catalog.Options{}).DescriptionHTML)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	require.Equal(t, "LKR 0", catalog.FormatPrice(decimal.Zero))
	require.Equal(t, "LKR 1,851", catalog.FormatPrice(decimal.RequireFromString("1850.5")))
	require.Equal(t, "LKR 1,250,000", catalog.FormatPrice(decimal.NewFromInt(1250000)))
}

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "7", catalog.NormalizeID(" 007 "))
	require.Equal(t, "abc", catalog.NormalizeID(" abc"))
	require.Equal(t, "", catalog.NormalizeID("  "))
}
