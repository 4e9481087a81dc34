package catalog

import (
	"bytes"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/colors"
)

const (
	// DefaultPlaceholderImage is shown when a product has no usable images.
	DefaultPlaceholderImage = "https://placehold.co/600x800?text=No+Image"
	// Uncategorized labels products whose category id is not in the table.
	Uncategorized = "Uncategorized"

	unnamedProduct = "Unnamed"
	fallbackSize   = "Free"
	fallbackColor  = "Black"
)

var categoryLabels = map[int64]string{
	1: "Men's Wear",
	2: "Women's Wear",
	3: "Kids' Wear",
	4: "Accessories",
}

var (
	descriptionPolicy = bluemonday.StrictPolicy()
	richPolicy        = newRichDescriptionPolicy()
	pricePrinter      = message.NewPrinter(language.English)
)

// Entry is the display-ready view of one product. It is rebuilt on every fetch.
type Entry struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	PriceLabel      string          `json:"priceLabel"`
	ImageURL        string          `json:"imageUrl"`
	Images          []string        `json:"images"`
	CategoryID      int64           `json:"categoryId"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	DescriptionHTML string          `json:"descriptionHtml,omitempty"`
	AvailableSizes  []string        `json:"availableSizes"`
	AvailableColors []string        `json:"availableColors"`
	Swatches        []colors.Swatch `json:"swatches"`
	InStock         bool            `json:"inStock"`
	TotalQuantity   int             `json:"totalQuantity"`
	Variants        []VariantOption `json:"variants"`
}

// VariantOption is one purchasable (color, size) pair of an Entry.
type VariantOption struct {
	ID        int64  `json:"id,omitempty"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Available bool   `json:"available"`
	Quantity  int    `json:"quantity"`
}

// SizeOption is a size offered for a chosen color.
type SizeOption struct {
	Size      string `json:"size"`
	Available bool   `json:"available"`
}

// Options tunes Merge fallbacks.
type Options struct {
	PlaceholderImageURL string
}

func (o Options) placeholder() string {
	if p := strings.TrimSpace(o.PlaceholderImageURL); p != "" {
		return p
	}
	return DefaultPlaceholderImage
}

// CategoryLabel maps a category id to its display label.
func CategoryLabel(id int64) string {
	if label, ok := categoryLabels[id]; ok {
		return label
	}
	return Uncategorized
}

// FormatPrice renders an amount as whole rupees with thousands grouping, e.g. "LKR 1,500".
func FormatPrice(amount decimal.Decimal) string {
	return pricePrinter.Sprintf("LKR %d", amount.Round(0).IntPart())
}

// NormalizeID canonicalises a product id for comparison. Numeric ids lose leading zeros
// and surrounding whitespace; anything else is only trimmed.
func NormalizeID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return trimmed
}

// Merge combines a product with its images and variant records into an Entry. Variant
// records belonging to other products are ignored. This is the only place the display
// fallback chain lives.
func Merge(p backend.ProductRecord, images []backend.ImageRecord, variants []backend.VariantRecord, opts Options) Entry {
	own := make([]backend.VariantRecord, 0, len(variants))
	for _, v := range variants {
		if v.ProductID == p.ProductID {
			own = append(own, v)
		}
	}

	entry := Entry{
		ID:          p.ProductID,
		Name:        strings.TrimSpace(p.Name),
		Price:       p.ProductPrice,
		PriceLabel:  FormatPrice(p.ProductPrice),
		CategoryID:  p.CategoryID,
		Category:    CategoryLabel(p.CategoryID),
		Description: plainText(p.Description),
	}
	entry.DescriptionHTML = richText(p.Description)
	if entry.Name == "" {
		entry.Name = unnamedProduct
	}

	entry.Images = imageURLs(images, opts.placeholder())
	entry.ImageURL = entry.Images[0]

	entry.AvailableSizes = pickValues(own, func(v backend.VariantRecord) string { return v.Size }, p.AvailableSizes, p.Size, fallbackSize)
	entry.AvailableColors = pickValues(own, func(v backend.VariantRecord) string { return v.Color }, p.AvailableColors, p.Colour, fallbackColor)
	entry.Swatches = colors.Swatches(entry.AvailableColors)

	if len(own) > 0 {
		for _, v := range own {
			entry.InStock = entry.InStock || v.Availability
			entry.TotalQuantity += v.Quantity
		}
		entry.Variants = options(own)
	} else {
		entry.InStock = true
		if p.InStock != nil {
			entry.InStock = *p.InStock
		}
		switch {
		case p.TotalQuantity != nil:
			entry.TotalQuantity = *p.TotalQuantity
		case p.StockQuantity != nil:
			entry.TotalQuantity = *p.StockQuantity
		}
	}
	return entry
}

// HasVariants reports whether the entry was built from variant records.
func (e Entry) HasVariants() bool {
	return len(e.Variants) > 0
}

// Variant returns the first variant option for color and size.
func (e Entry) Variant(color, size string) (VariantOption, bool) {
	for _, v := range e.Variants {
		if v.Color == color && v.Size == size {
			return v, true
		}
	}
	return VariantOption{}, false
}

// SizesFor lists the sizes offered in color, in first-seen order. Without variant records
// every available size is offered as available.
func (e Entry) SizesFor(color string) []SizeOption {
	if !e.HasVariants() {
		out := make([]SizeOption, 0, len(e.AvailableSizes))
		for _, s := range e.AvailableSizes {
			out = append(out, SizeOption{Size: s, Available: e.InStock})
		}
		return out
	}
	var out []SizeOption
	for _, v := range e.Variants {
		if v.Color == color {
			out = append(out, SizeOption{Size: v.Size, Available: v.Available && v.Quantity > 0})
		}
	}
	return out
}

// HasSize reports whether size is one of the entry's sizes.
func (e Entry) HasSize(size string) bool {
	return contains(e.AvailableSizes, size)
}

// HasColor reports whether color is one of the entry's colors.
func (e Entry) HasColor(color string) bool {
	return contains(e.AvailableColors, color)
}

func imageURLs(images []backend.ImageRecord, placeholder string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if u := strings.TrimSpace(img.ImageURL); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return []string{placeholder}
	}
	return out
}

func pickValues(own []backend.VariantRecord, field func(backend.VariantRecord) string, legacyList []string, legacy *string, fallback string) []string {
	if len(own) > 0 {
		fields := make([]string, 0, len(own))
		for _, v := range own {
			fields = append(fields, field(v))
		}
		if values := distinct(fields); len(values) > 0 {
			return values
		}
	}
	if values := distinct(legacyList); len(values) > 0 {
		return values
	}
	if legacy != nil {
		if s := strings.TrimSpace(*legacy); s != "" {
			return []string{s}
		}
	}
	return []string{fallback}
}

// distinct trims values and drops blanks and repeats, keeping first-seen order.
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, s := range values {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// options collapses duplicate (color, size) records. The first record keeps its id and
// availability; quantities accumulate.
func options(own []backend.VariantRecord) []VariantOption {
	index := make(map[[2]string]int, len(own))
	out := make([]VariantOption, 0, len(own))
	for _, v := range own {
		color, size := strings.TrimSpace(v.Color), strings.TrimSpace(v.Size)
		key := [2]string{color, size}
		if i, ok := index[key]; ok {
			out[i].Quantity += v.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, VariantOption{
			ID:        v.Key(),
			Color:     color,
			Size:      size,
			Available: v.Availability,
			Quantity:  v.Quantity,
		})
	}
	return out
}

func plainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(descriptionPolicy.Sanitize(raw)))
}

// richText renders a Markdown description to sanitised HTML.
func richText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(trimmed), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(richPolicy.Sanitize(buf.String()))
}

func newRichDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
