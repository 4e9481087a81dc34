package inventory

import (
	"bytes"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/clothhaven/storefront/internal/backend"
)

// NewDraft returns a create payload with the console defaults: available, quantity 0.
func NewDraft(productID int64, color, size string) backend.VariantDraft {
	return backend.VariantDraft{
		ProductID:    productID,
		Color:        strings.TrimSpace(color),
		Size:         strings.TrimSpace(size),
		Availability: true,
	}
}

// ParseDraft reads a create form. Only the product id is validated; an unparsable
// quantity or availability keeps its default.
func ParseDraft(values url.Values) (backend.VariantDraft, error) {
	raw := strings.TrimSpace(values.Get("productId"))
	productID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return backend.VariantDraft{}, invalid("productId", "%q is not a number", raw)
	}

	draft := NewDraft(productID, values.Get("color"), values.Get("size"))
	if v := strings.TrimSpace(values.Get("availability")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			draft.Availability = b
		}
	}
	if v := strings.TrimSpace(values.Get("quantity")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			draft.Quantity = n
		}
	}
	return draft, nil
}

// ParseQuantity parses a single quantity field for a quantity-only update.
func ParseQuantity(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, invalid("quantity", "%q is not a number", trimmed)
	}
	return n, nil
}

// ParseBatch checks that a raw batch payload is a JSON array of objects and turns each
// object into a draft. Item fields are read leniently: numeric strings count as numbers
// and values that cannot be read keep their zero value or default, so the store decides
// which items are valid.
func ParseBatch(raw []byte) ([]backend.VariantDraft, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, invalid("batch", "payload is not valid JSON")
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ValidationError{Field: "batch", Message: "Batch JSON must be an array of items"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, invalid("batch", "payload is not a JSON array")
	}

	drafts := make([]backend.VariantDraft, 0, len(items))
	for i, rawItem := range items {
		item := bytes.TrimSpace(rawItem)
		if len(item) == 0 || item[0] != '{' {
			return nil, invalid("batch", "item %d is not an object", i)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, invalid("batch", "item %d is not an object", i)
		}

		productID, _ := looseInt(fields["productId"])
		draft := NewDraft(productID, looseString(fields["color"]), looseString(fields["size"]))
		if v, ok := looseBool(fields["availability"]); ok {
			draft.Availability = v
		}
		if v, ok := looseInt(fields["quantity"]); ok {
			draft.Quantity = int(v)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// looseInt reads an integer given as a JSON number or a numeric string.
func looseInt(raw json.RawMessage) (int64, bool) {
	text, ok := scalar(raw)
	if !ok {
		return 0, false
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func looseBool(raw json.RawMessage) (bool, bool) {
	text, ok := scalar(raw)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(text)
	return b, err == nil
}

// looseString reads a string. Numbers and booleans are kept as their literal text.
func looseString(raw json.RawMessage) string {
	text, _ := scalar(raw)
	return text
}

// scalar returns the text of a JSON string, number or boolean.
func scalar(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case '{', '[', 'n':
		return "", false
	default:
		return string(trimmed), true
	}
}
