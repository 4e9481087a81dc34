package backend

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ProductRecord is the base product payload served by /products/get-products. The single
// size/colour/stock fields are legacy values used only when no variant records exist.
type ProductRecord struct {
	ProductID       int64           `json:"productId"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	CategoryID      int64           `json:"categoryId"`
	ProductPrice    decimal.Decimal `json:"productPrice"`
	Size            *string         `json:"size,omitempty"`
	Colour          *string         `json:"colour,omitempty"`
	InStock         *bool           `json:"inStock,omitempty"`
	TotalQuantity   *int            `json:"totalQuantity,omitempty"`
	StockQuantity   *int            `json:"stockQuantity,omitempty"`
	AvailableSizes  []string        `json:"availableSizes,omitempty"`
	AvailableColors []string        `json:"availableColors,omitempty"`
}

// UnmarshalJSON accepts both "colour" and "color" for the legacy colour field.
func (p *ProductRecord) UnmarshalJSON(data []byte) error {
	type plain ProductRecord
	var aux struct {
		plain
		Color *string `json:"color"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = ProductRecord(aux.plain)
	if p.Colour == nil && aux.Color != nil {
		p.Colour = aux.Color
	}
	return nil
}

// ImageRecord is one image attached to a product.
type ImageRecord struct {
	ImageID   int64  `json:"imageId"`
	ProductID int64  `json:"productId"`
	ImageURL  string `json:"imageUrl"`
}

// VariantRecord is one (color, size) stock keeping unit. ID is nil until persisted.
type VariantRecord struct {
	ID           *int64 `json:"id,omitempty"`
	ProductID    int64  `json:"productId"`
	Color        string `json:"color"`
	Size         string `json:"size"`
	Availability bool   `json:"availability"`
	Quantity     int    `json:"quantity"`
}

// Key returns the persisted identifier, or zero when the record has none.
func (v VariantRecord) Key() int64 {
	if v.ID == nil {
		return 0
	}
	return *v.ID
}

// VariantDraft is the create payload for a variant record.
type VariantDraft struct {
	ProductID    int64  `json:"productId"`
	Color        string `json:"color"`
	Size         string `json:"size"`
	Availability bool   `json:"availability"`
	Quantity     int    `json:"quantity"`
}

// VariantPatch carries a partial update. Nil fields are left untouched.
type VariantPatch struct {
	ProductID    *int64  `json:"productId,omitempty"`
	Color        *string `json:"color,omitempty"`
	Size         *string `json:"size,omitempty"`
	Availability *bool   `json:"availability,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p VariantPatch) Empty() bool {
	return p.ProductID == nil && p.Color == nil && p.Size == nil && p.Availability == nil && p.Quantity == nil
}

// Apply returns v with every non-nil patch field applied.
func (p VariantPatch) Apply(v VariantRecord) VariantRecord {
	if p.ProductID != nil {
		v.ProductID = *p.ProductID
	}
	if p.Color != nil {
		v.Color = *p.Color
	}
	if p.Size != nil {
		v.Size = *p.Size
	}
	if p.Availability != nil {
		v.Availability = *p.Availability
	}
	if p.Quantity != nil {
		v.Quantity = *p.Quantity
	}
	return v
}

// AddToCartRequest is the body of POST /cart/add.
type AddToCartRequest struct {
	UserID    int64  `json:"userId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
}

// Cart is the backend's view of a shopper cart after a mutation.
type Cart struct {
	CartID int64      `json:"cartId"`
	UserID int64      `json:"userId"`
	Items  []CartItem `json:"items"`
}

// CartItem is one line of a Cart.
type CartItem struct {
	CartItemID int64  `json:"cartItemId"`
	ProductID  int64  `json:"productId"`
	Quantity   int    `json:"quantity"`
	Color      string `json:"color,omitempty"`
	Size       string `json:"size,omitempty"`
}
