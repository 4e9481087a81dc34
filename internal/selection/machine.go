package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/catalog"
)

// DefaultQuantityCap bounds quantity when the entry reports no stock total.
const DefaultQuantityCap = 10

var (
	// ErrUnknownOption rejects a size or color the entry does not offer.
	ErrUnknownOption = errors.New("selection: unknown option")
	// ErrNotPurchasable is returned by Line outside FullySelected, when the product is out
	// of stock, or when the chosen variant is missing, unavailable or empty.
	ErrNotPurchasable = errors.New("selection: not purchasable")
)

// State is the shopper's progress towards a purchasable selection.
type State int

const (
	NoSelection State = iota
	SizeChosen
	ColorChosen
	FullySelected
)

func (s State) String() string {
	switch s {
	case NoSelection:
		return "no_selection"
	case SizeChosen:
		return "size_chosen"
	case ColorChosen:
		return "color_chosen"
	case FullySelected:
		return "fully_selected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Bounds are the options published by a catalog entry.
type Bounds struct {
	ProductID   int64
	Sizes       []string
	Colors      []string
	ImageCount  int
	InStock     bool
	QuantityCap int
	// Variants, when present, decide eligibility and the cap once both options are chosen.
	Variants []catalog.VariantOption
}

// BoundsFor derives selection bounds from an entry. The quantity cap is the entry's
// total quantity, or defaultCap (DefaultQuantityCap when not positive) when that is 0.
// Once a variant is chosen its own quantity is the cap.
func BoundsFor(e catalog.Entry, defaultCap int) Bounds {
	if defaultCap <= 0 {
		defaultCap = DefaultQuantityCap
	}
	qtyCap := e.TotalQuantity
	if qtyCap <= 0 {
		qtyCap = defaultCap
	}
	return Bounds{
		ProductID:   e.ID,
		Sizes:       append([]string(nil), e.AvailableSizes...),
		Colors:      append([]string(nil), e.AvailableColors...),
		ImageCount:  len(e.Images),
		InStock:     e.InStock,
		QuantityCap: qtyCap,
		Variants:    append([]catalog.VariantOption(nil), e.Variants...),
	}
}

// Machine tracks one shopper's in-progress choice. It is not safe for concurrent use.
type Machine struct {
	bounds   Bounds
	size     string
	color    string
	quantity int
	image    int
}

// Snapshot is the serialisable view of a Machine.
type Snapshot struct {
	State       State  `json:"state"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Quantity    int    `json:"quantity"`
	ImageIndex  int    `json:"imageIndex"`
	QuantityCap int    `json:"quantityCap"`
	CanPurchase bool   `json:"canPurchase"`
	// Sizes lists the sizes of the chosen color with their availability.
	Sizes []catalog.SizeOption `json:"sizes,omitempty"`
}

// New starts a selection with nothing chosen and quantity 1.
func New(b Bounds) *Machine {
	if b.QuantityCap < 1 {
		b.QuantityCap = DefaultQuantityCap
	}
	return &Machine{bounds: b, quantity: 1}
}

// SelectSize chooses a size. Re-selecting the current size changes nothing.
func (m *Machine) SelectSize(size string) error {
	size = strings.TrimSpace(size)
	if !contains(m.bounds.Sizes, size) {
		return fmt.Errorf("%w: size %q", ErrUnknownOption, size)
	}
	m.size = size
	m.clamp()
	return nil
}

// SelectColor chooses a color. Re-selecting the current color changes nothing.
func (m *Machine) SelectColor(color string) error {
	color = strings.TrimSpace(color)
	if !contains(m.bounds.Colors, color) {
		return fmt.Errorf("%w: color %q", ErrUnknownOption, color)
	}
	m.color = color
	m.clamp()
	return nil
}

// SetQuantity saturates q into [1, cap] and returns the stored value.
func (m *Machine) SetQuantity(q int) int {
	switch {
	case q < 1:
		q = 1
	case q > m.QuantityCap():
		q = m.QuantityCap()
	}
	m.quantity = q
	return q
}

// AdjustQuantity moves quantity by delta, saturating at the bounds.
func (m *Machine) AdjustQuantity(delta int) int {
	return m.SetQuantity(m.quantity + delta)
}

// SelectImage clamps i into the image range and returns the stored index.
func (m *Machine) SelectImage(i int) int {
	last := m.bounds.ImageCount - 1
	switch {
	case last < 0 || i < 0:
		i = 0
	case i > last:
		i = last
	}
	m.image = i
	return i
}

// State reports the current selection state.
func (m *Machine) State() State {
	switch {
	case m.size != "" && m.color != "":
		return FullySelected
	case m.size != "":
		return SizeChosen
	case m.color != "":
		return ColorChosen
	default:
		return NoSelection
	}
}

func (m *Machine) Size() string    { return m.size }
func (m *Machine) Color() string   { return m.color }
func (m *Machine) Quantity() int   { return m.quantity }
func (m *Machine) ImageIndex() int { return m.image }

// QuantityCap is the chosen variant's quantity when it has stock, else the entry cap.
func (m *Machine) QuantityCap() int {
	if v, ok := m.variant(); ok && v.Quantity > 0 {
		return v.Quantity
	}
	return m.bounds.QuantityCap
}

// CanPurchase reports whether add-to-cart is enabled. Entries built from variant records
// also need the chosen variant to exist, be available and hold stock.
func (m *Machine) CanPurchase() bool {
	if m.State() != FullySelected || !m.bounds.InStock {
		return false
	}
	if len(m.bounds.Variants) == 0 {
		return true
	}
	v, ok := m.variant()
	return ok && v.Available && v.Quantity > 0
}

// variant finds the option matching the chosen color and size.
func (m *Machine) variant() (catalog.VariantOption, bool) {
	if m.State() != FullySelected {
		return catalog.VariantOption{}, false
	}
	return m.options().Variant(m.color, m.size)
}

// options rebuilds the slice of the entry that per-variant lookups read.
func (m *Machine) options() catalog.Entry {
	return catalog.Entry{
		AvailableSizes: m.bounds.Sizes,
		InStock:        m.bounds.InStock,
		Variants:       m.bounds.Variants,
	}
}

func (m *Machine) sizes() []catalog.SizeOption {
	if m.color == "" {
		return nil
	}
	return m.options().SizesFor(m.color)
}

func (m *Machine) clamp() {
	if c := m.QuantityCap(); m.quantity > c {
		m.quantity = c
	}
}

// Snapshot returns the current view.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:       m.State(),
		Size:        m.size,
		Color:       m.color,
		Quantity:    m.quantity,
		ImageIndex:  m.image,
		QuantityCap: m.QuantityCap(),
		CanPurchase: m.CanPurchase(),
		Sizes:       m.sizes(),
	}
}

// Line builds the add-to-cart request for userID.
func (m *Machine) Line(userID int64) (backend.AddToCartRequest, error) {
	if !m.CanPurchase() {
		return backend.AddToCartRequest{}, m.notPurchasable()
	}
	if userID <= 0 {
		return backend.AddToCartRequest{}, errors.New("selection: user id is required")
	}
	return backend.AddToCartRequest{
		UserID:    userID,
		ProductID: m.bounds.ProductID,
		Quantity:  m.quantity,
		Color:     m.color,
		Size:      m.size,
	}, nil
}

func (m *Machine) notPurchasable() error {
	switch {
	case m.State() != FullySelected:
		return fmt.Errorf("%w: state %s", ErrNotPurchasable, m.State())
	case !m.bounds.InStock:
		return fmt.Errorf("%w: product is out of stock", ErrNotPurchasable)
	}
	v, ok := m.variant()
	switch {
	case !ok:
		return fmt.Errorf("%w: %s / %s is not offered", ErrNotPurchasable, m.color, m.size)
	case !v.Available:
		return fmt.Errorf("%w: %s / %s is unavailable", ErrNotPurchasable, m.color, m.size)
	default:
		return fmt.Errorf("%w: %s / %s is out of stock", ErrNotPurchasable, m.color, m.size)
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
