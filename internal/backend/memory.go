package backend

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process backend used when no base URL is configured and in tests.
// It mirrors the REST service's validation rules and status codes.
type Memory struct {
	mu       sync.Mutex
	products []ProductRecord
	images   []ImageRecord
	variants []VariantRecord
	nextID   int64
	carts    map[int64]*Cart
	nextCart int64
	calls    map[string]int
	failures map[string]error
}

// NewMemory builds a Memory holding the given records. Variants without an id are
// assigned one.
func NewMemory(products []ProductRecord, images []ImageRecord, variants []VariantRecord) *Memory {
	m := &Memory{
		products: append([]ProductRecord(nil), products...),
		images:   append([]ImageRecord(nil), images...),
		nextID:   1,
		carts:    make(map[int64]*Cart),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
	for _, v := range variants {
		if v.ID != nil && *v.ID >= m.nextID {
			m.nextID = *v.ID + 1
		}
	}
	for _, v := range variants {
		if v.ID == nil {
			v.ID = m.allocID()
		} else {
			id := *v.ID
			v.ID = &id
		}
		m.variants = append(m.variants, v)
	}
	return m
}

// NewDemoMemory returns a Memory seeded with a small storefront catalog.
func NewDemoMemory() *Memory {
	blue, white := "Light Blue", "White"
	size := "M"
	floral := "Floral"
	stock := 12
	inStock := true
	return NewMemory(
		[]ProductRecord{
			{ProductID: 1, Name: "Oxford Shirt", Description: "Button-down cotton oxford.", CategoryID: 1, ProductPrice: decimal.NewFromInt(4500)},
			{ProductID: 2, Name: "Summer Dress", Description: "Lightweight <em>floral</em> midi dress.", CategoryID: 2, ProductPrice: decimal.NewFromInt(6200), Size: &size, Colour: &floral, InStock: &inStock, StockQuantity: &stock},
			{ProductID: 3, Name: "Kids Hoodie", Description: "Fleece-lined hoodie.", CategoryID: 3, ProductPrice: decimal.NewFromInt(3200)},
			{ProductID: 4, Name: "Leather Belt", CategoryID: 4, ProductPrice: decimal.RequireFromString("1850.50"), Colour: &white},
			{ProductID: 7, Name: "Tee", ProductPrice: decimal.NewFromInt(1500)},
		},
		[]ImageRecord{
			{ImageID: 1, ProductID: 1, ImageURL: "https://images.clothhaven.example/oxford-front.jpg"},
			{ImageID: 2, ProductID: 1, ImageURL: "https://images.clothhaven.example/oxford-back.jpg"},
			{ImageID: 3, ProductID: 2, ImageURL: "https://images.clothhaven.example/dress.jpg"},
			{ImageID: 4, ProductID: 3, ImageURL: "https://images.clothhaven.example/hoodie.jpg"},
		},
		[]VariantRecord{
			{ProductID: 1, Color: blue, Size: "S", Availability: true, Quantity: 4},
			{ProductID: 1, Color: blue, Size: "M", Availability: true, Quantity: 6},
			{ProductID: 1, Color: white, Size: "M", Availability: false, Quantity: 0},
			{ProductID: 1, Color: white, Size: "L", Availability: true, Quantity: 3},
			{ProductID: 3, Color: "Navy", Size: "6Y", Availability: true, Quantity: 5},
			{ProductID: 3, Color: "Charcoal", Size: "8Y", Availability: true, Quantity: 2},
		},
	)
}

// Calls returns how many times operation was invoked.
func (m *Memory) Calls(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[operation]
}

// TotalCalls returns the number of invocations across all operations.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// MutationCalls returns the number of write invocations.
func (m *Memory) MutationCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[OpCreateVariant] + m.calls[OpCreateVariants] + m.calls[OpUpdateVariant] + m.calls[OpDeleteVariant]
}

// SetFailure makes operation fail with err until cleared with a nil err.
func (m *Memory) SetFailure(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, operation)
		return
	}
	m.failures[operation] = err
}

// Variants returns a copy of the stored variant records.
func (m *Memory) Variants() []VariantRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneVariants(m.variants)
}

// begin records the call and reports any injected or context failure. Caller holds mu.
func (m *Memory) begin(ctx context.Context, operation string) error {
	m.calls[operation]++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, operation, err)
	}
	if err, ok := m.failures[operation]; ok {
		return err
	}
	return nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpListProducts); err != nil {
		return nil, err
	}
	return append([]ProductRecord(nil), m.products...), nil
}

func (m *Memory) ListProductImages(ctx context.Context, productID int64) ([]ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpListProductImages); err != nil {
		return nil, err
	}
	out := []ImageRecord{}
	for _, img := range m.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *Memory) ListVariants(ctx context.Context) ([]VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpListVariants); err != nil {
		return nil, err
	}
	return cloneVariants(m.variants), nil
}

func (m *Memory) ListVariantsByProduct(ctx context.Context, productID int64) ([]VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpListVariantsByProduct); err != nil {
		return nil, err
	}
	out := []VariantRecord{}
	for _, v := range m.variants {
		if v.ProductID == productID {
			out = append(out, cloneVariant(v))
		}
	}
	return out, nil
}

func (m *Memory) GetVariant(ctx context.Context, id int64) (VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpGetVariant); err != nil {
		return VariantRecord{}, err
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return VariantRecord{}, &StatusError{StatusCode: http.StatusNotFound, Message: "Not found"}
	}
	return cloneVariant(m.variants[idx]), nil
}

func (m *Memory) VariantExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpVariantExists); err != nil {
		return false, err
	}
	return m.indexOf(id) >= 0, nil
}

func (m *Memory) CreateVariant(ctx context.Context, draft VariantDraft) (VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateVariant); err != nil {
		return VariantRecord{}, err
	}
	if !m.hasProduct(draft.ProductID) {
		return VariantRecord{}, &StatusError{StatusCode: http.StatusBadRequest, Message: "Invalid productId"}
	}
	if draft.Quantity < 0 {
		return VariantRecord{}, errNegativeQuantity()
	}
	return cloneVariant(m.store(draft)), nil
}

func (m *Memory) CreateVariants(ctx context.Context, drafts []VariantDraft) ([]VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateVariants); err != nil {
		return nil, err
	}
	var created []VariantRecord
	for _, draft := range drafts {
		if !m.hasProduct(draft.ProductID) || draft.Quantity < 0 {
			continue
		}
		created = append(created, cloneVariant(m.store(draft)))
	}
	if len(created) == 0 {
		return nil, &StatusError{StatusCode: http.StatusBadRequest, Message: "No valid entries were created"}
	}
	return created, nil
}

func (m *Memory) UpdateVariant(ctx context.Context, id int64, patch VariantPatch) (VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdateVariant); err != nil {
		return VariantRecord{}, err
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return VariantRecord{}, &StatusError{StatusCode: http.StatusNotFound, Message: "Not found"}
	}
	if patch.ProductID != nil && !m.hasProduct(*patch.ProductID) {
		return VariantRecord{}, &StatusError{StatusCode: http.StatusNotFound, Message: "Not found"}
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return VariantRecord{}, errNegativeQuantity()
	}
	m.variants[idx] = patch.Apply(m.variants[idx])
	return cloneVariant(m.variants[idx]), nil
}

func (m *Memory) DeleteVariant(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteVariant); err != nil {
		return err
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return &StatusError{StatusCode: http.StatusNotFound}
	}
	m.variants = append(m.variants[:idx], m.variants[idx+1:]...)
	return nil
}

func (m *Memory) AddToCart(ctx context.Context, req AddToCartRequest) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpAddToCart); err != nil {
		return Cart{}, err
	}
	if req.UserID <= 0 {
		return Cart{}, &StatusError{StatusCode: http.StatusBadRequest, Message: "User ID is required"}
	}
	if req.Quantity <= 0 {
		return Cart{}, &StatusError{StatusCode: http.StatusBadRequest, Message: "Quantity must be positive"}
	}
	if !m.hasProduct(req.ProductID) {
		return Cart{}, &StatusError{StatusCode: http.StatusBadRequest, Message: "Invalid productId"}
	}

	cart, ok := m.carts[req.UserID]
	if !ok {
		m.nextCart++
		cart = &Cart{CartID: m.nextCart, UserID: req.UserID}
		m.carts[req.UserID] = cart
	}
	merged := false
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ProductID == req.ProductID && item.Color == req.Color && item.Size == req.Size {
			item.Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, CartItem{
			CartItemID: int64(len(cart.Items) + 1),
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			Color:      req.Color,
			Size:       req.Size,
		})
	}
	out := *cart
	out.Items = append([]CartItem(nil), cart.Items...)
	return out, nil
}

func errNegativeQuantity() error {
	return &StatusError{StatusCode: http.StatusBadRequest, Message: "Quantity must not be negative"}
}

func (m *Memory) store(draft VariantDraft) VariantRecord {
	rec := VariantRecord{
		ID:           m.allocID(),
		ProductID:    draft.ProductID,
		Color:        draft.Color,
		Size:         draft.Size,
		Availability: draft.Availability,
		Quantity:     draft.Quantity,
	}
	m.variants = append(m.variants, rec)
	return rec
}

func (m *Memory) allocID() *int64 {
	id := m.nextID
	m.nextID++
	return &id
}

func (m *Memory) indexOf(id int64) int {
	for i, v := range m.variants {
		if v.ID != nil && *v.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) hasProduct(id int64) bool {
	for _, p := range m.products {
		if p.ProductID == id {
			return true
		}
	}
	return false
}

func cloneVariant(v VariantRecord) VariantRecord {
	if v.ID != nil {
		id := *v.ID
		v.ID = &id
	}
	return v
}

func cloneVariants(in []VariantRecord) []VariantRecord {
	out := make([]VariantRecord, 0, len(in))
	for _, v := range in {
		out = append(out, cloneVariant(v))
	}
	return out
}
