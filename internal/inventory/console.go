package inventory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/platform/observability"
)

// Store is the remote variant record store driven by the console.
type Store interface {
	ListVariants(ctx context.Context) ([]backend.VariantRecord, error)
	ListVariantsByProduct(ctx context.Context, productID int64) ([]backend.VariantRecord, error)
	CreateVariant(ctx context.Context, draft backend.VariantDraft) (backend.VariantRecord, error)
	CreateVariants(ctx context.Context, drafts []backend.VariantDraft) ([]backend.VariantRecord, error)
	UpdateVariant(ctx context.Context, id int64, patch backend.VariantPatch) (backend.VariantRecord, error)
	DeleteVariant(ctx context.Context, id int64) error
}

// Confirmer asks the operator to confirm deleting a record.
type Confirmer func(id int64) bool

// Confirmed approves every delete. Use it when confirmation happened upstream.
func Confirmed(int64) bool { return true }

// State is a snapshot of the console.
type State struct {
	Entries   []backend.VariantRecord
	Filter    *int64
	LastError error
	Busy      bool
	Loaded    bool
}

// ErrorMessage returns the last error as operator-facing text.
func (s State) ErrorMessage() string {
	if s.LastError == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(s.LastError, &vErr) {
		return vErr.Message
	}
	return backend.OperatorMessage(s.LastError)
}

// Console keeps a local working set of variant records in sync with the Store. Every
// mutation is followed by a full re-list with the active filter. Operations are
// serialised through a single gate; overlapping calls are rejected with ErrBusy.
type Console struct {
	store  Store
	logger *zap.Logger

	gate   chan struct{}
	base   context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu      sync.RWMutex
	entries []backend.VariantRecord
	filter  *int64
	lastErr error
	loaded  bool
}

// NewConsole constructs a console over store.
func NewConsole(store Store, logger *zap.Logger) (*Console, error) {
	if store == nil {
		return nil, errors.New("inventory: store is required")
	}
	base, cancel := context.WithCancel(context.Background())
	return &Console{
		store:  store,
		logger: observability.Or(logger).Named("inventory"),
		gate:   make(chan struct{}, 1),
		base:   base,
		cancel: cancel,
	}, nil
}

// List replaces the working set with the full collection, or one product's records when
// filter is set. The filter stays active for subsequent re-lists.
func (c *Console) List(ctx context.Context, filter *int64) error {
	return c.run(ctx, "list", func(ctx context.Context) error {
		c.mu.Lock()
		c.filter = copyID(filter)
		c.mu.Unlock()
		return c.relist(ctx)
	})
}

// Create persists one record then re-lists.
func (c *Console) Create(ctx context.Context, draft backend.VariantDraft) error {
	return c.run(ctx, "create", func(ctx context.Context) error {
		if _, err := c.store.CreateVariant(ctx, draft); err != nil {
			return err
		}
		return c.relist(ctx)
	})
}

// BatchCreate validates raw as a JSON array of records, submits it, then re-lists. A
// malformed payload never reaches the store.
func (c *Console) BatchCreate(ctx context.Context, raw []byte) error {
	return c.run(ctx, "batch_create", func(ctx context.Context) error {
		drafts, err := ParseBatch(raw)
		if err != nil {
			return err
		}
		if _, err := c.store.CreateVariants(ctx, drafts); err != nil {
			return err
		}
		return c.relist(ctx)
	})
}

// Update sends a partial patch for one record then re-lists.
func (c *Console) Update(ctx context.Context, id int64, patch backend.VariantPatch) error {
	return c.run(ctx, "update", func(ctx context.Context) error {
		if _, err := c.store.UpdateVariant(ctx, id, patch); err != nil {
			return err
		}
		return c.relist(ctx)
	})
}

// SetQuantity updates only the quantity of one record.
func (c *Console) SetQuantity(ctx context.Context, id int64, quantity int) error {
	return c.Update(ctx, id, backend.VariantPatch{Quantity: &quantity})
}

// SetAvailability updates only the availability of one record.
func (c *Console) SetAvailability(ctx context.Context, id int64, available bool) error {
	return c.Update(ctx, id, backend.VariantPatch{Availability: &available})
}

// ToggleAvailability flips availability based on the working set's current value.
func (c *Console) ToggleAvailability(ctx context.Context, id int64) error {
	rec, ok := c.Lookup(id)
	if !ok {
		return ErrUnknownEntry
	}
	return c.SetAvailability(ctx, id, !rec.Availability)
}

// Delete removes one record after confirm approves it, then re-lists. Without
// confirmation nothing is sent and the console state is left as is.
func (c *Console) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	if confirm == nil || !confirm(id) {
		return ErrNotConfirmed
	}
	return c.run(ctx, "delete", func(ctx context.Context) error {
		if err := c.store.DeleteVariant(ctx, id); err != nil {
			return err
		}
		return c.relist(ctx)
	})
}

// Lookup returns the working-set record with id.
func (c *Console) Lookup(id int64) (backend.VariantRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.entries {
		if rec.ID != nil && *rec.ID == id {
			return cloneRecord(rec), true
		}
	}
	return backend.VariantRecord{}, false
}

// Snapshot returns a copy of the console state.
func (c *Console) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]backend.VariantRecord, 0, len(c.entries))
	for _, rec := range c.entries {
		entries = append(entries, cloneRecord(rec))
	}
	return State{
		Entries:   entries,
		Filter:    copyID(c.filter),
		LastError: c.lastErr,
		Busy:      len(c.gate) > 0,
		Loaded:    c.loaded,
	}
}

// DismissError clears the last-error slot.
func (c *Console) DismissError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

// Close cancels any in-flight call. Later operations fail with ErrClosed.
func (c *Console) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.cancel()
	}
}

func (c *Console) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.gate <- struct{}{}:
	default:
		c.logger.Debug("operation rejected while busy", zap.String("operation", op))
		return ErrBusy
	}
	defer func() { <-c.gate }()
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.base, cancel)
	defer stop()

	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()

	start := time.Now()
	err := fn(ctx)

	fields := []zap.Field{
		zap.String("operation", op),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("operation failed", append(fields, zap.Error(err))...)
		return err
	}
	c.mu.RLock()
	fields = append(fields, zap.Int("entries", len(c.entries)))
	c.mu.RUnlock()
	c.logger.Info("operation completed", fields...)
	return nil
}

func (c *Console) relist(ctx context.Context) error {
	c.mu.RLock()
	filter := copyID(c.filter)
	c.mu.RUnlock()

	var (
		records []backend.VariantRecord
		err     error
	)
	if filter != nil {
		records, err = c.store.ListVariantsByProduct(ctx, *filter)
	} else {
		records, err = c.store.ListVariants(ctx)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = records
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneRecord(rec backend.VariantRecord) backend.VariantRecord {
	rec.ID = copyID(rec.ID)
	return rec
}
