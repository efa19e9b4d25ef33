// Package persist stores the cart as a single serialized record in durable
// local storage. Loading never fails: an absent, unreadable or structurally
// invalid record yields the empty cart.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bookworm-cart/internal/model"
)

// DefaultKey is the storage key of the cart record.
const DefaultKey = "bookworm-cart"

// ErrNotFound is returned by a Backend when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Backend is raw key/value storage for serialized records.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Adapter serializes cart state to a Backend.
// Failures are logged and recovered: Load falls back to the empty cart and
// Save is best effort.
type Adapter struct {
	backend Backend
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// NewAdapter creates an adapter over backend.
func NewAdapter(backend Backend, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		backend: backend,
		key:     DefaultKey,
		timeout: 2 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads the stored cart. Returns the empty cart when the record is
// absent, unreadable, or fails any structural check.
func (a *Adapter) Load(ctx context.Context) model.CartState {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	data, err := a.backend.Read(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		a.logger.Debug("no stored cart", slog.String("key", a.key))
		return model.EmptyCart()
	}
	if err != nil {
		a.logger.Warn("cart load failed, starting empty",
			slog.String("key", a.key),
			slog.String("error", fmt.Errorf("%w: %v", model.ErrPersistence, err).Error()),
		)
		return model.EmptyCart()
	}

	state, err := Decode(data)
	if err != nil {
		a.logger.Warn("stored cart rejected, starting empty",
			slog.String("key", a.key),
			slog.String("error", err.Error()),
		)
		return model.EmptyCart()
	}
	return state
}

// Save writes state. Errors are logged, never returned.
func (a *Adapter) Save(ctx context.Context, state model.CartState) {
	data, err := Encode(state)
	if err != nil {
		a.logger.Error("cart encode failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.backend.Write(ctx, a.key, data); err != nil {
		a.logger.Warn("cart save failed",
			slog.String("key", a.key),
			slog.String("error", fmt.Errorf("%w: %v", model.ErrPersistence, err).Error()),
		)
	}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Encode serializes state in the persisted layout.
func Encode(state model.CartState) ([]byte, error) {
	if state.Lines == nil {
		state.Lines = []model.CartLine{}
	}
	return json.Marshal(state)
}

// Decode parses and validates a persisted record. The layout is not
// versioned, so any deviation from the current shape is an error.
func Decode(data []byte) (model.CartState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var state model.CartState
	if err := dec.Decode(&state); err != nil {
		return model.CartState{}, fmt.Errorf("%w: decoding cart: %v", model.ErrPersistence, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return model.CartState{}, fmt.Errorf("%w: trailing data after cart record", model.ErrPersistence)
	}
	if state.Lines == nil {
		return model.CartState{}, fmt.Errorf("%w: missing lines", model.ErrPersistence)
	}
	if err := validate(state); err != nil {
		return model.CartState{}, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return state, nil
}

// validate checks the invariants the cart store guarantees for every state
// it produces.
func validate(state model.CartState) error {
	seen := make(map[model.ItemID]bool, len(state.Lines))
	items := 0
	var total model.Money

	for i, l := range state.Lines {
		if l.ID <= 0 {
			return fmt.Errorf("line %d: invalid id %d", i, l.ID)
		}
		if seen[l.ID] {
			return fmt.Errorf("line %d: duplicate id %d", i, l.ID)
		}
		seen[l.ID] = true
		if l.Quantity < 1 || l.Quantity > model.MaxLineQty {
			return fmt.Errorf("line %d: quantity %d out of range", i, l.Quantity)
		}
		if l.UnitPrice < 0 {
			return fmt.Errorf("line %d: negative unit price", i)
		}
		if l.DiscountPrice != nil && *l.DiscountPrice < 0 {
			return fmt.Errorf("line %d: negative discount price", i)
		}
		items += l.Quantity
		total += l.Subtotal()
	}

	if items != state.TotalItems {
		return fmt.Errorf("totalItems %d does not match lines (%d)", state.TotalItems, items)
	}
	if total != state.TotalPrice {
		return fmt.Errorf("totalPrice %d does not match lines (%d)", state.TotalPrice, total)
	}
	return nil
}
