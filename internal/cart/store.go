package cart

import (
	"context"
	"log/slog"
	"sync"

	"bookworm-cart/internal/model"
)

// Saver persists cart state. Implementations must not fail loudly:
// a cart that could not be written must never block the shopper.
type Saver interface {
	Save(ctx context.Context, state model.CartState)
}

// AddResult reports how much of an AddItem request the cart accepted.
// The cart always clamps rather than rejecting; Dropped lets callers tell the
// shopper that only part of the request fit under the per-line limit.
type AddResult struct {
	Requested int
	Applied   int
	Dropped   int
}

// Store is the single owner of the live cart state.
//
// Every mutation runs under the store lock: the transition is applied, totals
// are derived, and the new state is handed to the Saver before the call
// returns, so saves reach the backend in mutation order.
type Store struct {
	mu     sync.RWMutex
	state  model.CartState
	saver  Saver
	logger *slog.Logger
}

// NewStore creates a store seeded with initial (typically persist.Adapter.Load).
// saver may be nil for an in-memory cart.
func NewStore(initial model.CartState, saver Saver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:  Recompute(initial.Lines),
		saver:  saver,
		logger: logger,
	}
}

// AddItem adds quantity units of item. See cart.AddItem for merge rules.
func (s *Store) AddItem(item model.LineCandidate, quantity int) AddResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, applied := AddItem(s.state, item, quantity)
	s.commit(next)

	requested := quantity
	if requested < 1 {
		requested = 1
	}
	res := AddResult{Requested: requested, Applied: applied, Dropped: requested - applied}
	if res.Dropped > 0 {
		s.logger.Debug("cart line capped",
			slog.Int64("item_id", int64(item.ID)),
			slog.Int("requested", res.Requested),
			slog.Int("applied", res.Applied),
		)
	}
	return res
}

// RemoveItem removes the line with id if present.
func (s *Store) RemoveItem(id model.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(RemoveItem(s.state, id))
}

// UpdateQuantity sets a line's quantity; quantity <= 0 removes it.
func (s *Store) UpdateQuantity(id model.ItemID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(UpdateQuantity(s.state, id, quantity))
}

// ClearCart resets to the empty state.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(Clear())
}

// IsItemInCart reports whether a line with id exists.
func (s *Store) IsItemInCart(id model.ItemID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Find(id) >= 0
}

// GetLine returns a copy of the line with id.
func (s *Store) GetLine(id model.ItemID) (model.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.Find(id)
	if i < 0 {
		return model.CartLine{}, false
	}
	return s.state.Lines[i].Clone(), true
}

// GetQuantity returns the quantity of the line with id, 0 if absent.
func (s *Store) GetQuantity(id model.ItemID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.Find(id); i >= 0 {
		return s.state.Lines[i].Quantity
	}
	return 0
}

// Snapshot returns a deep copy of the current state. Later mutations of the
// store are not visible through it.
func (s *Store) Snapshot() model.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// commit installs next and persists it. Caller holds s.mu.
func (s *Store) commit(next model.CartState) {
	s.state = next
	if s.saver != nil {
		s.saver.Save(context.Background(), next.Clone())
	}
}
