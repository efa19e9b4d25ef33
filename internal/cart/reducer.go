// Package cart holds the shopping cart state: pure transition functions over
// model.CartState and a Store that applies them and persists the result.
package cart

import "bookworm-cart/internal/model"

// ClampQuantity bounds qty to [1, model.MaxLineQty].
func ClampQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	if qty > model.MaxLineQty {
		return model.MaxLineQty
	}
	return qty
}

// Recompute builds a state from lines, deriving TotalItems and TotalPrice.
// The returned state owns its line slice.
func Recompute(lines []model.CartLine) model.CartState {
	s := model.CartState{Lines: make([]model.CartLine, 0, len(lines))}
	for _, l := range lines {
		s.Lines = append(s.Lines, l.Clone())
		s.TotalItems += l.Quantity
		s.TotalPrice += l.Subtotal()
	}
	return s
}

// AddItem merges qty units of candidate into the cart.
// An existing line grows by qty capped at MaxLineQty; a new line is appended
// with qty clamped to [1, MaxLineQty]. A qty below 1 counts as 1.
// Returns the new state and the number of units actually added.
func AddItem(s model.CartState, c model.LineCandidate, qty int) (model.CartState, int) {
	if qty < 1 {
		qty = 1
	}
	lines := cloneLines(s.Lines)

	if i := s.Find(c.ID); i >= 0 {
		before := lines[i].Quantity
		if room := model.MaxLineQty - before; qty > room {
			qty = max(room, 0)
		}
		lines[i].Quantity = before + qty
		return Recompute(lines), qty
	}

	applied := ClampQuantity(qty)
	lines = append(lines, model.NewLine(c, applied))
	return Recompute(lines), applied
}

// RemoveItem drops the line with id. No-op when absent.
func RemoveItem(s model.CartState, id model.ItemID) model.CartState {
	lines := make([]model.CartLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		if l.ID != id {
			lines = append(lines, l)
		}
	}
	return Recompute(lines)
}

// UpdateQuantity sets the quantity of the line with id in place.
// qty <= 0 removes the line; larger values are clamped to MaxLineQty.
// No-op when the line is absent.
func UpdateQuantity(s model.CartState, id model.ItemID, qty int) model.CartState {
	if qty <= 0 {
		return RemoveItem(s, id)
	}
	i := s.Find(id)
	if i < 0 {
		return Recompute(s.Lines)
	}
	lines := cloneLines(s.Lines)
	lines[i].Quantity = ClampQuantity(qty)
	return Recompute(lines)
}

// Clear returns the empty cart.
func Clear() model.CartState {
	return model.EmptyCart()
}

func cloneLines(lines []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}
