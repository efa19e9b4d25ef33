// Package model defines the cart, catalog and order data structures shared by
// the cart engine, plus its money and error types.
package model

// MaxLineQty is the most units of a single book one cart line may hold.
const MaxLineQty = 8

// ItemID identifies a book in the catalog.
type ItemID int64

// LineCandidate is what the storefront hands the cart when a shopper adds a
// book: the cached catalog data for the line, without a quantity.
type LineCandidate struct {
	ID            ItemID `json:"id"`
	Title         string `json:"title"`
	AuthorName    string `json:"authorName"`
	ImageURL      string `json:"imageUrl,omitempty"`
	UnitPrice     Money  `json:"unitPrice"`
	DiscountPrice *Money `json:"discountPrice,omitempty"`
}

// CartLine is one distinct book and its quantity within a cart.
// Title and prices are cached at add time and only refreshed by the shopper
// re-adding the book; checkout reconciliation never overwrites them.
type CartLine struct {
	ID            ItemID `json:"id"`
	Title         string `json:"title"`
	AuthorName    string `json:"authorName"`
	ImageURL      string `json:"imageUrl,omitempty"`
	UnitPrice     Money  `json:"unitPrice"`
	DiscountPrice *Money `json:"discountPrice,omitempty"`
	Quantity      int    `json:"quantity"`
}

// EffectivePrice is the discount price when present, the unit price otherwise.
func (l CartLine) EffectivePrice() Money {
	if l.DiscountPrice != nil {
		return *l.DiscountPrice
	}
	return l.UnitPrice
}

// Subtotal is EffectivePrice × Quantity.
func (l CartLine) Subtotal() Money {
	return l.EffectivePrice().Times(l.Quantity)
}

// Clone returns a copy that shares no pointers with l.
func (l CartLine) Clone() CartLine {
	if l.DiscountPrice != nil {
		d := *l.DiscountPrice
		l.DiscountPrice = &d
	}
	return l
}

// NewLine builds a cart line from a candidate.
func NewLine(c LineCandidate, qty int) CartLine {
	return CartLine{
		ID:            c.ID,
		Title:         c.Title,
		AuthorName:    c.AuthorName,
		ImageURL:      c.ImageURL,
		UnitPrice:     c.UnitPrice,
		DiscountPrice: c.DiscountPrice,
		Quantity:      qty,
	}.Clone()
}

// CartState is the whole cart: ordered lines plus derived totals.
// TotalItems and TotalPrice are always recomputed from Lines; they are
// stored only so the serialized form is self-describing.
type CartState struct {
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"totalItems"`
	TotalPrice Money      `json:"totalPrice"`
}

// EmptyCart returns the canonical empty state (non-nil, zero-length Lines).
func EmptyCart() CartState {
	return CartState{Lines: []CartLine{}}
}

// IsEmpty reports whether the cart has no lines.
func (s CartState) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Clone deep-copies the state.
func (s CartState) Clone() CartState {
	lines := make([]CartLine, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = l.Clone()
	}
	s.Lines = lines
	return s
}

// Find returns the index of the line with id, or -1.
func (s CartState) Find(id ItemID) int {
	for i, l := range s.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}
