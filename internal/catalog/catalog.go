// Package catalog fetches authoritative item data from the Bookworm backend.
// Lookups never fail with an error return: every call settles into a tagged
// Result so a fan-out over a whole cart always joins cleanly.
package catalog

import (
	"context"

	"bookworm-cart/internal/model"
)

// Status tags the result of a single lookup.
type Status int

const (
	// Failed covers transport errors, timeouts, non-404 error statuses and
	// unreadable bodies. The item may well still exist.
	Failed Status = iota
	Found
	NotFound
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Item is the backend's current view of a purchasable item.
type Item struct {
	ID            model.ItemID
	Title         string
	AuthorName    string
	ImageURL      string
	UnitPrice     model.Money
	DiscountPrice *model.Money
}

// Result is the tagged outcome of LookupItem. Item is set only for Found,
// Err only for Failed.
type Result struct {
	Status Status
	Item   *Item
	Err    error
}

// FoundResult wraps item in a Found result.
func FoundResult(item *Item) Result { return Result{Status: Found, Item: item} }

// NotFoundResult is the result for an item the backend no longer has.
func NotFoundResult() Result { return Result{Status: NotFound} }

// FailedResult wraps err in a Failed result.
func FailedResult(err error) Result { return Result{Status: Failed, Err: err} }

// Lookup retrieves the current state of one item.
type Lookup interface {
	LookupItem(ctx context.Context, id model.ItemID) Result
}

// Func adapts a plain function to Lookup.
type Func func(ctx context.Context, id model.ItemID) Result

// LookupItem calls f.
func (f Func) LookupItem(ctx context.Context, id model.ItemID) Result {
	return f(ctx, id)
}

// Static serves lookups from a fixed map. Ids missing from the map are
// NotFound. Used by tests.
type Static map[model.ItemID]Item

// LookupItem returns a copy of the stored item.
func (s Static) LookupItem(ctx context.Context, id model.ItemID) Result {
	if err := ctx.Err(); err != nil {
		return FailedResult(err)
	}
	item, ok := s[id]
	if !ok {
		return NotFoundResult()
	}
	if item.DiscountPrice != nil {
		d := *item.DiscountPrice
		item.DiscountPrice = &d
	}
	return FoundResult(&item)
}
