// Package reconcile checks a cart's cached item data against the catalog
// before checkout. A pass fans out one lookup per line, joins on all of
// them, and either clears the cart for submission or reports every line
// that drifted, vanished, or could not be checked.
package reconcile

import (
	"fmt"
	"strings"

	"bookworm-cart/internal/catalog"
	"bookworm-cart/internal/model"
)

// LineDiff is the field-level difference between a cached cart line and
// the catalog's current item.
type LineDiff struct {
	TitleChanged    bool
	PriceChanged    bool
	DiscountChanged bool

	OldTitle, NewTitle       string
	OldPrice, NewPrice       model.Money
	OldDiscount, NewDiscount *model.Money
}

// IsEmpty returns true if the cached line still matches the catalog.
func (d LineDiff) IsEmpty() bool {
	return !d.TitleChanged && !d.PriceChanged && !d.DiscountChanged
}

// Changes describes each changed field, unit price first.
func (d LineDiff) Changes() []string {
	var out []string
	if d.PriceChanged {
		out = append(out, fmt.Sprintf("price changed from %s to %s", d.OldPrice, d.NewPrice))
	}
	if d.DiscountChanged {
		switch {
		case d.OldDiscount == nil:
			out = append(out, fmt.Sprintf("now on sale for %s", *d.NewDiscount))
		case d.NewDiscount == nil:
			out = append(out, "no longer on sale")
		default:
			out = append(out, fmt.Sprintf("sale price changed from %s to %s", *d.OldDiscount, *d.NewDiscount))
		}
	}
	if d.TitleChanged {
		out = append(out, fmt.Sprintf("title updated to %q", d.NewTitle))
	}
	return out
}

// DiffLine compares the fields a shopper saw when adding the line (title,
// unit price, discount) with the catalog's values. Author and image are
// display-only and never block checkout.
func DiffLine(cached model.CartLine, fetched catalog.Item) LineDiff {
	d := LineDiff{
		OldTitle:    cached.Title,
		NewTitle:    fetched.Title,
		OldPrice:    cached.UnitPrice,
		NewPrice:    fetched.UnitPrice,
		OldDiscount: cached.DiscountPrice,
		NewDiscount: fetched.DiscountPrice,
	}
	d.TitleChanged = cached.Title != fetched.Title
	d.PriceChanged = cached.UnitPrice != fetched.UnitPrice
	d.DiscountChanged = !equalMoney(cached.DiscountPrice, fetched.DiscountPrice)
	return d
}

func equalMoney(a, b *model.Money) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Kind classifies one line's reconciliation outcome.
type Kind int

const (
	Unchanged Kind = iota
	Drifted
	Removed
	Unverifiable
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Drifted:
		return "drifted"
	case Removed:
		return "removed"
	default:
		return "unverifiable"
	}
}

// Outcome is the verdict for one snapshot line.
type Outcome struct {
	Line    model.CartLine
	Kind    Kind
	Changes []string
	Err     error
}

// Message renders the shopper-facing text for a non-Unchanged outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case Drifted:
		return o.Line.Title + ": " + strings.Join(o.Changes, "; ")
	case Removed:
		return o.Line.Title + " is no longer available and was removed from your cart"
	case Unverifiable:
		return o.Line.Title + ": could not be verified, please try again"
	default:
		return ""
	}
}

// Classify turns a lookup result for line into an Outcome.
func Classify(line model.CartLine, res catalog.Result) Outcome {
	o := Outcome{Line: line}
	switch res.Status {
	case catalog.Found:
		if res.Item == nil {
			o.Kind = Unverifiable
			o.Err = fmt.Errorf("%w: found result without item", model.ErrUpstreamError)
			return o
		}
		diff := DiffLine(line, *res.Item)
		if diff.IsEmpty() {
			o.Kind = Unchanged
			return o
		}
		o.Kind = Drifted
		o.Changes = diff.Changes()
	case catalog.NotFound:
		o.Kind = Removed
	default:
		o.Kind = Unverifiable
		o.Err = res.Err
	}
	return o
}
