package cart

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm-cart/internal/model"
)

func money(v model.Money) *model.Money { return &v }

func book(id model.ItemID, price model.Money) model.LineCandidate {
	return model.LineCandidate{ID: id, Title: "Book", AuthorName: "Author", UnitPrice: price}
}

func assertTotals(t *testing.T, s model.CartState) {
	t.Helper()
	items := 0
	var total model.Money
	for _, l := range s.Lines {
		items += l.Quantity
		p := l.UnitPrice
		if l.DiscountPrice != nil {
			p = *l.DiscountPrice
		}
		total += p * model.Money(l.Quantity)
		assert.GreaterOrEqual(t, l.Quantity, 1)
		assert.LessOrEqual(t, l.Quantity, model.MaxLineQty)
	}
	assert.Equal(t, items, s.TotalItems, "TotalItems")
	assert.Equal(t, total, s.TotalPrice, "TotalPrice")
}

func TestAddItem_NewLineAppended(t *testing.T) {
	s := model.EmptyCart()
	s, applied := AddItem(s, book(7, 1000), 2)
	s, _ = AddItem(s, book(9, 1500), 1)

	require.Len(t, s.Lines, 2)
	assert.Equal(t, model.ItemID(7), s.Lines[0].ID)
	assert.Equal(t, model.ItemID(9), s.Lines[1].ID)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, model.Money(3500), s.TotalPrice)
}

func TestAddItem_MergeCapsAtMax(t *testing.T) {
	tests := []struct {
		q1, q2      int
		want        int
		wantApplied int
	}{
		{1, 1, 2, 1},
		{3, 5, 8, 5},
		{5, 5, 8, 3},
		{8, 4, 8, 0},
		{2, 0, 3, 1},
	}

	for _, tt := range tests {
		s, _ := AddItem(model.EmptyCart(), book(7, 1000), tt.q1)
		s, applied := AddItem(s, book(7, 1000), tt.q2)

		require.Len(t, s.Lines, 1)
		assert.Equal(t, tt.want, s.Lines[0].Quantity, "add %d then %d", tt.q1, tt.q2)
		assert.Equal(t, tt.wantApplied, applied)
		assertTotals(t, s)
	}
}

func TestAddItem_NewLineClamped(t *testing.T) {
	s, applied := AddItem(model.EmptyCart(), book(1, 100), 20)
	assert.Equal(t, model.MaxLineQty, s.Lines[0].Quantity)
	assert.Equal(t, model.MaxLineQty, applied)

	s, applied = AddItem(model.EmptyCart(), book(1, 100), -3)
	assert.Equal(t, 1, s.Lines[0].Quantity)
	assert.Equal(t, 1, applied)
}

func TestAddItem_HugeQuantityClampsWithoutOverflow(t *testing.T) {
	s, applied := AddItem(model.EmptyCart(), book(7, 1000), math.MaxInt)
	require.Len(t, s.Lines, 1)
	assert.Equal(t, model.MaxLineQty, s.Lines[0].Quantity)
	assert.Equal(t, model.MaxLineQty, applied)
	assertTotals(t, s)

	s, _ = AddItem(model.EmptyCart(), book(7, 1000), 1)
	s, applied = AddItem(s, book(7, 1000), math.MaxInt)
	require.Len(t, s.Lines, 1)
	assert.Equal(t, model.MaxLineQty, s.Lines[0].Quantity)
	assert.Equal(t, model.MaxLineQty-1, applied)
	assertTotals(t, s)
}

func TestAddItem_KeepsCachedDataOnMerge(t *testing.T) {
	s, _ := AddItem(model.EmptyCart(), book(7, 1000), 1)
	changed := book(7, 1200)
	changed.Title = "Second Edition"
	s, _ = AddItem(s, changed, 1)

	assert.Equal(t, model.Money(1000), s.Lines[0].UnitPrice)
	assert.Equal(t, "Book", s.Lines[0].Title)
}

func TestAddItem_DoesNotAliasInput(t *testing.T) {
	s, _ := AddItem(model.EmptyCart(), book(7, 1000), 1)
	before := s.Clone()
	_, _ = AddItem(s, book(7, 1000), 3)
	assert.Equal(t, before, s)
}

func TestUpdateQuantity(t *testing.T) {
	base, _ := AddItem(model.EmptyCart(), book(7, 1000), 2)
	base, _ = AddItem(base, book(9, 1500), 1)

	t.Run("zero removes", func(t *testing.T) {
		s := UpdateQuantity(base, 7, 0)
		require.Len(t, s.Lines, 1)
		assert.Equal(t, model.ItemID(9), s.Lines[0].ID)
	})

	t.Run("negative removes", func(t *testing.T) {
		s := UpdateQuantity(base, 7, -5)
		assert.Equal(t, -1, s.Find(7))
	})

	t.Run("clamps to max", func(t *testing.T) {
		s := UpdateQuantity(base, 7, 100)
		assert.Equal(t, 8, s.Lines[0].Quantity)
		assertTotals(t, s)
	})

	t.Run("keeps order", func(t *testing.T) {
		s := UpdateQuantity(base, 7, 4)
		assert.Equal(t, model.ItemID(7), s.Lines[0].ID)
		assert.Equal(t, 4, s.Lines[0].Quantity)
	})

	t.Run("absent is no-op", func(t *testing.T) {
		s := UpdateQuantity(base, 42, 3)
		assert.Equal(t, base, s)
	})
}

func TestRemoveItem(t *testing.T) {
	s, _ := AddItem(model.EmptyCart(), book(7, 1000), 2)
	s = RemoveItem(s, 7)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.TotalItems)
	assert.Equal(t, model.Money(0), s.TotalPrice)

	again := RemoveItem(s, 7)
	assert.Equal(t, s, again)
}

func TestDiscountPriceDrivesTotals(t *testing.T) {
	c := book(3, 2000)
	c.DiscountPrice = money(1500)
	s, _ := AddItem(model.EmptyCart(), c, 2)
	assert.Equal(t, model.Money(3000), s.TotalPrice)
}

func TestInvariantsHoldOverRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := model.EmptyCart()

	for step := 0; step < 2000; step++ {
		id := model.ItemID(rng.Intn(6) + 1)
		switch rng.Intn(4) {
		case 0, 1:
			c := book(id, model.Money(rng.Intn(5000)))
			if rng.Intn(2) == 0 {
				c.DiscountPrice = money(model.Money(rng.Intn(2000)))
			}
			s, _ = AddItem(s, c, rng.Intn(12)-2)
		case 2:
			s = UpdateQuantity(s, id, rng.Intn(20)-6)
		case 3:
			s = RemoveItem(s, id)
		}
		assertTotals(t, s)

		seen := map[model.ItemID]bool{}
		for _, l := range s.Lines {
			require.False(t, seen[l.ID], "duplicate line id %d", l.ID)
			seen[l.ID] = true
		}
	}
}
