package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (cents).
// The catalog and order endpoints report decimal strings ("12.50"); everything
// inside the cart engine works on integer cents so totals never drift.
type Money int64

// MaxPrice is the largest unit price the cart accepts ($1,000,000).
// Line subtotals and cart totals stay far from int64 overflow below it.
const MaxPrice Money = 100_000_000

// ParseAmount converts a decimal string amount (dollars) to cents.
// Examples: "99.00" → 9900, "1234.56" → 123456. Empty or malformed input
// is an error so a bad price is never read as zero.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f*100) >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return Money(math.Round(f * 100)), nil
}

// Times multiplies a unit amount by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// String renders the amount as dollars, e.g. "$12.50" or "-$3.05".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

// Decimal renders the amount without currency symbol, e.g. "12.50".
func (m Money) Decimal() string {
	return strings.Replace(m.String(), "$", "", 1)
}

// Amount decodes a backend price, given either as a decimal JSON string
// ("12.50") or a JSON number. JSON null leaves Valid false.
type Amount struct {
	Value Money
	Valid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	v, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = Amount{Value: v, Valid: true}
	return nil
}

// MarshalJSON writes the decimal string form the backend uses.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value.Decimal())
}
