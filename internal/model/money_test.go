package model

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{"decimal", "12.50", 1250, false},
		{"integer", "15", 1500, false},
		{"float rounding", "19.999", 2000, false},
		{"empty", "", 0, true},
		{"garbage", "twelve", 0, true},
		{"nan", "NaN", 0, true},
		{"inf", "Inf", 0, true},
		{"surrounding whitespace", " 10.50 ", 1050, false},
		{"small value", "0.01", 1, false},
		{"large value", "1234567.89", 123456789, false},
		{"negative", "-10.00", -1000, false},
		{"beyond int64 cents", "1e20", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1000, "$10.00"},
		{1250, "$12.50"},
		{123456, "$1234.56"},
		{-305, "-$3.05"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	if got := Money(1250).Decimal(); got != "12.50" {
		t.Errorf("Decimal() = %q, want %q", got, "12.50")
	}
	if got := Money(-305).Decimal(); got != "-3.05" {
		t.Errorf("Decimal() = %q, want %q", got, "-3.05")
	}
}

func TestMoneyTimes(t *testing.T) {
	if got := Money(1250).Times(3); got != 3750 {
		t.Errorf("Times(3) = %d, want 3750", got)
	}
	if got := Money(999).Times(0); got != 0 {
		t.Errorf("Times(0) = %d, want 0", got)
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{"decimal string", `"12.50"`, Amount{Value: 1250, Valid: true}, false},
		{"number", `8.5`, Amount{Value: 850, Valid: true}, false},
		{"integer", `3`, Amount{Value: 300, Valid: true}, false},
		{"null", `null`, Amount{}, false},
		{"empty string", `""`, Amount{}, true},
		{"word", `"free"`, Amount{}, true},
		{"object", `{}`, Amount{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Amount
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAmount_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Amount{Value: 1999, Valid: true})
	if err != nil || string(b) != `"19.99"` {
		t.Errorf("Marshal = %s, %v; want \"19.99\"", b, err)
	}
	b, _ = json.Marshal(Amount{})
	if string(b) != "null" {
		t.Errorf("Marshal(invalid) = %s, want null", b)
	}
}
