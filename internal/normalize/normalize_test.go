package normalize

import (
	"testing"
	"time"
)

func TestSymbol(t *testing.T) {
	cases := map[string]string{
		"aapl":      "AAPL",
		"AAPL.TO":   "AAPL",
		"  msft  ":  "MSFT",
		"BRK.B":     "BRK",
		"":          "",
		"SH EL L.L": "SHELL",
	}
	for input, want := range cases {
		if got := Symbol(input); got != want {
			t.Errorf("Symbol(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCounterparty(t *testing.T) {
	cases := map[string]string{
		"Acme Capital LLC":     "ACME CAPITAL",
		"Acme Capital, Inc.":   "ACME CAPITAL",
		"GLOBEX CORP":          "GLOBEX",
		"Meridian Partners LP": "MERIDIAN PARTNERS",
		"":                     "",
	}
	for input, want := range cases {
		if got := Counterparty(input); got != want {
			t.Errorf("Counterparty(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAmount_BankersRounding(t *testing.T) {
	cases := []struct {
		in       float64
		decimals int
		want     float64
	}{
		{1.005, 2, 1.0},
		{2.675, 2, 2.67},
		{0.5, 0, 0},
		{1.5, 0, 2},
		{2.5, 0, 2},
		{10, 2, 10},
	}
	for _, tc := range cases {
		if got := Amount(tc.in, tc.decimals); got != tc.want {
			t.Errorf("Amount(%v, %d) = %v, want %v", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestAmount_NonFinite(t *testing.T) {
	if got := Amount(nan(), 2); got != 0 {
		t.Errorf("Amount(NaN) = %v, want 0", got)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestDate_TruncatesTime(t *testing.T) {
	in := time.Date(2026, 3, 14, 18, 32, 5, 0, time.UTC)
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if got := Date(in); !got.Equal(want) {
		t.Errorf("Date(%v) = %v, want %v", in, got, want)
	}
}

func TestDateKey(t *testing.T) {
	in := time.Date(2026, 3, 14, 18, 32, 5, 0, time.UTC)
	if got := DateKey(in); got != "2026-03-14" {
		t.Errorf("DateKey(%v) = %q, want %q", in, got, "2026-03-14")
	}
}
