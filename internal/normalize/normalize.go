// Package normalize canonicalizes trade fields before matching so that
// cosmetic differences between source systems (exchange suffixes, legal-
// entity suffixes, rounding, timestamp precision) never surface as breaks.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var exchangeSuffixPattern = regexp.MustCompile(`\.[A-Z]{1,4}$`)

// Symbol upper-cases, trims, strips a trailing exchange suffix (e.g. ".TO",
// ".L"), and removes internal whitespace.
func Symbol(symbol string) string {
	if symbol == "" {
		return ""
	}
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = exchangeSuffixPattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, " ", "")
}

// legalSuffixes are corporate-entity designations stripped from
// counterparty names so "Acme Capital LLC" and "ACME CAPITAL" collapse to
// the same normalized form.
var legalSuffixes = []string{
	"INC", "INCORPORATED", "LLC", "LTD", "LIMITED", "CORP", "CORPORATION",
	"CO", "LP", "LLP", "PLC", "SA", "AG", "GMBH", "NV", "BV",
}

var (
	legalSuffixPatterns = compileLegalSuffixPatterns()
	nonWordPattern      = regexp.MustCompile(`[^\w\s]`)
	multiSpacePattern   = regexp.MustCompile(`\s+`)
)

func compileLegalSuffixPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(legalSuffixes))
	for i, suffix := range legalSuffixes {
		patterns[i] = regexp.MustCompile(`\b` + suffix + `\b\.?`)
	}
	return patterns
}

// Counterparty upper-cases the name, strips known legal-entity suffixes,
// collapses punctuation to spaces, and squeezes repeated whitespace.
func Counterparty(counterparty string) string {
	if counterparty == "" {
		return ""
	}
	text := strings.ToUpper(strings.TrimSpace(counterparty))
	for _, pattern := range legalSuffixPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = multiSpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Amount rounds a monetary value to decimals places using round-half-to-even
// (banker's rounding). This keeps amounts reconciled by two sources from
// disagreeing purely because one side rounds .005 up and the other
// truncates it.
func Amount(amount float64, decimals int) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	if decimals >= 0 {
		// FormatFloat rounds the exact binary value, breaking exact ties to
		// even, so 2.675 (stored just below the tie) becomes 2.67 instead of
		// picking up a spurious tie from amount*scale.
		rounded, err := strconv.ParseFloat(strconv.FormatFloat(amount, 'f', decimals, 64), 64)
		if err == nil {
			return rounded
		}
	}
	scale := math.Pow(10, float64(decimals))
	scaled := amount * scale
	floor := math.Floor(scaled)
	diff := scaled - floor
	var rounded float64
	switch {
	case diff < 0.5:
		rounded = floor
	case diff > 0.5:
		rounded = floor + 1
	default:
		// Exactly halfway: round to the nearest even integer.
		if math.Mod(floor, 2) == 0 {
			rounded = floor
		} else {
			rounded = floor + 1
		}
	}
	return rounded / scale
}

// Date truncates a timestamp down to its calendar day in UTC, so that
// intraday timestamp noise between sources does not register as a
// trade_date mismatch.
func Date(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey renders a timestamp as its canonical YYYY-MM-DD comparison key.
func DateKey(t time.Time) string {
	return Date(t).Format("2006-01-02")
}
