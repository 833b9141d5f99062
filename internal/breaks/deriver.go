// Package breaks derives TradeBreak records from a matched trade pair's
// per-field match scores, or from a trade that no counterpart could be
// found for.
package breaks

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meridianops/trade-recon/internal/domain"
)

// fieldMatchThreshold is the per-field score above which a field is
// considered reconciled and not worth raising as a break; scores below
// 0.99 still get reported even when the underlying values happen to be
// numerically close, since the blended score already absorbed any
// tolerance.
const fieldMatchThreshold = 0.99

// SLAMinutes maps a break severity to the number of minutes until its
// deadline. MEDIUM and LOW share the same window; only three tiers are
// configured.
type SLAMinutes struct {
	Critical int
	High     int
	Low      int
}

// Deriver turns match results into TradeBreak records.
type Deriver struct {
	sla SLAMinutes
}

// New builds a Deriver from the configured SLA windows.
func New(sla SLAMinutes) *Deriver {
	return &Deriver{sla: sla}
}

// fieldOrder is the canonical field-iteration order, matching the weights
// map's declaration order in internal/match, so that breaks for a pair are
// always emitted in the same sequence regardless of Go's randomized map
// iteration.
var fieldOrder = []string{"symbol", "trade_date", "side", "quantity", "price", "counterparty"}

// FieldBreaks compares every scored field between two matched trades and
// returns one TradeBreak per field whose score falls below
// fieldMatchThreshold and whose raw values actually differ.
func (d *Deriver) FieldBreaks(trade1, trade2 *domain.Trade, fieldScores map[string]float64) []domain.TradeBreak {
	var out []domain.TradeBreak
	for _, field := range orderedFields(fieldScores) {
		score := fieldScores[field]
		if score >= fieldMatchThreshold {
			continue
		}

		val1, val2 := trade1.FieldValue(field), trade2.FieldValue(field)
		if val1 == val2 {
			continue
		}

		variance, variancePct := numericVariance(val1, val2)
		severity := d.assessSeverity(field, variance, variancePct)

		out = append(out, domain.TradeBreak{
			ID:             uuid.NewString(),
			TradeID:        trade1.ID,
			MatchedTradeID: trade2.ID,
			BreakType:      field + "_mismatch",
			FieldName:      field,
			Severity:       severity,
			Status:         domain.BreakOpen,
			ExpectedValue:  fmt.Sprint(val1),
			ActualValue:    fmt.Sprint(val2),
			Variance:       variance,
			VariancePct:    variancePct,
			PriorityScore:  1.0 - score,
			CreatedAt:      time.Now().UTC(),
			SLADeadline:    d.slaDeadline(severity),
		})
	}
	return out
}

// MissingTradeBreak reports a trade with no reconciled counterpart in the
// expected source. Always HIGH severity: an unmatched trade risks a failed
// settlement regardless of which field would eventually have differed.
func (d *Deriver) MissingTradeBreak(trade *domain.Trade, expectedSource domain.Source) domain.TradeBreak {
	return domain.TradeBreak{
		ID:             uuid.NewString(),
		TradeID:        trade.ID,
		BreakType:      domain.MissingTradeBreakType,
		FieldName:      "trade_existence",
		Severity:       domain.SeverityHigh,
		Status:         domain.BreakOpen,
		ExpectedValue:  fmt.Sprintf("trade in %s", expectedSource),
		ActualValue:    "not found",
		SettlementRisk: true,
		CreatedAt:      time.Now().UTC(),
		SLADeadline:    d.slaDeadline(domain.SeverityHigh),
	}
}

// orderedFields returns the keys of scores in fieldOrder, followed by any
// keys outside that canonical list (sorted, so the fallback is itself
// deterministic) for weights maps that introduce asset-class-specific
// fields.
func orderedFields(scores map[string]float64) []string {
	out := make([]string, 0, len(scores))
	seen := make(map[string]bool, len(scores))
	for _, f := range fieldOrder {
		if _, ok := scores[f]; ok {
			out = append(out, f)
			seen[f] = true
		}
	}
	var extra []string
	for f := range scores {
		if !seen[f] {
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// assessSeverity ranks a field mismatch: any quantity or side discrepancy
// is CRITICAL (the economics of the trade itself are in question), a price
// variance over 1% is HIGH and under is MEDIUM, amount fields are MEDIUM,
// and anything else (symbol formatting, counterparty spelling) is LOW.
func (d *Deriver) assessSeverity(field string, variance *float64, variancePct *float64) domain.BreakSeverity {
	if (field == "quantity" || field == "side") && (variance == nil || *variance > 0) {
		return domain.SeverityCritical
	}
	if field == "price" {
		if variancePct != nil && *variancePct > 1.0 {
			return domain.SeverityHigh
		}
		return domain.SeverityMedium
	}
	if field == "gross_amount" || field == "net_amount" {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

func (d *Deriver) slaDeadline(severity domain.BreakSeverity) time.Time {
	var minutes int
	switch severity {
	case domain.SeverityCritical:
		minutes = d.sla.Critical
	case domain.SeverityHigh:
		minutes = d.sla.High
	default:
		minutes = d.sla.Low
	}
	return time.Now().UTC().Add(time.Duration(minutes) * time.Minute)
}

// numericVariance returns the absolute and percentage difference between
// two field values when both are numeric, or nil, nil otherwise (string
// fields like symbol or side carry no variance).
func numericVariance(a, b any) (*float64, *float64) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, nil
	}
	variance := absFloat(af - bf)
	denom := maxFloat(absFloat(af), absFloat(bf), 1.0)
	pct := (variance / denom) * 100
	return &variance, &pct
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxFloat(values ...float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
