// Package feature extracts a fixed-key numeric feature vector from a trade,
// the input consumed by internal/predict's break-risk scorer.
package feature

import (
	"strings"

	"github.com/meridianops/trade-recon/internal/domain"
)

// Fixed feature keys, matching the keys a loaded model artifact's weight
// map is expected to reference.
const (
	KeyQuantity              = "quantity"
	KeyPrice                 = "price"
	KeyGrossAmount           = "gross_amount"
	KeyCommissionPct         = "commission_pct"
	KeyIsHighValue           = "is_high_value"
	KeyIsLargeQuantity       = "is_large_quantity"
	KeyDayOfWeek             = "day_of_week"
	KeyHourOfDay             = "hour_of_day"
	KeyIsMonthEnd            = "is_month_end"
	KeyIsBuy                 = "is_buy"
	KeySourceBreakRate       = "source_break_rate"
	KeyCounterpartyBreakRate = "counterparty_break_rate"
)

// highValueThreshold and largeQuantityThreshold flag trades worth extra
// scrutiny: past this size, a break is materially more expensive to carry.
const (
	highValueThreshold     = 1_000_000.0
	largeQuantityThreshold = 10_000.0
)

// defaultBreakRate is used for a source or counterparty with no history to
// estimate a rate from: neither clearly low-risk nor high-risk.
const defaultBreakRate = 0.5

// HistoricalRates supplies prior break rates keyed by source system and by
// counterparty, computed by the reporting aggregator over past runs.
type HistoricalRates struct {
	BySource       map[domain.Source]float64
	ByCounterparty map[string]float64
}

// Engineer extracts model features from a trade.
type Engineer struct{}

// New builds an Engineer.
func New() *Engineer {
	return &Engineer{}
}

// Extract computes the fixed feature map for trade. history may be nil, in
// which case source_break_rate and counterparty_break_rate fall back to
// defaultBreakRate.
func (e *Engineer) Extract(trade *domain.Trade, history *HistoricalRates) map[string]float64 {
	grossAmount := trade.Quantity * trade.Price
	if trade.GrossAmount != nil {
		grossAmount = *trade.GrossAmount
	}

	commissionPct := 0.0
	if grossAmount != 0 {
		commissionPct = trade.Commission / grossAmount * 100
	}

	features := map[string]float64{
		KeyQuantity:        trade.Quantity,
		KeyPrice:           trade.Price,
		KeyGrossAmount:     grossAmount,
		KeyCommissionPct:   commissionPct,
		KeyIsHighValue:     boolFloat(grossAmount > highValueThreshold),
		KeyIsLargeQuantity: boolFloat(trade.Quantity > largeQuantityThreshold),
		KeyIsBuy:           boolFloat(strings.EqualFold(string(trade.Side), string(domain.SideBuy))),
	}

	if !trade.TradeDate.IsZero() {
		features[KeyDayOfWeek] = float64(int(trade.TradeDate.Weekday()))
		features[KeyHourOfDay] = float64(trade.TradeDate.Hour())
		features[KeyIsMonthEnd] = boolFloat(trade.TradeDate.Day() >= 28)
	} else {
		features[KeyDayOfWeek] = 0
		features[KeyHourOfDay] = 12
		features[KeyIsMonthEnd] = 0
	}

	features[KeySourceBreakRate] = defaultBreakRate
	features[KeyCounterpartyBreakRate] = defaultBreakRate
	if history != nil {
		if rate, ok := history.BySource[trade.SourceSystem]; ok {
			features[KeySourceBreakRate] = rate
		}
		if rate, ok := history.ByCounterparty[trade.Counterparty]; ok {
			features[KeyCounterpartyBreakRate] = rate
		}
	}

	return features
}

func boolFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
