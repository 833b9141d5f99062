package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/normalize"
)

// FixtureConnector serves trades from an in-memory list rather than a live
// source system. Standing in for the OMS/custodian/prime-broker connectors
// that a production deployment would supply, it is what seed utilities and
// tests use to populate a store.
type FixtureConnector struct {
	source domain.Source
	trades []RawTrade
}

// NewFixtureConnector builds a FixtureConnector serving the given raw
// trades for source.
func NewFixtureConnector(source domain.Source, trades []RawTrade) *FixtureConnector {
	return &FixtureConnector{source: source, trades: trades}
}

// Source returns the configured source system.
func (f *FixtureConnector) Source() domain.Source { return f.source }

// Connect always succeeds: there is no live connection to establish.
func (f *FixtureConnector) Connect(ctx context.Context) error { return nil }

// FetchTrades returns every fixture trade whose trade_date falls in [from, to).
func (f *FixtureConnector) FetchTrades(ctx context.Context, from, to time.Time) ([]RawTrade, error) {
	var out []RawTrade
	for _, raw := range f.trades {
		tradeDate, ok := raw["trade_date"].(time.Time)
		if !ok {
			continue
		}
		if tradeDate.Before(from) || !tradeDate.Before(to) {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

// NormalizeTrade converts a fixture raw trade into a domain.Trade, applying
// the same symbol and counterparty canonicalization a live connector would.
func (f *FixtureConnector) NormalizeTrade(raw RawTrade) (*domain.Trade, error) {
	symbol, _ := raw["symbol"].(string)
	quantity, _ := raw["quantity"].(float64)
	price, _ := raw["price"].(float64)
	side, _ := raw["side"].(string)
	sourceTradeID, _ := raw["source_trade_id"].(string)
	tradeDate, _ := raw["trade_date"].(time.Time)
	counterparty, _ := raw["counterparty"].(string)

	if sourceTradeID == "" {
		return nil, fmt.Errorf("fixture trade missing source_trade_id")
	}

	now := time.Now().UTC()
	trade := &domain.Trade{
		ID:            uuid.NewString(),
		SourceSystem:  f.source,
		SourceTradeID: sourceTradeID,
		TradeDate:     normalize.Date(tradeDate),
		Symbol:        normalize.Symbol(symbol),
		Side:          domain.Side(side),
		Quantity:      quantity,
		Price:         price,
		Counterparty:  counterparty,
		IngestedAt:    now,
		UpdatedAt:     now,
	}
	if counterparty != "" {
		trade.CounterpartyNormalized = normalize.Counterparty(counterparty)
	}
	return trade, nil
}

// Disconnect is a no-op: there is no live connection to release.
func (f *FixtureConnector) Disconnect(ctx context.Context) error { return nil }

var _ Connector = (*FixtureConnector)(nil)
