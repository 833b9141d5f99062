package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridianops/trade-recon/internal/domain"
)

func TestExtract_ComputesGrossAmountWhenAbsent(t *testing.T) {
	e := New()
	trade := &domain.Trade{Quantity: 100, Price: 10, Side: domain.SideBuy, TradeDate: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}

	features := e.Extract(trade, nil)

	assert.Equal(t, 1000.0, features[KeyGrossAmount])
	assert.Equal(t, 1.0, features[KeyIsBuy])
	assert.Equal(t, 0.0, features[KeyIsHighValue])
}

func TestExtract_HighValueAndLargeQuantityFlags(t *testing.T) {
	e := New()
	trade := &domain.Trade{Quantity: 20000, Price: 100}

	features := e.Extract(trade, nil)

	assert.Equal(t, 1.0, features[KeyIsHighValue])
	assert.Equal(t, 1.0, features[KeyIsLargeQuantity])
}

func TestExtract_MonthEndFlag(t *testing.T) {
	e := New()
	trade := &domain.Trade{TradeDate: time.Date(2026, 3, 29, 14, 0, 0, 0, time.UTC)}

	features := e.Extract(trade, nil)

	assert.Equal(t, 1.0, features[KeyIsMonthEnd])
	assert.Equal(t, 14.0, features[KeyHourOfDay])
}

func TestExtract_MissingTradeDateUsesDefaults(t *testing.T) {
	e := New()
	trade := &domain.Trade{}

	features := e.Extract(trade, nil)

	assert.Equal(t, 0.0, features[KeyDayOfWeek])
	assert.Equal(t, 12.0, features[KeyHourOfDay])
}

func TestExtract_BreakRatesFallBackWithoutHistory(t *testing.T) {
	e := New()
	trade := &domain.Trade{SourceSystem: domain.SourceOMS, Counterparty: "ACME"}

	features := e.Extract(trade, nil)

	assert.Equal(t, defaultBreakRate, features[KeySourceBreakRate])
	assert.Equal(t, defaultBreakRate, features[KeyCounterpartyBreakRate])
}

func TestExtract_BreakRatesUseHistoryWhenPresent(t *testing.T) {
	e := New()
	trade := &domain.Trade{SourceSystem: domain.SourceOMS, Counterparty: "ACME"}
	history := &HistoricalRates{
		BySource:       map[domain.Source]float64{domain.SourceOMS: 0.2},
		ByCounterparty: map[string]float64{"ACME": 0.8},
	}

	features := e.Extract(trade, history)

	assert.Equal(t, 0.2, features[KeySourceBreakRate])
	assert.Equal(t, 0.8, features[KeyCounterpartyBreakRate])
}
