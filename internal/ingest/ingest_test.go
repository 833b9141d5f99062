package ingest

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/trade-recon/internal/domain"
)

func TestValidateTrade_RejectsMissingFields(t *testing.T) {
	complete := RawTrade{
		"trade_date": time.Now(), "symbol": "AAPL", "quantity": 1.0, "price": 1.0,
		"side": "BUY", "source_trade_id": "1", "source_system": "oms",
	}
	assert.True(t, ValidateTrade(complete))

	incomplete := RawTrade{"symbol": "AAPL"}
	assert.False(t, ValidateTrade(incomplete))
}

func TestFixtureConnector_FetchAndNormalize(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	raw := RawTrade{
		"trade_date": day, "symbol": "aapl.O", "quantity": 100.0, "price": 50.0,
		"side": "BUY", "source_trade_id": "OMS-1", "source_system": "oms",
		"counterparty": "Acme Capital LLC",
	}
	connector := NewFixtureConnector(domain.SourceOMS, []RawTrade{raw})

	trades, err := FetchAndNormalize(context.Background(), connector, day.Add(-time.Hour), day.Add(24*time.Hour))

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
	assert.Equal(t, "ACME CAPITAL", trades[0].CounterpartyNormalized)
	assert.Equal(t, domain.SourceOMS, trades[0].SourceSystem)
}

func TestFixtureConnector_OutOfWindowTradesExcluded(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	raw := RawTrade{
		"trade_date": day, "symbol": "AAPL", "quantity": 100.0, "price": 50.0,
		"side": "BUY", "source_trade_id": "OMS-1", "source_system": "oms",
	}
	connector := NewFixtureConnector(domain.SourceOMS, []RawTrade{raw})

	trades, err := FetchAndNormalize(context.Background(), connector, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))

	require.NoError(t, err)
	assert.Empty(t, trades)
}

type flakyConnector struct {
	*FixtureConnector
	failuresLeft int
}

func (f *flakyConnector) FetchTrades(ctx context.Context, from, to time.Time) ([]RawTrade, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, errors.New("connection refused")
	}
	return f.FixtureConnector.FetchTrades(ctx, from, to)
}

func TestResilient_RetriesTransientFetchFailures(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	raw := RawTrade{
		"trade_date": day, "symbol": "AAPL", "quantity": 100.0, "price": 50.0,
		"side": "BUY", "source_trade_id": "OMS-1", "source_system": "oms",
	}
	flaky := &flakyConnector{
		FixtureConnector: NewFixtureConnector(domain.SourceOMS, []RawTrade{raw}),
		failuresLeft:     1,
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	resilient := NewResilient(flaky, log, 30*time.Second)

	require.NoError(t, resilient.Connect(context.Background()))
	trades, err := resilient.FetchTrades(context.Background(), day.Add(-time.Hour), day.Add(time.Hour))

	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, domain.SourceOMS, resilient.Source())
}

func TestFetchAndNormalize_SkipsInvalidRawTrades(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	valid := RawTrade{
		"trade_date": day, "symbol": "AAPL", "quantity": 100.0, "price": 50.0,
		"side": "BUY", "source_trade_id": "OMS-1", "source_system": "oms",
	}
	missingFields := RawTrade{"trade_date": day, "symbol": "MSFT"}
	connector := NewFixtureConnector(domain.SourceOMS, []RawTrade{valid, missingFields})

	trades, err := FetchAndNormalize(context.Background(), connector, day.Add(-time.Hour), day.Add(time.Hour))

	require.NoError(t, err)
	assert.Len(t, trades, 1)
}
