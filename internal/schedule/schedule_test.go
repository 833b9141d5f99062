package schedule

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/trade-recon/internal/breaks"
	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/engine"
	"github.com/meridianops/trade-recon/internal/ingest"
	"github.com/meridianops/trade-recon/internal/match"
	"github.com/meridianops/trade-recon/internal/route"
	"github.com/meridianops/trade-recon/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, store.Store) {
	t.Helper()
	st, err := store.New("")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	matcher := match.New(0.95, 0.75, 0.01, 0.0)
	deriver := breaks.New(breaks.SLAMinutes{Critical: 30, High: 120, Low: 480})
	orch := engine.New(st, matcher, deriver, log)
	router := route.New(nil, log)

	return New(orch, router, st, log, nil, 15*time.Minute, nil), st
}

func TestSweepSLABreaches_EscalatesAndPersists(t *testing.T) {
	s, st := newTestScheduler(t)
	now := time.Now().UTC()

	brk := &domain.TradeBreak{
		ID:          "b1",
		Status:      domain.BreakOpen,
		AssignedTo:  "ops_analyst",
		CreatedAt:   now.Add(-10 * time.Minute),
		SLADeadline: now.Add(-1 * time.Minute),
	}
	require.NoError(t, st.AddBreak(brk))

	s.SweepSLABreaches(now)

	persisted, err := st.GetBreak("b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BreakEscalated, persisted.Status)
	assert.Equal(t, "senior_ops_manager", persisted.AssignedTo)
}

func TestSweepSLABreaches_IgnoresBreaksNotYetDue(t *testing.T) {
	s, st := newTestScheduler(t)
	now := time.Now().UTC()

	brk := &domain.TradeBreak{
		ID:          "b1",
		Status:      domain.BreakOpen,
		AssignedTo:  "ops_analyst",
		CreatedAt:   now,
		SLADeadline: now.Add(1 * time.Hour),
	}
	require.NoError(t, st.AddBreak(brk))

	s.SweepSLABreaches(now)

	persisted, err := st.GetBreak("b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BreakOpen, persisted.Status)
}

func TestRunDailyPass_IngestsBeforeReconciling(t *testing.T) {
	st, err := store.New("")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	matcher := match.New(0.95, 0.75, 0.01, 0.0)
	deriver := breaks.New(breaks.SLAMinutes{Critical: 30, High: 120, Low: 480})
	orch := engine.New(st, matcher, deriver, log)
	router := route.New(nil, log)

	today := time.Now().UTC()
	omsConn := ingest.NewFixtureConnector(domain.SourceOMS, []ingest.RawTrade{
		{"trade_date": today, "symbol": "AAPL", "quantity": 100.0, "price": 200.0, "side": "BUY", "source_trade_id": "oms-1", "source_system": "OMS"},
	})
	custConn := ingest.NewFixtureConnector(domain.SourceCustodian, []ingest.RawTrade{
		{"trade_date": today, "symbol": "AAPL", "quantity": 100.0, "price": 200.0, "side": "BUY", "source_trade_id": "cust-1", "source_system": "CUSTODIAN"},
	})
	connectors := map[domain.Source]ingest.Connector{
		domain.SourceOMS:       omsConn,
		domain.SourceCustodian: custConn,
	}
	pairs := []SourcePair{{Source1: domain.SourceOMS, Source2: domain.SourceCustodian}}

	s := New(orch, router, st, log, pairs, 15*time.Minute, connectors)
	s.RunDailyPass(context.Background(), today)

	all, err := st.AllTrades()
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, trade := range all {
		assert.True(t, trade.IsMatched)
	}
}
