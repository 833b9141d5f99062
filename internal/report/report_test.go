package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.New("")
	require.NoError(t, err)
	return st
}

func TestSummary_ComputesRatesOverAllTrades(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b1", Status: domain.BreakOpen}))
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b2", Status: domain.BreakResolved}))

	trades := []*domain.Trade{
		{ID: "t1", IsMatched: true},
		{ID: "t2", IsMatched: false},
	}

	summary, err := New(st).Summary(trades)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalTrades)
	assert.Equal(t, 2, summary.TotalBreaks)
	assert.Equal(t, 1, summary.OpenBreaks)
	assert.Equal(t, 1, summary.ResolvedBreaks)
	assert.InDelta(t, 0.5, summary.MatchRate, 1e-9)
}

func TestSummary_ZeroTradesYieldsZeroMatchRate(t *testing.T) {
	st := newTestStore(t)
	summary, err := New(st).Summary(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.MatchRate)
}

func TestAging_OnlyIncludesOpenStatusesOldestFirst(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b1", Status: domain.BreakOpen, CreatedAt: now.Add(-1 * time.Hour)}))
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b2", Status: domain.BreakEscalated, CreatedAt: now.Add(-5 * time.Hour)}))
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b3", Status: domain.BreakResolved, CreatedAt: now.Add(-9 * time.Hour)}))

	aging, err := New(st).Aging(now)
	require.NoError(t, err)

	require.Len(t, aging, 2)
	assert.Equal(t, "b2", aging[0].BreakID)
	assert.Equal(t, "b1", aging[1].BreakID)
	assert.InDelta(t, 5.0, aging[0].AgeHours, 0.01)
}

func TestRunHistory_NewestFirstRespectsLimit(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.AddRun(&domain.ReconciliationRun{ID: "r1", RunDate: base}))
	require.NoError(t, st.AddRun(&domain.ReconciliationRun{ID: "r2", RunDate: base.AddDate(0, 0, 1)}))
	require.NoError(t, st.AddRun(&domain.ReconciliationRun{ID: "r3", RunDate: base.AddDate(0, 0, 2)}))

	runs, err := New(st).RunHistory(2)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
}

func TestRootCause_RanksByCountThenName(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b1", BreakType: "price_mismatch", FieldName: "price", AssignedTo: "ops_analyst"}))
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b2", BreakType: "price_mismatch", FieldName: "price", AssignedTo: "ops_analyst"}))
	require.NoError(t, st.AddBreak(&domain.TradeBreak{ID: "b3", BreakType: "quantity_mismatch", FieldName: "quantity", AssignedTo: "ops_team"}))

	rc, err := New(st).RootCause(10)
	require.NoError(t, err)

	require.Len(t, rc.TopBreakTypes, 2)
	assert.Equal(t, "price_mismatch", rc.TopBreakTypes[0].Name)
	assert.Equal(t, 2, rc.TopBreakTypes[0].Count)
}

func TestRootCause_NoBreaksReturnsEmptySummary(t *testing.T) {
	st := newTestStore(t)
	rc, err := New(st).RootCause(10)
	require.NoError(t, err)
	assert.Empty(t, rc.TopBreakTypes)
}
