package remediate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianops/trade-recon/internal/domain"
)

func TestSuggestAction_MissingTradeNotExecutable(t *testing.T) {
	r := New()
	brk := &domain.TradeBreak{BreakType: domain.MissingTradeBreakType}

	s := r.SuggestAction(brk)

	assert.Equal(t, ActionRequestResend, s.Action)
	assert.False(t, s.AutoExecutable)
}

func TestSuggestAction_CounterpartyMismatchIsAutoExecutable(t *testing.T) {
	r := New()
	brk := &domain.TradeBreak{BreakType: "counterparty_mismatch"}

	s := r.SuggestAction(brk)

	assert.Equal(t, ActionNormalizeCounterparty, s.Action)
	assert.True(t, s.AutoExecutable)
}

func TestSuggestAction_MinorPriceVarianceIsAutoExecutable(t *testing.T) {
	r := New()
	variance := 0.05
	brk := &domain.TradeBreak{BreakType: "price_mismatch", VariancePct: &variance}

	s := r.SuggestAction(brk)

	assert.Equal(t, ActionAcceptMinorPriceRound, s.Action)
	assert.True(t, s.AutoExecutable)
}

func TestSuggestAction_LargePriceVarianceNeedsManualReview(t *testing.T) {
	r := New()
	variance := 5.0
	brk := &domain.TradeBreak{BreakType: "price_mismatch", VariancePct: &variance}

	s := r.SuggestAction(brk)

	assert.Equal(t, ActionManualInvestigation, s.Action)
	assert.False(t, s.AutoExecutable)
}

func TestApplyAction_AcceptMinorPriceRoundingResolves(t *testing.T) {
	r := New()
	brk := &domain.TradeBreak{Status: domain.BreakInProgress}

	applied := r.ApplyAction(brk, ActionAcceptMinorPriceRound, "")

	assert.True(t, applied)
	assert.Equal(t, domain.BreakResolved, brk.Status)
	assert.Equal(t, "system", brk.ResolvedBy)
	assert.NotNil(t, brk.ResolvedAt)
}

func TestApplyAction_NormalizeCounterpartyQueuesInProgress(t *testing.T) {
	r := New()
	brk := &domain.TradeBreak{Status: domain.BreakOpen}

	applied := r.ApplyAction(brk, ActionNormalizeCounterparty, "analyst1")

	assert.True(t, applied)
	assert.Equal(t, domain.BreakInProgress, brk.Status)
}

func TestApplyAction_UnknownActionIsRejected(t *testing.T) {
	r := New()
	brk := &domain.TradeBreak{Status: domain.BreakOpen}

	applied := r.ApplyAction(brk, ActionManualInvestigation, "")

	assert.False(t, applied)
	assert.Equal(t, domain.BreakOpen, brk.Status)
}
