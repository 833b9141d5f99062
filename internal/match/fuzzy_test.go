package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridianops/trade-recon/internal/domain"
)

func newMatcher() *Matcher {
	return New(0.95, 0.75, 0.01, 0)
}

func baseTrade() *domain.Trade {
	return &domain.Trade{
		Symbol:       "AAPL",
		TradeDate:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Side:         domain.SideBuy,
		Quantity:     1000,
		Price:        185.50,
		Counterparty: "ACME CAPITAL",
	}
}

func TestComputeMatchScore_IdenticalTradesAutoMatch(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	b := baseTrade()

	score := m.ComputeMatchScore(a, b, nil)

	assert.Equal(t, ConfidenceAuto, score.Confidence)
	assert.True(t, score.IsMatch)
	assert.InDelta(t, 1.0, score.Overall, 1e-9)
}

func TestComputeMatchScore_IsSymmetric(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	b := baseTrade()
	b.Price = 185.60
	b.Counterparty = "ACME CAPITAL LLC"

	forward := m.ComputeMatchScore(a, b, nil)
	backward := m.ComputeMatchScore(b, a, nil)

	assert.InDelta(t, forward.Overall, backward.Overall, 1e-9)
}

func TestComputeMatchScore_PriceWithinToleranceStillAuto(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	b := baseTrade()
	b.Price = a.Price * 1.0005 // within 1% tolerance

	score := m.ComputeMatchScore(a, b, nil)
	assert.Equal(t, ConfidenceAuto, score.Confidence)
}

func TestComputeMatchScore_QuantityMismatchLowersScore(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	b := baseTrade()
	b.Quantity = 900 // 10% short

	score := m.ComputeMatchScore(a, b, nil)
	assert.Less(t, score.Overall, 1.0)
}

func TestComputeMatchScore_WrongSymbolNoMatch(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	b := baseTrade()
	b.Symbol = "MSFT"
	b.TradeDate = a.TradeDate.Add(48 * time.Hour)
	b.Side = domain.SideSell
	b.Quantity = 1
	b.Price = 1
	b.Counterparty = "UNRELATED ENTITY"

	score := m.ComputeMatchScore(a, b, nil)
	assert.Equal(t, ConfidenceNoMatch, score.Confidence)
	assert.False(t, score.IsMatch)
}

func TestComputeMatchScore_CounterpartySuffixNoiseStillMatches(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	a.Counterparty = "Acme Capital LLC"
	a.CounterpartyNormalized = "ACME CAPITAL"
	b := baseTrade()
	b.Counterparty = "Acme Capital, Incorporated"
	b.CounterpartyNormalized = "ACME CAPITAL"

	score := m.ComputeMatchScore(a, b, nil)
	assert.Equal(t, 1.0, score.Fields["counterparty"])
}

func TestComputeMatchScore_MissingCounterpartyIsNeutral(t *testing.T) {
	m := newMatcher()
	a := baseTrade()
	a.Counterparty = ""
	b := baseTrade()

	score := m.ComputeMatchScore(a, b, nil)
	assert.Equal(t, 0.5, score.Fields["counterparty"])
}

func TestFindBestMatch_PicksHighestScoringCandidate(t *testing.T) {
	m := newMatcher()
	source := baseTrade()

	worse := baseTrade()
	worse.Quantity = 800

	better := baseTrade()
	better.Price = source.Price + 0.01

	best, score := m.FindBestMatch(source, []*domain.Trade{worse, better}, nil, nil)

	assert.Same(t, better, best)
	assert.NotNil(t, score)
}

func TestFindBestMatch_NoneAboveThresholdReturnsNil(t *testing.T) {
	m := newMatcher()
	source := baseTrade()

	unrelated := baseTrade()
	unrelated.Symbol = "TSLA"
	unrelated.Side = domain.SideSell
	unrelated.Quantity = 1
	unrelated.Price = 1
	unrelated.Counterparty = "UNRELATED ENTITY"

	best, score := m.FindBestMatch(source, []*domain.Trade{unrelated}, nil, nil)

	assert.Nil(t, best)
	assert.Nil(t, score)
}

func TestRatio_IdenticalStrings(t *testing.T) {
	assert.Equal(t, 1.0, ratio("AAPL", "AAPL"))
}

func TestTokenSortRatio_IgnoresWordOrder(t *testing.T) {
	r := tokenSortRatio("CAPITAL ACME", "ACME CAPITAL")
	assert.Equal(t, 1.0, r)
}

func TestTokenSetRatio_IgnoresExtraTokens(t *testing.T) {
	r := tokenSetRatio("ACME CAPITAL", "ACME CAPITAL GROUP")
	assert.Greater(t, r, 0.8)
}
