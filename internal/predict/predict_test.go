package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/errs"
	"github.com/meridianops/trade-recon/internal/feature"
)

func testArtifact() *Artifact {
	return &Artifact{
		Version: "test-v1",
		Bias:    -2.0,
		Weights: map[string]float64{
			feature.KeyIsHighValue:     1.5,
			feature.KeyIsLargeQuantity: 1.0,
			feature.KeyCommissionPct:   0.2,
		},
	}
}

func TestPredict_NilArtifactReturnsModelUnavailable(t *testing.T) {
	p := New(nil)
	_, err := p.Predict(&domain.Trade{}, nil)
	assert.ErrorIs(t, err, errs.ErrModelUnavailable)
}

func TestPredict_HighValueTradeScoresHigherRisk(t *testing.T) {
	p := New(testArtifact())

	lowRisk, err := p.Predict(&domain.Trade{Quantity: 10, Price: 5}, nil)
	require.NoError(t, err)

	highRisk, err := p.Predict(&domain.Trade{Quantity: 20000, Price: 1000}, nil)
	require.NoError(t, err)

	assert.Greater(t, highRisk.Probability, lowRisk.Probability)
}

func TestPredict_RiskLevelBands(t *testing.T) {
	cases := []struct {
		probability float64
		want        string
	}{
		{0.9, RiskCritical},
		{0.65, RiskHigh},
		{0.45, RiskMedium},
		{0.1, RiskLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, assessRiskLevel(tc.probability))
	}
}

func TestPredict_ContributingFactorsCappedAtFive(t *testing.T) {
	artifact := &Artifact{
		Bias: 0,
		Weights: map[string]float64{
			"a": 0.9, "b": -0.8, "c": 0.7, "d": 0.6, "e": -0.5, "f": 0.1,
		},
	}
	p := New(artifact)

	result, err := p.Predict(&domain.Trade{}, nil)
	require.NoError(t, err)
	assert.Len(t, result.ContributingFactors, 5)
	_, hasWeakest := result.ContributingFactors["f"]
	assert.False(t, hasWeakest)
}

func TestPredict_ToDomainPrediction(t *testing.T) {
	p := New(testArtifact())
	result, err := p.Predict(&domain.Trade{}, nil)
	require.NoError(t, err)

	rec := result.ToDomainPrediction("trade-1")
	assert.Equal(t, "trade-1", rec.TradeID)
	assert.Equal(t, result.RiskLevel, rec.RiskLevel)
}
