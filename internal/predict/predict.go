// Package predict loads a trained break-risk model artifact and scores
// trades for their probability of producing a break. Training the model
// itself is out of scope here; this package only consumes an artifact
// produced offline.
package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/errs"
	"github.com/meridianops/trade-recon/internal/feature"
)

// Risk levels assigned by probability band.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

const topContributingFactors = 5

// Artifact is the on-disk representation of a trained model: a logistic
// regression over the fixed feature keys in internal/feature. Produced by
// an offline training job; this package only reads it.
type Artifact struct {
	Version      string             `json:"version"`
	Bias         float64            `json:"bias"`
	FeatureNames []string           `json:"feature_names"`
	Weights      map[string]float64 `json:"weights"`
}

// LoadArtifact reads and parses a model artifact from path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied model location
	if err != nil {
		return nil, fmt.Errorf("reading model artifact %q: %w", path, err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing model artifact %q: %w", path, err)
	}
	return &artifact, nil
}

// Result is a break-probability prediction for a single trade.
type Result struct {
	Probability         float64
	PredictedBreak      bool
	RiskLevel           string
	ContributingFactors map[string]float64
}

// Predictor scores trades against a loaded model artifact.
type Predictor struct {
	artifact *Artifact
	engineer *feature.Engineer
}

// New builds a Predictor bound to an already-loaded artifact. A nil
// artifact is accepted; Predict then returns errs.ErrModelUnavailable.
func New(artifact *Artifact) *Predictor {
	return &Predictor{artifact: artifact, engineer: feature.New()}
}

// Predict scores a trade's break probability. Returns errs.ErrModelUnavailable
// if the predictor has no artifact loaded.
func (p *Predictor) Predict(trade *domain.Trade, history *feature.HistoricalRates) (Result, error) {
	if p == nil || p.artifact == nil {
		return Result{}, errs.ErrModelUnavailable
	}

	features := p.engineer.Extract(trade, history)
	probability := sigmoid(p.artifact.Bias + weightedSum(p.artifact.Weights, features))

	return Result{
		Probability:         probability,
		PredictedBreak:      probability >= 0.5,
		RiskLevel:           assessRiskLevel(probability),
		ContributingFactors: topFactors(p.artifact.Weights, topContributingFactors),
	}, nil
}

// ToDomainPrediction stamps a Result as a persisted BreakPrediction record.
func (r Result) ToDomainPrediction(tradeID string) domain.BreakPrediction {
	return domain.BreakPrediction{
		ID:                  uuid.NewString(),
		TradeID:             tradeID,
		PredictionScore:     r.Probability,
		PredictedBreak:      r.PredictedBreak,
		RiskLevel:           r.RiskLevel,
		ContributingFactors: r.ContributingFactors,
		PredictedAt:         time.Now().UTC(),
	}
}

func weightedSum(weights map[string]float64, features map[string]float64) float64 {
	var sum float64
	for name, weight := range weights {
		sum += weight * features[name]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func assessRiskLevel(probability float64) string {
	switch {
	case probability >= 0.8:
		return RiskCritical
	case probability >= 0.6:
		return RiskHigh
	case probability >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// topFactors ranks weights by absolute magnitude and keeps the strongest n.
func topFactors(weights map[string]float64, n int) map[string]float64 {
	type pair struct {
		name   string
		weight float64
	}
	ranked := make([]pair, 0, len(weights))
	for name, weight := range weights {
		ranked = append(ranked, pair{name, weight})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].weight) > math.Abs(ranked[j].weight)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make(map[string]float64, len(ranked))
	for _, p := range ranked {
		out[p.name] = p.weight
	}
	return out
}
