package domain

import "time"

// RunStatus is the lifecycle state of a ReconciliationRun.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ReconciliationRun is an audit record of one matching invocation. Created
// at run start, updated once at end, immutable thereafter.
type ReconciliationRun struct {
	ID      string    `json:"id"`
	RunDate time.Time `json:"run_date"`

	TradeDateFrom time.Time `json:"trade_date_from"`
	TradeDateTo   time.Time `json:"trade_date_to"`
	Source1       Source    `json:"source1"`
	Source2       Source    `json:"source2"`

	TotalTrades          int `json:"total_trades"`
	MatchedTrades        int `json:"matched_trades"`
	BreaksIdentified     int `json:"breaks_identified"`
	ManualReviewRequired int `json:"manual_review_required"`

	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`
	MatchRate float64       `json:"match_rate"`

	Status       RunStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// BreakPrediction is a speculative break-probability score computed for a
// trade when online inference is invoked, kept for audit.
type BreakPrediction struct {
	ID                  string             `json:"id"`
	TradeID             string             `json:"trade_id"`
	PredictionScore     float64            `json:"prediction_score"`
	PredictedBreak      bool               `json:"predicted_break"`
	RiskLevel           string             `json:"risk_level"`
	ContributingFactors map[string]float64 `json:"contributing_factors,omitempty"`
	ModelVersion        string             `json:"model_version"`
	PredictedAt         time.Time          `json:"predicted_at"`
}
