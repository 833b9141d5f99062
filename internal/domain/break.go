package domain

import "time"

// BreakStatus is the lifecycle state of a TradeBreak.
type BreakStatus string

// Break statuses.
const (
	BreakOpen       BreakStatus = "OPEN"
	BreakInProgress BreakStatus = "IN_PROGRESS"
	BreakEscalated  BreakStatus = "ESCALATED"
	BreakResolved   BreakStatus = "RESOLVED"
	BreakAccepted   BreakStatus = "ACCEPTED"
)

// BreakSeverity ranks how urgently a break needs attention.
type BreakSeverity string

// Break severities, most to least urgent.
const (
	SeverityCritical BreakSeverity = "CRITICAL"
	SeverityHigh     BreakSeverity = "HIGH"
	SeverityMedium   BreakSeverity = "MEDIUM"
	SeverityLow      BreakSeverity = "LOW"
)

// MissingTradeBreakType is the break_type used when no counterpart trade
// could be located in the opposite source.
const MissingTradeBreakType = "missing_trade"

// TradeBreak is one mismatch observation: either a per-field mismatch
// between a matched pair, or a missing_trade break for an unmatched trade.
// Created by the matching orchestrator or the SLA sweeper; mutated by the
// router (assignment, escalation) and the auto-remediator or human actors
// (resolution).
type TradeBreak struct {
	ID             string `json:"id"`
	TradeID        string `json:"trade_id"`
	MatchedTradeID string `json:"matched_trade_id,omitempty"`

	BreakType string        `json:"break_type"`
	FieldName string        `json:"field_name"`
	Severity  BreakSeverity `json:"severity"`
	Status    BreakStatus   `json:"status"`

	ExpectedValue string   `json:"expected_value"`
	ActualValue   string   `json:"actual_value"`
	Variance      *float64 `json:"variance,omitempty"`
	VariancePct   *float64 `json:"variance_pct,omitempty"`

	PnLImpact      *float64 `json:"pnl_impact,omitempty"`
	SettlementRisk bool     `json:"settlement_risk"`

	AssignedTo    string  `json:"assigned_to,omitempty"`
	PriorityScore float64 `json:"priority_score"`

	CreatedAt       time.Time  `json:"created_at"`
	SLADeadline     time.Time  `json:"sla_deadline"`
	FirstReviewedAt *time.Time `json:"first_reviewed_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`

	ResolutionAction string `json:"resolution_action,omitempty"`
	ResolutionNotes  string `json:"resolution_notes,omitempty"`
	RootCause        string `json:"root_cause,omitempty"`
	ResolvedBy       string `json:"resolved_by,omitempty"`
}

// BreakComment is an append-only audit note attached to a break, useful
// for tracking investigation history alongside resolution metadata.
type BreakComment struct {
	ID          string    `json:"id"`
	BreakID     string    `json:"break_id"`
	User        string    `json:"user"`
	Comment     string    `json:"comment"`
	ActionTaken string    `json:"action_taken,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MatchingRule is a declarative override of the default fuzzy-matcher field
// weights. Inactive by default; when active rules carry MatchWeights, the
// reconciliation engine applies the highest-priority one to every trade in
// a pass. AssetClass and TradeType are stored but the engine does not
// select rules by them.
type MatchingRule struct {
	ID              string             `json:"id"`
	RuleName        string             `json:"rule_name"`
	RuleDescription string             `json:"rule_description,omitempty"`
	AssetClass      string             `json:"asset_class"`
	TradeType       string             `json:"trade_type"`
	MatchWeights    map[string]float64 `json:"match_weights,omitempty"`
	Priority        int                `json:"priority"`
	IsActive        bool               `json:"is_active"`
}
