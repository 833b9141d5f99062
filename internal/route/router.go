package route

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/errs"
)

// Rule is one entry in the ordered routing table: the first rule whose
// Condition matches a break decides its assignee and escalation window.
type Rule struct {
	Name              string
	Condition         func(*domain.TradeBreak) bool
	AssignTo          string
	EscalationMinutes int
}

// DefaultRules is the routing table evaluated top-down. The final entry's
// condition always matches, guaranteeing every break gets an assignee.
var DefaultRules = []Rule{
	{
		Name:              "critical_severity",
		Condition:         func(b *domain.TradeBreak) bool { return b.Severity == domain.SeverityCritical },
		AssignTo:          "senior_ops_manager",
		EscalationMinutes: 15,
	},
	{
		Name: "high_pnl_impact",
		Condition: func(b *domain.TradeBreak) bool {
			return b.Severity == domain.SeverityHigh && b.PnLImpact != nil && absFloat(*b.PnLImpact) > 100_000
		},
		AssignTo:          "head_of_trading",
		EscalationMinutes: 30,
	},
	{
		Name:              "missing_trade",
		Condition:         func(b *domain.TradeBreak) bool { return b.BreakType == domain.MissingTradeBreakType },
		AssignTo:          "trade_support_team",
		EscalationMinutes: 60,
	},
	{
		Name: "price_or_quantity_mismatch",
		Condition: func(b *domain.TradeBreak) bool {
			return b.BreakType == "price_mismatch" || b.BreakType == "quantity_mismatch"
		},
		AssignTo:          "ops_analyst",
		EscalationMinutes: 120,
	},
	{
		Name:              "default",
		Condition:         func(*domain.TradeBreak) bool { return true },
		AssignTo:          "ops_team",
		EscalationMinutes: 240,
	},
}

// escalationMap names who an overdue break's owner gets bumped to when no
// one actions it within its SLA window.
var escalationMap = map[string]string{
	"ops_analyst":        "senior_ops_manager",
	"trade_support_team": "ops_manager",
	"ops_team":           "ops_manager",
	"ops_manager":        "head_of_operations",
	"senior_ops_manager": "head_of_operations",
}

// Notifier is notified when a break is routed. SLA escalations are logged
// but not sent through it. Implemented by internal/notify.
type Notifier interface {
	NotifyRouted(brk *domain.TradeBreak, assignee string) error
}

// Assignment is the outcome of routing one break.
type Assignment struct {
	BreakID        string
	AssignedTo     string
	EscalationTime time.Time
}

// Escalation records a break bumped to a new owner after its SLA lapsed.
type Escalation struct {
	BreakID          string
	OriginalAssignee string
	EscalatedTo      string
}

// Router assigns breaks to owners and escalates overdue ones.
type Router struct {
	rules    []Rule
	notifier Notifier
	log      *logrus.Logger
}

// New builds a Router over the default rule table.
func New(notifier Notifier, log *logrus.Logger) *Router {
	return &Router{rules: DefaultRules, notifier: notifier, log: log}
}

// RouteException assigns brk to its owner under the first matching rule,
// transitions it to IN_PROGRESS, and notifies the assignee.
func (r *Router) RouteException(brk *domain.TradeBreak) (Assignment, error) {
	sm := NewStateMachine(brk.Status)

	for _, rule := range r.rules {
		if !rule.Condition(brk) {
			continue
		}

		if err := sm.Transition(domain.BreakInProgress, "routed"); err != nil {
			return Assignment{}, fmt.Errorf("routing break %s: %w", brk.ID, err)
		}

		brk.AssignedTo = rule.AssignTo
		brk.Status = sm.Current()
		escalationTime := time.Now().UTC().Add(time.Duration(rule.EscalationMinutes) * time.Minute)

		if r.notifier != nil {
			if err := r.notifier.NotifyRouted(brk, rule.AssignTo); err != nil {
				r.log.WithError(err).WithField("break_id", brk.ID).Warn("routing notification failed")
			}
		}

		r.log.WithFields(logrus.Fields{
			"break_id": brk.ID,
			"rule":     rule.Name,
			"assignee": rule.AssignTo,
		}).Info("break routed")

		return Assignment{BreakID: brk.ID, AssignedTo: rule.AssignTo, EscalationTime: escalationTime}, nil
	}

	// DefaultRules always has a catch-all entry; reaching here means the
	// rule table itself was misconfigured.
	return Assignment{}, fmt.Errorf("routing break %s: %w", brk.ID, errs.ErrInvariantViolated)
}

// CheckSLABreaches escalates every OPEN or IN_PROGRESS break whose SLA
// deadline has passed, bumping it to its escalation target and marking it
// ESCALATED.
func (r *Router) CheckSLABreaches(candidates []*domain.TradeBreak, now time.Time) []Escalation {
	var escalated []Escalation
	for _, brk := range candidates {
		if brk.Status != domain.BreakOpen && brk.Status != domain.BreakInProgress {
			continue
		}
		if brk.SLADeadline.IsZero() || !brk.SLADeadline.Before(now) {
			continue
		}

		sm := NewStateMachine(brk.Status)
		if err := sm.Transition(domain.BreakEscalated, "sla_breach"); err != nil {
			r.log.WithError(err).WithField("break_id", brk.ID).Warn("sla escalation transition rejected")
			continue
		}

		original := brk.AssignedTo
		if original == "" {
			original = "unassigned"
		}
		escalatedTo := escalationTarget(original)

		brk.AssignedTo = escalatedTo
		brk.Status = sm.Current()

		escalated = append(escalated, Escalation{BreakID: brk.ID, OriginalAssignee: original, EscalatedTo: escalatedTo})
	}

	if len(escalated) > 0 {
		r.log.WithField("count", len(escalated)).Info("sla breaches escalated")
	}
	return escalated
}

func escalationTarget(currentAssignee string) string {
	if target, ok := escalationMap[currentAssignee]; ok {
		return target
	}
	return "head_of_operations"
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
