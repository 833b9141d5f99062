// Package route assigns breaks to an owner via an ordered rule table and
// governs the status transitions a break is allowed to make as it moves
// through triage, escalation, and resolution.
package route

import (
	"fmt"

	"github.com/meridianops/trade-recon/internal/domain"
)

// Transition describes one allowed (from, to, condition) move.
type Transition struct {
	From        domain.BreakStatus
	To          domain.BreakStatus
	Condition   string
	Description string
}

// ValidTransitions enumerates every status move a break is allowed to make.
var ValidTransitions = []Transition{
	{domain.BreakOpen, domain.BreakInProgress, "routed", "router assigned an owner"},
	{domain.BreakOpen, domain.BreakEscalated, "sla_breach", "SLA deadline passed while unassigned"},
	{domain.BreakInProgress, domain.BreakEscalated, "sla_breach", "SLA deadline passed before resolution"},
	{domain.BreakInProgress, domain.BreakResolved, "remediated", "auto-remediation or analyst resolved the break"},
	{domain.BreakInProgress, domain.BreakAccepted, "accepted", "analyst accepted the variance as immaterial"},
	{domain.BreakEscalated, domain.BreakInProgress, "re_routed", "escalation target picked the break back up"},
	{domain.BreakEscalated, domain.BreakResolved, "remediated", "escalation owner resolved the break"},
	{domain.BreakEscalated, domain.BreakAccepted, "accepted", "escalation owner accepted the variance"},
}

// transitionLookup gives O(1) lookup for whether (from, to, condition) is defined.
var transitionLookup map[domain.BreakStatus]map[domain.BreakStatus]map[string]bool

func init() {
	transitionLookup = make(map[domain.BreakStatus]map[domain.BreakStatus]map[string]bool)
	for _, tr := range ValidTransitions {
		if transitionLookup[tr.From] == nil {
			transitionLookup[tr.From] = make(map[domain.BreakStatus]map[string]bool)
		}
		if transitionLookup[tr.From][tr.To] == nil {
			transitionLookup[tr.From][tr.To] = make(map[string]bool)
		}
		transitionLookup[tr.From][tr.To][tr.Condition] = true
	}
}

// StateMachine drives one break's status through its lifecycle.
type StateMachine struct {
	current  domain.BreakStatus
	previous domain.BreakStatus
}

// NewStateMachine starts a state machine in the given status, normally
// domain.BreakOpen for a freshly derived break.
func NewStateMachine(initial domain.BreakStatus) *StateMachine {
	return &StateMachine{current: initial, previous: initial}
}

// Current returns the break's current status.
func (sm *StateMachine) Current() domain.BreakStatus {
	return sm.current
}

// IsValidTransition reports whether moving to `to` under `condition` is
// defined from the current status.
func (sm *StateMachine) IsValidTransition(to domain.BreakStatus, condition string) bool {
	if toMap, ok := transitionLookup[sm.current]; ok {
		if condMap, ok := toMap[to]; ok {
			_, ok := condMap[condition]
			return ok
		}
	}
	return false
}

// Transition moves the break to a new status, or returns an error if the
// move is not defined from the current status.
func (sm *StateMachine) Transition(to domain.BreakStatus, condition string) error {
	if !sm.IsValidTransition(to, condition) {
		return fmt.Errorf("invalid break transition from %s to %s on condition %q", sm.current, to, condition)
	}
	sm.previous = sm.current
	sm.current = to
	return nil
}
