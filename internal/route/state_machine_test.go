package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/trade-recon/internal/domain"
)

func TestStateMachine_BasicLifecycle(t *testing.T) {
	sm := NewStateMachine(domain.BreakOpen)
	assert.Equal(t, domain.BreakOpen, sm.Current())

	require.NoError(t, sm.Transition(domain.BreakInProgress, "routed"))
	require.NoError(t, sm.Transition(domain.BreakResolved, "remediated"))
	assert.Equal(t, domain.BreakResolved, sm.Current())
}

func TestStateMachine_TransitionTable(t *testing.T) {
	tests := []struct {
		name      string
		from      domain.BreakStatus
		to        domain.BreakStatus
		condition string
		valid     bool
	}{
		{"open routed to in_progress", domain.BreakOpen, domain.BreakInProgress, "routed", true},
		{"open escalates on sla breach", domain.BreakOpen, domain.BreakEscalated, "sla_breach", true},
		{"in_progress escalates on sla breach", domain.BreakInProgress, domain.BreakEscalated, "sla_breach", true},
		{"in_progress resolves", domain.BreakInProgress, domain.BreakResolved, "remediated", true},
		{"in_progress accepted", domain.BreakInProgress, domain.BreakAccepted, "accepted", true},
		{"escalated picked back up", domain.BreakEscalated, domain.BreakInProgress, "re_routed", true},
		{"escalated resolves", domain.BreakEscalated, domain.BreakResolved, "remediated", true},
		{"open cannot resolve directly", domain.BreakOpen, domain.BreakResolved, "remediated", false},
		{"resolved is terminal", domain.BreakResolved, domain.BreakInProgress, "routed", false},
		{"accepted is terminal", domain.BreakAccepted, domain.BreakEscalated, "sla_breach", false},
		{"wrong condition rejected", domain.BreakOpen, domain.BreakInProgress, "sla_breach", false},
		{"resolved cannot escalate", domain.BreakResolved, domain.BreakEscalated, "sla_breach", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine(tt.from)
			assert.Equal(t, tt.valid, sm.IsValidTransition(tt.to, tt.condition))

			err := sm.Transition(tt.to, tt.condition)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.to, sm.Current())
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.from, sm.Current())
			}
		})
	}
}
