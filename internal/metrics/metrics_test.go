package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRun_RecordsCountersByLabel(t *testing.T) {
	m := New()

	m.ObserveRun("completed", 2*time.Second, 3, 1, map[string]int{"CRITICAL": 2, "HIGH": 1})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.TradesMatched.WithLabelValues("auto")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TradesMatched.WithLabelValues("review")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BreaksIdentified.WithLabelValues("CRITICAL")))
}

func TestObserveSweepEscalations_IgnoresNonPositive(t *testing.T) {
	m := New()

	m.ObserveSweepEscalations(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SweepEscalations))

	m.ObserveSweepEscalations(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SweepEscalations))
}
