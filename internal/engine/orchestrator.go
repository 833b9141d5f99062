// Package engine runs one reconciliation pass between two trade sources:
// normalizing fields, greedily pairing the best-scoring matches, deriving
// breaks for the pairs and for anything left unmatched, and recording the
// outcome as a ReconciliationRun.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meridianops/trade-recon/internal/breaks"
	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/match"
	"github.com/meridianops/trade-recon/internal/metrics"
	"github.com/meridianops/trade-recon/internal/normalize"
	"github.com/meridianops/trade-recon/internal/store"
)

// Stats summarizes one reconciliation pass's outcome.
type Stats struct {
	AutoMatched      int            `json:"auto_matched"`
	ManualReview     int            `json:"manual_review"`
	BreaksIdentified int            `json:"breaks_identified"`
	UnmatchedSource1 int            `json:"unmatched_source1"`
	UnmatchedSource2 int            `json:"unmatched_source2"`
	BreaksBySeverity map[string]int `json:"breaks_by_severity,omitempty"`
}

// Orchestrator runs reconciliation passes against a Store.
type Orchestrator struct {
	store   store.Store
	matcher *match.Matcher
	deriver *breaks.Deriver
	log     *logrus.Logger
	metrics *metrics.Metrics
}

// New builds an Orchestrator. m may be nil, in which case run metrics are
// not recorded.
func New(st store.Store, matcher *match.Matcher, deriver *breaks.Deriver, log *logrus.Logger, m ...*metrics.Metrics) *Orchestrator {
	o := &Orchestrator{store: st, matcher: matcher, deriver: deriver, log: log}
	if len(m) > 0 {
		o.metrics = m[0]
	}
	return o
}

// RunReconciliation matches unmatched trades between source1 and source2
// for the given calendar day, derives breaks, and records the pass as a
// ReconciliationRun. When the pass fails partway through (a storage write
// or cancellation), the run is still persisted as failed with ErrorMessage
// set, so the audit trail survives, and the error is then returned to the
// caller as well. A cancelled ctx aborts the pass before its next store
// write.
func (o *Orchestrator) RunReconciliation(ctx context.Context, tradeDate time.Time, source1, source2 domain.Source) (*domain.ReconciliationRun, Stats, error) {
	run := &domain.ReconciliationRun{
		ID:            uuid.NewString(),
		RunDate:       time.Now().UTC(),
		TradeDateFrom: normalize.Date(tradeDate),
		TradeDateTo:   normalize.Date(tradeDate).AddDate(0, 0, 1),
		Source1:       source1,
		Source2:       source2,
		StartTime:     time.Now().UTC(),
		Status:        domain.RunRunning,
	}
	if err := o.store.AddRun(run); err != nil {
		return nil, Stats{}, fmt.Errorf("recording run start: %w", err)
	}

	o.log.WithFields(logrus.Fields{
		"source1": source1, "source2": source2, "trade_date": run.TradeDateFrom,
	}).Info("starting reconciliation")

	stats, total, err := o.reconcile(ctx, tradeDate, source1, source2)
	o.finalizeRun(run, stats, total, err)

	if updateErr := o.store.UpdateRun(run); updateErr != nil {
		return run, stats, fmt.Errorf("recording run outcome: %w", updateErr)
	}

	o.log.WithFields(logrus.Fields{
		"run_id": run.ID, "status": run.Status, "match_rate": run.MatchRate,
	}).Info("reconciliation complete")

	if o.metrics != nil {
		o.metrics.ObserveRun(string(run.Status), run.Duration, stats.AutoMatched, stats.ManualReview, stats.BreaksBySeverity)
	}

	return run, stats, err
}

func (o *Orchestrator) finalizeRun(run *domain.ReconciliationRun, stats Stats, total int, err error) {
	now := time.Now().UTC()
	run.EndTime = &now
	run.Duration = now.Sub(run.StartTime)
	run.TotalTrades = total
	// Each pair matches one trade from each source, so it counts twice
	// against TotalTrades, which counts trades from both sources.
	run.MatchedTrades = 2 * (stats.AutoMatched + stats.ManualReview)
	run.BreaksIdentified = stats.BreaksIdentified
	run.ManualReviewRequired = stats.ManualReview

	if total > 0 {
		run.MatchRate = float64(run.MatchedTrades) / float64(total)
	}

	if err != nil {
		run.Status = domain.RunFailed
		run.ErrorMessage = err.Error()
		return
	}
	run.Status = domain.RunCompleted
}

// reconcile performs the actual matching pass: normalize, greedily pair,
// derive breaks for matched pairs and for anything left unmatched.
func (o *Orchestrator) reconcile(ctx context.Context, tradeDate time.Time, source1, source2 domain.Source) (Stats, int, error) {
	stats := Stats{BreaksBySeverity: make(map[string]int)}

	trades1, err := o.store.FindUnmatchedTrades(source1, tradeDate)
	if err != nil {
		return stats, 0, fmt.Errorf("fetching unmatched trades for %s: %w", source1, err)
	}
	trades2, err := o.store.FindUnmatchedTrades(source2, tradeDate)
	if err != nil {
		return stats, 0, fmt.Errorf("fetching unmatched trades for %s: %w", source2, err)
	}

	for _, trade := range append(append([]*domain.Trade{}, trades1...), trades2...) {
		o.normalizeFields(trade)
		if err := o.store.UpsertTrade(trade); err != nil {
			return stats, 0, fmt.Errorf("persisting normalized trade: %w", err)
		}
	}

	weights := o.ruleWeights()
	matchedSource2 := make(map[string]bool, len(trades2))

	for _, trade1 := range trades1 {
		if err := ctx.Err(); err != nil {
			return stats, 0, fmt.Errorf("reconciliation cancelled: %w", err)
		}
		candidates := make([]*domain.Trade, 0, len(trades2))
		for _, trade2 := range trades2 {
			if !matchedSource2[trade2.ID] {
				candidates = append(candidates, trade2)
			}
		}

		best, score := o.matcher.FindBestMatch(trade1, candidates, weights, nil)
		if best == nil || score == nil {
			continue
		}

		o.setMatchPair(trade1, best, score.Overall)
		matchedSource2[best.ID] = true

		if score.Confidence == match.ConfidenceAuto {
			stats.AutoMatched++
		} else {
			stats.ManualReview++
		}

		for _, brk := range o.deriver.FieldBreaks(trade1, best, score.Fields) {
			impact := breaks.EstimatePnLImpact(trade1, &brk)
			brk.PnLImpact = &impact
			if err := o.store.AddBreak(&brk); err != nil {
				return stats, 0, fmt.Errorf("recording break: %w", err)
			}
			stats.BreaksIdentified++
			stats.BreaksBySeverity[string(brk.Severity)]++
		}

		if err := o.store.UpsertTrade(trade1); err != nil {
			return stats, 0, fmt.Errorf("persisting matched trade: %w", err)
		}
		if err := o.store.UpsertTrade(best); err != nil {
			return stats, 0, fmt.Errorf("persisting matched trade: %w", err)
		}
	}

	for _, trade1 := range trades1 {
		if trade1.IsMatched {
			continue
		}
		brk := o.deriver.MissingTradeBreak(trade1, source2)
		if err := o.store.AddBreak(&brk); err != nil {
			return stats, 0, fmt.Errorf("recording missing trade break: %w", err)
		}
		stats.UnmatchedSource1++
		stats.BreaksBySeverity[string(brk.Severity)]++
	}
	for _, trade2 := range trades2 {
		if matchedSource2[trade2.ID] {
			continue
		}
		brk := o.deriver.MissingTradeBreak(trade2, source1)
		if err := o.store.AddBreak(&brk); err != nil {
			return stats, 0, fmt.Errorf("recording missing trade break: %w", err)
		}
		stats.UnmatchedSource2++
		stats.BreaksBySeverity[string(brk.Severity)]++
	}

	return stats, len(trades1) + len(trades2), nil
}

// ruleWeights returns the field-weight override from the highest-priority
// active matching rule, or nil (meaning the matcher's defaults) when no
// rule carries one. Rules are an operator-managed override table and are
// inactive in a default deployment.
func (o *Orchestrator) ruleWeights() map[string]float64 {
	rules, err := o.store.ListMatchingRules("")
	if err != nil {
		o.log.WithError(err).Warn("loading matching rules; using default weights")
		return nil
	}
	for _, rule := range rules {
		if len(rule.MatchWeights) > 0 {
			return rule.MatchWeights
		}
	}
	return nil
}

func (o *Orchestrator) normalizeFields(trade *domain.Trade) {
	trade.Symbol = normalize.Symbol(trade.Symbol)
	if trade.Counterparty != "" && trade.CounterpartyNormalized == "" {
		trade.CounterpartyNormalized = normalize.Counterparty(trade.Counterparty)
	}
}

func (o *Orchestrator) setMatchPair(trade1, trade2 *domain.Trade, confidence float64) {
	trade1.IsMatched = true
	trade1.MatchedTradeID = trade2.ID
	trade1.MatchConfidence = confidence

	trade2.IsMatched = true
	trade2.MatchedTradeID = trade1.ID
	trade2.MatchConfidence = confidence
}
