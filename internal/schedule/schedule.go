// Package schedule runs the reconciliation engine on a timer: one daily
// pass per configured source pair, plus a periodic SLA sweep that escalates
// overdue breaks. Connectors, the HTTP surface, and persistence are wired
// in by the caller; this package only owns the ticking.
package schedule

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/engine"
	"github.com/meridianops/trade-recon/internal/ingest"
	"github.com/meridianops/trade-recon/internal/metrics"
	"github.com/meridianops/trade-recon/internal/route"
	"github.com/meridianops/trade-recon/internal/store"
)

// maxConcurrentPairs bounds how many source pairs reconcile at once. Pairs
// sharing a source (e.g. two pairs both reconciling against the OMS) still
// serialize correctly since the store's mutex guards every read and write;
// the cap exists to bound load on the matcher, not for correctness.
const maxConcurrentPairs = 4

// SourcePair is one (source1, source2) reconciliation target run daily.
type SourcePair struct {
	Source1 domain.Source
	Source2 domain.Source
}

// Scheduler owns the reconciliation and SLA-sweep tickers.
type Scheduler struct {
	orchestrator  *engine.Orchestrator
	router        *route.Router
	store         store.Store
	log           *logrus.Logger
	pairs         []SourcePair
	connectors    map[domain.Source]ingest.Connector
	sweepInterval time.Duration
	stop          chan struct{}
	metrics       *metrics.Metrics
}

// New builds a Scheduler. sweepInterval must be positive; a non-positive
// value falls back to 15 minutes at loop start.
// m may be nil, in which case sweep metrics are not recorded. connectors may
// be nil or partial; sources with no configured connector simply never
// ingest as part of the daily pass.
func New(orchestrator *engine.Orchestrator, router *route.Router, st store.Store, log *logrus.Logger, pairs []SourcePair, sweepInterval time.Duration, connectors map[domain.Source]ingest.Connector, m ...*metrics.Metrics) *Scheduler {
	s := &Scheduler{
		orchestrator:  orchestrator,
		router:        router,
		store:         st,
		log:           log,
		pairs:         pairs,
		connectors:    connectors,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
	}
	if len(m) > 0 {
		s.metrics = m[0]
	}
	return s
}

// Stop signals the running loops to exit. Safe to call once.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// RunDailyPass ingests yesterday-through-today trades from every configured
// connector, then runs one reconciliation pass per configured source pair
// for tradeDate, logging but not aborting on a per-pair or per-connector
// failure so one bad source doesn't block the rest.
func (s *Scheduler) RunDailyPass(ctx context.Context, tradeDate time.Time) {
	s.ingestYesterdayThroughToday(ctx, tradeDate)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPairs)

	for _, pair := range s.pairs {
		pair := pair
		g.Go(func() error {
			run, _, err := s.orchestrator.RunReconciliation(gctx, tradeDate, pair.Source1, pair.Source2)
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"source1": pair.Source1, "source2": pair.Source2,
				}).Error("reconciliation pass failed")
				return nil
			}
			s.log.WithFields(logrus.Fields{
				"run_id": run.ID, "breaks": run.BreaksIdentified, "match_rate": run.MatchRate,
			}).Info("daily reconciliation pass complete")
			return nil
		})
	}

	_ = g.Wait()
}

// ingestYesterdayThroughToday connects to each configured connector, fetches
// trades spanning yesterday's midnight through the end of tradeDate's day,
// and persists them. A connector that fails to connect or fetch is logged
// and skipped rather than aborting the run; per-source ingestion yields 0
// rows instead.
func (s *Scheduler) ingestYesterdayThroughToday(ctx context.Context, tradeDate time.Time) {
	todayStart := time.Date(tradeDate.Year(), tradeDate.Month(), tradeDate.Day(), 0, 0, 0, 0, time.UTC)
	from := todayStart.AddDate(0, 0, -1)
	to := todayStart.AddDate(0, 0, 1)

	for source, connector := range s.connectors {
		if err := connector.Connect(ctx); err != nil {
			s.log.WithError(err).WithField("source", source).Warn("daily ingest: connect failed")
			continue
		}

		trades, err := ingest.FetchAndNormalize(ctx, connector, from, to)
		if err != nil {
			s.log.WithError(err).WithField("source", source).Warn("daily ingest: fetch failed")
			_ = connector.Disconnect(ctx)
			continue
		}

		count := 0
		for _, trade := range trades {
			if err := s.store.UpsertTrade(trade); err != nil {
				s.log.WithError(err).WithField("source", source).Warn("daily ingest: persisting trade failed")
				continue
			}
			count++
		}
		_ = connector.Disconnect(ctx)
		s.log.WithFields(logrus.Fields{"source": source, "count": count}).Info("daily ingest complete")
	}
}

// SweepSLABreaches escalates any OPEN or IN_PROGRESS break whose SLA
// deadline has passed.
func (s *Scheduler) SweepSLABreaches(now time.Time) {
	breaks, err := s.store.ListBreaks(store.BreakFilter{})
	if err != nil {
		s.log.WithError(err).Error("sweep: listing breaks failed")
		return
	}

	byID := make(map[string]*domain.TradeBreak, len(breaks))
	for _, brk := range breaks {
		byID[brk.ID] = brk
	}

	escalations := s.router.CheckSLABreaches(breaks, now)
	for _, esc := range escalations {
		brk, ok := byID[esc.BreakID]
		if !ok {
			continue
		}
		if err := s.store.UpdateBreak(brk); err != nil {
			s.log.WithError(err).WithField("break_id", esc.BreakID).Error("sweep: persisting escalation failed")
			continue
		}
	}
	if len(escalations) > 0 {
		s.log.WithField("count", len(escalations)).Warn("sweep escalated overdue breaks")
	}
	if s.metrics != nil {
		s.metrics.ObserveSweepEscalations(len(escalations))
	}
}

// RunDailyLoop runs the daily reconciliation pass immediately, then once
// every 24 hours, until ctx is cancelled or Stop is called.
func (s *Scheduler) RunDailyLoop(ctx context.Context) {
	s.RunDailyPass(ctx, time.Now().UTC())

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.RunDailyPass(ctx, now)
		}
	}
}

// RunSweepLoop runs the SLA sweep immediately, then on the configured
// interval, until ctx is cancelled or Stop is called.
func (s *Scheduler) RunSweepLoop(ctx context.Context) {
	interval := s.sweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s.SweepSLABreaches(time.Now().UTC())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.SweepSLABreaches(now)
		}
	}
}
