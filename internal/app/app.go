// Package app assembles the reconciliation engine's components from a
// loaded config.Config into a ready-to-run App: store, matcher, deriver,
// orchestrator, router, remediator, predictor, and scheduler.
package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/meridianops/trade-recon/internal/api"
	"github.com/meridianops/trade-recon/internal/breaks"
	"github.com/meridianops/trade-recon/internal/config"
	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/engine"
	"github.com/meridianops/trade-recon/internal/ingest"
	"github.com/meridianops/trade-recon/internal/match"
	"github.com/meridianops/trade-recon/internal/metrics"
	"github.com/meridianops/trade-recon/internal/notify"
	"github.com/meridianops/trade-recon/internal/predict"
	"github.com/meridianops/trade-recon/internal/remediate"
	"github.com/meridianops/trade-recon/internal/route"
	"github.com/meridianops/trade-recon/internal/schedule"
	"github.com/meridianops/trade-recon/internal/store"
)

// App holds every wired component a cmd/reconctl subcommand needs.
type App struct {
	Config       *config.Config
	Store        store.Store
	Matcher      *match.Matcher
	Deriver      *breaks.Deriver
	Orchestrator *engine.Orchestrator
	Router       *route.Router
	Remediator   *remediate.Remediator
	Predictor    *predict.Predictor
	Metrics      *metrics.Metrics
	Scheduler    *schedule.Scheduler
	Connectors   map[domain.Source]ingest.Connector
	Log          *logrus.Logger
}

// Build wires an App from cfg. connectors may be nil or partial; sources
// with no configured connector simply never ingest.
func Build(cfg *config.Config, connectors map[domain.Source]ingest.Connector) (*App, error) {
	log := newLogger(cfg)

	st, err := store.New(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	matcher := match.New(
		cfg.Matching.AutoMatchThreshold,
		cfg.Matching.ManualReviewThreshold,
		cfg.Matching.PriceTolerancePct,
		cfg.Matching.QuantityTolerance,
	)
	deriver := breaks.New(breaks.SLAMinutes{
		Critical: cfg.SLA.CriticalMinutes,
		High:     cfg.SLA.HighMinutes,
		Low:      cfg.SLA.LowMinutes,
	})

	m := metrics.New()
	orchestrator := engine.New(st, matcher, deriver, log, m)

	var notifier route.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookSink(cfg.Notify.WebhookURL, log)
	} else {
		notifier = notify.NewLoggingSink(log)
	}
	router := route.New(notifier, log)

	remediator := remediate.New()

	var predictor *predict.Predictor
	if cfg.Model.ArtifactPath != "" {
		artifact, err := predict.LoadArtifact(cfg.Model.ArtifactPath)
		if err != nil {
			log.WithError(err).Warn("model artifact unavailable; prediction endpoint will report not-found")
		} else {
			predictor = predict.New(artifact)
		}
	}

	wrapped := make(map[domain.Source]ingest.Connector, len(connectors))
	for source, connector := range connectors {
		wrapped[source] = ingest.NewResilient(connector, log, cfg.GetBrokerTimeout())
	}

	pairs := defaultSourcePairs(wrapped)
	sched := schedule.New(orchestrator, router, st, log, pairs, cfg.GetSweepInterval(), wrapped, m)

	return &App{
		Config:       cfg,
		Store:        st,
		Matcher:      matcher,
		Deriver:      deriver,
		Orchestrator: orchestrator,
		Router:       router,
		Remediator:   remediator,
		Predictor:    predictor,
		Metrics:      m,
		Scheduler:    sched,
		Connectors:   wrapped,
		Log:          log,
	}, nil
}

// APIDependencies builds the api.Dependencies this app's components satisfy.
func (a *App) APIDependencies() api.Dependencies {
	return api.Dependencies{
		Store:        a.Store,
		Orchestrator: a.Orchestrator,
		Router:       a.Router,
		Remediator:   a.Remediator,
		Predictor:    a.Predictor,
		Metrics:      a.Metrics,
		Connectors:   a.Connectors,
		Environment:  a.Config.Environment.Mode,
		Log:          a.Log,
	}
}

// defaultSourcePairs reconciles every configured source against the OMS,
// the system of record for trade economics, skipping the OMS-OMS no-op.
func defaultSourcePairs(connectors map[domain.Source]ingest.Connector) []schedule.SourcePair {
	var pairs []schedule.SourcePair
	for source := range connectors {
		if source == domain.SourceOMS {
			continue
		}
		pairs = append(pairs, schedule.SourcePair{Source1: domain.SourceOMS, Source2: source})
	}
	return pairs
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Environment.Mode == "live" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithError(err).Warn("invalid log level; defaulting to info")
	}
	return log
}
