// Package main provides the reconciliation engine's command-line entry
// point: run an ad hoc pass, sweep SLA breaches, seed fixture data, or
// serve the HTTP API and background schedulers.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianops/trade-recon/internal/api"
	"github.com/meridianops/trade-recon/internal/app"
	"github.com/meridianops/trade-recon/internal/config"
	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/ingest"
)

var configPath string

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

var rootCmd = &cobra.Command{
	Use:   "reconctl",
	Short: "Operate the trade reconciliation engine",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(runCmd, sweepCmd, seedCmd, serveCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <source1> <source2> [trade_date]",
	Short: "Run one reconciliation pass between two sources",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		tradeDate := time.Now().UTC()
		if len(args) == 3 {
			tradeDate, err = time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("parsing trade_date %q: %w", args[2], err)
			}
		}

		runResult, _, err := a.Orchestrator.RunReconciliation(cmd.Context(), tradeDate, domain.Source(args[0]), domain.Source(args[1]))
		if err != nil {
			return err
		}
		a.Log.WithField("run_id", runResult.ID).Infof(
			"reconciliation complete: %d trades, %d breaks, match_rate=%.2f%%",
			runResult.TotalTrades, runResult.BreaksIdentified, runResult.MatchRate*100,
		)
		return a.Store.Save()
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Escalate any break whose SLA deadline has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		a.Scheduler.SweepSLABreaches(time.Now().UTC())
		return a.Store.Save()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load fixture trades for local runs and demos",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		fixtures := defaultFixtures()
		ctx := cmd.Context()
		for source, connector := range fixtures {
			trades, err := ingest.FetchAndNormalize(ctx, connector, time.Unix(0, 0), time.Now().UTC().AddDate(1, 0, 0))
			if err != nil {
				return fmt.Errorf("seeding %s: %w", source, err)
			}
			for _, trade := range trades {
				if err := a.Store.UpsertTrade(trade); err != nil {
					return fmt.Errorf("persisting seed trade for %s: %w", source, err)
				}
			}
			a.Log.WithFields(map[string]any{"source": source, "count": len(trades)}).Info("seeded fixture trades")
		}
		return a.Store.Save()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the background schedulers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			a.Log.Info("shutdown signal received")
			a.Scheduler.Stop()
			cancel()
		}()

		go a.Scheduler.RunDailyLoop(ctx)
		go a.Scheduler.RunSweepLoop(ctx)

		if !a.Config.API.Enabled {
			<-ctx.Done()
			return a.Store.Save()
		}

		handler := api.New(a.APIDependencies(), a.Config.API.Prefix)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.Config.API.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErrCh := make(chan error, 1)
		go func() {
			a.Log.WithField("port", a.Config.API.Port).Info("starting HTTP API")
			serveErrCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
		case err := <-serveErrCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Log.WithError(err).Error("error shutting down HTTP server")
		}
		return a.Store.Save()
	},
}

func buildApp() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return app.Build(cfg, defaultFixtures())
}

// defaultFixtures stands in for real OMS/custodian/prime-broker connectors,
// which a production deployment would supply from internal/ingest.
func defaultFixtures() map[domain.Source]ingest.Connector {
	return map[domain.Source]ingest.Connector{
		domain.SourceOMS:       ingest.NewFixtureConnector(domain.SourceOMS, nil),
		domain.SourceCustodian: ingest.NewFixtureConnector(domain.SourceCustodian, nil),
	}
}
