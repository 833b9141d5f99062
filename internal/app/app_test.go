package app

import (
	"path/filepath"
	"testing"

	"github.com/meridianops/trade-recon/internal/config"
	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/ingest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "..", "config.yaml.example"))
	if err != nil {
		t.Fatalf("loading example config: %v", err)
	}
	cfg.Storage.DSN = ""
	cfg.Model.ArtifactPath = ""
	return cfg
}

func TestBuild_WiresEveryComponent(t *testing.T) {
	cfg := testConfig(t)
	connectors := map[domain.Source]ingest.Connector{
		domain.SourceOMS:       ingest.NewFixtureConnector(domain.SourceOMS, nil),
		domain.SourceCustodian: ingest.NewFixtureConnector(domain.SourceCustodian, nil),
	}

	a, err := Build(cfg, connectors)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if a.Store == nil || a.Matcher == nil || a.Deriver == nil || a.Orchestrator == nil ||
		a.Router == nil || a.Remediator == nil || a.Metrics == nil || a.Scheduler == nil || a.Log == nil {
		t.Fatal("expected every non-optional component to be wired")
	}
	if a.Predictor != nil {
		t.Error("expected nil predictor when model.artifact_path is empty")
	}
}

func TestBuild_MissingArtifactDegradesGracefully(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.ArtifactPath = "does-not-exist.json"

	a, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if a.Predictor != nil {
		t.Error("expected nil predictor when the artifact path cannot be read")
	}
}

func TestAPIDependencies_CarriesEnvironmentAndComponents(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	deps := a.APIDependencies()
	if deps.Environment != cfg.Environment.Mode {
		t.Errorf("expected environment %q, got %q", cfg.Environment.Mode, deps.Environment)
	}
	if deps.Store != a.Store || deps.Orchestrator != a.Orchestrator || deps.Router != a.Router {
		t.Error("expected APIDependencies to reference the same wired components")
	}
}

func TestDefaultSourcePairs_SkipsOMSAndPairsEveryOtherSource(t *testing.T) {
	connectors := map[domain.Source]ingest.Connector{
		domain.SourceOMS:         ingest.NewFixtureConnector(domain.SourceOMS, nil),
		domain.SourceCustodian:   ingest.NewFixtureConnector(domain.SourceCustodian, nil),
		domain.SourcePrimeBroker: ingest.NewFixtureConnector(domain.SourcePrimeBroker, nil),
	}

	pairs := defaultSourcePairs(connectors)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(pairs), pairs)
	}
	for _, pair := range pairs {
		if pair.Source1 != domain.SourceOMS {
			t.Errorf("expected every pair to reconcile against the OMS, got %+v", pair)
		}
		if pair.Source2 == domain.SourceOMS {
			t.Error("did not expect an OMS-OMS pair")
		}
	}
}
