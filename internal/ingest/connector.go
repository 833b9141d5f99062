// Package ingest defines the contract source connectors implement and a
// resilience wrapper (circuit breaker plus retry) applied uniformly around
// any connector implementation.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/errs"
)

// requiredFields is the minimal set of fields a raw trade must carry before
// it can be normalized into a domain.Trade; anything missing is rejected at
// the ingestion boundary rather than surfacing as a confusing downstream
// break.
var requiredFields = []string{
	"trade_date", "symbol", "quantity", "price", "side", "source_trade_id", "source_system",
}

// RawTrade is the connector-specific payload before normalization, keyed by
// the same field names requiredFields checks.
type RawTrade map[string]any

// Connector fetches and normalizes trades from one upstream source. A
// production deployment supplies connectors for the OMS, custodian, prime
// broker, and exchange feeds; this package only defines the contract, a
// fixture implementation used for local runs and tests, and the Resilient
// wrapper.
type Connector interface {
	// Source identifies which system this connector reads from.
	Source() domain.Source
	// Connect establishes or verifies connectivity to the source system.
	Connect(ctx context.Context) error
	// FetchTrades retrieves raw trades in [from, to).
	FetchTrades(ctx context.Context, from, to time.Time) ([]RawTrade, error)
	// NormalizeTrade converts one raw trade into the unified schema.
	NormalizeTrade(raw RawTrade) (*domain.Trade, error)
	// Disconnect releases any connector resources. Optional cleanup; most
	// connectors no-op here.
	Disconnect(ctx context.Context) error
}

// ValidateTrade reports whether raw carries every field the normalizer
// needs before it is safe to normalize.
func ValidateTrade(raw RawTrade) bool {
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return false
		}
	}
	return true
}

// FetchAndNormalize fetches trades in [from, to) and normalizes each. A raw
// trade missing required fields or failing normalization is skipped; only a
// fetch failure fails the batch.
func FetchAndNormalize(ctx context.Context, c Connector, from, to time.Time) ([]*domain.Trade, error) {
	raws, err := c.FetchTrades(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching trades from %s: %v", errs.ErrTransientExternal, c.Source(), err)
	}

	trades := make([]*domain.Trade, 0, len(raws))
	for _, raw := range raws {
		if !ValidateTrade(raw) {
			continue
		}
		trade, err := c.NormalizeTrade(raw)
		if err != nil {
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}
