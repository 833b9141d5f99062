package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/retryx"
)

// Resilient wraps a Connector with a circuit breaker and retry-with-backoff,
// so a flaky or down source system degrades into fast failures instead of
// hanging every reconciliation run waiting on it.
type Resilient struct {
	inner   Connector
	breaker *gobreaker.CircuitBreaker
	retry   *retryx.Client
}

// NewResilient builds a Resilient connector around inner. The circuit opens
// after 5 consecutive failures and probes again after 30 seconds. timeout
// caps each fetch/connect attempt, retries included; a non-positive timeout
// keeps the retry client's default.
func NewResilient(inner Connector, log *logrus.Logger, timeout time.Duration) *Resilient {
	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("ingest-%s", inner.Source()),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from, "to": to}).Warn("circuit breaker state change")
		},
	}

	retryCfg := retryx.DefaultConfig
	if timeout > 0 {
		retryCfg.Timeout = timeout
	}
	return &Resilient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   retryx.NewClient(log, retryCfg),
	}
}

// Source delegates to the wrapped connector.
func (r *Resilient) Source() domain.Source { return r.inner.Source() }

// Connect retries transient connection failures behind the circuit breaker.
func (r *Resilient) Connect(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.retry.Do(ctx, "connect", r.inner.Connect)
	})
	return err
}

// FetchTrades retries transient fetch failures behind the circuit breaker.
func (r *Resilient) FetchTrades(ctx context.Context, from, to time.Time) ([]RawTrade, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		var trades []RawTrade
		err := r.retry.Do(ctx, "fetch_trades", func(ctx context.Context) error {
			fetched, err := r.inner.FetchTrades(ctx, from, to)
			if err != nil {
				return err
			}
			trades = fetched
			return nil
		})
		return trades, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]RawTrade), nil
}

// NormalizeTrade delegates to the wrapped connector; normalization failures
// are a data-quality issue rather than a transient connectivity one, so
// neither the breaker nor the retrier gets involved.
func (r *Resilient) NormalizeTrade(raw RawTrade) (*domain.Trade, error) {
	return r.inner.NormalizeTrade(raw)
}

// Disconnect delegates to the wrapped connector.
func (r *Resilient) Disconnect(ctx context.Context) error {
	return r.inner.Disconnect(ctx)
}

var _ Connector = (*Resilient)(nil)
