// Package retryx retries transient failures from external trade feeds and
// notification sinks with exponential backoff and jitter.
package retryx

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config controls the backoff schedule.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultConfig provides sensible defaults for retrying external calls.
var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// Client retries an operation with exponential backoff, only for errors it
// classifies as transient.
type Client struct {
	log    *logrus.Logger
	config Config
}

// NewClient builds a Client with the given config (DefaultConfig when
// omitted), sanitizing a negative MaxRetries and any non-positive duration
// back to their defaults. MaxRetries of 0 is kept and means a single attempt.
func NewClient(log *logrus.Logger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	return &Client{log: log, config: cfg}
}

// Do runs op, retrying on transient errors with exponential backoff and
// jitter, up to MaxRetries additional attempts or until ctx/the overall
// timeout expires.
func (c *Client) Do(ctx context.Context, label string, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if callCtx.Err() != nil {
			return fmt.Errorf("%s timed out after %v: %w", label, c.config.Timeout, callCtx.Err())
		}

		err := op(callCtx)
		if err == nil {
			return nil
		}

		lastErr = err
		c.log.WithError(err).WithFields(logrus.Fields{"operation": label, "attempt": attempt + 1}).Warn("attempt failed")

		if !isTransientError(err) || attempt >= c.config.MaxRetries {
			break
		}

		c.log.WithFields(logrus.Fields{"operation": label, "backoff": backoff}).Debug("retrying after transient error")
		select {
		case <-time.After(backoff):
			backoff = c.nextBackoff(backoff)
		case <-callCtx.Done():
			return fmt.Errorf("%s timed out during backoff: %w", label, callCtx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", label, c.config.MaxRetries+1, lastErr)
}

func (c *Client) nextBackoff(current time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			c.log.WithError(err).Warn("failed to generate backoff jitter")
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}
	return backoff
}

var transientPatterns = []string{
	"timeout",
	"i/o timeout",
	"connection refused",
	"connection reset",
	"temporary failure",
	"temporarily unavailable",
	"server error",
	"rate limit",
	"429",
	"502",
	"503",
	"504",
	"network",
	"dns",
	"tcp",
	"no such host",
	"deadline exceeded",
	"tls handshake",
	"broken pipe",
	"eof",
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
