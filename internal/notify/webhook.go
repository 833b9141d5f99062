package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/retryx"
)

// webhookPayload is the JSON body posted to the configured URL.
type webhookPayload struct {
	BreakID   string               `json:"break_id"`
	BreakType string               `json:"break_type"`
	Severity  domain.BreakSeverity `json:"severity"`
	Assignee  string               `json:"assignee"`
}

// WebhookSink posts routing notifications to an HTTP endpoint, guarded by a
// circuit breaker and retry. Delivery is synchronous: a call blocks the
// router for up to the retry timeout (20s), and fails fast once five
// consecutive failures have opened the breaker.
type WebhookSink struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   *retryx.Client
	log     *logrus.Logger
}

// NewWebhookSink builds a WebhookSink posting to url.
func NewWebhookSink(url string, log *logrus.Logger) *WebhookSink {
	settings := gobreaker.Settings{
		Name:    "notify-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from, "to": to}).Warn("circuit breaker state change")
		},
	}
	return &WebhookSink{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   retryx.NewClient(log, retryx.Config{MaxRetries: 2, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 5 * time.Second, Timeout: 20 * time.Second}),
		log:     log,
	}
}

// NotifyRouted posts the routing event to the configured webhook URL.
func (s *WebhookSink) NotifyRouted(brk *domain.TradeBreak, assignee string) error {
	body, err := json.Marshal(webhookPayload{
		BreakID:   brk.ID,
		BreakType: brk.BreakType,
		Severity:  brk.Severity,
		Assignee:  assignee,
	})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.retry.Do(context.Background(), "notify_webhook", func(ctx context.Context) error {
			return s.post(ctx, body)
		})
	})
	return err
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Sink = (*WebhookSink)(nil)
