// Package notify delivers break-routing and escalation events to whatever
// sink operations actually watches (chat, email, paging). This package
// defines the interface, a logging implementation suitable for local runs
// and tests, and a generic HTTP webhook sink.
package notify

import (
	"github.com/sirupsen/logrus"

	"github.com/meridianops/trade-recon/internal/domain"
)

// Sink delivers a routing notification to an assignee. Implemented by
// internal/route.Notifier's consumers (a Slack webhook, a paging system,
// email); the logging sink below is the default.
type Sink interface {
	NotifyRouted(brk *domain.TradeBreak, assignee string) error
}

// LoggingSink records routing notifications via structured logging. This
// is the Sink used when no external notification channel is configured.
type LoggingSink struct {
	log *logrus.Logger
}

// NewLoggingSink builds a LoggingSink writing through log.
func NewLoggingSink(log *logrus.Logger) *LoggingSink {
	return &LoggingSink{log: log}
}

// NotifyRouted logs that a break was routed to assignee.
func (s *LoggingSink) NotifyRouted(brk *domain.TradeBreak, assignee string) error {
	s.log.WithFields(logrus.Fields{
		"break_id":   brk.ID,
		"break_type": brk.BreakType,
		"severity":   brk.Severity,
		"assignee":   assignee,
	}).Info("notification sent for routed break")
	return nil
}

var _ Sink = (*LoggingSink)(nil)
