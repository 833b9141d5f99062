// Package remediate suggests and, for low-risk cases, applies automatic
// fixes for trade breaks without a human in the loop.
package remediate

import (
	"time"

	"github.com/meridianops/trade-recon/internal/domain"
)

// minorPriceVariancePct is the variance_pct ceiling under which a price
// break is considered rounding noise rather than a real economic mismatch.
const minorPriceVariancePct = 0.1

// Action names applied to breaks, matched against in ApplyAction.
const (
	ActionRequestResend         = "request_missing_trade_resend"
	ActionNormalizeCounterparty = "normalize_counterparty_alias"
	ActionAcceptMinorPriceRound = "accept_minor_price_rounding"
	ActionManualInvestigation   = "manual_investigation"
)

// Suggestion is a proposed remediation for a break.
type Suggestion struct {
	Action         string
	AutoExecutable bool
	Reason         string
}

// Remediator proposes and applies safe, automatic break resolutions.
type Remediator struct{}

// New builds a Remediator.
func New() *Remediator {
	return &Remediator{}
}

// SuggestAction proposes a remediation for brk without applying it. Only
// counterparty-naming drift and sub-tolerance price rounding are ever
// marked auto-executable; anything else needs a human.
func (r *Remediator) SuggestAction(brk *domain.TradeBreak) Suggestion {
	switch {
	case brk.BreakType == domain.MissingTradeBreakType:
		return Suggestion{
			Action:         ActionRequestResend,
			AutoExecutable: false,
			Reason:         "requires external source confirmation",
		}
	case brk.BreakType == "counterparty_mismatch":
		return Suggestion{
			Action:         ActionNormalizeCounterparty,
			AutoExecutable: true,
			Reason:         "likely naming standardization issue",
		}
	case brk.BreakType == "price_mismatch" && brk.VariancePct != nil && *brk.VariancePct < minorPriceVariancePct:
		return Suggestion{
			Action:         ActionAcceptMinorPriceRound,
			AutoExecutable: true,
			Reason:         "within acceptable micro-tolerance",
		}
	default:
		return Suggestion{
			Action:         ActionManualInvestigation,
			AutoExecutable: false,
			Reason:         "no safe automated path",
		}
	}
}

// ApplyAction mutates brk to reflect the outcome of an auto-executable
// action. It reports false for any action it does not recognize as safe to
// apply without human review, leaving brk untouched.
func (r *Remediator) ApplyAction(brk *domain.TradeBreak, action, actor string) bool {
	if actor == "" {
		actor = "system"
	}

	switch action {
	case ActionAcceptMinorPriceRound:
		now := time.Now().UTC()
		brk.Status = domain.BreakResolved
		brk.ResolutionAction = action
		brk.ResolutionNotes = "automatically accepted minor price variance"
		brk.ResolvedBy = actor
		brk.ResolvedAt = &now
		return true
	case ActionNormalizeCounterparty:
		brk.Status = domain.BreakInProgress
		brk.ResolutionAction = action
		brk.ResolutionNotes = "alias normalization queued for reference data update"
		return true
	default:
		return false
	}
}
