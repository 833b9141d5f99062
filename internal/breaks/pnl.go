package breaks

import "github.com/meridianops/trade-recon/internal/domain"

// optionsMultiplier is the standard per-contract share multiplier used
// throughout P&L estimates; most equity and options conventions price a
// variance in shares/contracts against a 100-unit lot.
const optionsMultiplier = 100.0

// EstimatePnLImpact approximates the dollar exposure of a break as its
// variance times the trade's quantity times the standard lot multiplier.
// No upstream system supplies a pnl_impact figure, so this estimate is
// computed immediately after deriving a break and attached before routing,
// letting the high-pnl-impact routing rule fire.
func EstimatePnLImpact(trade *domain.Trade, brk *domain.TradeBreak) float64 {
	if brk.Variance == nil {
		return 0
	}
	return *brk.Variance * trade.Quantity * optionsMultiplier
}
