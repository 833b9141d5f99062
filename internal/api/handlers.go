package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/engine"
	"github.com/meridianops/trade-recon/internal/errs"
	"github.com/meridianops/trade-recon/internal/ingest"
	"github.com/meridianops/trade-recon/internal/report"
	"github.com/meridianops/trade-recon/internal/store"
)

type ingestionRequest struct {
	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`
}

// runIngestion fetches and normalizes trades from every configured
// connector across [from_date, to_date), returning a per-source count.
// A connector that fails to connect or a transient fetch failure yields 0
// for that source rather than failing the whole request. Sources with no
// configured connector do not appear in the response.
func (h *handlers) runIngestion(w http.ResponseWriter, r *http.Request) {
	var req ingestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding request body: %v", errs.ErrValidation, err))
		return
	}
	if !req.ToDate.After(req.FromDate) {
		writeError(w, fmt.Errorf("%w: to_date must be after from_date", errs.ErrValidation))
		return
	}

	ctx := r.Context()
	counts := make(map[domain.Source]int, len(h.deps.Connectors))
	for source, connector := range h.deps.Connectors {
		counts[source] = h.ingestOne(ctx, connector, req.FromDate, req.ToDate)
	}

	writeJSON(w, http.StatusOK, counts)
}

func (h *handlers) ingestOne(ctx context.Context, connector ingest.Connector, from, to time.Time) int {
	if err := connector.Connect(ctx); err != nil {
		h.deps.Log.WithError(err).WithField("source", connector.Source()).Warn("ingestion: connect failed")
		return 0
	}
	defer func() { _ = connector.Disconnect(ctx) }()

	trades, err := ingest.FetchAndNormalize(ctx, connector, from, to)
	if err != nil {
		h.deps.Log.WithError(err).WithField("source", connector.Source()).Warn("ingestion: fetch failed")
		return 0
	}

	count := 0
	for _, trade := range trades {
		if err := h.deps.Store.UpsertTrade(trade); err != nil {
			h.deps.Log.WithError(err).WithField("source", connector.Source()).Warn("ingestion: persisting trade failed")
			continue
		}
		count++
	}
	return count
}

type reconciliationRequest struct {
	TradeDate time.Time     `json:"trade_date"`
	Source1   domain.Source `json:"source1"`
	Source2   domain.Source `json:"source2"`
}

// reconciliationResponse is the run's stats payload plus the audit record
// identifiers a caller needs to follow up on the pass.
type reconciliationResponse struct {
	RunID     string           `json:"run_id"`
	Status    domain.RunStatus `json:"status"`
	MatchRate float64          `json:"match_rate"`
	engine.Stats
}

func (h *handlers) runReconciliation(w http.ResponseWriter, r *http.Request) {
	var req reconciliationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding request body: %v", errs.ErrValidation, err))
		return
	}

	run, stats, err := h.deps.Orchestrator.RunReconciliation(r.Context(), req.TradeDate, req.Source1, req.Source2)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reconciliationResponse{
		RunID:     run.ID,
		Status:    run.Status,
		MatchRate: run.MatchRate,
		Stats:     stats,
	})
}

func (h *handlers) routeException(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	brk, err := h.deps.Store.GetBreak(id)
	if err != nil {
		writeError(w, err)
		return
	}

	assignment, err := h.deps.Router.RouteException(brk)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Store.UpdateBreak(brk); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

func (h *handlers) autoRemediate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	brk, err := h.deps.Store.GetBreak(id)
	if err != nil {
		writeError(w, err)
		return
	}

	suggestion := h.deps.Remediator.SuggestAction(brk)
	applied := false
	if suggestion.AutoExecutable {
		applied = h.deps.Remediator.ApplyAction(brk, suggestion.Action, "api")
		if applied {
			if err := h.deps.Store.UpdateBreak(brk); err != nil {
				writeError(w, err)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"break_id":   id,
		"suggestion": suggestion,
		"applied":    applied,
	})
}

func (h *handlers) overdueExceptions(w http.ResponseWriter, r *http.Request) {
	breaks, err := h.deps.Store.ListBreaks(store.BreakFilter{})
	if err != nil {
		writeError(w, err)
		return
	}

	byID := make(map[string]*domain.TradeBreak, len(breaks))
	for _, brk := range breaks {
		byID[brk.ID] = brk
	}

	escalations := h.deps.Router.CheckSLABreaches(breaks, time.Now().UTC())
	for _, esc := range escalations {
		brk, ok := byID[esc.BreakID]
		if !ok {
			continue
		}
		if err := h.deps.Store.UpdateBreak(brk); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, escalations)
}

func (h *handlers) openBreaks(w http.ResponseWriter, r *http.Request) {
	open, err := h.deps.Store.ListBreaks(store.BreakFilter{Status: domain.BreakOpen})
	if err != nil {
		writeError(w, err)
		return
	}
	inProgress, err := h.deps.Store.ListBreaks(store.BreakFilter{Status: domain.BreakInProgress})
	if err != nil {
		writeError(w, err)
		return
	}
	escalated, err := h.deps.Store.ListBreaks(store.BreakFilter{Status: domain.BreakEscalated})
	if err != nil {
		writeError(w, err)
		return
	}

	all := append(append(open, inProgress...), escalated...)
	sortBreaksByCreatedDesc(all)
	writeJSON(w, http.StatusOK, all)
}

func sortBreaksByCreatedDesc(breaks []*domain.TradeBreak) {
	for i := 1; i < len(breaks); i++ {
		for j := i; j > 0 && breaks[j-1].CreatedAt.Before(breaks[j].CreatedAt); j-- {
			breaks[j-1], breaks[j] = breaks[j], breaks[j-1]
		}
	}
}

func (h *handlers) reportSummary(w http.ResponseWriter, r *http.Request) {
	trades, err := h.allTrades()
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := report.New(h.deps.Store).Summary(trades)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) reportAging(w http.ResponseWriter, r *http.Request) {
	aging, err := report.New(h.deps.Store).Aging(time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aging)
}

func (h *handlers) reportRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := report.New(h.deps.Store).RunHistory(20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handlers) reportRootCause(w http.ResponseWriter, r *http.Request) {
	rootCause, err := report.New(h.deps.Store).RootCause(10)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rootCause)
}

type predictionRequest struct {
	Trade domain.Trade `json:"trade"`
}

func (h *handlers) predictionScore(w http.ResponseWriter, r *http.Request) {
	if h.deps.Predictor == nil {
		writeError(w, errs.ErrModelUnavailable)
		return
	}

	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding request body: %v", errs.ErrValidation, err))
		return
	}

	trades, err := h.allTrades()
	if err != nil {
		writeError(w, err)
		return
	}
	rates, err := report.New(h.deps.Store).BreakRates(trades)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.deps.Predictor.Predict(&req.Trade, &rates)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Trade.ID != "" {
		prediction := result.ToDomainPrediction(req.Trade.ID)
		if err := h.deps.Store.AddPrediction(&prediction); err != nil {
			h.deps.Log.WithError(err).WithField("trade_id", req.Trade.ID).Warn("recording prediction failed")
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) tradesCount(w http.ResponseWriter, r *http.Request) {
	trades, err := h.allTrades()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(trades)})
}

// allTrades returns every persisted trade, matched or not, for reporting
// and prediction endpoints that need the full population rather than a
// single source/day slice.
func (h *handlers) allTrades() ([]*domain.Trade, error) {
	return h.deps.Store.AllTrades()
}
