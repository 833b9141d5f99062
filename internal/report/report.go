// Package report aggregates persisted trades, breaks, and runs into the
// summary, aging, run-history, and root-cause views the reporting
// endpoints serve. It reads the store; it never mutates it.
package report

import (
	"sort"
	"time"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/feature"
	"github.com/meridianops/trade-recon/internal/store"
)

// openStatuses are the break statuses still awaiting resolution.
var openStatuses = map[domain.BreakStatus]bool{
	domain.BreakOpen:       true,
	domain.BreakInProgress: true,
	domain.BreakEscalated:  true,
}

// Summary is the top-level reconciliation health snapshot.
type Summary struct {
	Timestamp      time.Time `json:"timestamp"`
	TotalTrades    int       `json:"total_trades"`
	TotalBreaks    int       `json:"total_breaks"`
	OpenBreaks     int       `json:"open_breaks"`
	ResolvedBreaks int       `json:"resolved_breaks"`
	MatchRate      float64   `json:"match_rate"`
}

// AgingEntry reports how long one still-open break has been outstanding.
type AgingEntry struct {
	BreakID     string               `json:"break_id"`
	BreakType   string               `json:"break_type"`
	Status      domain.BreakStatus   `json:"status"`
	Severity    domain.BreakSeverity `json:"severity"`
	AssignedTo  string               `json:"assigned_to"`
	AgeHours    float64              `json:"age_hours"`
	SLADeadline *time.Time           `json:"sla_deadline,omitempty"`
}

// RunSummary is one row of the run-history report.
type RunSummary struct {
	ID               string           `json:"id"`
	RunDate          time.Time        `json:"run_date"`
	Status           domain.RunStatus `json:"status"`
	TotalTrades      int              `json:"total_trades"`
	MatchedTrades    int              `json:"matched_trades"`
	BreaksIdentified int              `json:"breaks_identified"`
	MatchRate        float64          `json:"match_rate"`
	DurationSeconds  float64          `json:"duration_seconds"`
	ErrorMessage     string           `json:"error_message,omitempty"`
}

// Count pairs a label (break type, field name, or assignee) with how many
// breaks it appeared on.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RootCause is the pattern-mining rollup over every persisted break.
type RootCause struct {
	TopBreakTypes []Count `json:"top_break_types"`
	TopFields     []Count `json:"top_fields"`
	TopAssignees  []Count `json:"top_assignees"`
}

// Aggregator reads store state into reporting views.
type Aggregator struct {
	store store.Store
}

// New builds an Aggregator over st.
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Summary returns the top-level counts and current match rate. Match rate
// is computed over all persisted trades, not scoped to a single run.
func (a *Aggregator) Summary(allTrades []*domain.Trade) (Summary, error) {
	breaks, err := a.store.ListBreaks(store.BreakFilter{})
	if err != nil {
		return Summary{}, err
	}

	var openCount, resolvedCount int
	for _, brk := range breaks {
		if openStatuses[brk.Status] {
			openCount++
		}
		if brk.Status == domain.BreakResolved {
			resolvedCount++
		}
	}

	var matched int
	for _, trade := range allTrades {
		if trade.IsMatched {
			matched++
		}
	}

	var matchRate float64
	if len(allTrades) > 0 {
		matchRate = float64(matched) / float64(len(allTrades))
	}

	return Summary{
		Timestamp:      time.Now().UTC(),
		TotalTrades:    len(allTrades),
		TotalBreaks:    len(breaks),
		OpenBreaks:     openCount,
		ResolvedBreaks: resolvedCount,
		MatchRate:      matchRate,
	}, nil
}

// Aging reports the age in hours of every still-open break, oldest first.
func (a *Aggregator) Aging(now time.Time) ([]AgingEntry, error) {
	breaks, err := a.store.ListBreaks(store.BreakFilter{})
	if err != nil {
		return nil, err
	}

	var out []AgingEntry
	for _, brk := range breaks {
		if !openStatuses[brk.Status] {
			continue
		}
		entry := AgingEntry{
			BreakID:    brk.ID,
			BreakType:  brk.BreakType,
			Status:     brk.Status,
			Severity:   brk.Severity,
			AssignedTo: brk.AssignedTo,
			AgeHours:   now.Sub(brk.CreatedAt).Hours(),
		}
		if !brk.SLADeadline.IsZero() {
			deadline := brk.SLADeadline
			entry.SLADeadline = &deadline
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgeHours > out[j].AgeHours })
	return out, nil
}

// RunHistory returns the most recent runs, newest first, capped at limit.
func (a *Aggregator) RunHistory(limit int) ([]RunSummary, error) {
	runs, err := a.store.ListRuns(limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunSummary{
			ID:               run.ID,
			RunDate:          run.RunDate,
			Status:           run.Status,
			TotalTrades:      run.TotalTrades,
			MatchedTrades:    run.MatchedTrades,
			BreaksIdentified: run.BreaksIdentified,
			MatchRate:        run.MatchRate,
			DurationSeconds:  run.Duration.Seconds(),
			ErrorMessage:     run.ErrorMessage,
		})
	}
	return out, nil
}

// RootCause mines the full break population for the most common break
// types, mismatched fields, and assignees, each ranked highest-count first.
func (a *Aggregator) RootCause(limit int) (RootCause, error) {
	breaks, err := a.store.ListBreaks(store.BreakFilter{})
	if err != nil {
		return RootCause{}, err
	}
	if len(breaks) == 0 {
		return RootCause{}, nil
	}

	typeCounts := map[string]int{}
	fieldCounts := map[string]int{}
	assigneeCounts := map[string]int{}
	for _, brk := range breaks {
		if brk.BreakType != "" {
			typeCounts[brk.BreakType]++
		}
		if brk.FieldName != "" {
			fieldCounts[brk.FieldName]++
		}
		if brk.AssignedTo != "" {
			assigneeCounts[brk.AssignedTo]++
		}
	}

	return RootCause{
		TopBreakTypes: mostCommon(typeCounts, limit),
		TopFields:     mostCommon(fieldCounts, limit),
		TopAssignees:  mostCommon(assigneeCounts, limit),
	}, nil
}

// BreakRates computes the historical break rate per source system and per
// counterparty over allTrades, for use as feature.HistoricalRates input to
// the break-risk predictor. A trade counts toward the numerator if it is
// the primary trade (TradeID) of any break; being only a break's
// MatchedTradeID does not count.
func (a *Aggregator) BreakRates(allTrades []*domain.Trade) (feature.HistoricalRates, error) {
	breaks, err := a.store.ListBreaks(store.BreakFilter{})
	if err != nil {
		return feature.HistoricalRates{}, err
	}

	brokenTradeIDs := make(map[string]bool, len(breaks))
	for _, brk := range breaks {
		brokenTradeIDs[brk.TradeID] = true
	}

	sourceTotal := map[domain.Source]int{}
	sourceBroken := map[domain.Source]int{}
	cpTotal := map[string]int{}
	cpBroken := map[string]int{}

	for _, trade := range allTrades {
		sourceTotal[trade.SourceSystem]++
		if brokenTradeIDs[trade.ID] {
			sourceBroken[trade.SourceSystem]++
		}
		if trade.Counterparty == "" {
			continue
		}
		cpTotal[trade.Counterparty]++
		if brokenTradeIDs[trade.ID] {
			cpBroken[trade.Counterparty]++
		}
	}

	rates := feature.HistoricalRates{
		BySource:       make(map[domain.Source]float64, len(sourceTotal)),
		ByCounterparty: make(map[string]float64, len(cpTotal)),
	}
	for source, total := range sourceTotal {
		rates.BySource[source] = float64(sourceBroken[source]) / float64(total)
	}
	for cp, total := range cpTotal {
		rates.ByCounterparty[cp] = float64(cpBroken[cp]) / float64(total)
	}
	return rates, nil
}

// mostCommon ranks counts highest-first, breaking ties alphabetically for
// deterministic output, and keeps the top limit entries (0 means all).
func mostCommon(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
