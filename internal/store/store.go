// Package store provides an in-memory, mutex-guarded record store for
// trades, breaks, and reconciliation runs, with atomic JSON snapshotting to
// disk for durability across restarts. A real deployment would put a
// database behind the same Store interface; this implementation is the
// in-process default.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/errs"
)

// Store is the persistence contract every reconciliation component depends
// on, satisfied here by JSONStore and swappable for a database-backed
// implementation without touching callers.
type Store interface {
	UpsertTrade(trade *domain.Trade) error
	GetTrade(id string) (*domain.Trade, error)
	FindUnmatchedTrades(source domain.Source, day time.Time) ([]*domain.Trade, error)
	AllTrades() ([]*domain.Trade, error)

	AddBreak(brk *domain.TradeBreak) error
	GetBreak(id string) (*domain.TradeBreak, error)
	UpdateBreak(brk *domain.TradeBreak) error
	ListBreaks(filter BreakFilter) ([]*domain.TradeBreak, error)

	AddComment(comment *domain.BreakComment) error
	ListComments(breakID string) ([]*domain.BreakComment, error)

	UpsertMatchingRule(rule *domain.MatchingRule) error
	ListMatchingRules(assetClass string) ([]*domain.MatchingRule, error)

	AddRun(run *domain.ReconciliationRun) error
	UpdateRun(run *domain.ReconciliationRun) error
	ListRuns(limit int) ([]*domain.ReconciliationRun, error)

	AddPrediction(prediction *domain.BreakPrediction) error

	Save() error
}

// BreakFilter narrows ListBreaks. Zero-valued fields are unconstrained.
type BreakFilter struct {
	Status   domain.BreakStatus
	Severity domain.BreakSeverity
}

// snapshot is the complete on-disk representation of the store's state.
type snapshot struct {
	LastUpdated   time.Time                         `json:"last_updated"`
	Trades        map[string]*domain.Trade          `json:"trades"`
	Breaks        map[string]*domain.TradeBreak     `json:"breaks"`
	Comments      map[string][]*domain.BreakComment `json:"comments"`
	MatchingRules map[string]*domain.MatchingRule   `json:"matching_rules"`
	Runs          []*domain.ReconciliationRun       `json:"runs"`
	Predictions   []*domain.BreakPrediction         `json:"predictions"`
}

func emptySnapshot() *snapshot {
	return &snapshot{
		Trades:        make(map[string]*domain.Trade),
		Breaks:        make(map[string]*domain.TradeBreak),
		Comments:      make(map[string][]*domain.BreakComment),
		MatchingRules: make(map[string]*domain.MatchingRule),
	}
}

// JSONStore is the default Store: all state lives in memory guarded by a
// single RWMutex, snapshotted to a JSON file on Save.
type JSONStore struct {
	mu   sync.RWMutex
	path string
	data *snapshot
}

// New builds a JSONStore, loading any existing snapshot at path. An empty
// path disables persistence: Save becomes a no-op and state lives only for
// the process lifetime.
func New(path string) (*JSONStore, error) {
	s := &JSONStore{path: path, data: emptySnapshot()}

	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat storage file: %w", err)
	}

	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		return err
	}
	loaded := emptySnapshot()
	if err := json.Unmarshal(data, loaded); err != nil {
		return err
	}
	if loaded.Trades == nil {
		loaded.Trades = make(map[string]*domain.Trade)
	}
	if loaded.Breaks == nil {
		loaded.Breaks = make(map[string]*domain.TradeBreak)
	}
	if loaded.Comments == nil {
		loaded.Comments = make(map[string][]*domain.BreakComment)
	}
	if loaded.MatchingRules == nil {
		loaded.MatchingRules = make(map[string]*domain.MatchingRule)
	}
	s.data = loaded
	return nil
}

// Save atomically snapshots the store to disk: write to a temp file in the
// same directory, fsync, then rename over the target so a crash mid-write
// never leaves a truncated file in place.
func (s *JSONStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUnsafe()
}

func (s *JSONStore) saveUnsafe() error {
	if s.path == "" {
		return nil
	}
	s.data.LastUpdated = time.Now().UTC()

	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", errs.ErrStorage, err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return fmt.Errorf("%w: setting temp file permissions: %v", errs.ErrStorage, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.data); err != nil {
		f.Close()
		return fmt.Errorf("%w: encoding snapshot: %v", errs.ErrStorage, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: syncing temp file: %v", errs.ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %v", errs.ErrStorage, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: renaming temp file into place: %v", errs.ErrStorage, err)
	}
	return nil
}

// UpsertTrade inserts or replaces a trade by ID, enforcing the
// (source_system, source_trade_id) uniqueness invariant against any other
// existing trade.
func (s *JSONStore) UpsertTrade(trade *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.data.Trades {
		if id == trade.ID {
			continue
		}
		if existing.Identity() == trade.Identity() {
			return fmt.Errorf("%w: trade with identity %s already exists", errs.ErrValidation, trade.Identity())
		}
	}

	trade.UpdatedAt = time.Now().UTC()
	s.data.Trades[trade.ID] = trade
	return nil
}

// GetTrade returns the trade with the given ID.
func (s *JSONStore) GetTrade(id string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trade, ok := s.data.Trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: trade %s", errs.ErrNotFound, id)
	}
	return trade, nil
}

// FindUnmatchedTrades returns unmatched trades from source on the given
// calendar day (UTC), in ingestion order. The ordering is what makes the
// greedy pairing pass deterministic: the matcher walks source1 trades in
// this sequence and never revisits a claimed candidate.
func (s *JSONStore) FindUnmatchedTrades(source domain.Source, day time.Time) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var out []*domain.Trade
	for _, trade := range s.data.Trades {
		if trade.SourceSystem != source || trade.IsMatched {
			continue
		}
		if trade.TradeDate.Before(start) || !trade.TradeDate.Before(end) {
			continue
		}
		out = append(out, trade)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IngestedAt.Equal(out[j].IngestedAt) {
			return out[i].IngestedAt.Before(out[j].IngestedAt)
		}
		return out[i].SourceTradeID < out[j].SourceTradeID
	})
	return out, nil
}

// AllTrades returns every persisted trade, matched or not, in no particular
// order. Used by reporting and prediction, which need the full population
// rather than a single source/day slice.
func (s *JSONStore) AllTrades() ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Trade, 0, len(s.data.Trades))
	for _, trade := range s.data.Trades {
		out = append(out, trade)
	}
	return out, nil
}

// AddBreak inserts a new break record.
func (s *JSONStore) AddBreak(brk *domain.TradeBreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Breaks[brk.ID] = brk
	return nil
}

// GetBreak returns the break with the given ID.
func (s *JSONStore) GetBreak(id string) (*domain.TradeBreak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brk, ok := s.data.Breaks[id]
	if !ok {
		return nil, fmt.Errorf("%w: break %s", errs.ErrNotFound, id)
	}
	return brk, nil
}

// UpdateBreak replaces an existing break record.
func (s *JSONStore) UpdateBreak(brk *domain.TradeBreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Breaks[brk.ID]; !ok {
		return fmt.Errorf("%w: break %s", errs.ErrNotFound, brk.ID)
	}
	s.data.Breaks[brk.ID] = brk
	return nil
}

// ListBreaks returns breaks matching filter, unordered.
func (s *JSONStore) ListBreaks(filter BreakFilter) ([]*domain.TradeBreak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeBreak
	for _, brk := range s.data.Breaks {
		if filter.Status != "" && brk.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && brk.Severity != filter.Severity {
			continue
		}
		out = append(out, brk)
	}
	return out, nil
}

// AddComment appends an audit comment to a break.
func (s *JSONStore) AddComment(comment *domain.BreakComment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Comments[comment.BreakID] = append(s.data.Comments[comment.BreakID], comment)
	return nil
}

// ListComments returns every comment recorded against breakID, oldest first.
func (s *JSONStore) ListComments(breakID string) ([]*domain.BreakComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Comments[breakID], nil
}

// UpsertMatchingRule inserts or replaces a matching rule by ID.
func (s *JSONStore) UpsertMatchingRule(rule *domain.MatchingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.MatchingRules[rule.ID] = rule
	return nil
}

// ListMatchingRules returns active rules for an asset class, highest
// priority first. An empty assetClass returns every active rule.
func (s *JSONStore) ListMatchingRules(assetClass string) ([]*domain.MatchingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.MatchingRule
	for _, rule := range s.data.MatchingRules {
		if !rule.IsActive {
			continue
		}
		if assetClass != "" && rule.AssetClass != assetClass {
			continue
		}
		out = append(out, rule)
	}
	sortRulesByPriority(out)
	return out, nil
}

func sortRulesByPriority(rules []*domain.MatchingRule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })
}

// AddRun records a new reconciliation run.
func (s *JSONStore) AddRun(run *domain.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Runs = append(s.data.Runs, run)
	return nil
}

// UpdateRun replaces a run record in place by ID.
func (s *JSONStore) UpdateRun(run *domain.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.data.Runs {
		if existing.ID == run.ID {
			s.data.Runs[i] = run
			return nil
		}
	}
	return fmt.Errorf("%w: run %s", errs.ErrNotFound, run.ID)
}

// ListRuns returns the most recent runs, newest first, capped at limit (0
// means unlimited).
func (s *JSONStore) ListRuns(limit int) ([]*domain.ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ReconciliationRun, len(s.data.Runs))
	copy(out, s.data.Runs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AddPrediction records a break-risk prediction for audit.
func (s *JSONStore) AddPrediction(prediction *domain.BreakPrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Predictions = append(s.data.Predictions, prediction)
	return nil
}

var _ Store = (*JSONStore)(nil)
