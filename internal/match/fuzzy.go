// Package match scores how closely two trades from independent sources
// resemble each other, and pairs the best mutual matches across two trade
// populations.
package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/normalize"
)

// DefaultWeights is the per-field contribution to the overall match score,
// applied whenever a call site does not supply an asset-class override.
var DefaultWeights = map[string]float64{
	"symbol":       0.25,
	"trade_date":   0.15,
	"side":         0.15,
	"quantity":     0.20,
	"price":        0.15,
	"counterparty": 0.10,
}

// Confidence labels the matcher's verdict on a trade pair.
type Confidence string

// Confidence levels.
const (
	ConfidenceAuto    Confidence = "auto"
	ConfidenceReview  Confidence = "review"
	ConfidenceNoMatch Confidence = "no_match"
)

// Score is the outcome of comparing two trades: an overall weighted score,
// the per-field contributions behind it, and the resulting confidence
// classification.
type Score struct {
	Overall    float64
	Fields     map[string]float64
	IsMatch    bool
	Confidence Confidence
}

// Matcher computes weighted similarity between trades using configured
// thresholds and tolerances.
type Matcher struct {
	autoMatchThreshold    float64
	manualReviewThreshold float64
	priceTolerancePct     float64
	quantityTolerance     float64
}

// New builds a Matcher from the reconciliation thresholds and tolerances.
func New(autoMatchThreshold, manualReviewThreshold, priceTolerancePct, quantityTolerance float64) *Matcher {
	return &Matcher{
		autoMatchThreshold:    autoMatchThreshold,
		manualReviewThreshold: manualReviewThreshold,
		priceTolerancePct:     priceTolerancePct,
		quantityTolerance:     quantityTolerance,
	}
}

// ComputeMatchScore scores two trades field by field and blends them with
// weights (DefaultWeights when nil) into an overall confidence verdict.
func (m *Matcher) ComputeMatchScore(a, b *domain.Trade, weights map[string]float64) Score {
	if weights == nil {
		weights = DefaultWeights
	}

	fields := map[string]float64{
		"symbol":       matchSymbol(a.Symbol, b.Symbol),
		"trade_date":   matchDate(a, b),
		"side":         matchSide(a, b),
		"quantity":     m.matchQuantity(a.Quantity, b.Quantity),
		"price":        m.matchPrice(a.Price, b.Price),
		"counterparty": matchCounterparty(counterpartyKey(a), counterpartyKey(b)),
	}

	var overall float64
	for field, weight := range weights {
		overall += fields[field] * weight
	}

	score := Score{Overall: overall, Fields: fields}
	switch {
	case overall >= m.autoMatchThreshold:
		score.IsMatch = true
		score.Confidence = ConfidenceAuto
	case overall >= m.manualReviewThreshold:
		score.IsMatch = true
		score.Confidence = ConfidenceReview
	default:
		score.IsMatch = false
		score.Confidence = ConfidenceNoMatch
	}
	return score
}

// FindBestMatch returns the highest-scoring candidate at or above
// minScore (the manual-review threshold when minScore is nil), or nil if
// none qualifies. weights follows the same nil-means-default convention as
// ComputeMatchScore.
func (m *Matcher) FindBestMatch(source *domain.Trade, candidates []*domain.Trade, weights map[string]float64, minScore *float64) (*domain.Trade, *Score) {
	threshold := m.manualReviewThreshold
	if minScore != nil {
		threshold = *minScore
	}

	var best *domain.Trade
	var bestScore *Score
	for _, candidate := range candidates {
		score := m.ComputeMatchScore(source, candidate, weights)
		if score.Overall < threshold {
			continue
		}
		if bestScore == nil || score.Overall > bestScore.Overall {
			c := candidate
			s := score
			best, bestScore = c, &s
		}
	}
	return best, bestScore
}

func counterpartyKey(t *domain.Trade) string {
	if t.CounterpartyNormalized != "" {
		return t.CounterpartyNormalized
	}
	return t.Counterparty
}

func matchDate(a, b *domain.Trade) float64 {
	if normalize.DateKey(a.TradeDate) == normalize.DateKey(b.TradeDate) {
		return 1.0
	}
	return 0.0
}

func matchSide(a, b *domain.Trade) float64 {
	if strings.EqualFold(string(a.Side), string(b.Side)) {
		return 1.0
	}
	return 0.0
}

// matchSymbol scores an exact match at 1.0, and falls through to a ratio
// comparison below that, discarding near-misses under 0.9 as unrelated
// symbols rather than typos.
func matchSymbol(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	similarity := ratio(a, b)
	if similarity >= 0.9 {
		return similarity
	}
	return 0.0
}

func (m *Matcher) matchQuantity(a, b float64) float64 {
	diff := absFloat(a - b)
	if diff <= m.quantityTolerance {
		return 1.0
	}
	denom := maxFloat(absFloat(a), absFloat(b), 1.0)
	pctDiff := diff / denom
	return maxFloat(0.0, 1.0-pctDiff)
}

func (m *Matcher) matchPrice(a, b float64) float64 {
	if a == b {
		return 1.0
	}
	denom := maxFloat(absFloat(a), absFloat(b), 1e-9)
	pctDiff := absFloat(a-b) / denom
	tolerance := maxFloat(m.priceTolerancePct, 1e-9)
	if pctDiff <= m.priceTolerancePct {
		return 1.0
	}
	return maxFloat(0.0, 1.0-(pctDiff/tolerance))
}

// matchCounterparty blends token-order-insensitive, token-set, and
// Jaro-Winkler similarity so that "Acme Capital LLC" and "Capital, Acme Inc"
// score as close matches. An absent name on either side returns a neutral
// 0.5 rather than 0, since counterparty is often omitted by custodial feeds.
func matchCounterparty(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if a == b {
		return 1.0
	}
	tokenSort := tokenSortRatio(a, b)
	tokenSet := tokenSetRatio(a, b)
	jaro := smetrics.JaroWinkler(a, b, 0.7, 4)
	return tokenSort*0.4 + tokenSet*0.4 + jaro*0.2
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxFloat(values ...float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// ratio is a Levenshtein-based similarity in [0,1]: 1 minus the edit
// distance normalized by the longer string's rune length.
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	longest := len([]rune(a))
	if bl := len([]rune(b)); bl > longest {
		longest = bl
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	similarity := 1.0 - float64(dist)/float64(longest)
	if similarity < 0 {
		return 0
	}
	return similarity
}

// tokenSortRatio ignores word order: it sorts each string's whitespace
// tokens before comparing.
func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenSetRatio ignores both word order and one side having extra tokens
// the other lacks, by comparing the shared-token core against each side's
// full token set and keeping the best of the three combinations.
func tokenSetRatio(a, b string) float64 {
	tokensA := uniqueSortedTokens(a)
	tokensB := uniqueSortedTokens(b)

	intersection, onlyA, onlyB := splitTokens(tokensA, tokensB)

	sortedIntersection := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(sortedIntersection + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sortedIntersection + " " + strings.Join(onlyB, " "))

	best := ratio(sortedIntersection, combinedA)
	if r := ratio(sortedIntersection, combinedB); r > best {
		best = r
	}
	if r := ratio(combinedA, combinedB); r > best {
		best = r
	}
	return best
}

func uniqueSortedTokens(s string) []string {
	seen := map[string]bool{}
	var tokens []string
	for _, tok := range strings.Fields(s) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)
	return tokens
}

func splitTokens(a, b []string) (intersection, onlyA, onlyB []string) {
	inB := map[string]bool{}
	for _, tok := range b {
		inB[tok] = true
	}
	inA := map[string]bool{}
	for _, tok := range a {
		inA[tok] = true
		if inB[tok] {
			intersection = append(intersection, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for _, tok := range b {
		if !inA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	return intersection, onlyA, onlyB
}
