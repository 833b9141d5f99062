// Package domain defines the normalized record types shared by every
// reconciliation component: trades, breaks, runs, and predictions.
package domain

import (
	"encoding/json"
	"time"
)

// Source identifies an upstream trade feed.
type Source string

// Recognized source systems.
const (
	SourceOMS         Source = "oms"
	SourceCustodian   Source = "custodian"
	SourcePrimeBroker Source = "prime_broker"
	SourceExchange    Source = "exchange"
	SourceManualEntry Source = "manual"
)

// Side is the buy/sell direction of a trade.
type Side string

// Valid sides.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is a normalized trade event. Identity is (SourceSystem, SourceTradeID).
// Created by ingestion (deduplicated by identity); mutated only by the
// matching orchestrator (match-state fields) and the normalizer (canonical
// fields). Never deleted.
type Trade struct {
	ID            string `json:"id"`
	SourceSystem  Source `json:"source_system"`
	SourceTradeID string `json:"source_trade_id"`

	TradeDate      time.Time  `json:"trade_date"`
	SettlementDate *time.Time `json:"settlement_date,omitempty"`

	Symbol             string `json:"symbol"`
	SecurityIdentifier string `json:"security_identifier,omitempty"`

	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`

	GrossAmount *float64 `json:"gross_amount,omitempty"`
	NetAmount   *float64 `json:"net_amount,omitempty"`
	Currency    string   `json:"currency"`

	Counterparty           string `json:"counterparty"`
	CounterpartyNormalized string `json:"counterparty_normalized,omitempty"`

	Account   string `json:"account"`
	Portfolio string `json:"portfolio"`

	Commission float64 `json:"commission"`
	Fees       float64 `json:"fees"`

	RawPayload json.RawMessage `json:"raw_payload,omitempty"`

	IsMatched       bool    `json:"is_matched"`
	MatchedTradeID  string  `json:"matched_trade_id,omitempty"`
	MatchConfidence float64 `json:"match_confidence,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity returns the (source_system, source_trade_id) uniqueness key.
func (t *Trade) Identity() string {
	return string(t.SourceSystem) + "/" + t.SourceTradeID
}

// FieldValue returns the raw comparison value for a named field, used by
// the fuzzy matcher and break deriver so both operate over the same set of
// field names without a long type-switch at each call site.
func (t *Trade) FieldValue(field string) any {
	switch field {
	case "symbol":
		return t.Symbol
	case "trade_date":
		return t.TradeDate
	case "side":
		return string(t.Side)
	case "quantity":
		return t.Quantity
	case "price":
		return t.Price
	case "counterparty":
		return t.Counterparty
	case "gross_amount":
		if t.GrossAmount == nil {
			return nil
		}
		return *t.GrossAmount
	case "net_amount":
		if t.NetAmount == nil {
			return nil
		}
		return *t.NetAmount
	default:
		return nil
	}
}
