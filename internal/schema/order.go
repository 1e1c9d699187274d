// Package schema defines the canonical order, trade, and balance model shared
// by the venue adapter and the reconciliation engine.
package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState enumerates canonical order lifecycle states.
type OrderState string

const (
	// OrderStateCreated marks an order submitted but not yet acknowledged by the venue.
	OrderStateCreated OrderState = "CREATED"
	// OrderStateOpen marks a venue-acknowledged resting order.
	OrderStateOpen OrderState = "OPEN"
	// OrderStatePartiallyFilled marks an order with at least one fill and remaining quantity.
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	// OrderStateFilled marks a completely executed order. Terminal.
	OrderStateFilled OrderState = "FILLED"
	// OrderStateCanceled marks a canceled order. Terminal.
	OrderStateCanceled OrderState = "CANCELED"
	// OrderStateFailed marks a rejected or expired order. Terminal.
	OrderStateFailed OrderState = "FAILED"
)

// IsTerminal reports whether the state absorbs all further updates.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateFailed:
		return true
	default:
		return false
	}
}

// Rank orders states for monotonic application. OPEN and PARTIALLY_FILLED share a
// rank: the venue does not guarantee ordering between them, and fills carry the
// authoritative progress anyway. Terminal states outrank both and never regress.
func (s OrderState) Rank() int {
	switch s {
	case OrderStateCreated:
		return 0
	case OrderStateOpen, OrderStatePartiallyFilled:
		return 1
	case OrderStateFilled, OrderStateCanceled, OrderStateFailed:
		return 2
	default:
		return -1
	}
}

// TradeSide captures the direction of an order or fill.
type TradeSide string

const (
	// TradeSideBuy indicates buy side.
	TradeSideBuy TradeSide = "Buy"
	// TradeSideSell indicates sell side.
	TradeSideSell TradeSide = "Sell"
)

// OrderType enumerates supported order types.
type OrderType string

const (
	// OrderTypeLimit represents limit orders.
	OrderTypeLimit OrderType = "Limit"
	// OrderTypeLimitMaker represents post-only limit orders.
	OrderTypeLimitMaker OrderType = "LimitMaker"
	// OrderTypeMarket represents market orders.
	OrderTypeMarket OrderType = "Market"
)

// IsLimit reports whether the order type rests on the book at a price.
func (t OrderType) IsLimit() bool {
	return t == OrderTypeLimit || t == OrderTypeLimitMaker
}

// Fee captures a normalized trading fee, either as a flat (asset, amount) pair
// or as a (percent, token) pair depending on which form the venue supplied.
type Fee struct {
	Asset        string          `json:"asset,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Percent      decimal.Decimal `json:"percent"`
	PercentToken string          `json:"percent_token,omitempty"`
}

// IsFlat reports whether the fee is expressed as an absolute amount of an asset.
func (f Fee) IsFlat() bool {
	return f.Asset != ""
}

// OrderUpdate is a canonical order status record produced by the normalizer
// from either channel (streaming or REST).
type OrderUpdate struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	State           OrderState
	Timestamp       time.Time
}

// TradeUpdate is a canonical fill record. Immutable; applied at most once per TradeID.
type TradeUpdate struct {
	TradeID         string
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	Price           decimal.Decimal
	BaseAmount      decimal.Decimal
	QuoteAmount     decimal.Decimal
	Fee             Fee
	Timestamp       time.Time
}

// BalanceUpdate is a canonical per-asset balance record. Total = available + locked.
type BalanceUpdate struct {
	Asset     string
	Available decimal.Decimal
	Total     decimal.Decimal
}
