package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStateChangedEvent is emitted when an accepted update actually changes
// a tracked order's state.
type OrderStateChangedEvent struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	Previous        OrderState
	Current         OrderState
	Timestamp       time.Time
}

// OrderFilledEvent is emitted once per applied fill.
type OrderFilledEvent struct {
	TradeID         string
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	Side            TradeSide
	Price           decimal.Decimal
	BaseAmount      decimal.Decimal
	QuoteAmount     decimal.Decimal
	Fee             Fee
	Timestamp       time.Time
}

// BalanceChangedEvent is emitted per asset whose snapshot value changed.
type BalanceChangedEvent struct {
	Asset     string
	Available decimal.Decimal
	Total     decimal.Decimal
	Timestamp time.Time
}

// EventSink receives canonical domain events from the reconciliation engine.
// Implementations belong to the owning engine; callbacks run inside the apply
// critical section and must return quickly without blocking on I/O.
type EventSink interface {
	OnOrderStateChanged(evt OrderStateChangedEvent)
	OnOrderFilled(evt OrderFilledEvent)
	OnBalanceChanged(evt BalanceChangedEvent)
}

// NopSink discards all events.
type NopSink struct{}

// OnOrderStateChanged implements EventSink.
func (NopSink) OnOrderStateChanged(OrderStateChangedEvent) {}

// OnOrderFilled implements EventSink.
func (NopSink) OnOrderFilled(OrderFilledEvent) {}

// OnBalanceChanged implements EventSink.
func (NopSink) OnBalanceChanged(BalanceChangedEvent) {}
