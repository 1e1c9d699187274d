// Package recon merges streaming and polled venue updates into one consistent
// order/trade/balance view. It is the single writer for connector state: every
// mutation happens inside one short critical section covering exactly one
// record, and state only ever advances forward.
package recon

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Duc-Dopaminne-1/hummingbot/internal/observability"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
)

// TrackedOrder is the engine-owned record of one in-flight order.
type TrackedOrder struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	Side            schema.TradeSide
	Type            schema.OrderType
	Price           decimal.Decimal
	Amount          decimal.Decimal
	FilledBase      decimal.Decimal
	FilledQuote     decimal.Decimal
	Fees            []schema.Fee
	State           schema.OrderState
	LastUpdate      time.Time

	tradeIDs map[string]struct{}
}

// AverageFillPrice returns the volume-weighted average price of applied fills.
func (o *TrackedOrder) AverageFillPrice() decimal.Decimal {
	if o == nil || o.FilledBase.Sign() <= 0 {
		return decimal.Zero
	}
	return o.FilledQuote.Div(o.FilledBase)
}

func (o *TrackedOrder) snapshot() TrackedOrder {
	out := *o
	out.Fees = append([]schema.Fee(nil), o.Fees...)
	out.tradeIDs = nil
	return out
}

// Engine applies normalized venue events and poll results to shared state and
// emits canonical domain events through the configured sink.
type Engine struct {
	venue   string
	sink    schema.EventSink
	metrics *observability.RuntimeMetrics

	mu            sync.Mutex
	orders        map[string]*TrackedOrder
	byExchangeID  map[string]string
	balances      map[string]schema.BalanceUpdate
	externalFills map[string]struct{}
}

// NewEngine constructs an engine for the named venue. A nil sink discards events.
func NewEngine(venue string, sink schema.EventSink, metrics *observability.RuntimeMetrics) *Engine {
	if sink == nil {
		sink = schema.NopSink{}
	}
	if metrics == nil {
		metrics = observability.NewRuntimeMetrics()
	}
	return &Engine{
		venue:         venue,
		sink:          sink,
		metrics:       metrics,
		mu:            sync.Mutex{},
		orders:        make(map[string]*TrackedOrder),
		byExchangeID:  make(map[string]string),
		balances:      make(map[string]schema.BalanceUpdate),
		externalFills: make(map[string]struct{}),
	}
}

// StartTracking registers a freshly submitted order in CREATED state.
// A duplicate client order id is rejected to preserve idempotence.
func (e *Engine) StartTracking(order TrackedOrder) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.orders[order.ClientOrderID]; exists {
		return false
	}
	tracked := order
	tracked.State = schema.OrderStateCreated
	tracked.FilledBase = decimal.Zero
	tracked.FilledQuote = decimal.Zero
	tracked.Fees = nil
	tracked.tradeIDs = make(map[string]struct{})
	e.orders[order.ClientOrderID] = &tracked
	if tracked.ExchangeOrderID != "" {
		e.byExchangeID[tracked.ExchangeOrderID] = tracked.ClientOrderID
	}
	return true
}

// BindExchangeID attaches the venue order id to a tracked order once known.
// The first observed venue id wins; later disagreeing ids are ignored.
func (e *Engine) BindExchangeID(clientOrderID, exchangeOrderID string) {
	if exchangeOrderID == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindExchangeIDLocked(clientOrderID, exchangeOrderID)
}

func (e *Engine) bindExchangeIDLocked(clientOrderID, exchangeOrderID string) {
	order, ok := e.orders[clientOrderID]
	if !ok || exchangeOrderID == "" {
		return
	}
	if order.ExchangeOrderID == "" {
		order.ExchangeOrderID = exchangeOrderID
		e.byExchangeID[exchangeOrderID] = clientOrderID
	}
}

// ApplyOrderUpdate applies a canonical order status record. Unknown client ids
// are a logged no-op. Terminal states absorb all further updates; stale
// lower-ranked states never regress the order.
func (e *Engine) ApplyOrderUpdate(update schema.OrderUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[update.ClientOrderID]
	if !ok {
		e.metrics.RecordUnknownOrderUpdate()
		observability.Log().Debug("order update for untracked order",
			observability.F("client_order_id", update.ClientOrderID))
		return
	}

	e.bindExchangeIDLocked(update.ClientOrderID, update.ExchangeOrderID)

	if order.State.IsTerminal() {
		return
	}
	if update.State.Rank() < order.State.Rank() {
		return
	}
	// A bare OPEN after fills have been applied is stale channel noise.
	if update.State == schema.OrderStateOpen && order.FilledBase.Sign() > 0 {
		order.LastUpdate = update.Timestamp
		return
	}

	previous := order.State
	if update.State == previous {
		order.LastUpdate = update.Timestamp
		return
	}

	order.State = update.State
	order.LastUpdate = update.Timestamp
	e.metrics.RecordOrderUpdateApplied()
	observability.Telemetry().IncCounter("recon_order_updates_applied", 1,
		map[string]string{"venue": e.venue})

	e.sink.OnOrderStateChanged(schema.OrderStateChangedEvent{
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: order.ExchangeOrderID,
		TradingPair:     order.TradingPair,
		Previous:        previous,
		Current:         order.State,
		Timestamp:       update.Timestamp,
	})
}

// ApplyTradeUpdate applies a canonical fill. The trade id is the idempotence
// key: duplicates from any channel are no-ops. When the cumulative filled
// amount reaches the requested amount the order is force-transitioned to
// FILLED even without an explicit status message.
//
// The returned flag reports whether the fill matched a tracked order; callers
// on the poll path record unmatched fills via RecordExternalFill.
func (e *Engine) ApplyTradeUpdate(fill schema.TradeUpdate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, seen := e.externalFills[fill.TradeID]; seen {
		e.metrics.RecordDuplicateFill()
		return true
	}

	order := e.lookupOrderLocked(fill.ClientOrderID, fill.ExchangeOrderID)
	if order == nil {
		return false
	}

	if _, seen := order.tradeIDs[fill.TradeID]; seen {
		e.metrics.RecordDuplicateFill()
		observability.Telemetry().IncCounter("recon_duplicate_fills", 1,
			map[string]string{"venue": e.venue})
		return true
	}
	order.tradeIDs[fill.TradeID] = struct{}{}

	e.bindExchangeIDLocked(order.ClientOrderID, fill.ExchangeOrderID)

	base := fill.BaseAmount
	remaining := order.Amount.Sub(order.FilledBase)
	if base.GreaterThan(remaining) {
		observability.Log().Warn("fill exceeds remaining amount, capping",
			observability.F("client_order_id", order.ClientOrderID),
			observability.F("trade_id", fill.TradeID))
		base = remaining
	}
	// The trade id is already remembered above; a fill capped to nothing adds
	// no quantity, no fee, and no event.
	if base.Sign() <= 0 {
		return true
	}
	order.FilledBase = order.FilledBase.Add(base)
	quote := fill.QuoteAmount
	if quote.Sign() <= 0 {
		quote = base.Mul(fill.Price)
	}
	order.FilledQuote = order.FilledQuote.Add(quote)
	order.Fees = append(order.Fees, fill.Fee)
	order.LastUpdate = fill.Timestamp

	e.sink.OnOrderFilled(schema.OrderFilledEvent{
		TradeID:         fill.TradeID,
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: order.ExchangeOrderID,
		TradingPair:     order.TradingPair,
		Side:            order.Side,
		Price:           fill.Price,
		BaseAmount:      base,
		QuoteAmount:     fill.QuoteAmount,
		Fee:             fill.Fee,
		Timestamp:       fill.Timestamp,
	})

	if !order.State.IsTerminal() && order.FilledBase.GreaterThanOrEqual(order.Amount) {
		previous := order.State
		order.State = schema.OrderStateFilled
		e.metrics.RecordForcedCompletion()
		observability.Telemetry().IncCounter("recon_forced_completions", 1,
			map[string]string{"venue": e.venue})
		e.sink.OnOrderStateChanged(schema.OrderStateChangedEvent{
			ClientOrderID:   order.ClientOrderID,
			ExchangeOrderID: order.ExchangeOrderID,
			TradingPair:     order.TradingPair,
			Previous:        previous,
			Current:         schema.OrderStateFilled,
			Timestamp:       fill.Timestamp,
		})
	} else if !order.State.IsTerminal() && order.State != schema.OrderStatePartiallyFilled {
		previous := order.State
		order.State = schema.OrderStatePartiallyFilled
		e.sink.OnOrderStateChanged(schema.OrderStateChangedEvent{
			ClientOrderID:   order.ClientOrderID,
			ExchangeOrderID: order.ExchangeOrderID,
			TradingPair:     order.TradingPair,
			Previous:        previous,
			Current:         schema.OrderStatePartiallyFilled,
			Timestamp:       fill.Timestamp,
		})
	}
	return true
}

func (e *Engine) lookupOrderLocked(clientOrderID, exchangeOrderID string) *TrackedOrder {
	if clientOrderID != "" {
		if order, ok := e.orders[clientOrderID]; ok {
			return order
		}
	}
	if exchangeOrderID != "" {
		if clientID, ok := e.byExchangeID[exchangeOrderID]; ok {
			return e.orders[clientID]
		}
	}
	return nil
}

// RecordExternalFill records a polled fill that matched no tracked order as a
// standalone completed-trade record. It never spawns a synthetic order; the
// record only prevents duplicate accounting if the fill is rediscovered.
// Returns false when the trade id was already known through any channel.
func (e *Engine) RecordExternalFill(fill schema.TradeUpdate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, seen := e.externalFills[fill.TradeID]; seen {
		e.metrics.RecordDuplicateFill()
		return false
	}
	if order := e.lookupOrderLocked(fill.ClientOrderID, fill.ExchangeOrderID); order != nil {
		if _, seen := order.tradeIDs[fill.TradeID]; seen {
			e.metrics.RecordDuplicateFill()
			return false
		}
	}
	e.externalFills[fill.TradeID] = struct{}{}
	observability.Log().Info("recorded fill without tracked order",
		observability.F("trade_id", fill.TradeID),
		observability.F("exchange_order_id", fill.ExchangeOrderID))
	return true
}

// ApplyBalanceSnapshot wholesale-replaces the balance table. Assets absent
// from the snapshot are removed and reported as zero.
func (e *Engine) ApplyBalanceSnapshot(snapshot []schema.BalanceUpdate, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]schema.BalanceUpdate, len(snapshot))
	for _, entry := range snapshot {
		asset := schema.NormalizeAssetCode(entry.Asset)
		if asset == "" {
			continue
		}
		entry.Asset = asset
		next[asset] = entry

		prev, existed := e.balances[asset]
		if !existed || !prev.Available.Equal(entry.Available) || !prev.Total.Equal(entry.Total) {
			e.sink.OnBalanceChanged(schema.BalanceChangedEvent{
				Asset:     asset,
				Available: entry.Available,
				Total:     entry.Total,
				Timestamp: at,
			})
		}
	}
	for asset := range e.balances {
		if _, kept := next[asset]; !kept {
			e.sink.OnBalanceChanged(schema.BalanceChangedEvent{
				Asset:     asset,
				Available: decimal.Zero,
				Total:     decimal.Zero,
				Timestamp: at,
			})
		}
	}
	e.balances = next
}

// ApplyBalanceUpdate applies a single streaming balance record without
// disturbing other assets. Snapshots remain the wholesale source of truth.
func (e *Engine) ApplyBalanceUpdate(update schema.BalanceUpdate, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	asset := schema.NormalizeAssetCode(update.Asset)
	if asset == "" {
		return
	}
	update.Asset = asset
	prev, existed := e.balances[asset]
	if existed && prev.Available.Equal(update.Available) && prev.Total.Equal(update.Total) {
		return
	}
	e.balances[asset] = update
	e.sink.OnBalanceChanged(schema.BalanceChangedEvent{
		Asset:     asset,
		Available: update.Available,
		Total:     update.Total,
		Timestamp: at,
	})
}

// OrderStatus returns a copy of the tracked order for the client id.
func (e *Engine) OrderStatus(clientOrderID string) (TrackedOrder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[clientOrderID]
	if !ok {
		return TrackedOrder{}, false
	}
	return order.snapshot(), true
}

// Balance returns the last known balance for the asset.
func (e *Engine) Balance(asset string) (schema.BalanceUpdate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.balances[schema.NormalizeAssetCode(asset)]
	return entry, ok
}

// InFlightOrders returns copies of all non-terminal tracked orders.
func (e *Engine) InFlightOrders() []TrackedOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TrackedOrder, 0, len(e.orders))
	for _, order := range e.orders {
		if !order.State.IsTerminal() {
			out = append(out, order.snapshot())
		}
	}
	return out
}

// HasInFlight reports whether any tracked order is non-terminal.
func (e *Engine) HasInFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, order := range e.orders {
		if !order.State.IsTerminal() {
			return true
		}
	}
	return false
}

// StopTracking removes an order from tracking regardless of its state.
// Reports whether the order was known.
func (e *Engine) StopTracking(clientOrderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[clientOrderID]
	if !ok {
		return false
	}
	if order.ExchangeOrderID != "" {
		delete(e.byExchangeID, order.ExchangeOrderID)
	}
	delete(e.orders, clientOrderID)
	return true
}

// PurgeTerminal removes terminal orders whose last update is older than the
// grace period and returns how many were removed. The owning engine drives this.
func (e *Engine) PurgeTerminal(grace time.Duration, now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for clientID, order := range e.orders {
		if !order.State.IsTerminal() {
			continue
		}
		if now.Sub(order.LastUpdate) < grace {
			continue
		}
		if order.ExchangeOrderID != "" {
			delete(e.byExchangeID, order.ExchangeOrderID)
		}
		delete(e.orders, clientID)
		removed++
	}
	return removed
}

// RecordPollFailure surfaces a polling transport failure to metrics. The
// polling loop itself stays alive and retries on the next scheduled pass.
func (e *Engine) RecordPollFailure() {
	e.metrics.RecordPollFailure()
	observability.Telemetry().IncCounter("recon_poll_failures", 1,
		map[string]string{"venue": e.venue})
}

// MetricsSnapshot exposes reconciliation counters for reporting.
func (e *Engine) MetricsSnapshot() observability.ReconMetricsSnapshot {
	return e.metrics.Snapshot()
}
