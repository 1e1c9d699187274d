package bitget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/numeric"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/observability"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/timesync"
)

// PlaceRequest describes one order submission.
type PlaceRequest struct {
	ClientOrderID string
	TradingPair   string
	Side          schema.TradeSide
	Type          schema.OrderType
	Price         decimal.Decimal
	Amount        decimal.Decimal
}

// PlaceResult reports the venue acknowledgement. When the venue was
// overloaded the order id is the unknown sentinel and the lifecycle is
// resolved later by polling.
type PlaceResult struct {
	ExchangeOrderID string
	TransactTime    time.Time
}

type ruleLookup func(pair string) (schema.TradingRule, bool)

// driver executes order placement and cancellation against the venue.
type driver struct {
	rest    *restClient
	symbols *SymbolMap
	clock   *timesync.Synchronizer
	rules   ruleLookup
}

func newDriver(rest *restClient, symbols *SymbolMap, clock *timesync.Synchronizer, rules ruleLookup) *driver {
	return &driver{rest: rest, symbols: symbols, clock: clock, rules: rules}
}

// NewClientOrderID builds a venue-acceptable client order id.
func NewClientOrderID(side schema.TradeSide) string {
	marker := "B"
	if side == schema.TradeSideSell {
		marker = "S"
	}
	id := clientIDPrefix + marker + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > clientIDMaxLen {
		id = id[:clientIDMaxLen]
	}
	return id
}

// Place submits an order. Amounts and prices are quantized down to the
// instrument rule before submission. A venue overload response does not fail
// the order: the sentinel id is returned and polling completes the lifecycle.
func (d *driver) Place(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	symbol, err := d.symbols.SymbolFor(req.TradingPair)
	if err != nil {
		return PlaceResult{}, err
	}
	rule, ok := d.rules(req.TradingPair)
	if !ok {
		return PlaceResult{}, errs.New(venueName, errs.CodeSymbolNotFound,
			errs.WithMessage("no trading rule for "+req.TradingPair))
	}

	amount := numeric.QuantizeDown(req.Amount, rule.MinBaseAmountIncrement)
	if amount.LessThan(rule.MinOrderSize) {
		return PlaceResult{}, errs.New(venueName, errs.CodeExchange,
			errs.WithMessage("order amount below venue minimum for "+req.TradingPair))
	}

	wire := placeOrderRequest{
		Symbol:        symbol,
		Side:          venueSide(req.Side),
		ClientOrderID: req.ClientOrderID,
	}

	switch {
	case req.Type.IsLimit():
		price := numeric.QuantizeDown(req.Price, rule.MinPriceIncrement)
		if price.Mul(amount).LessThan(rule.MinNotionalSize) {
			return PlaceResult{}, errs.New(venueName, errs.CodeExchange,
				errs.WithMessage("order notional below venue minimum for "+req.TradingPair))
		}
		wire.OrderType = "limit"
		wire.Force = forceGTC
		wire.Price = price.String()
		wire.Quantity = amount.String()
	case req.Side == schema.TradeSideBuy:
		// Market buys are denominated in quote currency. The price is
		// estimated from the book; partial depth must not produce a price.
		price, err := d.estimateBuyPrice(ctx, symbol, amount)
		if err != nil {
			return PlaceResult{}, err
		}
		quote := numeric.QuantizeDown(price.Mul(amount), rule.MinPriceIncrement)
		wire.OrderType = "market"
		wire.Quantity = quote.String()
	default:
		wire.OrderType = "market"
		wire.Quantity = amount.String()
	}

	orderID, transactTime, err := d.withSkewRetry(ctx, func() (string, time.Time, error) {
		return d.rest.PlaceOrder(ctx, wire)
	})
	if err != nil {
		if isOverloaded(err) {
			observability.Log().Warn("venue overloaded on order placement, resolving by poll",
				observability.F("client_order_id", req.ClientOrderID))
			return PlaceResult{ExchangeOrderID: unknownOrderID, TransactTime: d.clock.Now()}, nil
		}
		return PlaceResult{}, err
	}
	if transactTime.IsZero() {
		transactTime = d.clock.Now()
	}
	return PlaceResult{ExchangeOrderID: orderID, TransactTime: transactTime}, nil
}

// Cancel requests cancellation, preferring the venue order id and falling
// back to the client order id. Only the exact venue success marker confirms
// the cancel; any other reply leaves the order to be re-checked.
func (d *driver) Cancel(ctx context.Context, pair, exchangeOrderID, clientOrderID string) (bool, error) {
	symbol, err := d.symbols.SymbolFor(pair)
	if err != nil {
		return false, err
	}
	wire := cancelOrderRequest{Symbol: symbol}
	if exchangeOrderID != "" && exchangeOrderID != unknownOrderID {
		wire.OrderID = exchangeOrderID
	} else {
		wire.ClientOrderID = clientOrderID
	}

	msg, err := d.withSkewRetryMsg(ctx, func() (string, error) {
		return d.rest.CancelOrder(ctx, wire)
	})
	if err != nil {
		return false, err
	}
	return msg == successMessage, nil
}

// estimateBuyPrice walks the ask side of a depth snapshot until the
// requested base amount is covered and returns the worst price consumed.
func (d *driver) estimateBuyPrice(ctx context.Context, symbol string, amount decimal.Decimal) (decimal.Decimal, error) {
	snapshot, err := d.rest.FetchDepth(ctx, symbol, depthLevelsForEstimate)
	if err != nil {
		return decimal.Decimal{}, err
	}

	remaining := amount
	price := decimal.Decimal{}
	for _, level := range snapshot.Asks {
		if len(level) < 2 {
			continue
		}
		levelPrice, ok := numeric.Parse(level[0])
		if !ok {
			continue
		}
		levelSize, ok := numeric.Parse(level[1])
		if !ok {
			continue
		}
		price = levelPrice
		remaining = remaining.Sub(levelSize)
		if remaining.Sign() <= 0 {
			return price, nil
		}
	}
	return decimal.Decimal{}, errs.New(venueName, errs.CodeInsufficientLiquidity,
		errs.WithMessage("order book depth cannot cover requested amount"))
}

// withSkewRetry resynchronizes the clock and retries exactly once when the
// venue rejects a request for timestamp skew.
func (d *driver) withSkewRetry(ctx context.Context, call func() (string, time.Time, error)) (string, time.Time, error) {
	id, at, err := call()
	if err == nil || !errs.HasCode(err, errs.CodeTimestampSkew) {
		return id, at, err
	}
	if resyncErr := d.clock.Resync(ctx); resyncErr != nil {
		return "", time.Time{}, resyncErr
	}
	return call()
}

func (d *driver) withSkewRetryMsg(ctx context.Context, call func() (string, error)) (string, error) {
	msg, err := call()
	if err == nil || !errs.HasCode(err, errs.CodeTimestampSkew) {
		return msg, err
	}
	if resyncErr := d.clock.Resync(ctx); resyncErr != nil {
		return "", resyncErr
	}
	return call()
}

func isOverloaded(err error) bool {
	var envelope *errs.E
	if !errors.As(err, &envelope) {
		return false
	}
	return envelope.HTTP == overloadedStatus
}

func venueSide(side schema.TradeSide) string {
	if side == schema.TradeSideSell {
		return sideSell
	}
	return sideBuy
}
