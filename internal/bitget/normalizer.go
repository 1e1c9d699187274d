package bitget

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/numeric"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
)

// restOrderStates maps the venue REST status vocabulary onto canonical states.
var restOrderStates = map[string]schema.OrderState{
	"init":             schema.OrderStateOpen,
	"new":              schema.OrderStateOpen,
	"partial_fill":     schema.OrderStatePartiallyFilled,
	"partially_filled": schema.OrderStatePartiallyFilled,
	"full_fill":        schema.OrderStateFilled,
	"filled":           schema.OrderStateFilled,
	"canceled":         schema.OrderStateCanceled,
	"cancelled":        schema.OrderStateCanceled,
	"rejected":         schema.OrderStateFailed,
	"expired":          schema.OrderStateFailed,
}

// wsOrderStates maps the websocket numeric status vocabulary onto canonical
// states. Code 5 is pending cancel; the order is still live until the venue
// confirms, so it stays open.
var wsOrderStates = map[int64]schema.OrderState{
	1: schema.OrderStateOpen,
	2: schema.OrderStatePartiallyFilled,
	3: schema.OrderStateFilled,
	4: schema.OrderStateCanceled,
	5: schema.OrderStateOpen,
	6: schema.OrderStateFailed,
	7: schema.OrderStateFailed,
}

func restOrderState(raw string) (schema.OrderState, error) {
	state, ok := restOrderStates[raw]
	if !ok {
		return "", errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unmapped order status"),
			errs.WithRawCode(raw))
	}
	return state, nil
}

func wsOrderState(raw json.Number) (schema.OrderState, error) {
	code, err := raw.Int64()
	if err != nil {
		return "", errs.New(venueName, errs.CodeParse,
			errs.WithMessage("non-numeric stream order status"),
			errs.WithRawCode(raw.String()),
			errs.WithCause(err))
	}
	state, ok := wsOrderStates[code]
	if !ok {
		return "", errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unmapped stream order status"),
			errs.WithRawCode(raw.String()))
	}
	return state, nil
}

// wsEnvelope is the outer frame of every stream message.
type wsEnvelope struct {
	Event  string            `json:"event,omitempty"`
	Code   json.Number       `json:"code,omitempty"`
	Msg    string            `json:"msg,omitempty"`
	Action string            `json:"action,omitempty"`
	Arg    wsArg             `json:"arg,omitempty"`
	Data   []json.RawMessage `json:"data,omitempty"`
}

type wsArg struct {
	InstType string `json:"instType,omitempty"`
	Channel  string `json:"channel,omitempty"`
	InstID   string `json:"instId,omitempty"`
}

type wsOrderData struct {
	InstID     string      `json:"instId"`
	OrderID    string      `json:"ordId"`
	ClientID   string      `json:"clOrdId"`
	Price      string      `json:"px"`
	Size       string      `json:"sz"`
	Side       string      `json:"side"`
	FillPrice  string      `json:"fillPx"`
	TradeID    string      `json:"tradeId"`
	FillSize   string      `json:"fillSz"`
	FillFee    string      `json:"fillFee"`
	FillFeeCcy string      `json:"fillFeeCcy"`
	FillTime   string      `json:"fillTime"`
	AccFillSz  string      `json:"accFillSz"`
	Status     json.Number `json:"status"`
	UpdateTime string      `json:"uTime"`
}

type wsBalanceData struct {
	CoinName  string `json:"coinName"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
}

// StreamEvents carries everything a single stream message normalized into.
type StreamEvents struct {
	Orders   []schema.OrderUpdate
	Trades   []schema.TradeUpdate
	Balances []schema.BalanceUpdate
}

func (e StreamEvents) Empty() bool {
	return len(e.Orders) == 0 && len(e.Trades) == 0 && len(e.Balances) == 0
}

// Normalizer converts venue payloads into canonical updates.
type Normalizer struct {
	symbols *SymbolMap
}

func NewNormalizer(symbols *SymbolMap) *Normalizer {
	return &Normalizer{symbols: symbols}
}

// NormalizeStreamMessage decodes one websocket text frame. Control frames
// (pong, login and subscribe acknowledgements) yield empty events and no
// error. A malformed data record produces an error for that message only;
// callers log it and keep the connection.
func (n *Normalizer) NormalizeStreamMessage(raw []byte) (StreamEvents, error) {
	if string(raw) == "pong" {
		return StreamEvents{}, nil
	}

	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return StreamEvents{}, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("undecodable stream frame"),
			errs.WithCause(err))
	}

	switch env.Event {
	case "":
	case "login", "subscribe":
		return StreamEvents{}, nil
	case "error":
		return StreamEvents{}, errs.New(venueName, errs.CodeExchange,
			errs.WithMessage("stream error event"),
			errs.WithRawCode(env.Code.String()),
			errs.WithRawMessage(env.Msg))
	default:
		return StreamEvents{}, nil
	}

	switch env.Arg.Channel {
	case channelOrders:
		return n.normalizeOrderRecords(env.Data)
	case channelAccount:
		return n.normalizeBalanceRecords(env.Data)
	default:
		return StreamEvents{}, nil
	}
}

func (n *Normalizer) normalizeOrderRecords(records []json.RawMessage) (StreamEvents, error) {
	var events StreamEvents
	var parseErrs []error
	for _, raw := range records {
		var rec wsOrderData
		if err := json.Unmarshal(raw, &rec); err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("decode order record: %w", err))
			continue
		}
		order, trade, err := n.normalizeOrderRecord(rec)
		if err != nil {
			parseErrs = append(parseErrs, err)
			continue
		}
		events.Orders = append(events.Orders, order)
		if trade != nil {
			events.Trades = append(events.Trades, *trade)
		}
	}
	return events, errors.Join(parseErrs...)
}

func (n *Normalizer) normalizeOrderRecord(rec wsOrderData) (schema.OrderUpdate, *schema.TradeUpdate, error) {
	state, err := wsOrderState(rec.Status)
	if err != nil {
		return schema.OrderUpdate{}, nil, err
	}
	pair, err := n.symbols.PairFor(rec.InstID)
	if err != nil {
		return schema.OrderUpdate{}, nil, err
	}

	order := schema.OrderUpdate{
		ClientOrderID:   rec.ClientID,
		ExchangeOrderID: rec.OrderID,
		TradingPair:     pair,
		State:           state,
		Timestamp:       millisTime(rec.UpdateTime),
	}

	if rec.FillSize == "" || rec.TradeID == "" {
		return order, nil, nil
	}

	fillSize, ok := numeric.Parse(rec.FillSize)
	if !ok {
		return schema.OrderUpdate{}, nil, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unparseable fill size"),
			errs.WithRawMessage(rec.FillSize))
	}
	fillPrice, ok := numeric.Parse(rec.FillPrice)
	if !ok {
		return schema.OrderUpdate{}, nil, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unparseable fill price"),
			errs.WithRawMessage(rec.FillPrice))
	}

	trade := &schema.TradeUpdate{
		TradeID:         rec.TradeID,
		ClientOrderID:   rec.ClientID,
		ExchangeOrderID: rec.OrderID,
		TradingPair:     pair,
		Price:           fillPrice,
		BaseAmount:      fillSize,
		QuoteAmount:     fillPrice.Mul(fillSize),
		Fee:             normalizeFee(rec.FillFee, rec.FillFeeCcy),
		Timestamp:       millisTime(rec.FillTime),
	}
	return order, trade, nil
}

func (n *Normalizer) normalizeBalanceRecords(records []json.RawMessage) (StreamEvents, error) {
	var events StreamEvents
	var parseErrs []error
	for _, raw := range records {
		var rec wsBalanceData
		if err := json.Unmarshal(raw, &rec); err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("decode balance record: %w", err))
			continue
		}
		available, ok := numeric.Parse(rec.Available)
		if !ok {
			parseErrs = append(parseErrs, errs.New(venueName, errs.CodeParse,
				errs.WithMessage("unparseable available balance"),
				errs.WithRawMessage(rec.Available)))
			continue
		}
		frozen := decimal.Zero
		if rec.Frozen != "" {
			frozen, ok = numeric.Parse(rec.Frozen)
			if !ok {
				parseErrs = append(parseErrs, errs.New(venueName, errs.CodeParse,
					errs.WithMessage("unparseable frozen balance"),
					errs.WithRawMessage(rec.Frozen)))
				continue
			}
		}
		events.Balances = append(events.Balances, schema.BalanceUpdate{
			Asset:     schema.NormalizeAssetCode(rec.CoinName),
			Available: available,
			Total:     available.Add(frozen),
		})
	}
	return events, errors.Join(parseErrs...)
}

// normalizeFee builds a flat fee when the venue reported a non-zero amount.
// Zero or absent amounts still carry the fee currency, which becomes the
// percent token of a zero-percent fee. Venue fee amounts arrive negative for
// deductions.
func normalizeFee(amount, asset string) schema.Fee {
	if asset == "" {
		return schema.Fee{}
	}
	token := schema.NormalizeAssetCode(asset)
	value, ok := numeric.Parse(amount)
	if !ok || value.IsZero() {
		return schema.Fee{PercentToken: token}
	}
	return schema.Fee{
		Asset:  token,
		Amount: value.Abs(),
	}
}

// restOpenOrder mirrors an entry of the open-orders listing.
type restOpenOrder struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	CreateTime    string `json:"cTime"`
}

func (n *Normalizer) NormalizeRESTOrder(rec restOpenOrder, pair string) (schema.OrderUpdate, error) {
	state, err := restOrderState(rec.Status)
	if err != nil {
		return schema.OrderUpdate{}, err
	}
	return schema.OrderUpdate{
		ClientOrderID:   rec.ClientOrderID,
		ExchangeOrderID: rec.OrderID,
		TradingPair:     pair,
		State:           state,
		Timestamp:       millisTime(rec.CreateTime),
	}, nil
}

// restFill mirrors an entry of the account trade-fills listing.
type restFill struct {
	Symbol    string      `json:"symbol"`
	OrderID   string      `json:"orderId"`
	TradeID   string      `json:"tradeId"`
	Side      string      `json:"side"`
	PriceAvg  string      `json:"priceAvg"`
	Size      string      `json:"size"`
	Amount    string      `json:"amount"`
	FeeDetail restFillFee `json:"feeDetail"`
	Time      string      `json:"cTime"`
}

type restFillFee struct {
	FeeCoin  string `json:"feeCoin"`
	TotalFee string `json:"totalFee"`
}

func (n *Normalizer) NormalizeRESTFill(rec restFill, pair string) (schema.TradeUpdate, error) {
	price, ok := numeric.Parse(rec.PriceAvg)
	if !ok {
		return schema.TradeUpdate{}, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unparseable fill price"),
			errs.WithRawMessage(rec.PriceAvg))
	}
	size, ok := numeric.Parse(rec.Size)
	if !ok {
		return schema.TradeUpdate{}, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unparseable fill size"),
			errs.WithRawMessage(rec.Size))
	}
	quote, ok := numeric.Parse(rec.Amount)
	if !ok {
		quote = price.Mul(size)
	}
	return schema.TradeUpdate{
		TradeID:         rec.TradeID,
		ExchangeOrderID: rec.OrderID,
		TradingPair:     pair,
		Price:           price,
		BaseAmount:      size,
		QuoteAmount:     quote,
		Fee:             normalizeFee(rec.FeeDetail.TotalFee, rec.FeeDetail.FeeCoin),
		Timestamp:       millisTime(rec.Time),
	}, nil
}

// restBalance mirrors an entry of the account assets listing.
type restBalance struct {
	Coin      string `json:"coin"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
	Locked    string `json:"locked"`
}

// NormalizeRESTBalances converts an assets snapshot. Malformed entries are
// skipped so one bad asset cannot block the whole snapshot.
func (n *Normalizer) NormalizeRESTBalances(records []restBalance) []schema.BalanceUpdate {
	updates := make([]schema.BalanceUpdate, 0, len(records))
	for _, rec := range records {
		available, ok := numeric.Parse(rec.Available)
		if !ok {
			continue
		}
		total := available
		if frozen, ok := numeric.Parse(rec.Frozen); ok {
			total = total.Add(frozen)
		}
		if locked, ok := numeric.Parse(rec.Locked); ok {
			total = total.Add(locked)
		}
		updates = append(updates, schema.BalanceUpdate{
			Asset:     schema.NormalizeAssetCode(rec.Coin),
			Available: available,
			Total:     total,
		})
	}
	return updates
}

func millisTime(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
