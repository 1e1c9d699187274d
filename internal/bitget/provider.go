package bitget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/observability"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/recon"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/timesync"
)

// Connector wires the venue adapter together: REST client, private stream,
// normalizer, reconciliation engine and order driver.
type Connector struct {
	opts       Options
	rest       *restClient
	symbols    *SymbolMap
	normalizer *Normalizer
	engine     *recon.Engine
	driver     *driver
	clock      *timesync.Synchronizer
	metrics    *observability.RuntimeMetrics

	rulesMu sync.RWMutex
	rules   map[string]schema.TradingRule

	ws     *wsManager
	wsErrs chan error

	runCtx context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	pollMu       sync.Mutex
	lastFillPoll time.Time
	lastFullPoll time.Time
}

// NewConnector validates credentials and assembles the adapter. Nothing
// touches the network until Start.
func NewConnector(opts Options) (*Connector, error) {
	opts = withDefaults(opts)

	c := &Connector{
		opts:    opts,
		symbols: NewSymbolMap(),
		metrics: observability.NewRuntimeMetrics(),
		rules:   make(map[string]schema.TradingRule),
		wsErrs:  make(chan error, 16),
	}

	rest := newRESTClient(opts.RESTBaseURL, opts.HTTPClient, nil)
	c.clock = timesync.NewSynchronizer(rest, opts.LocalClock)

	signer, err := NewSigner(opts.APIKey, opts.APISecret, opts.Passphrase, c.clock)
	if err != nil {
		return nil, err
	}
	rest.signer = signer

	c.rest = rest
	c.normalizer = NewNormalizer(c.symbols)
	c.engine = recon.NewEngine(venueName, opts.Sink, c.metrics)
	c.driver = newDriver(rest, c.symbols, c.clock, c.TradingRule)

	c.runCtx, c.cancel = context.WithCancel(context.Background())
	c.ws = newWSManager(c.runCtx, opts.WebsocketURL, signer, c.handleStreamMessage, c.wsErrs)
	return c, nil
}

// Start synchronizes the clock, loads instruments and balances, connects the
// private stream and launches the poll loops.
func (c *Connector) Start(ctx context.Context) error {
	if err := c.clock.Resync(ctx); err != nil {
		return fmt.Errorf("initial time sync: %w", err)
	}
	if err := c.refreshInstruments(ctx); err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	if err := c.refreshBalances(ctx); err != nil {
		return fmt.Errorf("prime balances: %w", err)
	}
	if err := c.ws.start(); err != nil {
		return fmt.Errorf("connect private stream: %w", err)
	}

	c.pollMu.Lock()
	c.lastFillPoll = c.clock.Now()
	c.lastFullPoll = c.clock.Now()
	c.pollMu.Unlock()

	c.wg.Go(func() { c.pollLoop(c.runCtx) })
	c.wg.Go(func() { c.drainStreamErrors(c.runCtx) })

	observability.Log().Info("connector started",
		observability.F("venue", venueName),
		observability.F("pairs", len(c.opts.TradingPairs)))
	return nil
}

// Stop tears down the stream and waits for the loops to exit.
func (c *Connector) Stop() {
	c.cancel()
	c.ws.stop()
	c.wg.Wait()
}

// PlaceOrder tracks the order, submits it and binds the venue order id.
func (c *Connector) PlaceOrder(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = NewClientOrderID(req.Side)
	}
	tracked := recon.TrackedOrder{
		ClientOrderID: req.ClientOrderID,
		TradingPair:   req.TradingPair,
		Side:          req.Side,
		Type:          req.Type,
		Price:         req.Price,
		Amount:        req.Amount,
	}
	if !c.engine.StartTracking(tracked) {
		return PlaceResult{}, errs.New(venueName, errs.CodeExchange,
			errs.WithMessage("duplicate client order id "+req.ClientOrderID))
	}

	result, err := c.driver.Place(ctx, req)
	if err != nil {
		c.engine.ApplyOrderUpdate(schema.OrderUpdate{
			ClientOrderID: req.ClientOrderID,
			TradingPair:   req.TradingPair,
			State:         schema.OrderStateFailed,
			Timestamp:     c.clock.Now(),
		})
		return PlaceResult{}, err
	}
	if result.ExchangeOrderID != unknownOrderID {
		c.engine.BindExchangeID(req.ClientOrderID, result.ExchangeOrderID)
	}
	return result, nil
}

// CancelOrder cancels a tracked order by its client order id.
func (c *Connector) CancelOrder(ctx context.Context, clientOrderID string) (bool, error) {
	order, ok := c.engine.OrderStatus(clientOrderID)
	if !ok {
		return false, errs.New(venueName, errs.CodeOrderNotFound,
			errs.WithMessage("untracked client order id "+clientOrderID))
	}
	return c.driver.Cancel(ctx, order.TradingPair, order.ExchangeOrderID, order.ClientOrderID)
}

// StopTracking releases an order from reconciliation, typically after the
// owning engine has consumed its terminal event.
func (c *Connector) StopTracking(clientOrderID string) bool {
	return c.engine.StopTracking(clientOrderID)
}

// TradingRule returns the rule for one trading pair.
func (c *Connector) TradingRule(pair string) (schema.TradingRule, bool) {
	c.rulesMu.RLock()
	defer c.rulesMu.RUnlock()
	rule, ok := c.rules[pair]
	return rule, ok
}

// TradingRules returns all current rules.
func (c *Connector) TradingRules() map[string]schema.TradingRule {
	c.rulesMu.RLock()
	defer c.rulesMu.RUnlock()
	out := make(map[string]schema.TradingRule, len(c.rules))
	for pair, rule := range c.rules {
		out[pair] = rule
	}
	return out
}

// Balance returns the reconciled balance for an asset.
func (c *Connector) Balance(asset string) (schema.BalanceUpdate, bool) {
	return c.engine.Balance(asset)
}

// OrderStatus returns the reconciled view of a tracked order.
func (c *Connector) OrderStatus(clientOrderID string) (recon.TrackedOrder, bool) {
	return c.engine.OrderStatus(clientOrderID)
}

// LastTradedPrice fetches the current ticker price for a trading pair.
func (c *Connector) LastTradedPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	symbol, err := c.symbols.SymbolFor(pair)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return c.rest.FetchLastPrice(ctx, symbol)
}

// MetricsSnapshot exposes the reconciliation counters.
func (c *Connector) MetricsSnapshot() observability.ReconMetricsSnapshot {
	return c.engine.MetricsSnapshot()
}

func (c *Connector) refreshInstruments(ctx context.Context) error {
	records, err := c.rest.FetchProducts(ctx)
	if err != nil {
		return err
	}
	instruments := parseInstruments(records)
	c.symbols.Replace(instruments)

	rules := buildTradingRules(instruments)
	c.rulesMu.Lock()
	c.rules = rules
	c.rulesMu.Unlock()
	return nil
}

func (c *Connector) refreshBalances(ctx context.Context) error {
	records, err := c.rest.FetchBalances(ctx)
	if err != nil {
		return err
	}
	c.engine.ApplyBalanceSnapshot(c.normalizer.NormalizeRESTBalances(records), c.clock.Now())
	return nil
}

// handleStreamMessage applies one private stream frame to the engine.
// Normalization failures drop the frame, never the connection.
func (c *Connector) handleStreamMessage(data []byte) {
	events, err := c.normalizer.NormalizeStreamMessage(data)
	if err != nil {
		observability.Log().Warn("stream message dropped",
			observability.F("error", err.Error()))
	}
	for _, update := range events.Orders {
		c.engine.ApplyOrderUpdate(update)
	}
	for _, fill := range events.Trades {
		if !c.engine.ApplyTradeUpdate(fill) {
			c.engine.RecordExternalFill(fill)
		}
	}
	now := c.clock.Now()
	for _, balance := range events.Balances {
		c.engine.ApplyBalanceUpdate(balance, now)
	}
}

func (c *Connector) drainStreamErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-c.wsErrs:
			if !ok {
				return
			}
			observability.Log().Warn("private stream error",
				observability.F("error", err.Error()))
		}
	}
}

// pollLoop reconciles through REST on two cadences: a light pass while
// orders are in flight and a full pass on the long interval regardless.
func (c *Connector) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.LightPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Connector) pollOnce(ctx context.Context) {
	c.pollMu.Lock()
	full := c.clock.Now().Sub(c.lastFullPoll) >= c.opts.FullPollInterval
	since := c.lastFillPoll
	c.pollMu.Unlock()

	if !full && !c.engine.HasInFlight() {
		return
	}

	pollStart := c.clock.Now()
	failed := false

	for _, pair := range c.trackedPairs() {
		symbol, err := c.symbols.SymbolFor(pair)
		if err != nil {
			continue
		}
		if err := c.pollFills(ctx, symbol, pair, since); err != nil {
			c.recordPollFailure("fills", pair, err)
			failed = true
		}
		if err := c.pollOpenOrders(ctx, symbol, pair); err != nil {
			c.recordPollFailure("open orders", pair, err)
			failed = true
		}
	}

	if full {
		if err := c.refreshBalances(ctx); err != nil {
			c.recordPollFailure("balances", "", err)
			failed = true
		}
		if err := c.refreshInstruments(ctx); err != nil {
			c.recordPollFailure("instruments", "", err)
			failed = true
		}
		c.engine.PurgeTerminal(c.opts.TerminalGrace, c.clock.Now())
	}

	c.pollMu.Lock()
	if !failed {
		c.lastFillPoll = pollStart
	}
	if full {
		c.lastFullPoll = pollStart
	}
	c.pollMu.Unlock()
}

func (c *Connector) pollFills(ctx context.Context, symbol, pair string, since time.Time) error {
	records, err := c.rest.FetchFills(ctx, symbol, since)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fill, err := c.normalizer.NormalizeRESTFill(rec, pair)
		if err != nil {
			observability.Log().Warn("skipping malformed fill record",
				observability.F("trade_id", rec.TradeID),
				observability.F("error", err.Error()))
			continue
		}
		if !c.engine.ApplyTradeUpdate(fill) {
			c.engine.RecordExternalFill(fill)
		}
	}
	return nil
}

func (c *Connector) pollOpenOrders(ctx context.Context, symbol, pair string) error {
	records, err := c.rest.FetchOpenOrders(ctx, symbol)
	if err != nil {
		return err
	}
	for _, rec := range records {
		update, err := c.normalizer.NormalizeRESTOrder(rec, pair)
		if err != nil {
			observability.Log().Warn("skipping malformed order record",
				observability.F("order_id", rec.OrderID),
				observability.F("error", err.Error()))
			continue
		}
		c.engine.ApplyOrderUpdate(update)
	}
	return nil
}

// trackedPairs returns the configured pairs plus any pair with an in-flight
// order, so reconciliation never loses an order on a pair that was removed
// from configuration.
func (c *Connector) trackedPairs() []string {
	seen := make(map[string]struct{}, len(c.opts.TradingPairs))
	pairs := make([]string, 0, len(c.opts.TradingPairs))
	for _, pair := range c.opts.TradingPairs {
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	for _, order := range c.engine.InFlightOrders() {
		if _, ok := seen[order.TradingPair]; ok {
			continue
		}
		seen[order.TradingPair] = struct{}{}
		pairs = append(pairs, order.TradingPair)
	}
	return pairs
}

func (c *Connector) recordPollFailure(what, pair string, err error) {
	c.engine.RecordPollFailure()
	fields := []observability.Field{observability.F("what", what), observability.F("error", err.Error())}
	if pair != "" {
		fields = append(fields, observability.F("pair", pair))
	}
	observability.Log().Warn("poll pass failed", fields...)
}
