package bitget

import (
	"strconv"

	"github.com/Duc-Dopaminne-1/hummingbot/internal/numeric"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/observability"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
)

// productRecord mirrors a single entry of the venue product listing.
type productRecord struct {
	Symbol         string `json:"symbol"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	Status         string `json:"status"`
	PriceScale     string `json:"priceScale"`
	QuantityScale  string `json:"quantityScale"`
	MinTradeAmount string `json:"minTradeAmount"`
	MinTradeUSDT   string `json:"minTradeUSDT"`
}

// parseInstruments converts raw product records into instruments. A record
// that fails to parse is logged and skipped; one malformed entry must not
// take down the whole snapshot.
func parseInstruments(records []productRecord) []schema.Instrument {
	instruments := make([]schema.Instrument, 0, len(records))
	for _, rec := range records {
		inst, err := parseInstrument(rec)
		if err != nil {
			observability.Log().Warn("skipping malformed product record",
				observability.F("symbol", rec.Symbol),
				observability.F("error", err.Error()))
			continue
		}
		instruments = append(instruments, inst)
	}
	return instruments
}

func parseInstrument(rec productRecord) (schema.Instrument, error) {
	priceScale, err := strconv.Atoi(rec.PriceScale)
	if err != nil {
		return schema.Instrument{}, &fieldError{field: "priceScale", value: rec.PriceScale}
	}
	quantityScale, err := strconv.Atoi(rec.QuantityScale)
	if err != nil {
		return schema.Instrument{}, &fieldError{field: "quantityScale", value: rec.QuantityScale}
	}
	minAmount, ok := numeric.Parse(rec.MinTradeAmount)
	if !ok {
		return schema.Instrument{}, &fieldError{field: "minTradeAmount", value: rec.MinTradeAmount}
	}
	minValue, ok := numeric.Parse(rec.MinTradeUSDT)
	if !ok {
		return schema.Instrument{}, &fieldError{field: "minTradeUSDT", value: rec.MinTradeUSDT}
	}
	if rec.BaseCoin == "" || rec.QuoteCoin == "" {
		return schema.Instrument{}, &fieldError{field: "coin", value: rec.BaseCoin + "/" + rec.QuoteCoin}
	}
	return schema.Instrument{
		Symbol:         rec.Symbol,
		BaseAsset:      schema.NormalizeAssetCode(rec.BaseCoin),
		QuoteAsset:     schema.NormalizeAssetCode(rec.QuoteCoin),
		Status:         rec.Status,
		PriceScale:     priceScale,
		QuantityScale:  quantityScale,
		MinTradeAmount: minAmount,
		MinTradeValue:  minValue,
	}, nil
}

type fieldError struct {
	field string
	value string
}

func (e *fieldError) Error() string {
	return "unparseable product field " + e.field + ": " + strconv.Quote(e.value)
}

// buildTradingRules derives order validation rules from online instruments.
// Price and size increments come from the venue decimal scales.
func buildTradingRules(instruments []schema.Instrument) map[string]schema.TradingRule {
	rules := make(map[string]schema.TradingRule, len(instruments))
	for _, inst := range instruments {
		if inst.Status != statusOnline {
			continue
		}
		pair := schema.CombinePair(inst.BaseAsset, inst.QuoteAsset)
		if _, ok := rules[pair]; ok {
			continue
		}
		rules[pair] = schema.TradingRule{
			TradingPair:            pair,
			MinOrderSize:           inst.MinTradeAmount,
			MinPriceIncrement:      numeric.IncrementFromScale(inst.PriceScale),
			MinBaseAmountIncrement: numeric.IncrementFromScale(inst.QuantityScale),
			MinNotionalSize:        inst.MinTradeValue,
		}
	}
	return rules
}
