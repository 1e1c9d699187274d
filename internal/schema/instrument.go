package schema

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
)

// Instrument is a venue instrument listing record after minimal cleanup.
type Instrument struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	Status         string
	PriceScale     int
	QuantityScale  int
	MinTradeAmount decimal.Decimal
	MinTradeValue  decimal.Decimal
}

// TradingRule captures numeric order constraints derived per trading pair.
type TradingRule struct {
	TradingPair            string
	MinOrderSize           decimal.Decimal
	MinPriceIncrement      decimal.Decimal
	MinBaseAmountIncrement decimal.Decimal
	MinNotionalSize        decimal.Decimal
}

// CombinePair builds the canonical BASE-QUOTE trading pair identifier.
func CombinePair(base, quote string) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return ""
	}
	return base + "-" + quote
}

// ValidatePair verifies the canonical trading pair representation (BASE-QUOTE).
func ValidatePair(pair string) error {
	pair = strings.TrimSpace(pair)
	if pair == "" {
		return errs.New("schema/pair", errs.CodeConfiguration, errs.WithMessage("trading pair required"))
	}
	parts := strings.Split(pair, "-")
	if len(parts) != 2 {
		return errs.New("schema/pair", errs.CodeConfiguration, errs.WithMessage("trading pair requires base-quote"))
	}
	for _, part := range parts {
		if part == "" {
			return errs.New("schema/pair", errs.CodeConfiguration, errs.WithMessage("trading pair contains empty leg"))
		}
		if strings.ToUpper(part) != part {
			return errs.New("schema/pair", errs.CodeConfiguration, errs.WithMessage("trading pair must be uppercase"))
		}
	}
	return nil
}

// NormalizeAssetCode uppercases and trims an asset code.
func NormalizeAssetCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
