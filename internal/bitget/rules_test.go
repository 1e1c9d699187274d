package bitget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func goodProduct() productRecord {
	return productRecord{
		Symbol:         "BTCUSDT_SPBL",
		BaseCoin:       "btc",
		QuoteCoin:      "usdt",
		Status:         statusOnline,
		PriceScale:     "2",
		QuantityScale:  "4",
		MinTradeAmount: "0.0001",
		MinTradeUSDT:   "5",
	}
}

func TestParseInstruments(t *testing.T) {
	instruments := parseInstruments([]productRecord{goodProduct()})
	require.Len(t, instruments, 1)

	inst := instruments[0]
	require.Equal(t, "BTCUSDT_SPBL", inst.Symbol)
	require.Equal(t, "BTC", inst.BaseAsset)
	require.Equal(t, "USDT", inst.QuoteAsset)
	require.Equal(t, 2, inst.PriceScale)
	require.Equal(t, 4, inst.QuantityScale)
	require.True(t, inst.MinTradeAmount.Equal(decimal.RequireFromString("0.0001")))
	require.True(t, inst.MinTradeValue.Equal(decimal.NewFromInt(5)))
}

func TestParseInstrumentsSkipsMalformedRecords(t *testing.T) {
	badScale := goodProduct()
	badScale.Symbol = "ETHUSDT_SPBL"
	badScale.PriceScale = "two"

	badAmount := goodProduct()
	badAmount.Symbol = "XRPUSDT_SPBL"
	badAmount.MinTradeAmount = ""

	missingCoin := goodProduct()
	missingCoin.Symbol = "NOCOIN_SPBL"
	missingCoin.BaseCoin = ""

	instruments := parseInstruments([]productRecord{badScale, goodProduct(), badAmount, missingCoin})
	require.Len(t, instruments, 1)
	require.Equal(t, "BTCUSDT_SPBL", instruments[0].Symbol)
}

func TestBuildTradingRules(t *testing.T) {
	instruments := parseInstruments([]productRecord{goodProduct()})
	rules := buildTradingRules(instruments)
	require.Len(t, rules, 1)

	rule, ok := rules["BTC-USDT"]
	require.True(t, ok)
	require.True(t, rule.MinPriceIncrement.Equal(decimal.RequireFromString("0.01")))
	require.True(t, rule.MinBaseAmountIncrement.Equal(decimal.RequireFromString("0.0001")))
	require.True(t, rule.MinOrderSize.Equal(decimal.RequireFromString("0.0001")))
	require.True(t, rule.MinNotionalSize.Equal(decimal.NewFromInt(5)))
}

func TestBuildTradingRulesExcludesOffline(t *testing.T) {
	halted := goodProduct()
	halted.Symbol = "HALTUSDT_SPBL"
	halted.BaseCoin = "halt"
	halted.Status = "halt"

	rules := buildTradingRules(parseInstruments([]productRecord{goodProduct(), halted}))
	require.Len(t, rules, 1)
	_, ok := rules["HALT-USDT"]
	require.False(t, ok)
}
