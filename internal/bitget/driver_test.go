package bitget

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/timesync"
)

func testDriver(t *testing.T, handler http.HandlerFunc) *driver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	signer, err := NewSigner("key", "secret", "pass", timesync.ClockFunc(func() time.Time {
		return time.UnixMilli(1700000000000)
	}))
	require.NoError(t, err)
	rest := newRESTClient(server.URL, server.Client(), signer)

	symbols := NewSymbolMap()
	symbols.Replace([]schema.Instrument{
		instrument("BTCUSDT_SPBL", "BTC", "USDT", statusOnline),
	})

	rule := schema.TradingRule{
		TradingPair:            "BTC-USDT",
		MinOrderSize:           decimal.RequireFromString("0.0001"),
		MinPriceIncrement:      decimal.RequireFromString("0.01"),
		MinBaseAmountIncrement: decimal.RequireFromString("0.0001"),
		MinNotionalSize:        decimal.NewFromInt(5),
	}

	sync := timesync.NewSynchronizer(rest, func() time.Time { return time.UnixMilli(1700000000000) })
	return newDriver(rest, symbols, sync, func(pair string) (schema.TradingRule, bool) {
		if pair != "BTC-USDT" {
			return schema.TradingRule{}, false
		}
		return rule, true
	})
}

func TestNewClientOrderID(t *testing.T) {
	buy := NewClientOrderID(schema.TradeSideBuy)
	sell := NewClientOrderID(schema.TradeSideSell)
	require.True(t, strings.HasPrefix(buy, clientIDPrefix+"B"))
	require.True(t, strings.HasPrefix(sell, clientIDPrefix+"S"))
	require.LessOrEqual(t, len(buy), clientIDMaxLen)
	require.NotEqual(t, buy, NewClientOrderID(schema.TradeSideBuy))
}

func TestPlaceLimitOrderQuantizesParams(t *testing.T) {
	var got placeOrderRequest
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, placeOrderPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","requestTime":1700000000500,"data":{"orderId":"9001"}}`))
	})

	result, err := d.Place(context.Background(), PlaceRequest{
		ClientOrderID: "HBOTB1",
		TradingPair:   "BTC-USDT",
		Side:          schema.TradeSideBuy,
		Type:          schema.OrderTypeLimit,
		Price:         decimal.RequireFromString("50000.005"),
		Amount:        decimal.RequireFromString("0.12349"),
	})
	require.NoError(t, err)
	require.Equal(t, "9001", result.ExchangeOrderID)
	require.Equal(t, int64(1700000000500), result.TransactTime.UnixMilli())

	require.Equal(t, "BTCUSDT_SPBL", got.Symbol)
	require.Equal(t, sideBuy, got.Side)
	require.Equal(t, "limit", got.OrderType)
	require.Equal(t, forceGTC, got.Force)
	require.Equal(t, "50000", got.Price)
	require.Equal(t, "0.1234", got.Quantity)
	require.Equal(t, "HBOTB1", got.ClientOrderID)
}

func TestPlaceRejectsDustAmount(t *testing.T) {
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := d.Place(context.Background(), PlaceRequest{
		TradingPair: "BTC-USDT",
		Side:        schema.TradeSideBuy,
		Type:        schema.OrderTypeLimit,
		Price:       decimal.NewFromInt(50000),
		Amount:      decimal.RequireFromString("0.00001"),
	})
	require.True(t, errs.HasCode(err, errs.CodeExchange))
}

func TestMarketBuyEstimatesPriceFromDepth(t *testing.T) {
	var got placeOrderRequest
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case depthPath:
			_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":{"asks":[["50000","0.3"],["50100","0.5"]],"bids":[]}}`))
		case placeOrderPath:
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &got))
			_, _ = w.Write([]byte(`{"code":"00000","msg":"success","requestTime":1700000000500,"data":{"orderId":"9002"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	_, err := d.Place(context.Background(), PlaceRequest{
		ClientOrderID: "HBOTB2",
		TradingPair:   "BTC-USDT",
		Side:          schema.TradeSideBuy,
		Type:          schema.OrderTypeMarket,
		Amount:        decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	require.Equal(t, "market", got.OrderType)
	// Worst consumed ask is 50100; quote quantity = 50100 * 0.5.
	require.Equal(t, "25050", got.Quantity)
	require.Empty(t, got.Price)
}

func TestMarketBuyInsufficientDepth(t *testing.T) {
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, depthPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":{"asks":[["50000","0.1"]],"bids":[]}}`))
	})

	_, err := d.Place(context.Background(), PlaceRequest{
		TradingPair: "BTC-USDT",
		Side:        schema.TradeSideBuy,
		Type:        schema.OrderTypeMarket,
		Amount:      decimal.NewFromInt(1),
	})
	require.True(t, errs.HasCode(err, errs.CodeInsufficientLiquidity))
}

func TestPlaceOverloadReturnsSentinel(t *testing.T) {
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	})

	result, err := d.Place(context.Background(), PlaceRequest{
		ClientOrderID: "HBOTB3",
		TradingPair:   "BTC-USDT",
		Side:          schema.TradeSideSell,
		Type:          schema.OrderTypeLimit,
		Price:         decimal.NewFromInt(50000),
		Amount:        decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)
	require.Equal(t, unknownOrderID, result.ExchangeOrderID)
	require.False(t, result.TransactTime.IsZero())
}

func TestTimestampSkewResyncsAndRetriesOnce(t *testing.T) {
	var placeCalls, timeCalls atomic.Int32
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case serverTimePath:
			timeCalls.Add(1)
			_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":"1700000000123"}`))
		case placeOrderPath:
			if placeCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"40007","msg":"request timestamp expired"}`))
				return
			}
			_, _ = w.Write([]byte(`{"code":"00000","msg":"success","requestTime":1700000000500,"data":{"orderId":"9003"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	result, err := d.Place(context.Background(), PlaceRequest{
		ClientOrderID: "HBOTB4",
		TradingPair:   "BTC-USDT",
		Side:          schema.TradeSideBuy,
		Type:          schema.OrderTypeLimit,
		Price:         decimal.NewFromInt(50000),
		Amount:        decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)
	require.Equal(t, "9003", result.ExchangeOrderID)
	require.Equal(t, int32(2), placeCalls.Load())
	require.Equal(t, int32(1), timeCalls.Load())
}

func TestTimestampSkewRetriesExactlyOnce(t *testing.T) {
	var placeCalls atomic.Int32
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case serverTimePath:
			_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":"1700000000123"}`))
		case placeOrderPath:
			placeCalls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"40007","msg":"request timestamp expired"}`))
		}
	})

	_, err := d.Place(context.Background(), PlaceRequest{
		ClientOrderID: "HBOTB5",
		TradingPair:   "BTC-USDT",
		Side:          schema.TradeSideBuy,
		Type:          schema.OrderTypeLimit,
		Price:         decimal.NewFromInt(50000),
		Amount:        decimal.RequireFromString("0.1"),
	})
	require.True(t, errs.HasCode(err, errs.CodeTimestampSkew))
	require.Equal(t, int32(2), placeCalls.Load())
}

func TestCancelSuccessOnlyOnExactMarker(t *testing.T) {
	reply := `{"code":"00000","msg":"success","data":"9001"}`
	var got cancelOrderRequest
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, cancelOrderPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(reply))
	})

	ok, err := d.Cancel(context.Background(), "BTC-USDT", "9001", "HBOTB1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "9001", got.OrderID)
	require.Empty(t, got.ClientOrderID)

	// Success code with a different message is not a confirmed cancel.
	reply = `{"code":"00000","msg":"pending","data":"9001"}`
	ok, err = d.Cancel(context.Background(), "BTC-USDT", "9001", "HBOTB1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCancelFallsBackToClientOrderID(t *testing.T) {
	var got cancelOrderRequest
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":"ok"}`))
	})

	ok, err := d.Cancel(context.Background(), "BTC-USDT", unknownOrderID, "HBOTB6")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, got.OrderID)
	require.Equal(t, "HBOTB6", got.ClientOrderID)
}

func TestCancelOrderNotFoundSurfaces(t *testing.T) {
	d := testDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"40009","msg":"order not exists"}`))
	})

	_, err := d.Cancel(context.Background(), "BTC-USDT", "9001", "HBOTB1")
	require.True(t, errs.HasCode(err, errs.CodeOrderNotFound))
}
