package bitget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/timesync"
)

func testRESTClient(t *testing.T, handler http.HandlerFunc) *restClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	signer, err := NewSigner("key", "secret", "pass", timesync.ClockFunc(func() time.Time {
		return time.UnixMilli(1700000000000)
	}))
	require.NoError(t, err)
	return newRESTClient(server.URL, server.Client(), signer)
}

func TestServerTime(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, serverTimePath, r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":"1700000000123"}`))
	})

	at, err := client.ServerTime(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1700000000123), at.UnixMilli())
}

func TestSignedRequestCarriesAuthHeaders(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.Header.Get("ACCESS-KEY"))
		require.Equal(t, "pass", r.Header.Get("ACCESS-PASSPHRASE"))
		require.NotEmpty(t, r.Header.Get("ACCESS-SIGN"))
		require.Equal(t, "1700000000000", r.Header.Get("ACCESS-TIMESTAMP"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":[]}`))
	})

	_, err := client.FetchBalances(context.Background())
	require.NoError(t, err)
}

func TestVenueErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want errs.Code
	}{
		{"order not found", `{"code":"40009","msg":"order not exists"}`, errs.CodeOrderNotFound},
		{"timestamp skew", `{"code":"40007","msg":"request timestamp expired"}`, errs.CodeTimestampSkew},
		{"generic venue error", `{"code":"43011","msg":"parameter error"}`, errs.CodeExchange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := tc.raw
			client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(payload))
			})
			_, err := client.FetchBalances(context.Background())
			require.True(t, errs.HasCode(err, tc.want), "got %v", err)
		})
	}
}

func TestUndecodableErrorBodyMapsToTransport(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream overloaded"))
	})

	_, err := client.FetchBalances(context.Background())
	require.True(t, errs.HasCode(err, errs.CodeTransport))
	var envelope *errs.E
	require.ErrorAs(t, err, &envelope)
	require.Equal(t, http.StatusServiceUnavailable, envelope.HTTP)
}

func TestPlaceOrderReturnsIDAndRequestTime(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, placeOrderPath, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","requestTime":1700000000500,"data":{"orderId":"9001","clientOrderId":"HBOTB1"}}`))
	})

	orderID, transactTime, err := client.PlaceOrder(context.Background(), placeOrderRequest{
		Symbol:        "BTCUSDT_SPBL",
		Side:          sideBuy,
		OrderType:     "limit",
		Force:         forceGTC,
		Price:         "50000",
		Quantity:      "1",
		ClientOrderID: "HBOTB1",
	})
	require.NoError(t, err)
	require.Equal(t, "9001", orderID)
	require.Equal(t, int64(1700000000500), transactTime.UnixMilli())
}

func TestCancelOrderReturnsEnvelopeMessage(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, cancelOrderPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":"9001"}`))
	})

	msg, err := client.CancelOrder(context.Background(), cancelOrderRequest{Symbol: "BTCUSDT_SPBL", OrderID: "9001"})
	require.NoError(t, err)
	require.Equal(t, successMessage, msg)
}

func TestFetchLastPrice(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, tickerPath, r.URL.Path)
		require.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":[{"symbol":"BTCUSDT","lastPr":"50123.5"}]}`))
	})

	price, err := client.FetchLastPrice(context.Background(), "BTCUSDT_SPBL")
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("50123.5")))
}

func TestFetchDepthPassesQuery(t *testing.T) {
	client := testRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, depthPath, r.URL.Path)
		require.Equal(t, "BTCUSDT_SPBL", r.URL.Query().Get("symbol"))
		require.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":{"asks":[["50000","1"]],"bids":[["49999","2"]]}}`))
	})

	snapshot, err := client.FetchDepth(context.Background(), "BTCUSDT_SPBL", depthLevelsForEstimate)
	require.NoError(t, err)
	require.Len(t, snapshot.Asks, 1)
	require.Len(t, snapshot.Bids, 1)
}
