// Package bitget implements the Bitget spot venue adapter: request signing,
// symbol mapping, trading rules, payload normalization, REST and websocket
// transports, and the order lifecycle driver.
package bitget

import "time"

const (
	venueName = "bitget"

	defaultRESTBaseURL  = "https://api.bitget.com"
	defaultWebsocketURL = "wss://ws.bitget.com/spot/v1/stream"

	serverTimePath   = "/api/spot/v1/public/time"
	productsPath     = "/api/spot/v1/public/products"
	tickerPath       = "/api/v2/spot/market/tickers"
	depthPath        = "/api/spot/v1/market/depth"
	accountsPath     = "/api/v2/spot/account/assets"
	openOrdersPath   = "/api/spot/v1/trade/open-orders"
	fillsPath        = "/api/v2/spot/trade/fills"
	placeOrderPath   = "/api/spot/v1/trade/orders"
	cancelOrderPath  = "/api/spot/v1/trade/cancel-order"
	wsLoginPath      = "/user/verify"
	instTypeSpot     = "spbl"
	channelOrders    = "orders"
	channelAccount   = "account"
	successCode      = "00000"
	successMessage   = "success"
	sideBuy          = "buy"
	sideSell         = "sell"
	forceGTC         = "normal"
	statusOnline     = "online"
	clientIDPrefix   = "HBOT"
	clientIDMaxLen   = 32
	unknownOrderID   = "UNKNOWN"
	orderNotFoundRaw = "40009"
	timestampSkewRaw = "40007"
)

const (
	defaultHTTPTimeout     = 10 * time.Second
	defaultPingInterval    = 20 * time.Second
	defaultPingTimeout     = 5 * time.Second
	defaultMaxReconnect    = 20 * time.Second
	defaultReadLimit       = 1 << 20
	defaultLightPoll       = 10 * time.Second
	defaultFullPoll        = 60 * time.Second
	defaultTerminalGrace   = 30 * time.Minute
	ipRequestsPerMinute    = 1200
	uidRequestsPerMinute   = 900
	wsReadyTimeout         = 10 * time.Second
	errorBodyLimit         = 4 << 10
	overloadedStatus       = 503
	depthLevelsForEstimate = 100
)
