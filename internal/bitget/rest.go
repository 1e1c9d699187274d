package bitget

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/numeric"
)

// apiResponse is the venue REST envelope shared by every endpoint.
type apiResponse struct {
	Code        string          `json:"code"`
	Msg         string          `json:"msg"`
	RequestTime int64           `json:"requestTime"`
	Data        json.RawMessage `json:"data"`
}

// restClient issues signed and public requests against the venue REST API.
// Two limiters mirror the venue quota model: one per source address, one per
// authenticated account.
type restClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	ipLimiter  *rate.Limiter
	uidLimiter *rate.Limiter
}

func newRESTClient(baseURL string, httpClient *http.Client, signer *Signer) *restClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &restClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		signer:     signer,
		ipLimiter:  rate.NewLimiter(rate.Limit(float64(ipRequestsPerMinute)/60.0), ipRequestsPerMinute/60),
		uidLimiter: rate.NewLimiter(rate.Limit(float64(uidRequestsPerMinute)/60.0), uidRequestsPerMinute/60),
	}
}

func (c *restClient) get(ctx context.Context, path string, query url.Values, signed bool, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, signed, out)
}

func (c *restClient) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, true, out)
}

func (c *restClient) do(ctx context.Context, method, path string, query url.Values, body any, signed bool, out any) error {
	if err := c.ipLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("await request slot: %w", err)
	}
	if signed {
		if err := c.uidLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("await account request slot: %w", err)
		}
	}

	rawQuery := ""
	if len(query) > 0 {
		rawQuery = query.Encode()
	}
	endpoint := c.baseURL + path
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	payload := ""
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = string(encoded)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if signed {
		if c.signer == nil {
			return errs.New(venueName, errs.CodeConfiguration,
				errs.WithMessage("signed endpoint requires credentials"))
		}
		for key, value := range c.signer.RESTHeaders(method, path, rawQuery, payload) {
			req.Header.Set(key, value)
		}
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.New(venueName, errs.CodeTransport,
			errs.WithMessage("request "+path),
			errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, defaultReadLimit))
	if err != nil {
		return errs.New(venueName, errs.CodeTransport,
			errs.WithMessage("read "+path+" response"),
			errs.WithHTTP(resp.StatusCode),
			errs.WithCause(err))
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Code == "" {
		if resp.StatusCode != http.StatusOK {
			trimmed := raw
			if len(trimmed) > errorBodyLimit {
				trimmed = trimmed[:errorBodyLimit]
			}
			return errs.New(venueName, errs.CodeTransport,
				errs.WithMessage(fmt.Sprintf("%s status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(trimmed)))),
				errs.WithHTTP(resp.StatusCode))
		}
		return errs.New(venueName, errs.CodeParse,
			errs.WithMessage("decode "+path+" response"),
			errs.WithCause(err))
	}
	if envelope.Code != successCode {
		return venueError(resp.StatusCode, envelope.Code, envelope.Msg)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errs.New(venueName, errs.CodeParse,
				errs.WithMessage("decode "+path+" data"),
				errs.WithCause(err))
		}
	}
	return nil
}

// venueError maps a non-success envelope onto the error taxonomy.
func venueError(httpStatus int, code, msg string) error {
	taxonomy := errs.CodeExchange
	switch code {
	case orderNotFoundRaw:
		taxonomy = errs.CodeOrderNotFound
	case timestampSkewRaw:
		taxonomy = errs.CodeTimestampSkew
	}
	if taxonomy == errs.CodeExchange && (httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden) {
		taxonomy = errs.CodeAuth
	}
	return errs.New(venueName, taxonomy,
		errs.WithMessage(msg),
		errs.WithHTTP(httpStatus),
		errs.WithRawCode(code),
		errs.WithRawMessage(msg))
}

// ServerTime fetches the venue clock. Implements timesync.ServerTimeSource.
func (c *restClient) ServerTime(ctx context.Context) (time.Time, error) {
	var raw string
	if err := c.get(ctx, serverTimePath, nil, false, &raw); err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("parse server time"),
			errs.WithRawMessage(raw),
			errs.WithCause(err))
	}
	return time.UnixMilli(ms), nil
}

// FetchProducts retrieves the raw instrument listing.
func (c *restClient) FetchProducts(ctx context.Context) ([]productRecord, error) {
	var records []productRecord
	if err := c.get(ctx, productsPath, nil, false, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type depthSnapshot struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
}

// FetchDepth retrieves an order book snapshot for market order price
// estimation.
func (c *restClient) FetchDepth(ctx context.Context, symbol string, levels int) (depthSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", "step0")
	params.Set("limit", strconv.Itoa(levels))
	var snapshot depthSnapshot
	if err := c.get(ctx, depthPath, params, false, &snapshot); err != nil {
		return depthSnapshot{}, err
	}
	return snapshot, nil
}

type tickerRecord struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPr"`
}

// FetchLastPrice retrieves the last traded price. The ticker endpoint
// addresses instruments without the venue spot suffix.
func (c *restClient) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", strings.SplitN(symbol, "_", 2)[0])
	var records []tickerRecord
	if err := c.get(ctx, tickerPath, params, false, &records); err != nil {
		return decimal.Decimal{}, err
	}
	if len(records) == 0 {
		return decimal.Decimal{}, errs.New(venueName, errs.CodeExchange,
			errs.WithMessage("no ticker for symbol "+symbol))
	}
	price, ok := numeric.Parse(records[0].LastPrice)
	if !ok {
		return decimal.Decimal{}, errs.New(venueName, errs.CodeParse,
			errs.WithMessage("unparseable last price"),
			errs.WithRawMessage(records[0].LastPrice))
	}
	return price, nil
}

// FetchBalances retrieves the full account asset snapshot.
func (c *restClient) FetchBalances(ctx context.Context) ([]restBalance, error) {
	var records []restBalance
	if err := c.get(ctx, accountsPath, nil, true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchOpenOrders retrieves resting orders for one venue symbol.
func (c *restClient) FetchOpenOrders(ctx context.Context, symbol string) ([]restOpenOrder, error) {
	body := map[string]string{"symbol": symbol}
	var records []restOpenOrder
	if err := c.post(ctx, openOrdersPath, body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchFills retrieves account trade fills for one venue symbol since the
// given time. A zero time fetches the venue default window.
func (c *restClient) FetchFills(ctx context.Context, symbol string, since time.Time) ([]restFill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if !since.IsZero() {
		params.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	}
	var records []restFill
	if err := c.get(ctx, fillsPath, params, true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// placeOrderRequest is the order submission payload.
type placeOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	OrderType     string `json:"orderType"`
	Force         string `json:"force,omitempty"`
	Price         string `json:"price,omitempty"`
	Quantity      string `json:"quantity"`
	ClientOrderID string `json:"clientOrderId"`
}

type placeOrderResult struct {
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
}

// PlaceOrder submits an order and returns the venue order id with the
// envelope request time.
func (c *restClient) PlaceOrder(ctx context.Context, req placeOrderRequest) (string, time.Time, error) {
	var result placeOrderResult
	var envelope apiResponse
	if err := c.postEnvelope(ctx, placeOrderPath, req, &envelope); err != nil {
		return "", time.Time{}, err
	}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			return "", time.Time{}, errs.New(venueName, errs.CodeParse,
				errs.WithMessage("decode order placement data"),
				errs.WithCause(err))
		}
	}
	transactTime := time.UnixMilli(envelope.RequestTime)
	if envelope.RequestTime <= 0 {
		transactTime = time.Time{}
	}
	return result.OrderID, transactTime, nil
}

type cancelOrderRequest struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId,omitempty"`
	ClientOrderID string `json:"clientOid,omitempty"`
}

// CancelOrder requests cancellation and returns the raw envelope message.
// Callers must treat only the exact success marker as confirmation.
func (c *restClient) CancelOrder(ctx context.Context, req cancelOrderRequest) (string, error) {
	var envelope apiResponse
	if err := c.postEnvelope(ctx, cancelOrderPath, req, &envelope); err != nil {
		return "", err
	}
	return envelope.Msg, nil
}

// postEnvelope behaves like post but hands the full envelope back so callers
// can inspect msg and requestTime.
func (c *restClient) postEnvelope(ctx context.Context, path string, body any, envelope *apiResponse) error {
	if err := c.ipLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("await request slot: %w", err)
	}
	if err := c.uidLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("await account request slot: %w", err)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if c.signer == nil {
		return errs.New(venueName, errs.CodeConfiguration,
			errs.WithMessage("signed endpoint requires credentials"))
	}
	for key, value := range c.signer.RESTHeaders(http.MethodPost, path, "", string(encoded)) {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.New(venueName, errs.CodeTransport,
			errs.WithMessage("request "+path),
			errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, defaultReadLimit))
	if err != nil {
		return errs.New(venueName, errs.CodeTransport,
			errs.WithMessage("read "+path+" response"),
			errs.WithHTTP(resp.StatusCode),
			errs.WithCause(err))
	}
	if err := json.Unmarshal(raw, envelope); err != nil || envelope.Code == "" {
		trimmed := raw
		if len(trimmed) > errorBodyLimit {
			trimmed = trimmed[:errorBodyLimit]
		}
		return errs.New(venueName, errs.CodeTransport,
			errs.WithMessage(fmt.Sprintf("%s status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(trimmed)))),
			errs.WithHTTP(resp.StatusCode))
	}
	if envelope.Code != successCode {
		return venueError(resp.StatusCode, envelope.Code, envelope.Msg)
	}
	return nil
}
