package bitget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
)

type wsRequest struct {
	Op   string `json:"op"`
	Args []any  `json:"args"`
}

type wsMessageHandler func([]byte)

// wsManager maintains the private stream connection: login, channel
// subscriptions, literal ping/pong heartbeat, and reconnect with backoff.
// Every data frame is handed to the handler; a frame the handler cannot use
// never tears the connection down.
type wsManager struct {
	url    string
	signer *Signer
	ctx    context.Context
	cancel context.CancelFunc

	conn   *websocket.Conn
	connMu sync.RWMutex

	handler   wsMessageHandler
	errorChan chan<- error

	ready     chan struct{}
	readyOnce sync.Once
}

func newWSManager(ctx context.Context, url string, signer *Signer, handler wsMessageHandler, errCh chan<- error) *wsManager {
	managerCtx, cancel := context.WithCancel(ctx)
	return &wsManager{
		url:       url,
		signer:    signer,
		ctx:       managerCtx,
		cancel:    cancel,
		handler:   handler,
		errorChan: errCh,
		ready:     make(chan struct{}),
	}
}

func (sm *wsManager) start() error {
	go func() {
		if err := sm.connectLoop(); err != nil && !errors.Is(err, context.Canceled) {
			sm.reportError(fmt.Errorf("ws manager: %w", err))
		}
	}()

	select {
	case <-sm.ready:
		return nil
	case <-time.After(wsReadyTimeout):
		return errors.New("timeout waiting for websocket connection")
	case <-sm.ctx.Done():
		return fmt.Errorf("websocket context done: %w", sm.ctx.Err())
	}
}

func (sm *wsManager) stop() {
	sm.cancel()
	sm.connMu.Lock()
	if sm.conn != nil {
		_ = sm.conn.Close(websocket.StatusNormalClosure, "shutdown")
		sm.conn = nil
	}
	sm.connMu.Unlock()
}

func (sm *wsManager) connectLoop() error {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = defaultMaxReconnect

	for {
		select {
		case <-sm.ctx.Done():
			return context.Canceled
		default:
		}

		conn, _, err := websocket.Dial(sm.ctx, sm.url, nil)
		if err != nil {
			sm.reportError(fmt.Errorf("dial %s: %w", sm.url, err))
			sleep := backoffCfg.NextBackOff()
			if sleep == backoff.Stop {
				sleep = defaultMaxReconnect
			}
			select {
			case <-sm.ctx.Done():
				return context.Canceled
			case <-time.After(sleep):
				continue
			}
		}

		sm.connMu.Lock()
		sm.conn = conn
		sm.connMu.Unlock()

		conn.SetReadLimit(defaultReadLimit)
		backoffCfg.Reset()

		if err := sm.login(sm.ctx, conn); err != nil {
			sm.reportError(fmt.Errorf("login after connect: %w", err))
		}

		connCtx, connCancel := context.WithCancel(sm.ctx)
		errCh := make(chan error, 2)
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			errCh <- sm.readLoop(connCtx, conn)
		}()

		go func() {
			defer wg.Done()
			errCh <- sm.pingLoop(connCtx, conn)
		}()

		firstErr := <-errCh
		connCancel()

		sm.connMu.Lock()
		if sm.conn == conn {
			sm.conn = nil
		}
		sm.connMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")

		wg.Wait()
		close(errCh)

		aggregatedErr := firstErr
		for e := range errCh {
			if aggregatedErr == nil || errors.Is(aggregatedErr, context.Canceled) || errors.Is(aggregatedErr, context.DeadlineExceeded) {
				aggregatedErr = e
			}
		}
		if aggregatedErr != nil && !errors.Is(aggregatedErr, context.Canceled) && !errors.Is(aggregatedErr, context.DeadlineExceeded) {
			sm.reportError(fmt.Errorf("websocket connection loop: %w", aggregatedErr))
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = defaultMaxReconnect
		}
		select {
		case <-sm.ctx.Done():
			return context.Canceled
		case <-time.After(sleep):
		}
	}
}

func (sm *wsManager) login(ctx context.Context, conn *websocket.Conn) error {
	req := wsRequest{
		Op:   "login",
		Args: []any{sm.signer.WSLogin()},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write login request: %w", err)
	}
	return nil
}

// subscribe registers the private order and account channels. Sent after
// every successful login, including re-logins after a reconnect.
func (sm *wsManager) subscribe(ctx context.Context, conn *websocket.Conn) error {
	type subArg struct {
		InstType string `json:"instType"`
		Channel  string `json:"channel"`
		InstID   string `json:"instId"`
	}
	req := wsRequest{
		Op: "subscribe",
		Args: []any{
			subArg{InstType: instTypeSpot, Channel: channelOrders, InstID: "default"},
			subArg{InstType: instTypeSpot, Channel: channelAccount, InstID: "default"},
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscribe request: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write subscribe request: %w", err)
	}
	log.Printf("bitget ws manager: subscribed %s and %s channels", channelOrders, channelAccount)
	return nil
}

func (sm *wsManager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read websocket: %w", err)
		}
		trimmed := strings.TrimSpace(string(data))
		if trimmed == "" {
			continue
		}
		if trimmed == "pong" {
			continue
		}
		if event, ok := controlEvent(data); ok {
			switch event {
			case "login":
				sm.readyOnce.Do(func() {
					close(sm.ready)
				})
				if err := sm.subscribe(ctx, conn); err != nil {
					sm.reportError(fmt.Errorf("subscribe after login: %w", err))
				}
			case "error":
				sm.reportError(fmt.Errorf("websocket error event: %s", trimmed))
			}
			continue
		}
		if sm.handler != nil {
			sm.handler(data)
		}
	}
}

// controlEvent peeks at the event field without committing to a full decode.
func controlEvent(data []byte) (string, bool) {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", false
	}
	if probe.Event == "" {
		return "", false
	}
	return probe.Event, true
}

func (sm *wsManager) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(defaultPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, []byte("ping"))
			cancel()
			if err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func (sm *wsManager) reportError(err error) {
	if err == nil {
		return
	}
	select {
	case <-sm.ctx.Done():
	case sm.errorChan <- err:
	default:
	}
}
