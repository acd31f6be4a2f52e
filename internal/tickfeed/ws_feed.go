package tickfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSFeedConfig configures WebSocket feed behavior.
type WSFeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSFeedConfig returns default WebSocket feed configuration.
func DefaultWSFeedConfig() WSFeedConfig {
	return WSFeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSFeed streams pool tick updates over a JSON-RPC WebSocket endpoint. It
// reconnects with exponential backoff and resubscribes to every watched pool
// after a reconnect.
type WSFeed struct {
	endpoint string
	config   WSFeedConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to the update channel for one pool.
	subs   map[int64]chan TickUpdate
	subsMu sync.RWMutex

	// watched maps subscription ID to pool address for resubscription.
	watched   map[int64]string
	watchedMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID.
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSFeed creates a feed and connects to the endpoint.
func NewWSFeed(ctx context.Context, endpoint string, config *WSFeedConfig) (*WSFeed, error) {
	cfg := DefaultWSFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &WSFeed{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]chan TickUpdate),
		watched:     make(map[int64]string),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// WatchPool subscribes to tick updates for one pool. The returned channel
// stays open across reconnects and closes when the feed closes.
func (f *WSFeed) WatchPool(ctx context.Context, poolID string) (<-chan TickUpdate, error) {
	if f.closed.Load() {
		return nil, fmt.Errorf("feed closed")
	}

	subID, err := f.subscribePool(ctx, poolID)
	if err != nil {
		return nil, err
	}

	// Blocking send in the dispatcher ensures no update loss; the buffer
	// absorbs bursts.
	ch := make(chan TickUpdate, 1024)
	f.subsMu.Lock()
	f.subs[subID] = ch
	f.subsMu.Unlock()

	f.watchedMu.Lock()
	f.watched[subID] = poolID
	f.watchedMu.Unlock()

	return ch, nil
}

// subscribePool sends the subscribe request and waits for the confirmation.
func (f *WSFeed) subscribePool(ctx context.Context, poolID string) (int64, error) {
	reqID := f.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "tickSubscribe",
		Params: []interface{}{
			poolID,
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	f.pendingSubsMu.Lock()
	f.pendingSubs[reqID] = confirmCh
	f.pendingSubsMu.Unlock()

	clearPending := func() {
		f.pendingSubsMu.Lock()
		delete(f.pendingSubs, reqID)
		f.pendingSubsMu.Unlock()
	}

	f.connMu.Lock()
	if f.conn == nil {
		f.connMu.Unlock()
		clearPending()
		return 0, fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	err := f.conn.WriteJSON(req)
	f.connMu.Unlock()

	if err != nil {
		clearPending()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(30 * time.Second):
		clearPending()
		return 0, fmt.Errorf("subscription timeout after 30s")
	case <-f.done:
		return 0, fmt.Errorf("feed closed")
	case <-ctx.Done():
		clearPending()
		return 0, ctx.Err()
	}
}

// Close closes the connection and every update channel.
func (f *WSFeed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.subsMu.Lock()
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
	f.subsMu.Unlock()

	f.pendingSubsMu.Lock()
	for id, ch := range f.pendingSubs {
		close(ch)
		delete(f.pendingSubs, id)
	}
	f.pendingSubsMu.Unlock()

	f.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches them, reconnecting on errors.
func (f *WSFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect re-establishes the connection and resubscribes watched pools.
func (f *WSFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error.
		return
	}

	f.resubscribeAll()
}

func (f *WSFeed) resubscribeAll() {
	f.watchedMu.RLock()
	watched := make(map[int64]string, len(f.watched))
	for id, pool := range f.watched {
		watched[id] = pool
	}
	f.watchedMu.RUnlock()

	for oldSubID, poolID := range watched {
		f.subsMu.RLock()
		ch := f.subs[oldSubID]
		f.subsMu.RUnlock()
		if ch == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := f.subscribePool(ctx, poolID)
		cancel()
		if err != nil {
			// Failed to resubscribe, keep old mapping.
			continue
		}

		f.subsMu.Lock()
		delete(f.subs, oldSubID)
		f.subs[newSubID] = ch
		f.subsMu.Unlock()

		f.watchedMu.Lock()
		delete(f.watched, oldSubID)
		f.watched[newSubID] = poolID
		f.watchedMu.Unlock()
	}
}

// handleMessage routes one incoming frame.
func (f *WSFeed) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		f.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "tickNotification" {
		f.handleTickNotification(&notif)
		return
	}
}

func (f *WSFeed) handleSubscribeResponse(resp *wsSubscribeResponse) {
	f.pendingSubsMu.Lock()
	ch, ok := f.pendingSubs[resp.ID]
	if ok {
		delete(f.pendingSubs, resp.ID)
	}
	f.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

func (f *WSFeed) handleTickNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	update := TickUpdate{
		PoolID: notif.Params.Result.Value.Pool,
		Tick:   notif.Params.Result.Value.Tick,
	}
	if notif.Params.Result.Context != nil {
		update.Slot = notif.Params.Result.Context.Slot
	}

	f.subsMu.RLock()
	ch, ok := f.subs[notif.Params.Subscription]
	f.subsMu.RUnlock()

	if ok {
		// Block until delivered: a dropped update would freeze the pool at a
		// stale tick until the next one arrives.
		select {
		case ch <- update:
		case <-f.done:
			return
		}
	}
}

// pingLoop keeps the connection alive.
func (f *WSFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect.
				}
			}
			f.connMu.Unlock()
		}
	}
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsTickValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsTickValue struct {
	Pool string `json:"pool"`
	Tick int32  `json:"tick"`
}
