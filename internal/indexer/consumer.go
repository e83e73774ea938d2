package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

// Config configures the reconnecting indexer transport.
type Config struct {
	WebSocketURL   string
	HTTPURL        string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int // 0 means unbounded
}

// Consumer is the reconnecting indexer transport (spec.md §4.12). One
// Consumer serves many subscriptions against the same underlying
// connection, matching the teacher's WebSocketRPCClient shape.
type Consumer struct {
	cfg    Config
	logger *zap.Logger

	connMu sync.RWMutex
	conn   *websocket.Conn

	subsMu sync.Mutex
	subs   map[string]chan StreamUpdate

	closed    atomic.Bool
	closeChan chan struct{}

	httpClient *http.Client
}

// NewConsumer dials cfg.WebSocketURL and starts the background read loop.
func NewConsumer(ctx context.Context, cfg Config, logger *zap.Logger) (*Consumer, error) {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Consumer{
		cfg:        cfg,
		logger:     logger,
		subs:       make(map[string]chan StreamUpdate),
		closeChan:  make(chan struct{}),
		httpClient: &http.Client{},
	}

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", corerrors.ErrNodeNetwork, err)
	}
	go c.readLoop()
	return c, nil
}

func (c *Consumer) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.WebSocketURL, nil)
	if err != nil {
		return err
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// SubscribeUnshielded opens the ordered update stream for address, starting
// after fromTxID when non-nil (spec.md §4.12). The returned channel is
// closed when the consumer is closed or the subscription itself is
// cancelled via the returned cancel func.
func (c *Consumer) SubscribeUnshielded(ctx context.Context, address string, fromTxID *int64) (<-chan StreamUpdate, func(), error) {
	key := subscriptionKey(address, fromTxID)

	ch := make(chan StreamUpdate, 64)
	c.subsMu.Lock()
	c.subs[key] = ch
	c.subsMu.Unlock()

	req := map[string]any{"address": address}
	if fromTxID != nil {
		req["from_tx_id"] = *fromTxID
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		c.removeSub(key)
		return nil, nil, corerrors.ErrNodeNetwork
	}

	subscribeMsg := map[string]any{
		"method": "subscribe_unshielded",
		"params": req,
		"key":    key,
	}
	if err := conn.WriteJSON(subscribeMsg); err != nil {
		c.removeSub(key)
		return nil, nil, fmt.Errorf("%w: %v", corerrors.ErrNodeNetwork, err)
	}

	cancel := func() { c.removeSub(key) }
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-c.closeChan:
			cancel()
		}
	}()

	return ch, cancel, nil
}

func subscriptionKey(address string, fromTxID *int64) string {
	if fromTxID == nil {
		return "unshielded:" + address
	}
	return "unshielded:" + address + ":" + strconv.FormatInt(*fromTxID, 10)
}

func (c *Consumer) removeSub(key string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if ch, ok := c.subs[key]; ok {
		close(ch)
		delete(c.subs, key)
	}
}

// QueryDustEvents is the one-shot fetch returning the concatenated
// length-prefixed binary event stream replay accepts (spec.md §4.12). It
// goes over HTTP rather than the WebSocket connection since it is a
// request/response call, not a subscription.
func (c *Consumer) QueryDustEvents(ctx context.Context, address string, upToBlock int64) ([]byte, error) {
	u, err := url.Parse(c.cfg.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("indexer: invalid HTTP URL: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("up_to_block", strconv.FormatInt(upToBlock, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("indexer: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", corerrors.ErrNodeNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &corerrors.NodeHTTPError{Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// readLoop dispatches incoming frames to subscribers and reconnects with
// bounded exponential backoff on connection loss (spec.md §4.12's
// "transparent reconnection"). Grounded on
// src/chainadapter/rpc/websocket.go's readLoop/reconnect pair.
func (c *Consumer) readLoop() {
	for {
		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			return
		}

		var wire struct {
			Key         string           `json:"key"`
			Transaction *json.RawMessage `json:"transaction"`
			Progress    *json.RawMessage `json:"progress"`
		}
		err := conn.ReadJSON(&wire)
		if err != nil {
			if c.closed.Load() {
				return
			}
			if !c.reconnect() {
				c.logger.Warn("indexer: reconnect budget exhausted", zap.Error(err))
				c.broadcastDisconnect()
				return
			}
			continue
		}

		update := StreamUpdate{}
		if wire.Transaction != nil {
			var tx TransactionUpdate
			if err := json.Unmarshal(*wire.Transaction, &tx); err == nil {
				update.Transaction = &tx
			}
		}
		if wire.Progress != nil {
			var p ProgressUpdate
			if err := json.Unmarshal(*wire.Progress, &p); err == nil {
				update.Progress = &p
			}
		}

		c.subsMu.Lock()
		ch, ok := c.subs[wire.Key]
		c.subsMu.Unlock()
		if ok {
			select {
			case ch <- update:
			default:
				c.logger.Warn("indexer: subscriber channel full, dropping update", zap.String("key", wire.Key))
			}
		}
	}
}

func (c *Consumer) reconnect() bool {
	backoff := NewBackoff(c.cfg.InitialBackoff, c.cfg.MaxBackoff, c.cfg.MaxRetries)
	for {
		delay, exhausted := backoff.Next()
		if exhausted {
			return false
		}
		select {
		case <-c.closeChan:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			return true
		}
		c.logger.Debug("indexer: reconnect attempt failed", zap.Error(err))
	}
}

// broadcastDisconnect delivers a final StreamUpdate carrying
// corerrors.ErrIndexerDisconnected to every live subscriber before closing
// its channel, so callers such as the submitter can distinguish a dropped
// connection from a clean unsubscribe instead of only observing a closed
// channel.
func (c *Consumer) broadcastDisconnect() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for key, ch := range c.subs {
		select {
		case ch <- StreamUpdate{Err: corerrors.ErrIndexerDisconnected}:
		default:
			c.logger.Warn("indexer: subscriber channel full, dropping disconnect notice", zap.String("key", key))
		}
		close(ch)
		delete(c.subs, key)
	}
}

// Close closes the consumer and its underlying connection. IndexerDisconnected
// is not returned from Close itself — it surfaces from subscription reads
// once the retry budget is exhausted (spec.md §7).
func (c *Consumer) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.closeChan)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
