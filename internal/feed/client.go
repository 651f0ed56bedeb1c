// Package feed maintains one logical real-time subscription to the backend's
// WebSocket feed, survives transient network failures with exponential
// backoff, and delivers parsed sensor updates to subscribers in arrival order.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ldrmon/ldrmon/internal/reading"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

var (
	// ErrNotConnected is returned by Send when there is no live connection.
	ErrNotConnected = errors.New("feed: not connected")

	// ErrConnectInProgress is returned by Connect while another attempt is
	// still dialing.
	ErrConnectInProgress = errors.New("feed: connect already in progress")

	// ErrMaxReconnectsExceeded is carried by the Error event emitted when the
	// automatic reconnect budget is exhausted.
	ErrMaxReconnectsExceeded = errors.New("feed: max reconnects exceeded")
)

const writeTimeout = 10 * time.Second

// Config contains feed connection and reconnection settings.
type Config struct {
	URL            string
	ConnectTimeout time.Duration // bounded wait for one connection attempt
	PingInterval   time.Duration // liveness probe interval while connected
	ReconnectBase  time.Duration // first reconnect delay
	ReconnectMax   time.Duration // delay cap
	ReconnectGrow  float64       // backoff multiplier
	MaxReconnects  int           // automatic attempts before giving up
	SettleDelay    time.Duration // wait between close and redial in ForceReconnect
}

// DefaultConfig returns the default feed configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		ReconnectBase:  3 * time.Second,
		ReconnectMax:   30 * time.Second,
		ReconnectGrow:  1.5,
		MaxReconnects:  10,
		SettleDelay:    time.Second,
	}
}

// ConnectionInfo is a read-only snapshot of the connection state.
type ConnectionInfo struct {
	State        State
	URL          string
	ConnectionID string
	ConnectedAt  time.Time
	Attempt      int
}

// Client is the realtime feed client. Construct once per process with New,
// release with Close.
type Client struct {
	cfg Config

	events *dispatcher

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	connID         string
	connectedAt    time.Time
	closing        bool // explicit clean close requested
	attempt        int
	reconnectTimer *time.Timer // the single pending reconnect handle
	pingCancel     context.CancelFunc
	ctx            context.Context // base context for automatic redials

	writeMu sync.Mutex

	messagesReceived int64
	lastMessageAt    time.Time
	totalReconnects  int
	avgLatency       time.Duration
	latencySamples   int64
}

// New creates a feed client. No connection is made until Connect.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		events: newDispatcher(),
		state:  StateDisconnected,
	}
}

// On registers a listener for the given event type and returns its
// subscription handle. Listener panics are recovered and logged individually.
func (c *Client) On(typ EventType, fn Listener) Subscription {
	return c.events.on(typ, fn)
}

// Off removes a listener registered with On.
func (c *Client) Off(typ EventType, sub Subscription) {
	c.events.off(typ, sub)
}

// Connect dials the feed endpoint. It is idempotent while connected and
// returns ErrConnectInProgress while another attempt is dialing. A failed
// manual attempt is not retried automatically; failures during an automatic
// reconnect cycle keep the backoff loop going.
func (c *Client) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return ErrConnectInProgress
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.state = StateConnecting
	c.closing = false
	c.ctx = ctx
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		retrying := c.attempt > 0
		c.mu.Unlock()

		kind := KindTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		log.Warn().Err(err).Str("url", c.cfg.URL).Msg("Feed connection attempt failed")
		c.events.emit(Error{Kind: kind, Err: err})

		if retrying {
			c.scheduleReconnect()
		}
		return err
	}

	pingCtx, pingCancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.conn = conn
	c.connID = uuid.NewString()
	c.connectedAt = time.Now()
	c.state = StateConnected
	c.attempt = 0
	c.pingCancel = pingCancel
	connID := c.connID
	connectedAt := c.connectedAt
	c.mu.Unlock()

	go c.pingLoop(pingCtx, conn)
	go c.readLoop(conn)

	log.Info().Str("url", c.cfg.URL).Str("connection_id", connID).Msg("Feed connected")
	c.events.emit(Connected{ConnectionID: connID, ConnectedAt: connectedAt})
	return nil
}

// Send writes a JSON message on the live connection. It fails with
// ErrNotConnected (logged, never panicking) when there is none.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		log.Warn().Msg("Feed send dropped, not connected")
		return ErrNotConnected
	}
	return c.write(conn, v)
}

func (c *Client) write(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// Disconnect performs a clean shutdown of the connection: the pending
// reconnect timer and the liveness probe are cancelled before the transport
// closes, and the close never triggers automatic reconnection.
func (c *Client) Disconnect(code int, reason string) {
	c.mu.Lock()
	c.closing = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	conn := c.conn
	if conn == nil {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if conn == nil {
		return
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason))
	c.writeMu.Unlock()

	conn.Close()
}

// ForceReconnect cleanly closes any live connection, waits for the close to
// settle, resets the automatic-attempt counter and dials again.
func (c *Client) ForceReconnect(ctx context.Context) error {
	if c.IsConnected() {
		c.Disconnect(websocket.CloseNormalClosure, "force reconnect")
	}

	settle := c.cfg.SettleDelay
	if settle < time.Second {
		settle = time.Second
	}
	time.Sleep(settle)

	c.mu.Lock()
	c.attempt = 0
	c.closing = false
	c.mu.Unlock()

	return c.Connect(ctx)
}

// Close releases the connection, all timers and all listeners.
func (c *Client) Close() {
	c.Disconnect(websocket.CloseNormalClosure, "shutdown")
	c.events.clear()
}

// IsConnected reports whether a live connection exists.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// ConnectionInfo returns a snapshot of the connection state.
func (c *Client) ConnectionInfo() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		State:        c.state,
		URL:          c.cfg.URL,
		ConnectionID: c.connID,
		ConnectedAt:  c.connectedAt,
		Attempt:      c.attempt,
	}
}

// Metrics returns a snapshot of the connection counters.
func (c *Client) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{
		MessagesReceived: c.messagesReceived,
		LastMessageAt:    c.lastMessageAt,
		TotalReconnects:  c.totalReconnects,
		AvgLatency:       c.avgLatency,
	}
}

// wireFrame is the inbound message envelope. Timestamps arrive as an ISO
// string on ldr_update frames and as unix millis on pong frames.
type wireFrame struct {
	Type      string          `json:"type"`
	Value     json.RawMessage `json:"value"`
	Timestamp json.RawMessage `json:"timestamp"`
	RawData   json.RawMessage `json:"raw_data"`
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, err)
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Err(err).Msg("Feed frame is not valid JSON")
		c.events.emit(Error{Kind: KindParse, Err: err})
		return
	}

	switch frame.Type {
	case "ldr_update":
		r := reading.Reading{
			Value:     reading.DecodeValue(frame.Value),
			Timestamp: rawString(frame.Timestamp),
			RawSource: rawString(frame.RawData),
		}
		c.mu.Lock()
		c.messagesReceived++
		c.lastMessageAt = time.Now()
		c.mu.Unlock()
		c.events.emit(DataUpdate{Reading: r})

	case "pong":
		var millis int64
		if json.Unmarshal(frame.Timestamp, &millis) == nil && millis > 0 {
			latency := time.Since(time.UnixMilli(millis))
			c.mu.Lock()
			c.avgLatency = foldLatency(c.avgLatency, latency, c.latencySamples)
			c.latencySamples++
			c.mu.Unlock()
		}

	case "system_status":
		c.events.emit(Status{Raw: json.RawMessage(data)})

	default:
		log.Debug().Str("type", frame.Type).Msg("Unhandled feed frame type")
	}
}

// rawString decodes a raw JSON value that may be a string or a bare scalar.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func (c *Client) handleClose(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection replaced this one; nothing to report.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	clean := c.closing
	c.closing = false
	c.state = StateDisconnected
	c.mu.Unlock()

	code := websocket.CloseAbnormalClosure
	reason := ""
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
		reason = closeErr.Text
	}
	if code == websocket.CloseNormalClosure {
		clean = true
	}

	log.Info().Int("code", code).Bool("clean", clean).Msg("Feed connection closed")
	c.events.emit(Disconnected{Code: code, Reason: reason, Clean: clean})

	if !clean {
		c.scheduleReconnect()
	}
}

// scheduleReconnect arms the single reconnect timer, or emits the terminal
// max-reconnects error once the attempt budget is spent.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	c.attempt++
	attempt := c.attempt
	if attempt > c.cfg.MaxReconnects {
		c.state = StateDisconnected
		c.mu.Unlock()
		log.Error().Int("max_reconnects", c.cfg.MaxReconnects).
			Msg("Feed: max reconnects exceeded, giving up")
		c.events.emit(Error{Kind: KindMaxReconnects, Err: ErrMaxReconnectsExceeded})
		return
	}
	delay := c.backoffDelay(attempt)
	c.state = StateReconnecting
	c.totalReconnects++
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		ctx := c.ctx
		c.mu.Unlock()
		if err := c.Connect(ctx); err != nil {
			log.Debug().Err(err).Msg("Feed reconnect attempt failed")
		}
	})
	c.mu.Unlock()

	log.Warn().
		Int("attempt", attempt).
		Int("max_reconnects", c.cfg.MaxReconnects).
		Dur("delay", delay).
		Msg("Feed disconnected, reconnecting")
	c.events.emit(Reconnecting{Attempt: attempt, MaxAttempts: c.cfg.MaxReconnects, Delay: delay})
}

// backoffDelay computes the delay before the given 1-based reconnect attempt:
// base × grow^(attempt−1), capped at the configured maximum.
func (c *Client) backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(c.cfg.ReconnectBase) * math.Pow(c.cfg.ReconnectGrow, float64(attempt-1)))
	if d > c.cfg.ReconnectMax {
		d = c.cfg.ReconnectMax
	}
	return d
}

// pingLoop sends liveness probes while the connection is current. A failed
// probe send is logged only; the transport's own close event is the source of
// truth for connection loss.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()
			if current != conn {
				return
			}
			ping := map[string]any{"type": "ping", "timestamp": time.Now().UnixMilli()}
			if err := c.write(conn, ping); err != nil {
				log.Warn().Err(err).Msg("Feed ping send failed")
			}
		}
	}
}
