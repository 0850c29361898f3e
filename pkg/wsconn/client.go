// Package wsconn is a generic reconnecting WebSocket client: automatic
// exponential-backoff reconnect, heartbeat ping, and an OnReconnect hook so
// the caller can resubscribe. Adapted from pkg/wss/client.go, trimmed to the
// single-subscriber shape the Aggregator's orderbook socket needs (one
// OnMessage handler, one resubscribe callback, no per-message filter
// routing table).
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handlers are the caller's callbacks for connection lifecycle events.
type Handlers struct {
	OnMessage   func(data []byte)
	OnReconnect func(ctx context.Context) error // resubscribe hook
	OnError     func(err error)
}

// Config configures a Client. Ping interval and timeout default to the
// exchange socket's documented 30s/10s.
type Config struct {
	URL               string
	Headers           map[string]string
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	PingInterval      time.Duration
	PingTimeout       time.Duration
}

// DefaultConfig returns sensible defaults for the exchange orderbook socket.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectMinDelay: 1 * time.Second,
		ReconnectMaxDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		PingTimeout:       10 * time.Second,
	}
}

// Client is a reconnecting WebSocket client.
type Client struct {
	config   Config
	handlers Handlers
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.RWMutex
	state  int32

	writeMu sync.Mutex

	closeCh           chan struct{}
	closeOnce         sync.Once
	reconnectAttempts int
}

// NewClient builds a Client.
func NewClient(config Config, handlers Handlers, log zerolog.Logger) *Client {
	return &Client{
		config:   config,
		handlers: handlers,
		log:      log.With().Str("component", "wsconn").Logger(),
		closeCh:  make(chan struct{}),
	}
}

// Connect dials the socket and starts the read/heartbeat loops.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	go c.readLoop()
	if c.config.PingInterval > 0 {
		go c.heartbeatLoop()
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	c.setState(StateConnecting)

	headers := make(map[string][]string, len(c.config.Headers))
	for k, v := range c.config.Headers {
		headers[k] = []string{v}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.URL, headers)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateConnected)
	c.reconnectAttempts = 0
	return nil
}

// Close terminates the connection and stops reconnecting.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.closeCh)
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.connMu.Unlock()
	})
	return nil
}

// SendJSON marshals v and writes it as a text frame.
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Client) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

func (c *Client) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.State() == StateClosed {
				return
			}
			c.log.Warn().Err(err).Msg("socket read failed, reconnecting")
			if c.handlers.OnError != nil {
				c.handlers.OnError(err)
			}
			go c.reconnect()
			return
		}

		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(data)
		}
	}
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			if c.State() != StateConnected {
				continue
			}
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn == nil {
				continue
			}
			deadline := time.Now().Add(c.config.PingTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Warn().Err(err).Msg("ping failed")
				if c.handlers.OnError != nil {
					c.handlers.OnError(err)
				}
			}
		}
	}
}

func (c *Client) reconnect() {
	c.setState(StateReconnecting)

	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		c.reconnectAttempts++
		delay := c.config.ReconnectMinDelay * time.Duration(1<<uint(c.reconnectAttempts-1))
		if delay > c.config.ReconnectMaxDelay {
			delay = c.config.ReconnectMaxDelay
		}

		select {
		case <-c.closeCh:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.dial(ctx)
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", c.reconnectAttempts).Msg("reconnect attempt failed")
			continue
		}

		if c.handlers.OnReconnect != nil {
			reconnectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := c.handlers.OnReconnect(reconnectCtx)
			cancel()
			if err != nil {
				c.log.Error().Err(err).Msg("resubscribe after reconnect failed")
			}
		}

		go c.readLoop()
		return
	}
}
