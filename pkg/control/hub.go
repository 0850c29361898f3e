package control

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventType identifies a broadcast event's payload shape.
type EventType string

const (
	EventTypeSignal    EventType = "signal"
	EventTypeOrder     EventType = "order"
	EventTypePosition  EventType = "position"
	EventTypeGameState EventType = "game_state"
	EventTypeStatus    EventType = "status"
	EventTypeError     EventType = "error"
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event is a streaming event sent to every subscribed client.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub manages WebSocket connections and broadcasts trading events.
type Hub struct {
	log zerolog.Logger

	clients    map[*wsClient]bool
	broadcast  chan Event
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	upgrader websocket.Upgrader
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a streaming hub. Run must be started in its own goroutine.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run drives the hub's event loop until the caller closes done, following
// the rest of the runtime's goroutine-per-loop pattern.
func (h *Hub) Run(done <-chan struct{}) {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", n).Msg("control: ws client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", n).Msg("control: ws client disconnected")

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-heartbeat.C:
			h.Broadcast(Event{Type: EventTypeHeartbeat, Data: map[string]int{"clients": h.ClientCount()}})
		}
	}
}

func (h *Hub) broadcastEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn().Err(err).Msg("control: failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Broadcast queues an event for delivery to all connected clients.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn().Msg("control: broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the connection and registers a new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("control: ws upgrade failed")
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
