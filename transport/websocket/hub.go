package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Per-client and broadcast queue length.
	bufferSize = 256
)

// Events sent to clients.
const (
	EventStateUpdate     = "state_update"
	EventPuzzleCompleted = "puzzle_completed"
	EventPuzzleReset     = "puzzle_reset"
	EventError           = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	PuzzleID string         `json:"puzzle_id"`
	State    *session.State `json:"state,omitempty"`
	Event    string         `json:"event,omitempty"`
	Data     interface{}    `json:"data,omitempty"`
}

// InboundHandler processes a message a client sent for its puzzle. A
// returned error is sent back to that client only.
type InboundHandler func(puzzleID string, payload []byte) error

// Client represents a WebSocket client
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	puzzleID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by puzzle id
	puzzles map[string]map[*Client]bool
	mu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	inbound InboundHandler
	log     log15.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger log15.Logger) *Hub {
	return &Hub{
		puzzles:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, bufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logging.OrDiscard(logger).New("component", "websocket"),
	}
}

// SetInboundHandler installs the handler for client messages. Without one,
// client messages are ignored.
func (h *Hub) SetInboundHandler(fn InboundHandler) {
	h.mu.Lock()
	h.inbound = fn
	h.mu.Unlock()
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, puzzleID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, bufferSize),
		puzzleID: puzzleID,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastState sends a state update to all clients of a puzzle
func (h *Hub) BroadcastState(puzzleID string, state *session.State) {
	h.broadcast <- &Message{
		PuzzleID: puzzleID,
		State:    state,
		Event:    EventStateUpdate,
	}
}

// BroadcastEvent sends a custom event to all clients of a puzzle
func (h *Hub) BroadcastEvent(puzzleID string, event string, data interface{}) {
	h.broadcast <- &Message{
		PuzzleID: puzzleID,
		Event:    event,
		Data:     data,
	}
}

// ClientCount returns the number of clients watching a puzzle.
func (h *Hub) ClientCount(puzzleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.puzzles[puzzleID])
}

// registerClient adds a client to a puzzle
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.puzzles[client.puzzleID] == nil {
		h.puzzles[client.puzzleID] = make(map[*Client]bool)
	}
	h.puzzles[client.puzzleID][client] = true

	h.log.Info("Client registered", "client", client.id, "puzzle", client.puzzleID,
		"clients", len(h.puzzles[client.puzzleID]))
}

// unregisterClient removes a client from a puzzle
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.puzzles[client.puzzleID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.puzzles, client.puzzleID)
	}
	h.log.Info("Client unregistered", "client", client.id, "puzzle", client.puzzleID,
		"remaining", len(clients))
}

// broadcastMessage sends a message to all clients of a puzzle
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("Failed to marshal broadcast message", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.puzzles[message.PuzzleID] {
		select {
		case client.send <- data:
		default:
			// Slow client; drop it.
			h.removeLocked(client)
		}
	}
}

func (h *Hub) handleInbound(c *Client, payload []byte) {
	h.mu.RLock()
	fn := h.inbound
	h.mu.RUnlock()
	if fn == nil {
		return
	}
	if err := fn(c.puzzleID, payload); err != nil {
		h.log.Debug("Inbound message rejected", "client", c.id, "err", err)
		data, _ := json.Marshal(&Message{PuzzleID: c.puzzleID, Event: EventError, Data: err.Error()})
		h.mu.RLock()
		defer h.mu.RUnlock()
		if h.puzzles[c.puzzleID][c] {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket error", "client", c.id, "err", err)
			}
			break
		}
		c.hub.handleInbound(c, payload)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON message per frame so clients can parse each frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
