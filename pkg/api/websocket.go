package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yourusername/bgledger/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a client request.
type WSMessage struct {
	Type    string          `json:"type"`    // "subscribe", "submit", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a server message.
type WSResponse struct {
	Type    string `json:"type"`              // "record", "result", "error", "pong"
	ID      string `json:"id,omitempty"`      // Request ID
	Payload any    `json:"payload,omitempty"` // Response data
	Error   string `json:"error,omitempty"`   // Error message if any
}

// WSSubscribe asks for the record of a game after every accepted action.
type WSSubscribe struct {
	Game string `json:"game"`
}

// WSSubmit submits an encoded action for a party.
type WSSubmit struct {
	Game   string `json:"game"`
	Party  string `json:"party"`
	Action []byte `json:"action"`
}

// WSRecord is pushed to subscribers. Record holds the raw ledger record.
type WSRecord struct {
	Game   string   `json:"game"`
	Record []byte   `json:"record"`
	View   GameView `json:"view"`
}

// WSClient is one connected WebSocket peer. A client follows at most one
// game at a time; subscribing again replaces the previous subscription.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
	done     chan struct{}

	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel func()
}

// WebSocket handles GET /api/ws.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		if !h.limiter.TryAcquireStream() {
			writeError(w, http.StatusServiceUnavailable, "too many streams", "SERVER_BUSY")
			return
		}
		defer h.limiter.ReleaseStream()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	client := &WSClient{
		conn:     conn,
		handlers: h,
		sendChan: make(chan WSResponse, 64),
		done:     make(chan struct{}),
	}
	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		close(c.done)
		c.unsubscribe()
		c.wg.Wait()
		close(c.sendChan)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) send(resp WSResponse) {
	select {
	case c.sendChan <- resp:
	case <-c.done:
	}
}

func (c *WSClient) fail(id, msg string) {
	c.send(WSResponse{Type: "error", ID: id, Error: msg})
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "subscribe":
		c.handleSubscribe(msg)
	case "submit":
		c.handleSubmit(msg)
	case "ping":
		c.send(WSResponse{Type: "pong", ID: msg.ID})
	default:
		c.fail(msg.ID, "unknown message type")
	}
}

func (c *WSClient) handleSubscribe(msg WSMessage) {
	var req WSSubscribe
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.fail(msg.ID, "invalid payload")
		return
	}
	l, ok := c.handlers.store.Get(req.Game)
	if !ok {
		c.fail(msg.ID, "unknown game")
		return
	}

	c.unsubscribe()
	records, cancel := l.Subscribe()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for raw := range records {
			snap, err := engine.Decode(raw)
			if err != nil {
				c.fail(msg.ID, err.Error())
				return
			}
			c.send(WSResponse{Type: "record", ID: msg.ID, Payload: WSRecord{
				Game:   req.Game,
				Record: raw,
				View:   NewGameView(req.Game, snap),
			}})
		}
	}()
}

func (c *WSClient) unsubscribe() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *WSClient) handleSubmit(msg WSMessage) {
	var req WSSubmit
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.fail(msg.ID, "invalid payload")
		return
	}
	party, err := engine.ParsePlayer(req.Party)
	if err != nil {
		c.fail(msg.ID, err.Error())
		return
	}
	l, ok := c.handlers.store.Get(req.Game)
	if !ok {
		c.fail(msg.ID, "unknown game")
		return
	}
	counter, err := l.Apply(party, req.Action)
	if err != nil {
		c.fail(msg.ID, err.Error())
		return
	}
	c.send(WSResponse{Type: "result", ID: msg.ID, Payload: SubmitResponse{Counter: counter}})
}
