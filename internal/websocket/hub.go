package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// Hub maintains the set of active clients and pushes risk reports to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	onChange   func(clients int)
	log        *logger.Logger
	mu         sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	id            string
	subscriptions map[string]bool // empty means every symbol
	mu            sync.RWMutex
}

// Message represents a WebSocket message
type Message struct {
	Type   string      `json:"type"`
	Symbol string      `json:"symbol,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	ID     string      `json:"id,omitempty"`
}

// Subscription request message
type SubscriptionMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	ID      string   `json:"id,omitempty"`
}

type outbound struct {
	symbol string
	data   []byte
}

const (
	MessageTypeRiskReport = "risk_report"

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub. onChange, when set, receives the
// client count after every connect and disconnect.
func NewHub(onChange func(clients int)) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		onChange:   onChange,
		log:        logger.GetLogger("websocket.hub"),
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting WebSocket hub")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Infof("Client %s registered", client.id)
			h.notify(count)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.log.Infof("Client %s unregistered", client.id)
				h.notify(count)
			}

		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishReport queues report for every client subscribed to its symbol.
// Reports are dropped when the hub falls behind.
func (h *Hub) PublishReport(report *models.RiskReport) error {
	data, err := json.Marshal(Message{
		Type:   MessageTypeRiskReport,
		Symbol: report.Symbol,
		Data:   report,
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- outbound{symbol: report.Symbol, data: data}:
	default:
		h.log.Warnf("Broadcast queue full, dropping report %s for %s", report.ID, report.Symbol)
	}
	return nil
}

// HandleWebSocket handles WebSocket upgrade and client management
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            uuid.NewString(),
		subscriptions: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

func (h *Hub) notify(count int) {
	if h.onChange != nil {
		h.onChange(count)
	}
}

// broadcastToClients hands msg to every interested client; a client whose
// buffer is full misses it
func (h *Hub) broadcastToClients(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(msg.symbol) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			h.log.Warnf("Client %s is slow, dropping report for %s", client.id, msg.symbol)
		}
	}
}

// closeAll drops every connection; the pumps notice through done
func (h *Hub) closeAll() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		client.conn.Close()
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(messageData)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.hub.done:
			return

		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

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

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		for _, symbol := range msg.Symbols {
			c.subscriptions[symbol] = true
		}
		c.mu.Unlock()
		c.sendMessage(Message{Type: "subscription_confirmed", Data: msg.Symbols, ID: msg.ID})
	case "unsubscribe":
		c.mu.Lock()
		for _, symbol := range msg.Symbols {
			delete(c.subscriptions, symbol)
		}
		c.mu.Unlock()
		c.sendMessage(Message{Type: "unsubscription_confirmed", Data: msg.Symbols, ID: msg.ID})
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("Unknown message type")
	}
}

func (c *Client) wants(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions) == 0 || c.subscriptions[symbol]
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.hub.log.Warnf("Client %s send buffer full, dropping %s", c.id, msg.Type)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errorMsg string) {
	c.sendMessage(Message{
		Type:  "error",
		Error: errorMsg,
	})
}
