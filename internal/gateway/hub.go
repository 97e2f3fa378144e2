// Package gateway exposes the demo session over WebSocket. Clients
// stay thin: the server owns all state and chart geometry, clients
// paint the scene draw-list and send interaction commands back.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading-demov1/internal/metrics"
	"trading-demov1/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Same-origin enforcement is delegated to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages WebSocket clients and fans session updates out to them.
// Every state change rebroadcasts the full snapshot plus a per-client
// scene sized to that client's canvas.
type Hub struct {
	manager *session.Manager
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub wires the hub to the session manager. Call BindManager
// callbacks (OnChange, OnNotice) to Broadcast and Toast.
func NewHub(m *session.Manager, met *metrics.Metrics) *Hub {
	return &Hub{
		manager: m,
		metrics: met,
		clients: make(map[*Client]bool),
	}
}

// HandleWS upgrades the connection, registers the client and starts
// its pumps. The client gets an immediate snapshot.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}

	log.Printf("[gateway] ws client connected (%d total)", count)

	client.sendState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast pushes a fresh state snapshot and a per-client scene to
// every connected client. Wired to the manager's OnChange callback.
func (h *Hub) Broadcast() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	snap := h.manager.Snapshot()
	stateMsg, err := json.Marshal(envelope{Type: "state", Data: mustRaw(snap)})
	if err != nil {
		log.Printf("[gateway] state marshal failed: %v", err)
		return
	}

	for _, c := range clients {
		c.enqueue(stateMsg)
		c.sendScene()
	}
}

// Toast sends a transient user-facing notice to all clients. Wired to
// the manager's OnNotice callback.
func (h *Hub) Toast(text string) {
	msg, _ := json.Marshal(envelope{Type: "toast", Text: text})
	h.mu.RLock()
	for c := range h.clients {
		c.enqueue(msg)
	}
	h.mu.RUnlock()
}

// envelope is the server-to-client message frame.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Text string          `json:"text,omitempty"`
	Ping int64           `json:"ping,omitempty"`
	TS   int64           `json:"server_ts,omitempty"`
}

func mustRaw(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return b
}

// pongMsg answers a client latency probe.
func pongMsg(ping int64) []byte {
	b, _ := json.Marshal(envelope{Type: "pong", Ping: ping, TS: time.Now().UnixMilli()})
	return b
}
