// broadcast/hub.go
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	logger "github.com/luishdz04/muscleup-gym/logging"
)

// Client is one connected observer. Writes are serialized per
// connection; gorilla connections do not allow concurrent writers.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Send marshals a message and writes it to the observer.
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans verdict and reconciliation messages out to every connected
// observer. There is no backpressure: with no observers connected a
// message is dropped, and an observer that fails a write is pruned.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a connection to the fan-out set.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	client := &Client{conn: conn}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

// Unregister removes a connection from the fan-out set.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

// Broadcast sends a message to every observer, pruning the ones whose
// connection proves dead. Never returns an error to the caller.
func (h *Hub) Broadcast(message interface{}) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.Send(message); err != nil {
			logger.Warn("Pruning disconnected observer", zap.Error(err))
			h.Unregister(client)
			client.conn.Close()
		}
	}
}

// ClientCount reports the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
