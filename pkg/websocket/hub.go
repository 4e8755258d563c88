package websocket

import (
	"context"
	"sync"
	"time"

	"ridehub/pkg/logger"
	"ridehub/pkg/presence"
)

// Hub owns the set of open connections and keeps the presence registry in
// step with them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	presence *presence.Registry
	config   Config
	logger   *logger.Logger
}

// Message is the server -> client envelope.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
	SendBufferSize  int
	AllowedOrigins  []string
}

func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingInterval:    54 * time.Second,
		PongTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		AllowedOrigins:  []string{"*"},
	}
}

func NewHub(registry *presence.Registry, config Config, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		presence:   registry,
		config:     config,
		logger:     log,
	}
}

// Run serves connection lifecycle events until ctx is cancelled, then closes
// every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.WithField("connection_id", client.ID()).Debug("Connection opened")

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			h.mutex.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mutex.RUnlock()

			for _, client := range clients {
				h.removeClient(client)
			}
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mutex.Unlock()

	if !ok {
		return
	}

	client.close()
	h.presence.Unregister(client)
	h.logger.WithFields(map[string]interface{}{
		"connection_id": client.ID(),
		"user_id":       client.UserID(),
	}).Debug("Connection closed")
}

// leave is called by a client's read loop when the connection ends.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
