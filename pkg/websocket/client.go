package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Client is one websocket connection. It implements presence.Handle.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// boundUserID is set when the upgrade request carried a valid token; the
	// client may then only register as that user.
	boundUserID string

	mu     sync.Mutex
	closed bool
	userID string
}

// inboundMessage is the client -> server envelope.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type registerData struct {
	UserID string `json:"userId"`
}

func NewClient(hub *Hub, conn *websocket.Conn, boundUserID string) *Client {
	return &Client{
		id:          uuid.NewString(),
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, hub.config.SendBufferSize),
		boundUserID: boundUserID,
	}
}

func (c *Client) ID() string {
	return c.id
}

// UserID returns the user this connection registered as, if any.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Emit queues an event without blocking. A full buffer drops the event.
func (c *Client) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(Message{
		Type:      event,
		Data:      payload,
		Timestamp: getCurrentTimestamp(),
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	cfg := c.hub.config
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).WithField("connection_id", c.id).Warn("WebSocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply("error", map[string]string{"message": "malformed message"})
		return
	}

	switch msg.Type {
	case "register":
		var data registerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.reply("error", map[string]string{"message": "malformed register payload"})
			return
		}
		c.handleRegister(data.UserID)

	case "ping":
		c.reply("pong", nil)

	default:
		c.reply("error", map[string]string{"message": "unknown message type " + msg.Type})
	}
}

func (c *Client) handleRegister(userID string) {
	if _, err := primitive.ObjectIDFromHex(userID); err != nil {
		c.reply("error", map[string]string{"message": "invalid userId"})
		return
	}
	if c.boundUserID != "" && c.boundUserID != userID {
		c.reply("error", map[string]string{"message": "userId does not match token"})
		return
	}

	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()

	c.hub.presence.Register(userID, c)
	c.reply("registered", map[string]string{"userId": userID})
}

func (c *Client) reply(event string, payload interface{}) {
	if err := c.Emit(event, payload); err != nil {
		c.hub.logger.WithError(err).WithField("connection_id", c.id).Debug("Dropped reply")
	}
}
