package websocket

import (
	"net/http"
	"strings"

	"ridehub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	hub       *Hub
	upgrader  websocket.Upgrader
	jwtSecret string
}

func NewHandler(hub *Hub, jwtSecret string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  hub.config.ReadBufferSize,
			WriteBufferSize: hub.config.WriteBufferSize,
			CheckOrigin:     originChecker(hub.config.AllowedOrigins),
		},
		jwtSecret: jwtSecret,
	}
}

// HandleWebSocket upgrades the request. A token, when supplied as the "token"
// query parameter or a bearer header, binds the connection to its user.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	boundUserID := ""
	if token := requestToken(c); token != "" {
		claims, err := utils.ValidateToken(token, h.jwtSecret)
		if err != nil {
			utils.UnauthorizedResponse(c)
			return
		}
		boundUserID = claims.UserID
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, boundUserID)
	if !h.hub.addClient(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func requestToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
