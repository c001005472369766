package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// OriginPolicy reports whether a browser origin may open a connection.
type OriginPolicy func(origin string) bool

func newUpgrader(allow OriginPolicy) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin.
			return origin == "" || allow == nil || allow(origin)
		},
	}
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator returns the user id carried by an access token.
type TokenValidator func(token string) (uuid.UUID, error)

// TeamResolver returns the team of a user, or uuid.Nil when they have none.
type TeamResolver func(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

// Client represents a single WebSocket connection of a team member.
type Client struct {
	ID       string
	TeamID   uuid.UUID
	UserID   uuid.UUID
	JoinedAt time.Time
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// NewClient creates a client bound to hub. conn may be nil when the client is only used for delivery.
func NewClient(hub *Hub, conn *websocket.Conn, teamID, userID uuid.UUID, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		ID:       uuid.New().String(),
		TeamID:   teamID,
		UserID:   userID,
		JoinedAt: time.Now(),
		hub:      hub,
		conn:     conn,
		send:     make(chan WSMessage, 256),
		logger:   logger,
	}
}

// Messages exposes the outbound queue of the client.
func (c *Client) Messages() <-chan WSMessage { return c.send }

// ServeWs handles GET /ws?token=... The team room is the caller's current team.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, teamOf TeamResolver, origins OriginPolicy) gin.HandlerFunc {
	upgrader := newUpgrader(origins)
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "token required"})
			return
		}
		userID, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		teamID, err := teamOf(c.Request.Context(), userID)
		if err != nil {
			logger.Error("resolve team for websocket failed", zap.Error(err), zap.String("user_id", userID.String()))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "request failed"})
			return
		}
		if teamID == uuid.Nil {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "join or create a team first"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn, teamID, userID, logger)
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "ping":
			c.hub.SendToClient(c.TeamID, c.ID, "pong", map[string]int64{"at": time.Now().Unix()})
		case "presence":
			ids := make([]uuid.UUID, 0)
			for id := range c.hub.OnlineMembers(c.TeamID) {
				ids = append(ids, id)
			}
			c.hub.SendToClient(c.TeamID, c.ID, "presence", map[string][]uuid.UUID{"online": ids})
		default:
			// clients only listen; state changes go through the REST API
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
