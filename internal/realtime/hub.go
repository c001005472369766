package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Presence events sent when a member's first connection opens or last connection closes.
const (
	EventMemberOnline  = "member_online"
	EventMemberOffline = "member_offline"
)

// Publisher publishes team events to Redis for cross-instance fan-out.
type Publisher interface {
	Publish(teamID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to team channels and invokes handler for incoming events.
type Subscriber interface {
	Subscribe(teamID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains team_id -> set of connections and broadcasts messages.
// With Redis configured, events are published once and delivered by the subscription on every
// instance, this one included.
type Hub struct {
	teams  map[uuid.UUID]map[string]*Client
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber

	// subMu guards subs and is never acquired while holding mu.
	subMu sync.Mutex
	subs  map[uuid.UUID]func()
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		teams:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

func (h *Hub) connections(teamID, userID uuid.UUID) int {
	n := 0
	for _, c := range h.teams[teamID] {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

// Register adds a client to its team room and makes sure this instance follows the team channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.teams[c.TeamID] == nil {
		h.teams[c.TeamID] = make(map[string]*Client)
	}
	first := h.connections(c.TeamID, c.UserID) == 0
	h.teams[c.TeamID][c.ID] = c
	h.mu.Unlock()

	h.ensureSubscribed(c.TeamID)
	if first {
		h.PublishTeamEvent(c.TeamID, EventMemberOnline, map[string]uuid.UUID{"user_id": c.UserID})
	}
	h.logger.Debug("client joined team", zap.String("client_id", c.ID), zap.String("team_id", c.TeamID.String()))
}

// ensureSubscribed subscribes to the team channel while the team has local clients. It reports
// whether a subscription is active; a failed attempt is retried on the next call.
func (h *Hub) ensureSubscribed(teamID uuid.UUID) bool {
	if h.sub == nil {
		return false
	}
	h.subMu.Lock()
	defer h.subMu.Unlock()
	if _, ok := h.subs[teamID]; ok {
		return true
	}
	if h.ConnectionCount(teamID) == 0 {
		return false
	}
	cancel, err := h.sub.Subscribe(teamID, func(event string, payload []byte) {
		h.BroadcastToTeam(teamID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("team subscription failed", zap.Error(err), zap.String("team_id", teamID.String()))
		return false
	}
	h.subs[teamID] = cancel
	return true
}

func (h *Hub) releaseSubscription(teamID uuid.UUID) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	// A client may have joined again since the room emptied.
	if h.ConnectionCount(teamID) > 0 {
		return
	}
	if cancel, ok := h.subs[teamID]; ok {
		cancel()
		delete(h.subs, teamID)
	}
}

// Unregister removes a client from its team room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.teams[c.TeamID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := m[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(m, c.ID)
	close(c.send)
	last := h.connections(c.TeamID, c.UserID) == 0
	empty := len(m) == 0
	if empty {
		delete(h.teams, c.TeamID)
	}
	h.mu.Unlock()

	if last {
		h.PublishTeamEvent(c.TeamID, EventMemberOffline, map[string]uuid.UUID{"user_id": c.UserID})
	}
	if empty {
		h.releaseSubscription(c.TeamID)
	}
	h.logger.Debug("client left team", zap.String("client_id", c.ID), zap.String("team_id", c.TeamID.String()))
}

// Disconnect closes every connection userID holds to the team room, e.g. after they left the team.
func (h *Hub) Disconnect(teamID, userID uuid.UUID) int {
	h.mu.RLock()
	var clients []*Client
	for _, c := range h.teams[teamID] {
		if c.UserID == userID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
	if len(clients) > 0 {
		h.logger.Info("disconnected member from team",
			zap.String("team_id", teamID.String()),
			zap.String("user_id", userID.String()),
			zap.Int("connections", len(clients)))
	}
	return len(clients)
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// BroadcastToTeam sends a message to all clients of a team (local only).
func (h *Hub) BroadcastToTeam(teamID uuid.UUID, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode team event failed", zap.Error(err), zap.String("event", event))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.teams[teamID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, dropping event", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}

// PublishTeamEvent delivers an event to every connection of a team. With Redis it publishes and lets
// the subscription broadcast; local clients are served directly when the publish fails or this
// instance holds no subscription for the team.
func (h *Hub) PublishTeamEvent(teamID uuid.UUID, event string, payload interface{}) {
	if h.pub == nil {
		h.BroadcastToTeam(teamID, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode team event failed", zap.Error(err), zap.String("event", event))
		return
	}
	subscribed := h.ensureSubscribed(teamID)
	if err := h.pub.Publish(teamID, event, data); err != nil {
		h.logger.Warn("publish team event failed, broadcasting locally", zap.Error(err), zap.String("event", event))
		h.BroadcastToTeam(teamID, event, json.RawMessage(data))
		return
	}
	if !subscribed {
		h.BroadcastToTeam(teamID, event, json.RawMessage(data))
	}
}

// OnlineMembers returns the users with at least one open connection to this instance.
func (h *Hub) OnlineMembers(teamID uuid.UUID) map[uuid.UUID]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[uuid.UUID]bool)
	for _, c := range h.teams[teamID] {
		out[c.UserID] = true
	}
	return out
}

// ConnectionCount returns the number of connected clients of a team.
func (h *Hub) ConnectionCount(teamID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.teams[teamID])
}

// SendToClient sends a message to a single client of a team.
func (h *Hub) SendToClient(teamID uuid.UUID, clientID string, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.teams[teamID][clientID]
	if !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}
