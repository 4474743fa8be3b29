package socket

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/emberchat/ember/internal/infrastructure/logging"
	"github.com/emberchat/ember/internal/infrastructure/metrics"
	"github.com/emberchat/ember/internal/infrastructure/registry"
	"github.com/emberchat/ember/internal/infrastructure/ws"
)

// Handler owns the websocket endpoint: it upgrades connections, runs the
// read/write pumps and translates inbound frames into registry calls. It
// is the single ws.Dispatcher of the service.
type Handler struct {
	hub      *ws.Hub
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewHandler(hub *ws.Hub, reg *registry.Registry, m *metrics.Metrics, logger logging.Logger) *Handler {
	return &Handler{
		hub:      hub,
		registry: reg,
		metrics:  m,
		logger:   logger,
	}
}

// ServeWS upgrades the request and starts the client's pumps. The hub
// entry is added before the pumps run so the first broadcast after a
// Register already reaches the connection.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.hub.Upgrade(w, r)
	if err != nil {
		h.logger.Error(logging.Transport, logging.Connection, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, uuid.NewString())
	h.hub.Add(client)
	h.metrics.ConnectionsLive.Inc()

	h.logger.Info(logging.Transport, logging.Connection, "client connected", map[logging.ExtraKey]any{
		logging.ConnectionId: client.ID,
	})

	go client.WritePump()
	go client.ReadPump(h)
}

// Dispatch routes one inbound frame. Malformed payloads are dropped; a
// bad frame must never take the connection down.
func (h *Handler) Dispatch(c *ws.Client, msg ws.Inbound) {
	switch msg.Type {
	case ws.UserRegister:
		var p ws.RegisterPayload
		if !h.decode(c, msg, &p) {
			return
		}
		h.registry.Register(c.ID, p.Username)

	case ws.RoomCreate:
		var p ws.CreateRoomPayload
		if !h.decode(c, msg, &p) {
			return
		}
		if _, err := h.registry.Create(c.ID, p.RoomName, p.OwnerName, p.Duration); err != nil {
			h.hub.Deliver([]string{c.ID}, ws.NewCreateError(err.Error()))
		}

	case ws.RoomJoin:
		var p ws.JoinRoomPayload
		if !h.decode(c, msg, &p) {
			return
		}
		if err := h.registry.Join(p.RoomID, c.ID, p.UserID, p.Username); err != nil {
			// A stale or duplicate join is not an error worth surfacing to
			// the client; the next room.list broadcast corrects its view.
			h.logger.Debug(logging.Registry, logging.Membership, "join ignored", map[logging.ExtraKey]any{
				logging.ConnectionId: c.ID,
				logging.RoomId:       p.RoomID,
				logging.ErrorMessage: err.Error(),
			})
		}

	case ws.RoomLeave:
		var p ws.LeaveRoomPayload
		if !h.decode(c, msg, &p) {
			return
		}
		h.registry.Leave(p.RoomID, c.ID, p.UserID, p.Username)

	case ws.RoomDelete:
		var p ws.DeleteRoomPayload
		if !h.decode(c, msg, &p) {
			return
		}
		h.registry.Delete(p.RoomID, c.ID, "Owner deleted room")

	case ws.MessageSend:
		var routing ws.ChatRouting
		if err := json.Unmarshal(msg.Data, &routing); err != nil || routing.Room == "" {
			return
		}
		h.registry.Relay(routing.Room, c.ID, msg.Data)

	default:
		h.logger.Debug(logging.Transport, logging.Connection, "unknown event type", map[logging.ExtraKey]any{
			logging.ConnectionId: c.ID,
			logging.EventType:    msg.Type,
		})
	}
}

// Disconnected tears the client out of the hub first so no cleanup
// broadcast is ever enqueued onto a closed channel.
func (h *Handler) Disconnected(c *ws.Client) {
	h.hub.Remove(c.ID)
	h.registry.Disconnect(c.ID)
	h.metrics.ConnectionsLive.Dec()

	h.logger.Info(logging.Transport, logging.Connection, "client disconnected", map[logging.ExtraKey]any{
		logging.ConnectionId: c.ID,
	})
}

func (h *Handler) decode(c *ws.Client, msg ws.Inbound, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		h.logger.Warn(logging.Transport, logging.Connection, "malformed payload", map[logging.ExtraKey]any{
			logging.ConnectionId: c.ID,
			logging.EventType:    msg.Type,
			logging.ErrorMessage: err.Error(),
		})
		return false
	}
	return true
}

var _ ws.Dispatcher = (*Handler)(nil)
