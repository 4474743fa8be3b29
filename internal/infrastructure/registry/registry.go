package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/emberchat/ember/internal/domain"
	"github.com/emberchat/ember/internal/infrastructure/logging"
	"github.com/emberchat/ember/internal/infrastructure/metrics"
	"github.com/emberchat/ember/internal/infrastructure/ws"
)

// Broadcaster is the delivery half of the broadcast path. The registry
// resolves audiences to connection ids under its lock; implementations
// must enqueue without blocking and preserve per-connection order.
type Broadcaster interface {
	Deliver(connIDs []string, msg *ws.Envelope)
	DeliverAll(msg *ws.Envelope)
}

// EventPublisher mirrors room lifecycle transitions onto an external bus.
// Publishing is best-effort and never gates a mutation.
type EventPublisher interface {
	PublishRoomCreated(ctx context.Context, room domain.Room) error
	PublishRoomDeleted(ctx context.Context, room domain.Room) error
	PublishRoomExpired(ctx context.Context, room domain.Room) error
}

type Options struct {
	Hub     Broadcaster
	Store   domain.RoomStore
	Logger  logging.Logger
	Metrics *metrics.Metrics

	// Optional best-effort sinks.
	Audit     domain.RoomAuditRepository
	Publisher EventPublisher
}

// Registry is the authoritative table of live rooms, their membership and
// their timers. Every mutating operation runs under one mutex, so no two
// operations on the same room can interleave; timer callbacks re-enter
// through the same lock. Whichever of a racing delete/expire pair takes
// the lock first wins, and the loser finds the room absent.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*domain.Room
	order    []string // insertion order, for stable snapshots
	sessions *sessionIndex
	timers   map[string]*roomTimer

	hub       Broadcaster
	store     domain.RoomStore
	logger    logging.Logger
	metrics   *metrics.Metrics
	audit     domain.RoomAuditRepository
	publisher EventPublisher
}

func New(opts Options) *Registry {
	return &Registry{
		rooms:     make(map[string]*domain.Room),
		sessions:  newSessionIndex(),
		timers:    make(map[string]*roomTimer),
		hub:       opts.Hub,
		store:     opts.Store,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		publisher: opts.Publisher,
	}
}

// Restore seeds the registry with rooms loaded from the store at startup
// and schedules their remaining lifetimes.
func (r *Registry) Restore(rooms []domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range rooms {
		room := rooms[i]
		if _, exists := r.rooms[room.ID]; exists {
			continue
		}
		r.rooms[room.ID] = &room
		r.order = append(r.order, room.ID)
		r.scheduleLocked(&room)
		r.metrics.RoomsLive.Inc()
	}
}

// Register upserts the session's username and replies with the current
// room list, delivered to that connection alone.
func (r *Registry) Register(connID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions.register(connID, username)
	r.hub.Deliver([]string{connID}, ws.NewRoomList(r.snapshotLocked()))
}

// Create validates and adds a room owned by the requesting connection,
// schedules its timers, persists, and announces it to every client. A
// duration outside the allowed bounds mutates nothing.
func (r *Registry) Create(connID, roomName, ownerName string, durationMinutes int) (*domain.Room, error) {
	room, err := domain.NewRoom(connID, roomName, ownerName, durationMinutes)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.rooms[room.ID] = room
	r.order = append(r.order, room.ID)
	r.scheduleLocked(room)
	r.store.Save(r.snapshotLocked())
	r.hub.DeliverAll(ws.NewRoomCreated(*room))
	r.mu.Unlock()

	r.metrics.RoomsLive.Inc()
	r.metrics.RoomsCreated.Inc()
	r.logger.Info(logging.Registry, logging.RoomLifecycle, "room created", map[logging.ExtraKey]any{
		logging.RoomId:       room.ID,
		logging.ConnectionId: connID,
	})
	r.record(*room, domain.NewRoomCreatedLog(room), func(ctx context.Context, p EventPublisher, rm domain.Room) error {
		return p.PublishRoomCreated(ctx, rm)
	})

	return room, nil
}

// Join adds the connection to a room's audience and bumps its member
// count. Joining a room already occupied by the same connection is a
// guarded no-op so a duplicate join cannot inflate the count.
func (r *Registry) Join(roomID, connID, userID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}

	r.sessions.register(connID, username)
	r.sessions.bindUser(userID, connID)

	if !r.sessions.recordJoin(connID, roomID) {
		return domain.ErrAlreadyJoined
	}

	room.MembersCount++
	r.store.Save(r.snapshotLocked())
	r.hub.DeliverAll(ws.NewRoomUpdated(*room))
	// The join notice goes to the whole room, sender included; clients
	// suppress their own notice by identity comparison.
	r.hub.Deliver(r.sessions.connsInRoom(roomID, ""),
		ws.NewMemberJoined(userID, noticeName(username, userID), room.RoomName))

	return nil
}

// Leave is a no-op when the room is absent or its count is already zero,
// so the count can never go negative.
func (r *Registry) Leave(roomID, connID, userID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || room.MembersCount <= 0 {
		return
	}

	room.MembersCount--
	r.sessions.recordLeave(connID, roomID)

	r.hub.Deliver(r.sessions.connsInRoom(roomID, connID),
		ws.NewMemberLeft(userID, noticeName(username, userID), room.RoomName))
	r.hub.DeliverAll(ws.NewRoomUpdated(*room))
	r.store.Save(r.snapshotLocked())
}

// Delete destroys a room on its owner's request. A missing room or a
// non-owner requester is silently ignored.
func (r *Registry) Delete(roomID, requesterID, reason string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok || !room.IsOwner(requesterID) {
		r.mu.Unlock()
		return
	}

	removed := *room
	r.destroyLocked(room, reason)
	r.store.Save(r.snapshotLocked())
	r.hub.DeliverAll(ws.NewRoomList(r.snapshotLocked()))
	r.mu.Unlock()

	r.metrics.RoomsLive.Dec()
	r.metrics.RoomsDeleted.Inc()
	r.logger.Info(logging.Registry, logging.RoomLifecycle, "room deleted", map[logging.ExtraKey]any{
		logging.RoomId:       roomID,
		logging.ConnectionId: requesterID,
	})
	r.record(removed, domain.NewRoomDeletedLog(&removed, reason), func(ctx context.Context, p EventPublisher, rm domain.Room) error {
		return p.PublishRoomDeleted(ctx, rm)
	})
}

// expire is invoked by the one-shot expiry timer. If deletion won the
// race the room is already absent and nothing happens.
func (r *Registry) expire(roomID string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}

	removed := *room
	r.hub.Deliver(r.sessions.connsInRoom(roomID, ""), ws.NewRoomExpired(roomID, room.RoomName))
	r.removeRoomLocked(roomID)
	r.store.Save(r.snapshotLocked())
	r.hub.DeliverAll(ws.NewRoomList(r.snapshotLocked()))
	r.mu.Unlock()

	r.metrics.RoomsLive.Dec()
	r.metrics.RoomsExpired.Inc()
	r.logger.Info(logging.Registry, logging.Timers, "room expired", map[logging.ExtraKey]any{
		logging.RoomId: roomID,
	})
	r.record(removed, domain.NewRoomExpiredLog(&removed), func(ctx context.Context, p EventPublisher, rm domain.Room) error {
		return p.PublishRoomExpired(ctx, rm)
	})
}

// Disconnect reconciles everything a vanished connection leaves behind:
// rooms it owned are destroyed ("owner left"), rooms it merely occupied
// lose one member, and the session is erased. In-memory consistency is
// total even if the trailing persistence write fails.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()

	username, occupiedRooms := r.sessions.drop(connID)

	var destroyed []domain.Room
	for _, id := range append([]string(nil), r.order...) {
		room, ok := r.rooms[id]
		if !ok || !room.IsOwner(connID) {
			continue
		}
		destroyed = append(destroyed, *room)
		r.destroyLocked(room, "Owner left")
	}
	if len(destroyed) > 0 {
		r.hub.DeliverAll(ws.NewRoomList(r.snapshotLocked()))
	}

	for _, roomID := range occupiedRooms {
		room, ok := r.rooms[roomID]
		if !ok || room.MembersCount <= 0 {
			continue
		}
		room.MembersCount--
		r.hub.Deliver(r.sessions.connsInRoom(roomID, connID),
			ws.NewMemberLeft(connID, noticeName(username, connID), room.RoomName))
		r.hub.DeliverAll(ws.NewRoomUpdated(*room))
	}

	r.store.Save(r.snapshotLocked())
	r.mu.Unlock()

	for _, removed := range destroyed {
		r.metrics.RoomsLive.Dec()
		r.metrics.RoomsDeleted.Inc()
		r.record(removed, domain.NewRoomDeletedLog(&removed, "Owner left"), func(ctx context.Context, p EventPublisher, rm domain.Room) error {
			return p.PublishRoomDeleted(ctx, rm)
		})
	}

	r.logger.Info(logging.Registry, logging.Membership, "connection cleaned up", map[logging.ExtraKey]any{
		logging.ConnectionId: connID,
	})
}

// Relay forwards an opaque chat payload to the room's audience minus the
// sending connection, unmodified.
func (r *Registry) Relay(roomID, senderConnID string, payload json.RawMessage) {
	r.mu.Lock()
	audience := r.sessions.connsInRoom(roomID, senderConnID)
	r.hub.Deliver(audience, ws.NewMessageReceived(payload))
	r.mu.Unlock()

	if len(audience) > 0 {
		r.metrics.MessagesRelayed.Inc()
	}
}

// ListAll returns a consistent point-in-time snapshot of all live rooms
// in insertion order.
func (r *Registry) ListAll() []domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// destroyLocked notifies the room's members, then removes the room, its
// occupancy records and its timers. Caller holds r.mu and is responsible
// for persisting and for the global list refresh.
func (r *Registry) destroyLocked(room *domain.Room, reason string) {
	r.hub.Deliver(r.sessions.connsInRoom(room.ID, ""),
		ws.NewRoomDeleted(room.ID, room.RoomName, reason))
	r.removeRoomLocked(room.ID)
}

func (r *Registry) removeRoomLocked(roomID string) {
	r.cancelTimerLocked(roomID)
	r.sessions.dissolveRoom(roomID)
	delete(r.rooms, roomID)

	for i, id := range r.order {
		if id == roomID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) snapshotLocked() []domain.Room {
	out := make([]domain.Room, 0, len(r.rooms))
	for _, id := range r.order {
		if room, ok := r.rooms[id]; ok {
			out = append(out, *room)
		}
	}
	return out
}

// record ships a lifecycle transition to the optional audit and publisher
// sinks without holding the lock or gating the mutation.
func (r *Registry) record(room domain.Room, entry *domain.RoomAuditLog, publish func(context.Context, EventPublisher, domain.Room) error) {
	if r.audit == nil && r.publisher == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if r.audit != nil {
			if err := r.audit.Log(ctx, entry); err != nil {
				r.logger.Warn(logging.Mongo, logging.ExternalService, "audit log write failed", map[logging.ExtraKey]any{
					logging.RoomId:       room.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
		}
		if r.publisher != nil {
			if err := publish(ctx, r.publisher, room); err != nil {
				r.logger.Warn(logging.RabbitMQ, logging.ExternalService, "room event publish failed", map[logging.ExtraKey]any{
					logging.RoomId:       room.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}()
}

// noticeName mirrors the client fallback: an empty username renders as a
// short prefix of the user id.
func noticeName(username, userID string) string {
	if username != "" {
		return username
	}
	if len(userID) > 8 {
		return userID[:8]
	}
	return userID
}
