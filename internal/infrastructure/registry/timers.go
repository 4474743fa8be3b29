package registry

import (
	"time"

	"github.com/emberchat/ember/internal/domain"
	"github.com/emberchat/ember/internal/infrastructure/ws"
)

// roomTimer holds the one-shot expiry timer and the countdown stop channel
// for a single live room. Exactly one exists per room in the registry.
type roomTimer struct {
	expiry *time.Timer
	stop   chan struct{}
}

// scheduleLocked starts the expiry one-shot and the 1s countdown ticker
// for a room. Caller holds r.mu.
func (r *Registry) scheduleLocked(room *domain.Room) {
	id := room.ID
	stop := make(chan struct{})

	r.timers[id] = &roomTimer{
		expiry: time.AfterFunc(time.Until(room.ExpiresAt), func() { r.expire(id) }),
		stop:   stop,
	}

	go r.countdown(id, room.ExpiresAt, stop)
}

// cancelTimerLocked stops both timers for a room. Caller holds r.mu, which
// makes cancellation synchronous with deletion: by the time the deleting
// operation returns, the stop channel is closed and the handle is gone. An
// expiry callback that already fired and is waiting on the lock finds the
// room absent and becomes a no-op.
func (r *Registry) cancelTimerLocked(roomID string) {
	rt, ok := r.timers[roomID]
	if !ok {
		return
	}
	rt.expiry.Stop()
	close(rt.stop)
	delete(r.timers, roomID)
}

// countdown emits a timer update to the room's members every second until
// the room disappears or its lifetime runs out. The expiry one-shot owns
// the actual destruction; the countdown never deletes anything.
func (r *Registry) countdown(roomID string, expiresAt time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case now := <-ticker.C:
			remaining := int(expiresAt.Sub(now) / time.Second)
			if remaining < 0 {
				remaining = 0
			}

			r.mu.Lock()
			if _, ok := r.rooms[roomID]; !ok {
				r.mu.Unlock()
				return
			}
			r.hub.Deliver(r.sessions.connsInRoom(roomID, ""), ws.NewTimerUpdate(roomID, remaining))
			r.mu.Unlock()

			if remaining <= 0 {
				return
			}
		}
	}
}
