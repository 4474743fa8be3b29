package messaging

import "github.com/emberchat/ember/internal/domain"

// Routing keys for room lifecycle events.
const (
	EventRoomCreated = "room.created"
	EventRoomDeleted = "room.deleted"
	EventRoomExpired = "room.expired"
)

type RoomEventData struct {
	Room domain.Room `json:"room"`
}
