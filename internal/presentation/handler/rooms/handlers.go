package rooms

import (
	"net/http"

	"github.com/emberchat/ember/internal/infrastructure/json"
	"github.com/emberchat/ember/internal/infrastructure/registry"
)

type Handler struct {
	registry *registry.Registry
}

func NewHandler(reg *registry.Registry) *Handler {
	return &Handler{
		registry: reg,
	}
}

// ListRoomsHandler returns a point-in-time snapshot of all live rooms.
func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms := h.registry.ListAll()

	mapped := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		mapped = append(mapped, roomResponse{
			ID:           room.ID,
			RoomName:     room.RoomName,
			OwnerName:    room.OwnerName,
			Duration:     room.Duration,
			CreatedAt:    room.CreatedAt,
			ExpiresAt:    room.ExpiresAt,
			MembersCount: room.MembersCount,
		})
	}

	json.Write(w, http.StatusOK, listRoomsResponse{Rooms: mapped})
}
