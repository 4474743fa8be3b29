package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated RoomEventType = "room_created"
	EventRoomDeleted RoomEventType = "room_deleted"
	EventRoomExpired RoomEventType = "room_expired"
)

// RoomAuditLog records a room lifecycle transition for later inspection.
type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
}

func NewRoomCreatedLog(room *Room) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		EventType: EventRoomCreated,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"room_name":        room.RoomName,
			"duration_minutes": room.Duration,
		},
	}
}

func NewRoomDeletedLog(room *Room, reason string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		EventType: EventRoomDeleted,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"reason":       reason,
			"member_count": room.MembersCount,
		},
	}
}

func NewRoomExpiredLog(room *Room) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		EventType: EventRoomExpired,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"member_count": room.MembersCount,
		},
	}
}
