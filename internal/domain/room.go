package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 1440
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrInvalidDuration   = fmt.Errorf("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	ErrNotOwner          = errors.New("requester is not the room owner")
	ErrAlreadyJoined     = errors.New("connection already joined this room")
	ErrSessionNotFound   = errors.New("session not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// Room is a named, time-boxed chat channel with a single owner.
// ExpiresAt is fixed at creation and never extended.
type Room struct {
	ID           string    `json:"id"`
	RoomName     string    `json:"roomName"`
	OwnerName    string    `json:"ownerName"`
	OwnerID      string    `json:"ownerId"`
	Duration     int       `json:"duration"` // minutes
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	MembersCount int       `json:"membersCount"`
}

func NewRoom(ownerID, roomName, ownerName string, durationMinutes int) (*Room, error) {
	if durationMinutes < MinDurationMinutes || durationMinutes > MaxDurationMinutes {
		return nil, ErrInvalidDuration
	}

	now := time.Now().UTC()

	return &Room{
		ID:        uuid.NewString(),
		RoomName:  roomName,
		OwnerName: ownerName,
		OwnerID:   ownerID,
		Duration:  durationMinutes,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(durationMinutes) * time.Minute),
	}, nil
}

func (r *Room) IsOwner(connID string) bool {
	return r.OwnerID != "" && r.OwnerID == connID
}

func (r *Room) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Remaining returns the whole seconds left before expiry, never negative.
func (r *Room) Remaining(now time.Time) int {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Lifetime is the room's full lifespan as a duration.
func (r *Room) Lifetime() time.Duration {
	return time.Duration(r.Duration) * time.Minute
}
