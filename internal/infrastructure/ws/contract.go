package ws

import (
	"encoding/json"

	"github.com/emberchat/ember/internal/domain"
)

// Envelope is the outbound wire frame.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is a received frame; Data stays raw until the dispatcher knows
// the event type. Chat payloads are never unmarshalled beyond routing
// fields so the (client-side ciphered) message body passes through opaque.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound payload structs
type RegisterPayload struct {
	Username string `json:"username"`
}

type CreateRoomPayload struct {
	RoomName  string `json:"roomName"`
	Duration  int    `json:"duration"`
	OwnerName string `json:"ownerName"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type LeaveRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type DeleteRoomPayload struct {
	RoomID string `json:"roomId"`
}

// ChatRouting carries just the fields needed to route a chat relay. The
// full raw payload is forwarded unmodified.
type ChatRouting struct {
	Room     string `json:"room"`
	SenderID string `json:"senderid"`
}

// Outbound payload structs
type RoomClosedPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Reason   string `json:"reason"`
}

type RoomExpiredPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
}

type TimerPayload struct {
	RoomID        string `json:"roomId"`
	TimeRemaining int    `json:"timeRemaining"` // seconds
}

type MemberNoticePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomName string `json:"roomName"`
	Message  string `json:"message,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewRoomList(rooms []domain.Room) *Envelope {
	return &Envelope{
		Type: RoomList,
		Data: rooms,
	}
}

func NewRoomCreated(room domain.Room) *Envelope {
	return &Envelope{
		Type: RoomCreated,
		Data: room,
	}
}

func NewRoomUpdated(room domain.Room) *Envelope {
	return &Envelope{
		Type: RoomUpdated,
		Data: room,
	}
}

func NewRoomDeleted(roomID, roomName, reason string) *Envelope {
	return &Envelope{
		Type: RoomDeleted,
		Data: RoomClosedPayload{
			RoomID:   roomID,
			RoomName: roomName,
			Reason:   reason,
		},
	}
}

func NewRoomExpired(roomID, roomName string) *Envelope {
	return &Envelope{
		Type: RoomExpired,
		Data: RoomExpiredPayload{
			RoomID:   roomID,
			RoomName: roomName,
			Message:  "Time is up!",
		},
	}
}

func NewTimerUpdate(roomID string, remaining int) *Envelope {
	return &Envelope{
		Type: RoomTimer,
		Data: TimerPayload{
			RoomID:        roomID,
			TimeRemaining: remaining,
		},
	}
}

func NewCreateError(message string) *Envelope {
	return &Envelope{
		Type: RoomCreateError,
		Data: ErrorPayload{Message: message},
	}
}

func NewMemberJoined(userID, username, roomName string) *Envelope {
	return &Envelope{
		Type: MemberJoined,
		Data: MemberNoticePayload{
			UserID:   userID,
			Username: username,
			RoomName: roomName,
			Message:  username + " joined",
		},
	}
}

func NewMemberLeft(userID, username, roomName string) *Envelope {
	return &Envelope{
		Type: MemberLeft,
		Data: MemberNoticePayload{
			UserID:   userID,
			Username: username,
			RoomName: roomName,
			Message:  username + " left",
		},
	}
}

func NewMessageReceived(payload json.RawMessage) *Envelope {
	return &Envelope{
		Type: MessageReceived,
		Data: payload,
	}
}
