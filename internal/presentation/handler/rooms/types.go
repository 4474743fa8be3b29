package rooms

import "time"

type roomResponse struct {
	ID           string    `json:"id"`
	RoomName     string    `json:"roomName"`
	OwnerName    string    `json:"ownerName"`
	Duration     int       `json:"duration"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	MembersCount int       `json:"membersCount"`
}

type listRoomsResponse struct {
	Rooms []roomResponse `json:"rooms"`
}
