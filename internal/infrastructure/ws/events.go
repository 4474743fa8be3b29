package ws

// Inbound event types.
const (
	UserRegister = "user.register"
	RoomCreate   = "room.create"
	RoomJoin     = "room.join"
	RoomLeave    = "room.leave"
	RoomDelete   = "room.delete"
	MessageSend  = "message.send"
)

// Outbound event types.
const (
	RoomList        = "room.list"
	RoomCreated     = "room.created"
	RoomUpdated     = "room.updated"
	RoomDeleted     = "room.deleted"
	RoomExpired     = "room.expired"
	RoomTimer       = "room.timer"
	RoomCreateError = "room.create_error"

	MemberJoined = "member.joined"
	MemberLeft   = "member.left"

	MessageReceived = "message.received"
)
