package hub

import "github.com/vovakirdan/chatrooms/internal/core"

// EventKind is a notification the hub emits to the owner of a client session.
type EventKind int

const (
	// EventUserChanged reports a new current user, or none after logout.
	EventUserChanged EventKind = iota
	// EventRoomJoined delivers the active room and its history.
	EventRoomJoined
	// EventRoomLeft reports that the session has no active room anymore.
	EventRoomLeft
	// EventRoomMessage delivers a message appended to the active room.
	EventRoomMessage
)

func (k EventKind) String() string {
	switch k {
	case EventUserChanged:
		return "user"
	case EventRoomJoined:
		return "joined"
	case EventRoomLeft:
		return "left"
	case EventRoomMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event describes a state change of a client session.
type Event struct {
	Kind     EventKind
	User     *core.User // EventUserChanged; nil after logout
	Room     *core.ChatRoom
	Message  core.Message
	Messages []core.Message // EventRoomJoined
}
