package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin  = "join"
	InboundTypeLeave = "leave"
	InboundTypeMsg   = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameReady   = "ready"
	EventNameUser    = "user"
	EventNameJoined  = "joined"
	EventNameLeft    = "left"
	EventNameMessage = "message"
)

// JoinData requests to join a room.
type JoinData struct {
	Room       string `json:"room"`
	AccessCode string `json:"access_code,omitempty"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventReady greets a freshly connected client.
type EventReady struct {
	Protocol  int        `json:"protocol"`
	SessionID string     `json:"session_id"`
	User      *EventUser `json:"user,omitempty"`
}

// EventUser describes the current user of the session.
type EventUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAnonymous bool   `json:"is_anonymous"`
	IsOnline    bool   `json:"is_online"`
}

// EventRoom describes a room.
type EventRoom struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UsersCount  int    `json:"users_count"`
	IsPrivate   bool   `json:"is_private"`
}

// EventJoined is sent once a room is active, with its history.
type EventJoined struct {
	Room     EventRoom      `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// EventMessage is a chat message in the active room.
type EventMessage struct {
	ID       string `json:"id"`
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	User     string `json:"user"`
	Text     string `json:"text"`
	IsMedia  bool   `json:"is_media,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	TS       int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
