package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/proto"
)

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAnonymous bool   `json:"is_anonymous"`
	IsOnline    bool   `json:"is_online"`
}

// RoomResponse represents a room in API responses. Access codes never leave the server.
type RoomResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UsersCount  int    `json:"users_count"`
	IsPrivate   bool   `json:"is_private"`
}

// MessageResponse represents a chat message in API responses.
type MessageResponse struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	IsMedia    bool   `json:"is_media"`
	MediaURL   string `json:"media_url,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// PresenceResponse represents the online users.
type PresenceResponse struct {
	Users            []UserResponse `json:"users"`
	TotalOnline      int            `json:"total_online"`
	RegisteredOnline int            `json:"registered_online"`
}

func userResponse(u core.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		IsAnonymous: u.IsAnonymous,
		IsOnline:    u.IsOnline,
	}
}

func roomResponse(r core.ChatRoom) RoomResponse {
	return RoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UsersCount:  r.UsersCount,
		IsPrivate:   r.IsPrivate(),
	}
}

func messageResponse(m core.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		IsMedia:    m.IsMedia,
		MediaURL:   m.MediaURL,
		Timestamp:  m.Timestamp.UTC().Format(time.RFC3339),
	}
}

func messageResponses(msgs []core.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	return out
}

func presenceResponse(p core.Presence) PresenceResponse {
	users := make([]UserResponse, 0, len(p.Users))
	for _, u := range p.Users {
		users = append(users, userResponse(u))
	}
	return PresenceResponse{
		Users:            users,
		TotalOnline:      p.TotalOnline,
		RegisteredOnline: p.RegisteredOnline,
	}
}

// wsCommand is a decoded inbound frame.
type wsCommand struct {
	kind       string
	room       string
	accessCode string
	text       string
	mediaURL   string
}

// inboundToCommand validates an inbound frame. Malformed payloads yield a bad_request protocol error.
func inboundToCommand(inbound proto.Inbound) (*wsCommand, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid join payload"}
		}
		if strings.TrimSpace(join.Room) == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}
		}
		return &wsCommand{kind: inbound.Type, room: join.Room, accessCode: join.AccessCode}, nil
	case proto.InboundTypeLeave:
		return &wsCommand{kind: inbound.Type}, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid msg payload"}
		}
		return &wsCommand{kind: inbound.Type, text: msg.Text, mediaURL: msg.MediaURL}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func errorOutbound(err error) proto.Outbound {
	ce := core.AsCoreError(err)
	msg := ce.Message
	if ce.Code == core.ErrCodeInternal {
		msg = "internal error"
	}
	return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: ce.Code, Msg: msg}}
}

func eventUser(u *core.User) *proto.EventUser {
	if u == nil {
		return nil
	}
	return &proto.EventUser{
		ID:          u.ID,
		Username:    u.Username,
		IsAnonymous: u.IsAnonymous,
		IsOnline:    u.IsOnline,
	}
}

func eventRoom(r core.ChatRoom) proto.EventRoom {
	return proto.EventRoom{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		UsersCount:  r.UsersCount,
		IsPrivate:   r.IsPrivate(),
	}
}

func eventMessage(m core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:       m.ID,
		Room:     m.RoomID,
		UserID:   m.SenderID,
		User:     m.SenderName,
		Text:     m.Content,
		IsMedia:  m.IsMedia,
		MediaURL: m.MediaURL,
		TS:       m.Timestamp.Unix(),
	}
}

func outboundFromEvent(event *hub.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent}
	switch event.Kind {
	case hub.EventUserChanged:
		out.Event = proto.EventNameUser
		if u := eventUser(event.User); u != nil {
			out.Data = u
		}
	case hub.EventRoomJoined:
		out.Event = proto.EventNameJoined
		joined := proto.EventJoined{Messages: make([]proto.EventMessage, 0, len(event.Messages))}
		if event.Room != nil {
			joined.Room = eventRoom(*event.Room)
		}
		for _, m := range event.Messages {
			joined.Messages = append(joined.Messages, eventMessage(m))
		}
		out.Data = joined
	case hub.EventRoomLeft:
		out.Event = proto.EventNameLeft
	case hub.EventRoomMessage:
		out.Event = proto.EventNameMessage
		out.Data = eventMessage(event.Message)
	default:
		out.Event = event.Kind.String()
	}
	return out
}
