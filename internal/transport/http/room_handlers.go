package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/rooms"
)

// RoomHandlers provides HTTP handlers for room and message endpoints.
type RoomHandlers struct {
	hub *hub.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(h *hub.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: h,
		log: logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	AccessCode  string `json:"access_code"`
}

// CreateRoomResponse carries the id of a created room.
type CreateRoomResponse struct {
	ID string `json:"id"`
}

// JoinRoomRequest represents the join room request body.
type JoinRoomRequest struct {
	AccessCode string `json:"access_code"`
}

// JoinResponse reports the outcome of a join. Refused joins carry a code.
type JoinResponse struct {
	Joined bool          `json:"joined"`
	Room   *RoomResponse `json:"room,omitempty"`
	Code   string        `json:"code,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ActiveRoomResponse describes the session's active room and history.
type ActiveRoomResponse struct {
	State    string            `json:"state"`
	Room     *RoomResponse     `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
}

// ListRooms returns every room of the catalog.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	list, err := client.Rooms.Rooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Str("session_id", client.ID).Msg("failed to list rooms")
		writeError(c, err)
		return
	}

	response := make([]RoomResponse, 0, len(list))
	for _, room := range list {
		response = append(response, roomResponse(room))
	}

	h.log.Debug().Str("session_id", client.ID).Int("room_count", len(list)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// CreateRoom adds a room owned by the current user.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		badRequest(c, "invalid request body")
		return
	}

	kind, err := core.NewRoomKind(req.IsPrivate, req.AccessCode)
	if err != nil {
		writeError(c, err)
		return
	}

	var opts []rooms.RoomOption
	if req.Description != "" {
		opts = append(opts, rooms.WithDescription(req.Description))
	}

	id, err := client.CreateRoom(c.Request.Context(), req.Name, kind, opts...)
	if err != nil {
		if core.Code(err) == core.ErrCodeInternal {
			h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateRoomResponse{ID: id})
}

// JoinRoom makes a room the session's active room.
// POST /api/rooms/:id/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug().Err(err).Msg("invalid join request")
		badRequest(c, "invalid request body")
		return
	}

	roomID := c.Param("id")
	room, _, err := client.Enter(c.Request.Context(), roomID, req.AccessCode)
	if err != nil {
		ce := core.AsCoreError(err)
		if ce.Code == core.ErrCodeInternal {
			h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to join room")
			writeError(c, err)
			return
		}
		c.JSON(statusForCode(ce.Code), JoinResponse{Joined: false, Code: ce.Code, Error: ce.Message})
		return
	}

	r := roomResponse(room)
	c.JSON(http.StatusOK, JoinResponse{Joined: true, Room: &r})
}

// LeaveRoom clears the session's active room.
// POST /api/rooms/leave
func (h *RoomHandlers) LeaveRoom(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}
	client.LeaveRoom()
	c.Status(http.StatusNoContent)
}

// ActiveRoom returns the active room and its history.
// GET /api/rooms/active
func (h *RoomHandlers) ActiveRoom(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	room, messages := client.Rooms.Snapshot()
	resp := ActiveRoomResponse{
		State:    client.Rooms.State().String(),
		Messages: messageResponses(messages),
	}
	if room != nil {
		r := roomResponse(*room)
		resp.Room = &r
	}
	c.JSON(http.StatusOK, resp)
}

// ListMessages returns the active room's history, oldest first.
// GET /api/messages
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}
	if _, active := client.Rooms.ActiveRoom(); !active {
		writeError(c, core.ErrNoActiveRoom)
		return
	}
	c.JSON(http.StatusOK, messageResponses(client.Rooms.Messages()))
}

// SendMessage appends a message to the active room.
// POST /api/messages
func (h *RoomHandlers) SendMessage(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		badRequest(c, "invalid request body")
		return
	}

	var opts []rooms.MessageOption
	if req.MediaURL != "" {
		opts = append(opts, rooms.WithMedia(req.MediaURL))
	}

	msg, err := client.SendMessage(c.Request.Context(), req.Content, opts...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse(msg))
}

// Presence lists the users signed in on any live session.
// GET /api/presence
func (h *RoomHandlers) Presence(c *gin.Context) {
	c.JSON(http.StatusOK, presenceResponse(h.hub.Presence()))
}
