package hub

import (
	"context"
	"sync"
	"time"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/rooms"
	"github.com/vovakirdan/chatrooms/internal/session"
)

const eventBuffer = 16

// Client is one application session: a current user plus its room membership.
// State changes made through Client are reported on Events, which has a single reader.
type Client struct {
	ID       string
	DeviceID string
	Identity *session.Store
	Rooms    *rooms.Store
	Events   chan *Event

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
	now      func() time.Time
}

func newClient(id, deviceID string, identity *session.Store, roomStore *rooms.Store, now func() time.Time) *Client {
	return &Client{
		ID:       id,
		DeviceID: deviceID,
		Identity: identity,
		Rooms:    roomStore,
		Events:   make(chan *Event, eventBuffer),
		lastSeen: now(),
		now:      now,
	}
}

// Touch records activity on the session.
func (c *Client) Touch() {
	c.mu.Lock()
	c.lastSeen = c.now()
	c.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (c *Client) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Client) emit(ev *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}

func (c *Client) close() {
	c.Rooms.LeaveRoom()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Events)
}

func (c *Client) emitUser() {
	ev := &Event{Kind: EventUserChanged}
	if user, ok := c.Identity.CurrentUser(); ok {
		ev.User = &user
	}
	c.emit(ev)
}

// Login signs a registered user in.
func (c *Client) Login(ctx context.Context, email, password string) (core.User, error) {
	c.Touch()
	user, err := c.Identity.Login(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	c.emitUser()
	return user, nil
}

// Signup registers and signs a user in.
func (c *Client) Signup(ctx context.Context, email, username, password string) (core.User, error) {
	c.Touch()
	user, err := c.Identity.Signup(ctx, email, username, password)
	if err != nil {
		return core.User{}, err
	}
	c.emitUser()
	return user, nil
}

// JoinAnonymously makes an anonymous user current.
func (c *Client) JoinAnonymously(ctx context.Context, username string) (core.User, error) {
	c.Touch()
	user, err := c.Identity.JoinAnonymously(ctx, username)
	if err != nil {
		return core.User{}, err
	}
	c.emitUser()
	return user, nil
}

// Logout leaves the active room and signs the user out.
func (c *Client) Logout(ctx context.Context) error {
	c.Touch()
	c.LeaveRoom()
	err := c.Identity.Logout(ctx)
	c.emitUser()
	return err
}

// CreateRoom creates a room owned by the current user.
func (c *Client) CreateRoom(ctx context.Context, name string, kind core.RoomKind, opts ...rooms.RoomOption) (string, error) {
	c.Touch()
	return c.Rooms.CreateRoom(ctx, name, kind, opts...)
}

// JoinRoom enters a room; see rooms.Store.JoinRoom.
func (c *Client) JoinRoom(ctx context.Context, roomID, accessCode string) (bool, error) {
	if _, _, err := c.Enter(ctx, roomID, accessCode); err != nil {
		return false, err
	}
	return true, nil
}

// Enter joins like JoinRoom and returns the room and history the join committed.
// The joined event carries the same values.
func (c *Client) Enter(ctx context.Context, roomID, accessCode string) (core.ChatRoom, []core.Message, error) {
	c.Touch()
	room, messages, err := c.Rooms.Enter(ctx, roomID, accessCode)
	if err != nil {
		return core.ChatRoom{}, nil, err
	}
	c.emit(&Event{Kind: EventRoomJoined, Room: &room, Messages: messages})
	return room, messages, nil
}

// LeaveRoom clears the active room.
func (c *Client) LeaveRoom() {
	c.Touch()
	_, wasActive := c.Rooms.ActiveRoom()
	c.Rooms.LeaveRoom()
	if wasActive {
		c.emit(&Event{Kind: EventRoomLeft})
	}
}

// SendMessage appends a message to the active room.
func (c *Client) SendMessage(ctx context.Context, content string, opts ...rooms.MessageOption) (core.Message, error) {
	c.Touch()
	msg, err := c.Rooms.SendMessage(ctx, content, opts...)
	if err != nil {
		return core.Message{}, err
	}
	c.emit(&Event{Kind: EventRoomMessage, Message: msg})
	return msg, nil
}
