package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/utils"
)

// MaxRoomNameLength bounds room names, in runes.
const MaxRoomNameLength = 64

// Identity is the read-only view of the session the room store acts for.
type Identity interface {
	CurrentUser() (core.User, bool)
}

// MembershipState is the room membership of a client session.
type MembershipState int

const (
	// StateIdle means no room is active.
	StateIdle MembershipState = iota
	// StateJoining means a join is loading the room.
	StateJoining
	// StateActive means a room is joined.
	StateActive
)

func (s MembershipState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Store owns the active room and its message history for one client session.
type Store struct {
	catalog  Catalog
	identity Identity
	log      *zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	active   *core.ChatRoom
	messages []core.Message
	gen      uint64 // bumped by every join and leave request
	pending  uint64 // generation of the join in flight, 0 when none
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used to stamp rooms and messages.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a room store acting on behalf of identity.
func NewStore(catalog Catalog, identity Identity, logger *zerolog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Store{
		catalog:  catalog,
		identity: identity,
		log:      logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rooms lists the catalog.
func (s *Store) Rooms(ctx context.Context) ([]core.ChatRoom, error) {
	rooms, err := s.catalog.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// RoomOption customizes a room at creation time.
type RoomOption func(*core.ChatRoom)

// WithDescription sets the room description.
func WithDescription(description string) RoomOption {
	return func(r *core.ChatRoom) {
		r.Description = strings.TrimSpace(description)
	}
}

// CreateRoom adds a room created by the current user and returns its id.
func (s *Store) CreateRoom(ctx context.Context, name string, kind core.RoomKind, opts ...RoomOption) (string, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return "", core.ErrNotAuthenticated
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", core.ErrInvalidRoomName
	}

	room := core.ChatRoom{
		ID:         utils.NewID(utils.PrefixRoom),
		Name:       name,
		CreatedBy:  user.ID,
		CreatedAt:  s.now(),
		UsersCount: 1,
		Kind:       kind,
	}
	for _, opt := range opts {
		opt(&room)
	}

	if err := s.catalog.AddRoom(ctx, room); err != nil {
		return "", fmt.Errorf("add room: %w", err)
	}

	s.log.Info().
		Str("room_id", room.ID).
		Str("room_name", room.Name).
		Str("created_by", user.ID).
		Bool("private", kind.IsPrivate()).
		Msg("room created")
	return room.ID, nil
}

// JoinRoom makes roomID the active room and loads its history.
// It reports false with core.ErrRoomNotFound or core.ErrAccessDenied when the
// room cannot be entered, and with core.ErrJoinSuperseded when a later join or
// leave was requested while this one was loading. Failed joins leave the
// current room untouched.
func (s *Store) JoinRoom(ctx context.Context, roomID, accessCode string) (bool, error) {
	if _, _, err := s.Enter(ctx, roomID, accessCode); err != nil {
		return false, err
	}
	return true, nil
}

// Enter joins like JoinRoom and returns the room and history it committed.
// The returned values are copies taken while the join was applied, so they
// are not affected by a leave or join that follows.
func (s *Store) Enter(ctx context.Context, roomID, accessCode string) (core.ChatRoom, []core.Message, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.pending = gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.pending == gen {
			s.pending = 0
		}
		s.mu.Unlock()
	}()

	room, err := s.catalog.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			return core.ChatRoom{}, nil, core.ErrRoomNotFound
		}
		return core.ChatRoom{}, nil, fmt.Errorf("get room: %w", err)
	}

	if !room.Kind.Admits(accessCode) {
		s.log.Debug().Str("room_id", roomID).Msg("access code rejected")
		return core.ChatRoom{}, nil, core.ErrAccessDenied
	}

	history, err := s.catalog.LoadMessages(ctx, roomID)
	if err != nil {
		return core.ChatRoom{}, nil, fmt.Errorf("load messages: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return core.ChatRoom{}, nil, core.ErrJoinSuperseded
	}

	messages := make([]core.Message, 0, len(history))
	for _, msg := range history {
		if msg.RoomID == room.ID {
			messages = append(messages, msg)
		}
	}
	s.active = &room
	s.messages = messages

	s.log.Debug().Str("room_id", room.ID).Int("history", len(messages)).Msg("room joined")

	history = make([]core.Message, len(messages))
	copy(history, messages)
	return room, history, nil
}

// LeaveRoom clears the active room and its history. Safe to call when idle.
func (s *Store) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.pending = 0
	if s.active != nil {
		s.log.Debug().Str("room_id", s.active.ID).Msg("room left")
	}
	s.active = nil
	s.messages = nil
}

// MessageOption customizes a message at send time.
type MessageOption func(*core.Message)

// WithMedia marks the message as carrying media at url.
func WithMedia(url string) MessageOption {
	return func(m *core.Message) {
		m.IsMedia = true
		m.MediaURL = url
	}
}

// SendMessage appends a message from the current user to the active room.
// Nothing is appended when it fails.
func (s *Store) SendMessage(_ context.Context, content string, opts ...MessageOption) (core.Message, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.Message{}, core.ErrNotAuthenticated
	}

	msg := core.Message{
		ID:         utils.NewID(utils.PrefixMessage),
		Content:    content,
		SenderID:   user.ID,
		SenderName: user.Username,
	}
	for _, opt := range opts {
		opt(&msg)
	}
	if !msg.IsMedia && strings.TrimSpace(content) == "" {
		return core.Message{}, core.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return core.Message{}, core.ErrNoActiveRoom
	}
	msg.RoomID = s.active.ID
	msg.Timestamp = s.now()
	s.messages = append(s.messages, msg)

	return msg, nil
}

// ActiveRoom returns the active room, if any.
func (s *Store) ActiveRoom() (core.ChatRoom, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return core.ChatRoom{}, false
	}
	return *s.active, true
}

// Messages returns a copy of the active room's history.
func (s *Store) Messages() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Snapshot returns the active room and its history as one consistent view.
func (s *Store) Snapshot() (*core.ChatRoom, []core.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, []core.Message{}
	}
	room := *s.active
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return &room, out
}

// State reports the membership state.
func (s *Store) State() MembershipState {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.pending != 0:
		return StateJoining
	case s.active != nil:
		return StateActive
	default:
		return StateIdle
	}
}
