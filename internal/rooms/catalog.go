package rooms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vovakirdan/chatrooms/internal/core"
)

// DefaultHistorySize is the number of placeholder messages loaded per room.
const DefaultHistorySize = 15

// Catalog is the storage collaborator behind the room store.
type Catalog interface {
	// ListRooms returns all rooms in creation order.
	ListRooms(ctx context.Context) ([]core.ChatRoom, error)

	// GetRoom returns a room by id or core.ErrRoomNotFound.
	GetRoom(ctx context.Context, id string) (core.ChatRoom, error)

	// AddRoom appends a room to the catalog.
	AddRoom(ctx context.Context, room core.ChatRoom) error

	// LoadMessages returns the history of a room, oldest first.
	LoadMessages(ctx context.Context, roomID string) ([]core.Message, error)
}

// MemoryCatalog keeps rooms in process memory and synthesizes room history.
type MemoryCatalog struct {
	mu          sync.RWMutex
	rooms       []core.ChatRoom
	index       map[string]int
	historySize int
	now         func() time.Time
}

// CatalogOption configures a MemoryCatalog.
type CatalogOption func(*MemoryCatalog)

// WithHistorySize sets how many placeholder messages LoadMessages returns.
func WithHistorySize(n int) CatalogOption {
	return func(c *MemoryCatalog) {
		if n < 0 {
			n = 0
		}
		c.historySize = n
	}
}

// WithCatalogClock overrides the time source of the placeholder history.
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(c *MemoryCatalog) {
		c.now = now
	}
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog(opts ...CatalogOption) *MemoryCatalog {
	c := &MemoryCatalog{
		index:       make(map[string]int),
		historySize: DefaultHistorySize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Seed loads fixture rooms into the catalog.
func (c *MemoryCatalog) Seed(rooms ...core.ChatRoom) error {
	for _, room := range rooms {
		if err := c.AddRoom(context.Background(), room); err != nil {
			return err
		}
	}
	return nil
}

// ListRooms returns a copy of the catalog.
func (c *MemoryCatalog) ListRooms(_ context.Context) ([]core.ChatRoom, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]core.ChatRoom, len(c.rooms))
	copy(out, c.rooms)
	return out, nil
}

// GetRoom returns a room by id.
func (c *MemoryCatalog) GetRoom(_ context.Context, id string) (core.ChatRoom, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return core.ChatRoom{}, core.ErrRoomNotFound
	}
	return c.rooms[i], nil
}

// AddRoom appends room. Room ids must be unique.
func (c *MemoryCatalog) AddRoom(_ context.Context, room core.ChatRoom) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[room.ID]; exists {
		return fmt.Errorf("room %q already exists", room.ID)
	}
	c.index[room.ID] = len(c.rooms)
	c.rooms = append(c.rooms, room)
	return nil
}

// LoadMessages returns a deterministic placeholder history for roomID.
func (c *MemoryCatalog) LoadMessages(_ context.Context, roomID string) ([]core.Message, error) {
	c.mu.RLock()
	_, ok := c.index[roomID]
	size := c.historySize
	c.mu.RUnlock()
	if !ok {
		return nil, core.ErrRoomNotFound
	}

	base := c.now()
	messages := make([]core.Message, 0, size)
	for i := size - 1; i >= 0; i-- {
		sender := i % 5
		messages = append(messages, core.Message{
			ID:         fmt.Sprintf("msg-%s-%d", roomID, i),
			Content:    fmt.Sprintf("This is message %d in room %s", i, roomID),
			SenderID:   fmt.Sprintf("user-%d", sender),
			SenderName: fmt.Sprintf("User%d", sender),
			Timestamp:  base.Add(-time.Duration(i) * time.Minute),
			RoomID:     roomID,
		})
	}
	return messages, nil
}

// Fixtures returns the demo rooms shipped with the application.
func Fixtures(now time.Time) []core.ChatRoom {
	private, _ := core.PrivateRoom("1234")
	return []core.ChatRoom{
		{
			ID:          "1",
			Name:        "General Chat",
			Description: "Talk about anything",
			CreatedBy:   "system",
			CreatedAt:   now,
			UsersCount:  24,
			Kind:        core.PublicRoom(),
		},
		{
			ID:          "2",
			Name:        "Tech Talk",
			Description: "Discuss the latest in technology",
			CreatedBy:   "system",
			CreatedAt:   now,
			UsersCount:  15,
			Kind:        core.PublicRoom(),
		},
		{
			ID:          "3",
			Name:        "Private Discussion",
			Description: "Invite-only room",
			CreatedBy:   "system",
			CreatedAt:   now,
			UsersCount:  5,
			Kind:        private,
		},
	}
}

var _ Catalog = (*MemoryCatalog)(nil)
