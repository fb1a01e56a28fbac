package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/rooms"
	"github.com/vovakirdan/chatrooms/internal/session"
	"github.com/vovakirdan/chatrooms/internal/store"
	"github.com/vovakirdan/chatrooms/internal/utils"
)

// ErrClientNotFound is returned for unknown or expired client sessions.
var ErrClientNotFound = errors.New("client session not found")

// Options tune the hub.
type Options struct {
	// IdentityKey is the base identity-storage key; device ids are appended to it.
	IdentityKey string
	// IdleTTL closes sessions without activity for this long. Zero disables expiry.
	IdleTTL time.Duration
	// SweepInterval is how often Run looks for idle sessions.
	SweepInterval time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

// Hub tracks the live client sessions of the process.
type Hub struct {
	identities store.IdentityStore
	catalog    rooms.Catalog
	opts       Options
	log        *zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub whose sessions persist identities in identities
// and share the room catalog.
func NewHub(identities store.IdentityStore, catalog rooms.Catalog, logger *zerolog.Logger, opts Options) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.IdentityKey == "" {
		opts.IdentityKey = session.DefaultKey
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Hub{
		identities: identities,
		catalog:    catalog,
		opts:       opts,
		log:        logger,
		clients:    make(map[string]*Client),
	}
}

// IdentityKey returns the storage key used for deviceID.
func (h *Hub) IdentityKey(deviceID string) string {
	if deviceID == "" {
		return h.opts.IdentityKey
	}
	return h.opts.IdentityKey + ":" + deviceID
}

// OpenClient starts a session for deviceID, restoring the identity persisted for it.
func (h *Hub) OpenClient(ctx context.Context, deviceID string) (*Client, error) {
	identity, err := session.New(ctx, h.identities, h.IdentityKey(deviceID), h.log)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	roomStore := rooms.NewStore(h.catalog, identity, h.log, rooms.WithClock(h.opts.Clock))

	client := newClient(utils.NewID(utils.PrefixSession), deviceID, identity, roomStore, h.opts.Clock)

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug().Str("session_id", client.ID).Str("device_id", deviceID).Int("sessions", total).Msg("session opened")
	return client, nil
}

// Client returns a live session by id.
func (h *Hub) Client(id string) (*Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// CloseClient ends a session. The persisted identity is kept.
func (h *Hub) CloseClient(id string) error {
	h.mu.Lock()
	client, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if !ok {
		return ErrClientNotFound
	}
	client.close()
	h.log.Debug().Str("session_id", id).Msg("session closed")
	return nil
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Presence lists the distinct users currently signed in on any session.
func (h *Hub) Presence() core.Presence {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	seen := make(map[string]struct{}, len(clients))
	presence := core.Presence{Users: []core.User{}}
	for _, c := range clients {
		user, ok := c.Identity.CurrentUser()
		if !ok || !user.IsOnline {
			continue
		}
		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		presence.Users = append(presence.Users, user)
		if !user.IsAnonymous {
			presence.RegisteredOnline++
		}
	}
	presence.TotalOnline = len(presence.Users)

	sort.Slice(presence.Users, func(i, j int) bool {
		if presence.Users[i].Username != presence.Users[j].Username {
			return presence.Users[i].Username < presence.Users[j].Username
		}
		return presence.Users[i].ID < presence.Users[j].ID
	})
	return presence
}

// Sweep closes sessions idle for longer than the configured TTL and returns how many it closed.
func (h *Hub) Sweep() int {
	if h.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := h.opts.Clock().Add(-h.opts.IdleTTL)

	h.mu.RLock()
	var idle []string
	for id, c := range h.clients {
		if c.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	h.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if err := h.CloseClient(id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		h.log.Info().Int("closed", closed).Msg("expired idle sessions")
	}
	return closed
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Sweep()
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
