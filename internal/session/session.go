package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/store"
	"github.com/vovakirdan/chatrooms/internal/utils"
)

// DefaultKey is the identity-storage key used when none is configured.
const DefaultKey = "user"

var (
	// ErrInvalidCredentials is returned when email or password is empty.
	ErrInvalidCredentials = &core.CoreError{Code: core.ErrCodeInvalidCredentials, Message: "invalid credentials"}
	// ErrInvalidUsername is returned when a signup username is empty.
	ErrInvalidUsername = &core.CoreError{Code: core.ErrCodeBadRequest, Message: "invalid username"}
)

// record is the persisted form of a registered user.
type record struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAnonymous bool   `json:"isAnonymous"`
	IsOnline    bool   `json:"isOnline"`
}

// Store tracks the current user of one client session.
type Store struct {
	mu         sync.RWMutex
	current    *core.User
	identities store.IdentityStore
	key        string
	log        *zerolog.Logger
}

// New creates a session store and restores the registered user persisted under key, if any.
func New(ctx context.Context, identities store.IdentityStore, key string, logger *zerolog.Logger) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &Store{
		identities: identities,
		key:        key,
		log:        logger,
	}
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) restore(ctx context.Context) error {
	data, err := s.identities.GetIdentity(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.ID == "" || rec.IsAnonymous {
		s.log.Warn().Err(err).Str("key", s.key).Msg("discarding unusable persisted identity")
		if delErr := s.identities.DeleteIdentity(ctx, s.key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", s.key).Msg("failed to erase persisted identity")
		}
		return nil
	}

	s.current = &core.User{
		ID:       rec.ID,
		Username: rec.Username,
		IsOnline: rec.IsOnline,
	}
	s.log.Debug().Str("user_id", rec.ID).Str("key", s.key).Msg("identity restored")
	return nil
}

// Key returns the identity-storage key of this session.
func (s *Store) Key() string {
	return s.key
}

// CurrentUser returns the current user, if any.
func (s *Store) CurrentUser() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return core.User{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a registered (non-anonymous) user is current.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && !s.current.IsAnonymous
}

// Login makes a registered user named after the email's local part current.
func (s *Store) Login(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, ErrInvalidCredentials
	}
	username := localPart(email)
	if username == "" {
		return core.User{}, ErrInvalidCredentials
	}
	return s.register(ctx, username)
}

// Signup makes a registered user with an explicit username current.
func (s *Store) Signup(ctx context.Context, email, username, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, ErrInvalidCredentials
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, ErrInvalidUsername
	}
	return s.register(ctx, username)
}

func (s *Store) register(ctx context.Context, username string) (core.User, error) {
	user := core.User{
		ID:       utils.NewID(utils.PrefixUser),
		Username: username,
		IsOnline: true,
	}

	data, err := json.Marshal(record{
		ID:       user.ID,
		Username: user.Username,
		IsOnline: user.IsOnline,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.identities.PutIdentity(ctx, s.key, data); err != nil {
		return core.User{}, fmt.Errorf("persist identity: %w", err)
	}
	s.current = &user

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user signed in")
	return user, nil
}

// Logout clears the current user and erases the persisted identity.
// The session is cleared even when erasing fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.log.Info().Str("user_id", s.current.ID).Msg("user signed out")
	}
	s.current = nil

	if err := s.identities.DeleteIdentity(ctx, s.key); err != nil {
		return fmt.Errorf("erase identity: %w", err)
	}
	return nil
}

// JoinAnonymously makes an anonymous user current. Anonymous users are never persisted.
func (s *Store) JoinAnonymously(_ context.Context, username string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = fmt.Sprintf("Guest-%d", rand.Intn(1000))
	}

	user := core.User{
		ID:          utils.NewID(utils.PrefixAnonymous),
		Username:    username,
		IsAnonymous: true,
		IsOnline:    true,
	}

	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("anonymous user joined")
	return user, nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
