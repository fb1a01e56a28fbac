package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/vovakirdan/chatrooms/internal/store"
	"github.com/vovakirdan/chatrooms/internal/utils"
)

// Needs a live server: CHATROOMS_TEST_REDIS_ADDR=localhost:6379 go test ./internal/store/redis
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("CHATROOMS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATROOMS_TEST_REDIS_ADDR not set")
	}

	s, err := New(context.Background(), addr, "chatrooms-test:"+utils.NewID("")+":")
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisIdentityRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetIdentity(ctx, "user"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	record := []byte(`{"id":"user-1","username":"alice","isAnonymous":false,"isOnline":true}`)
	if err := s.PutIdentity(ctx, "user", record); err != nil {
		t.Fatalf("PutIdentity failed: %v", err)
	}

	got, err := s.GetIdentity(ctx, "user")
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if string(got) != string(record) {
		t.Fatalf("expected %s, got %s", record, got)
	}

	if err := s.DeleteIdentity(ctx, "user"); err != nil {
		t.Fatalf("DeleteIdentity failed: %v", err)
	}
	if _, err := s.GetIdentity(ctx, "user"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
