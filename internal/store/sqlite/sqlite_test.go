package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/chatrooms/internal/store"
)

func TestIdentityRoundTrip(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if _, err := s.GetIdentity(ctx, "user"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	tests := []struct {
		name   string
		key    string
		record string
	}{
		{name: "insert", key: "user", record: `{"id":"user-1","username":"alice"}`},
		{name: "replace", key: "user", record: `{"id":"user-2","username":"bob"}`},
		{name: "second key", key: "user:dev-1", record: `{"id":"user-3","username":"carol"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.PutIdentity(ctx, tt.key, []byte(tt.record)); err != nil {
				t.Fatalf("PutIdentity failed: %v", err)
			}
			got, err := s.GetIdentity(ctx, tt.key)
			if err != nil {
				t.Fatalf("GetIdentity failed: %v", err)
			}
			if string(got) != tt.record {
				t.Errorf("expected %s, got %s", tt.record, got)
			}
		})
	}

	if err := s.DeleteIdentity(ctx, "user"); err != nil {
		t.Fatalf("DeleteIdentity failed: %v", err)
	}
	if _, err := s.GetIdentity(ctx, "user"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.GetIdentity(ctx, "user:dev-1"); err != nil {
		t.Fatalf("other keys must survive delete: %v", err)
	}

	// Deleting a missing key is not an error.
	if err := s.DeleteIdentity(ctx, "ghost"); err != nil {
		t.Fatalf("DeleteIdentity on missing key: %v", err)
	}
}

func TestIdentitySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identities.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.PutIdentity(ctx, "user", []byte(`{"id":"user-1"}`)); err != nil {
		t.Fatalf("PutIdentity failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetIdentity(ctx, "user")
	if err != nil {
		t.Fatalf("GetIdentity after reopen: %v", err)
	}
	if string(got) != `{"id":"user-1"}` {
		t.Fatalf("unexpected record after reopen: %s", got)
	}
}
