package hub

import (
	"testing"
	"time"

	"github.com/vovakirdan/chatrooms/internal/rooms"
	"github.com/vovakirdan/chatrooms/internal/store/memory"
)

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	catalog := rooms.NewMemoryCatalog(rooms.WithHistorySize(3))
	if err := catalog.Seed(rooms.Fixtures(time.Now())...); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return NewHub(memory.New(), catalog, nil, opts)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}
