package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/auth"
	"github.com/vovakirdan/chatrooms/internal/config"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/rooms"
	"github.com/vovakirdan/chatrooms/internal/store/memory"
)

type testEnv struct {
	server    *httptest.Server
	hub       *hub.Hub
	identity  *memory.MemoryStore
	jwtConfig *auth.JWTConfig
}

// newTestEnv starts a server over an in-memory identity store and the fixture rooms.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	for _, m := range mutate {
		m(&cfg)
	}

	logger := zerolog.Nop()

	catalog := rooms.NewMemoryCatalog(rooms.WithHistorySize(3))
	if err := catalog.Seed(rooms.Fixtures(time.Now())...); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	identities := memory.New()
	h := hub.NewHub(identities, catalog, &logger, hub.Options{})

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}

	srv := NewServer(h, jwtConfig, &cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, hub: h, identity: identities, jwtConfig: jwtConfig}
}

// openSession opens a session for deviceID and returns its token.
func (e *testEnv) openSession(t *testing.T, deviceID string) SessionResponse {
	t.Helper()

	var body any
	if deviceID != "" {
		body = OpenSessionRequest{DeviceID: deviceID}
	}
	resp := e.do(t, http.MethodPost, "/api/sessions", "", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open session: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out SessionResponse
	decodeBody(t, resp, &out)
	return out
}

// do sends a JSON request. A nil body sends no payload.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
