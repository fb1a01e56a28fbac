package http

import (
	"context"
	"net/http"
	"testing"
)

func TestOpenSessionGeneratesDeviceID(t *testing.T) {
	env := newTestEnv(t)

	sess := env.openSession(t, "")
	if sess.Token == "" || sess.SessionID == "" || sess.DeviceID == "" {
		t.Fatalf("incomplete session: %+v", sess)
	}
	if sess.User != nil {
		t.Fatalf("fresh device should have no user, got %+v", sess.User)
	}
}

func TestSignupPersistsAcrossSessions(t *testing.T) {
	env := newTestEnv(t)

	first := env.openSession(t, "laptop")
	resp := env.do(t, http.MethodPost, "/api/signup", first.Token, SignupRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "pw",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var user UserResponse
	decodeBody(t, resp, &user)
	if user.Username != "alice" || user.IsAnonymous || !user.IsOnline {
		t.Fatalf("unexpected user: %+v", user)
	}

	resp = env.do(t, http.MethodDelete, "/api/sessions", first.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close session: status %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/session", first.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("closed session should be rejected, got %d", resp.StatusCode)
	}

	second := env.openSession(t, "laptop")
	if second.User == nil || second.User.ID != user.ID {
		t.Fatalf("expected restored user %s, got %+v", user.ID, second.User)
	}

	other := env.openSession(t, "phone")
	if other.User != nil {
		t.Fatalf("other device should not share identity, got %+v", other.User)
	}
}

func TestAnonymousJoinIsNotPersisted(t *testing.T) {
	env := newTestEnv(t)

	sess := env.openSession(t, "kiosk")
	resp := env.do(t, http.MethodPost, "/api/anonymous", sess.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous: status %d", resp.StatusCode)
	}
	var user UserResponse
	decodeBody(t, resp, &user)
	if !user.IsAnonymous || user.Username == "" {
		t.Fatalf("unexpected anonymous user: %+v", user)
	}

	if _, err := env.identity.GetIdentity(context.Background(), env.hub.IdentityKey("kiosk")); err == nil {
		t.Fatal("anonymous user must not be persisted")
	}

	again := env.openSession(t, "kiosk")
	if again.User != nil {
		t.Fatalf("anonymous user restored: %+v", again.User)
	}
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")

	resp := env.do(t, http.MethodPost, "/api/login", sess.Token, map[string]string{"email": "alice@example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/login", sess.Token, LoginRequest{Email: "@example.com", Password: "pw"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for empty local part, got %d", resp.StatusCode)
	}
	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	if errResp.Code != "invalid_credentials" {
		t.Fatalf("unexpected code %q", errResp.Code)
	}
}

func TestLogoutClearsUserAndRoom(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "desk")

	env.do(t, http.MethodPost, "/api/login", sess.Token, LoginRequest{Email: "bob@example.com", Password: "pw"})
	env.do(t, http.MethodPost, "/api/rooms/1/join", sess.Token, nil)

	resp := env.do(t, http.MethodPost, "/api/logout", sess.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/session", sess.Token, nil)
	var out SessionResponse
	decodeBody(t, resp, &out)
	if out.User != nil {
		t.Fatalf("expected no user after logout, got %+v", out.User)
	}

	resp = env.do(t, http.MethodGet, "/api/rooms/active", sess.Token, nil)
	var active ActiveRoomResponse
	decodeBody(t, resp, &active)
	if active.Room != nil || active.State != "idle" {
		t.Fatalf("expected idle membership after logout, got %+v", active)
	}

	if _, err := env.identity.GetIdentity(context.Background(), env.hub.IdentityKey("desk")); err == nil {
		t.Fatal("persisted identity should be removed on logout")
	}
}

func TestSessionReportsAnonymousAsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")
	if sess.IsAuthenticated {
		t.Fatal("fresh session reported as authenticated")
	}

	env.do(t, http.MethodPost, "/api/anonymous", sess.Token, AnonymousRequest{Username: "ghost"})

	resp := env.do(t, http.MethodGet, "/api/session", sess.Token, nil)
	var out SessionResponse
	decodeBody(t, resp, &out)
	if out.User == nil || !out.User.IsAnonymous {
		t.Fatalf("expected anonymous user, got %+v", out.User)
	}
	if out.IsAuthenticated {
		t.Fatal("anonymous user reported as authenticated")
	}

	env.do(t, http.MethodPost, "/api/login", sess.Token, LoginRequest{Email: "alice@example.com", Password: "pw"})

	resp = env.do(t, http.MethodGet, "/api/session", sess.Token, nil)
	out = SessionResponse{}
	decodeBody(t, resp, &out)
	if !out.IsAuthenticated || out.User == nil || out.User.IsAnonymous {
		t.Fatalf("expected registered user to be authenticated, got %+v", out)
	}
}
