package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chatrooms/internal/config"
	"github.com/vovakirdan/chatrooms/internal/proto"
)

type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(ctx context.Context, t *testing.T, env *testEnv, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()
	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func sendInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal inbound: %v", err)
		}
		raw = payload
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write inbound: %v", err)
	}
}

func TestWebSocketJoinAndMessage(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, env, sess.Token)

	ready := readFrame(ctx, t, conn)
	if ready.Type != proto.OutboundTypeEvent || ready.Event != proto.EventNameReady {
		t.Fatalf("expected ready event, got %+v", ready)
	}
	var readyData proto.EventReady
	if err := json.Unmarshal(ready.Data, &readyData); err != nil {
		t.Fatalf("unmarshal ready: %v", err)
	}
	if readyData.SessionID != sess.SessionID || readyData.Protocol != proto.ProtocolVersion || readyData.User != nil {
		t.Fatalf("unexpected ready payload: %+v", readyData)
	}

	env.do(t, http.MethodPost, "/api/anonymous", sess.Token, AnonymousRequest{Username: "ghost"})
	userFrame := readFrame(ctx, t, conn)
	if userFrame.Event != "user" {
		t.Fatalf("expected user event, got %+v", userFrame)
	}

	sendInbound(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: "2"})
	joined := readFrame(ctx, t, conn)
	if joined.Event != "joined" {
		t.Fatalf("expected joined event, got %+v", joined)
	}
	var joinedData proto.EventJoined
	if err := json.Unmarshal(joined.Data, &joinedData); err != nil {
		t.Fatalf("unmarshal joined: %v", err)
	}
	if joinedData.Room.ID != "2" || len(joinedData.Messages) != 3 {
		t.Fatalf("unexpected joined payload: %+v", joinedData)
	}

	sendInbound(ctx, t, conn, proto.InboundTypeMsg, proto.MsgData{Text: "hi there"})
	msg := readFrame(ctx, t, conn)
	if msg.Event != "message" {
		t.Fatalf("expected message event, got %+v", msg)
	}
	var event proto.EventMessage
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if event.User != "ghost" || event.Text != "hi there" || event.Room != "2" {
		t.Fatalf("unexpected event payload: %+v", event)
	}

	sendInbound(ctx, t, conn, proto.InboundTypeLeave, nil)
	left := readFrame(ctx, t, conn)
	if left.Event != "left" {
		t.Fatalf("expected left event, got %+v", left)
	}
}

func TestWebSocketErrors(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")
	env.do(t, http.MethodPost, "/api/anonymous", sess.Token, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, env, sess.Token)
	readFrame(ctx, t, conn) // ready
	readFrame(ctx, t, conn) // buffered user event

	tests := []struct {
		name     string
		typ      string
		data     any
		wantCode string
	}{
		{name: "unknown type", typ: "shout", wantCode: "bad_request"},
		{name: "join without room", typ: proto.InboundTypeJoin, data: proto.JoinData{}, wantCode: "bad_request"},
		{name: "unknown room", typ: proto.InboundTypeJoin, data: proto.JoinData{Room: "42"}, wantCode: "room_not_found"},
		{name: "wrong access code", typ: proto.InboundTypeJoin, data: proto.JoinData{Room: "3", AccessCode: "12345"}, wantCode: "access_denied"},
		{name: "message without room", typ: proto.InboundTypeMsg, data: proto.MsgData{Text: "hello"}, wantCode: "no_active_room"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sendInbound(ctx, t, conn, tt.typ, tt.data)
			frame := readFrame(ctx, t, conn)
			if frame.Type != "error" || frame.Error == nil || frame.Error.Code != tt.wantCode {
				t.Fatalf("expected %s error, got %+v", tt.wantCode, frame)
			}
		})
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.WSMessagesPerMinute = 1
	})
	sess := env.openSession(t, "")
	env.do(t, http.MethodPost, "/api/anonymous", sess.Token, nil)
	env.do(t, http.MethodPost, "/api/rooms/1/join", sess.Token, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, env, sess.Token)
	readFrame(ctx, t, conn) // ready
	readFrame(ctx, t, conn) // buffered user event
	readFrame(ctx, t, conn) // buffered joined event

	sendInbound(ctx, t, conn, proto.InboundTypeMsg, proto.MsgData{Text: "one"})
	if frame := readFrame(ctx, t, conn); frame.Event != "message" {
		t.Fatalf("expected first message through, got %+v", frame)
	}

	sendInbound(ctx, t, conn, proto.InboundTypeMsg, proto.MsgData{Text: "two"})
	frame := readFrame(ctx, t, conn)
	if frame.Type != "error" || frame.Error == nil || frame.Error.Code != "rate_limited" {
		t.Fatalf("expected rate_limited error, got %+v", frame)
	}
}

func TestWebSocketSingleSocketPerSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, env, sess.Token)
	readFrame(ctx, t, conn)

	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws?token=" + sess.Token
	second, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		second.Close(websocket.StatusNormalClosure, "done")
		t.Fatal("expected second socket to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %+v", resp)
	}
	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	if errResp.Code != "conflict" {
		t.Fatalf("expected conflict code, got %+v", errResp)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name  string
		query string
	}{
		{name: "no token", query: ""},
		{name: "bad token", query: "?token=not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws" + tt.query
			conn, resp, err := websocket.Dial(ctx, wsURL, nil)
			if err == nil {
				conn.Close(websocket.StatusNormalClosure, "done")
				t.Fatal("expected handshake to be refused")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %+v", resp)
			}
			var errResp ErrorResponse
			decodeBody(t, resp, &errResp)
			if errResp.Code != "unauthorized" {
				t.Fatalf("unexpected error body: %+v", errResp)
			}
		})
	}
}

func TestWebSocketAcceptsBearerHeader(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + sess.Token}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if ready := readFrame(ctx, t, conn); ready.Event != proto.EventNameReady {
		t.Fatalf("expected ready event, got %+v", ready)
	}
}

func TestWebSocketClosesWithSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, env, sess.Token)
	readFrame(ctx, t, conn)

	if err := env.hub.CloseClient(sess.SessionID); err != nil {
		t.Fatalf("close client: %v", err)
	}

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err == nil {
		t.Fatalf("expected socket to close, got frame %+v", frame)
	}
	if env.hub.Len() != 0 {
		t.Fatalf("expected no live sessions, got %d", env.hub.Len())
	}
}
