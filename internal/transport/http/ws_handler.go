package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin/render"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/auth"
	"github.com/vovakirdan/chatrooms/internal/config"
	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/proto"
	"github.com/vovakirdan/chatrooms/internal/rooms"
)

// WSHandler upgrades HTTP connections and bridges them to a hub client session.
// A session accepts one socket at a time since its event stream has a single reader.
type WSHandler struct {
	hub             *hub.Hub
	jwtConfig       *auth.JWTConfig
	log             *zerolog.Logger
	maxMessageBytes int64
	messagesPerMin  int

	mu        sync.Mutex
	connected map[string]struct{}
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(h *hub.Hub, jwtConfig *auth.JWTConfig, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:             h,
		jwtConfig:       jwtConfig,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		messagesPerMin:  cfg.WSMessagesPerMinute,
		connected:       make(map[string]struct{}),
	}
}

var errSocketBusy = &core.CoreError{Code: core.ErrCodeConflict, Message: "session already has a socket"}

// ServeHTTP serves GET /ws for the session named by the request's token.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	client, msg := resolveSession(r, h.hub, h.jwtConfig, h.log)
	if client == nil {
		writeHandshakeError(w, &core.CoreError{Code: core.ErrCodeUnauthorized, Message: msg})
		return
	}
	if !h.claim(client.ID) {
		h.log.Debug().Str("session_id", client.ID).Msg("ws refused: session already connected")
		writeHandshakeError(w, errSocketBusy)
		return
	}
	defer h.release(client.ID)

	h.log.Info().Str("session_id", client.ID).Str("remote_addr", r.RemoteAddr).Msg("ws connected")
	h.serve(w, r, client)
	h.log.Info().Str("session_id", client.ID).Msg("ws disconnected")
}

// writeHandshakeError answers a refused upgrade with the JSON error body used by the REST API.
func writeHandshakeError(w stdhttp.ResponseWriter, ce *core.CoreError) {
	body := render.JSON{Data: ErrorResponse{Error: ce.Message, Code: ce.Code}}
	body.WriteContentType(w)
	w.WriteHeader(statusForCode(ce.Code))
	_ = body.Render(w)
}

func (h *WSHandler) claim(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.connected[sessionID]; busy {
		return false
	}
	h.connected[sessionID] = struct{}{}
	return true
}

func (h *WSHandler) release(sessionID string) {
	h.mu.Lock()
	delete(h.connected, sessionID)
	h.mu.Unlock()
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, client *hub.Client) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ready := proto.EventReady{Protocol: proto.ProtocolVersion, SessionID: client.ID}
	if user, ok := client.Identity.CurrentUser(); ok {
		ready.User = eventUser(&user)
	}
	if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventNameReady, Data: ready}); err != nil {
		h.log.Warn().Err(err).Str("session_id", client.ID).Msg("write ws ready")
		return
	}

	// Both loops write; Conn writes are safe for concurrent use.
	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) error {
	limiter := newRateLimiter(h.messagesPerMin)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session_id", client.ID).Msg("read ws inbound")
			return err
		}
		client.Touch()

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}); err != nil {
				return err
			}
			continue
		}

		if err := h.dispatch(ctx, client, cmd, limiter); err != nil {
			if writeErr := wsjson.Write(ctx, conn, errorOutbound(err)); writeErr != nil {
				return writeErr
			}
		}
	}
}

var errRateLimited = &core.CoreError{Code: core.ErrCodeRateLimited, Message: "too many messages"}

// dispatch applies a command to the session. Successful commands answer through the event stream.
func (h *WSHandler) dispatch(ctx context.Context, client *hub.Client, cmd *wsCommand, limiter *rateLimiter) error {
	switch cmd.kind {
	case proto.InboundTypeJoin:
		_, err := client.JoinRoom(ctx, cmd.room, cmd.accessCode)
		return err
	case proto.InboundTypeLeave:
		client.LeaveRoom()
		return nil
	case proto.InboundTypeMsg:
		if !limiter.allow() {
			return errRateLimited
		}
		var opts []rooms.MessageOption
		if cmd.mediaURL != "" {
			opts = append(opts, rooms.WithMedia(cmd.mediaURL))
		}
		_, err := client.SendMessage(ctx, cmd.text, opts...)
		return err
	default:
		return nil
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				// Session closed or expired.
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
