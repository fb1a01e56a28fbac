package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/auth"
	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/utils"
)

// SessionHandlers provides HTTP handlers for session and identity endpoints.
type SessionHandlers struct {
	hub       *hub.Hub
	jwtConfig *auth.JWTConfig
	log       *zerolog.Logger
}

// NewSessionHandlers creates a new session handlers instance.
func NewSessionHandlers(h *hub.Hub, jwtConfig *auth.JWTConfig, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		hub:       h,
		jwtConfig: jwtConfig,
		log:       logger,
	}
}

// OpenSessionRequest represents the open session request body.
type OpenSessionRequest struct {
	DeviceID string `json:"device_id" binding:"omitempty,max=128"`
}

// SessionResponse represents an opened session.
type SessionResponse struct {
	Token           string        `json:"token,omitempty"`
	SessionID       string        `json:"session_id"`
	DeviceID        string        `json:"device_id"`
	IsAuthenticated bool          `json:"is_authenticated"`
	User            *UserResponse `json:"user,omitempty"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents the signup request body.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required"`
}

// AnonymousRequest represents the anonymous join request body.
type AnonymousRequest struct {
	Username string `json:"username" binding:"max=64"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// OpenSession starts a client session and issues its token.
// A device id ties the session to a persisted identity; one is generated when absent.
// POST /api/sessions
func (h *SessionHandlers) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug().Err(err).Msg("invalid open session request")
		badRequest(c, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = utils.NewID(utils.PrefixDevice)
	}

	client, err := h.hub.OpenClient(c.Request.Context(), req.DeviceID)
	if err != nil {
		h.log.Error().Err(err).Str("device_id", req.DeviceID).Msg("failed to open session")
		writeError(c, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtConfig, client.ID, client.DeviceID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", client.ID).Msg("failed to sign session token")
		_ = h.hub.CloseClient(client.ID)
		writeError(c, err)
		return
	}

	resp := sessionResponse(client)
	resp.Token = token

	h.log.Info().Str("session_id", client.ID).Str("device_id", client.DeviceID).Bool("restored", resp.User != nil).Msg("session opened")
	c.JSON(http.StatusCreated, resp)
}

// CloseSession ends the caller's session. The persisted identity survives.
// DELETE /api/sessions
func (h *SessionHandlers) CloseSession(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}
	if err := h.hub.CloseClient(client.ID); err != nil && !errors.Is(err, hub.ErrClientNotFound) {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSession returns the session's current user, if any.
// GET /api/session
func (h *SessionHandlers) GetSession(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(client))
}

// Login signs a registered user in.
// POST /api/login
func (h *SessionHandlers) Login(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		badRequest(c, "invalid request body")
		return
	}

	user, err := client.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Debug().Err(err).Str("session_id", client.ID).Msg("login failed")
		writeError(c, err)
		return
	}

	h.log.Info().Str("session_id", client.ID).Str("user_id", user.ID).Msg("user logged in")
	c.JSON(http.StatusOK, userResponse(user))
}

// Signup registers and signs a user in.
// POST /api/signup
func (h *SessionHandlers) Signup(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid signup request")
		badRequest(c, "invalid request body")
		return
	}

	user, err := client.Signup(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.log.Debug().Err(err).Str("session_id", client.ID).Msg("signup failed")
		writeError(c, err)
		return
	}

	h.log.Info().Str("session_id", client.ID).Str("user_id", user.ID).Str("username", user.Username).Msg("user signed up")
	c.JSON(http.StatusCreated, userResponse(user))
}

// Logout signs the current user out and leaves the active room.
// POST /api/logout
func (h *SessionHandlers) Logout(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}
	if err := client.Logout(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Str("session_id", client.ID).Msg("failed to clear persisted identity")
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// JoinAnonymously makes an anonymous user current. An empty username picks a guest name.
// POST /api/anonymous
func (h *SessionHandlers) JoinAnonymously(c *gin.Context) {
	client, ok := mustClient(c)
	if !ok {
		return
	}

	var req AnonymousRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug().Err(err).Msg("invalid anonymous request")
		badRequest(c, "invalid request body")
		return
	}

	user, err := client.JoinAnonymously(c.Request.Context(), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	h.log.Info().Str("session_id", client.ID).Str("username", user.Username).Msg("anonymous user joined")
	c.JSON(http.StatusOK, userResponse(user))
}

// sessionResponse describes client without a token. Anonymous users are not authenticated.
func sessionResponse(client *hub.Client) SessionResponse {
	resp := SessionResponse{
		SessionID:       client.ID,
		DeviceID:        client.DeviceID,
		IsAuthenticated: client.Identity.IsAuthenticated(),
	}
	if user, ok := client.Identity.CurrentUser(); ok {
		u := userResponse(user)
		resp.User = &u
	}
	return resp
}

func mustClient(c *gin.Context) (*hub.Client, bool) {
	client, ok := clientFrom(c)
	if !ok {
		abortUnauthorized(c, "unauthorized")
		return nil, false
	}
	return client, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: core.ErrCodeBadRequest})
}

// writeError renders a domain error with the status matching its code.
func writeError(c *gin.Context, err error) {
	ce := core.AsCoreError(err)
	msg := ce.Message
	if ce.Code == core.ErrCodeInternal {
		msg = "internal server error"
	}
	c.JSON(statusForCode(ce.Code), ErrorResponse{Error: msg, Code: ce.Code})
}

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeBadRequest:
		return http.StatusBadRequest
	case core.ErrCodeUnauthorized, core.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case core.ErrCodeNotAuthenticated, core.ErrCodeAccessDenied:
		return http.StatusForbidden
	case core.ErrCodeRoomNotFound:
		return http.StatusNotFound
	case core.ErrCodeNoActiveRoom, core.ErrCodeJoinSuperseded, core.ErrCodeConflict:
		return http.StatusConflict
	case core.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
