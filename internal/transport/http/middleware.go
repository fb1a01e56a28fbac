package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/auth"
	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/hub"
)

const (
	// ContextKeyClient is the context key for storing the client session.
	ContextKeyClient = "client"
	// ContextKeySessionID is the context key for storing the session id.
	ContextKeySessionID = "session_id"
)

// SessionMiddleware resolves the bearer token to a live client session.
func SessionMiddleware(h *hub.Hub, jwtConfig *auth.JWTConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, msg := resolveSession(c.Request, h, jwtConfig, logger)
		if client == nil {
			abortUnauthorized(c, msg)
			return
		}

		c.Set(ContextKeyClient, client)
		c.Set(ContextKeySessionID, client.ID)

		c.Next()
	}
}

// resolveSession maps the request's token to a live client and refreshes its idle timer.
// On failure it returns a nil client and the reason to report.
func resolveSession(r *http.Request, h *hub.Hub, jwtConfig *auth.JWTConfig, logger *zerolog.Logger) (*hub.Client, string) {
	token, ok := requestToken(r)
	if !ok {
		logger.Debug().Msg("missing or malformed authorization")
		return nil, "missing authorization"
	}

	claims, err := auth.ValidateToken(jwtConfig, token)
	if err != nil {
		logger.Debug().Err(err).Msg("invalid token")
		return nil, "invalid token"
	}

	client, err := h.Client(claims.SessionID)
	if err != nil {
		logger.Debug().Str("session_id", claims.SessionID).Msg("session expired")
		return nil, "session expired"
	}
	client.Touch()
	return client, ""
}

// requestToken reads a bearer token. Browsers cannot set headers on a
// WebSocket handshake, so the "token" query parameter is accepted too.
func requestToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg, Code: core.ErrCodeUnauthorized})
}

// clientFrom returns the client session stored by SessionMiddleware.
func clientFrom(c *gin.Context) (*hub.Client, bool) {
	v, exists := c.Get(ContextKeyClient)
	if !exists {
		return nil, false
	}
	client, ok := v.(*hub.Client)
	return client, ok
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		ev := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("session_id", c.GetString(ContextKeySessionID)).
			Msg("http request")
	}
}
