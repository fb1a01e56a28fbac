package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/auth"
	"github.com/vovakirdan/chatrooms/internal/config"
	"github.com/vovakirdan/chatrooms/internal/hub"
)

// NewServer builds the HTTP server with REST and WebSocket routes.
// The WebSocket endpoint bypasses gin, whose response writer cannot be
// hijacked once the handshake status has been written.
func NewServer(h *hub.Hub, jwtConfig *auth.JWTConfig, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(h, jwtConfig, cfg, logger))
	mux.Handle("/", NewRouter(h, jwtConfig, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires the REST handlers onto a gin engine.
func NewRouter(h *hub.Hub, jwtConfig *auth.JWTConfig, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	sessions := NewSessionHandlers(h, jwtConfig, logger)
	rooms := NewRoomHandlers(h, logger)
	requireSession := SessionMiddleware(h, jwtConfig, logger)

	router.POST("/api/sessions", sessions.OpenSession)

	api := router.Group("/api", requireSession)
	{
		api.DELETE("/sessions", sessions.CloseSession)
		api.GET("/session", sessions.GetSession)
		api.POST("/login", sessions.Login)
		api.POST("/signup", sessions.Signup)
		api.POST("/logout", sessions.Logout)
		api.POST("/anonymous", sessions.JoinAnonymously)

		api.GET("/rooms", rooms.ListRooms)
		api.POST("/rooms", rooms.CreateRoom)
		api.POST("/rooms/leave", rooms.LeaveRoom)
		api.GET("/rooms/active", rooms.ActiveRoom)
		api.POST("/rooms/:id/join", rooms.JoinRoom)

		api.GET("/messages", rooms.ListMessages)
		api.POST("/messages", rooms.SendMessage)

		api.GET("/presence", rooms.Presence)
	}

	return router
}
