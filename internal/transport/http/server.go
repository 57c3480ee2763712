package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/studygroup/groupchat-server/internal/config"
	"github.com/studygroup/groupchat-server/internal/core"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Connections int    `json:"connections"`
	TypingUsers int    `json:"typing_users"`
}

// NewServer builds the HTTP server: the WebSocket endpoint, the chat read API
// and the health check.
func NewServer(hub *core.Hub, chat ChatReader, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	identity := NewIdentityResolver(cfg)

	router.GET("/health", healthHandler(hub))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, identity, cfg, logger)))

	history := NewHistoryHandlers(chat, logger)
	api := router.Group("/api/chat")
	api.Use(IdentityMiddleware(identity, logger))
	{
		api.GET("/history/:groupId", history.History)
		api.GET("/online/:groupId", history.Online)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		stats, err := hub.Stats(ctx)
		if err != nil {
			c.JSON(stdhttp.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Timestamp: now})
			return
		}

		c.JSON(stdhttp.StatusOK, HealthResponse{
			Status:      "ok",
			Timestamp:   now,
			Connections: stats.Connections,
			TypingUsers: stats.TypingUsers,
		})
	}
}
