package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobby-server/internal/config"
	"github.com/vovakirdan/lobby-server/internal/core"
	"github.com/vovakirdan/lobby-server/internal/store"
)

// NewServer builds the HTTP server: REST projections under /api and the chat socket at /ws.
func NewServer(hub *core.Hub, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, st, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all routes on a fresh gin engine.
func NewRouter(hub *core.Hub, st store.Store, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(hub, st, logger)
	userHandlers := NewUserHandlers(st, logger)

	router.GET("/health", apiHandlers.Health)

	api := router.Group("/api")
	{
		api.GET("/health", apiHandlers.Health)
		api.GET("/messages", apiHandlers.ListMessages)
		api.GET("/online", apiHandlers.Online)
		api.GET("/users", userHandlers.ListUsers)
		api.GET("/users/:username", userHandlers.GetUser)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	return router
}
