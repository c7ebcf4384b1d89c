package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"madamis/backend/internal/handler"
	"madamis/backend/internal/middleware"
)

func New(
	tokens middleware.TokenParser,
	authHandler *handler.AuthHandler,
	sessionHandler *handler.SessionHandler,
	timerHandler *handler.TimerHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	requireAuth := middleware.Auth(tokens)
	auth.GET("/me", requireAuth, authHandler.Me)

	sessions := api.Group("/sessions")
	sessions.POST("", requireAuth, sessionHandler.Create)
	sessions.GET("", requireAuth, sessionHandler.List)
	sessions.GET("/:id", requireAuth, sessionHandler.Get)
	sessions.GET("/:id/timer", timerHandler.GetState)
	sessions.POST("/:id/timer", requireAuth, timerHandler.Command)

	ws := engine.Group("/ws")
	ws.GET("/sessions/:id/timer", timerHandler.Subscribe)
	ws.GET("/stats", timerHandler.Stats)

	return engine
}
