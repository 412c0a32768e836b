package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dotaladder/backend/internal/api/handlers"
	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/queue"
	"github.com/dotaladder/backend/internal/store"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, st *store.Store, jobs queue.Client, rdb *redis.Client, cfg *config.Config) {
	// CORS middleware for the frontend dev server
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		v1.POST("/auth/login", handlers.Login(st, cfg))

		// Ladder endpoints
		ladder := v1.Group("/ladder")
		{
			ladder.GET("/:section/scoreboard", handlers.GetScoreboard(st))
			ladder.POST("/queue", handlers.RequireAuth(cfg), handlers.JoinQueue(st, jobs, cfg))
			ladder.DELETE("/queue", handlers.RequireAuth(cfg), handlers.LeaveQueue(st))
		}

		// User endpoints
		user := v1.Group("/user")
		{
			user.GET("/:steam_id", handlers.GetProfile(st))
			user.PUT("/nickname", handlers.RequireAuth(cfg), handlers.SetNickname(st))
			user.POST("/scan", handlers.RequireAuth(cfg), handlers.RequestScan(st, jobs, rdb, cfg))
		}

		// Admin endpoints
		admin := v1.Group("/admin", handlers.RequireAuth(cfg), handlers.RequireAdmin(st))
		{
			admin.POST("/match/:id/cancel", handlers.CancelMatch(st))
			admin.POST("/match/:id/rehost", handlers.RehostMatch(st, jobs))
			admin.POST("/scan-all", handlers.ScanAll(st, jobs))
		}
	}
}
