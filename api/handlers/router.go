package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nlq-workbench/client/internal/sim"
)

// NewRouter assembles the simulator's Gin engine: health check, CORS,
// the provider listing API, and the query session WebSocket route.
// Integration tests mount the returned engine on an httptest server.
func NewRouter(server *sim.Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	NewProviderHandler(server.Engine()).RegisterRoutes(api)

	NewQuerySocketHandler(server).RegisterRoutes(r)

	return r
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
