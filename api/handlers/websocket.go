// Package handlers provides HTTP API request handlers for the pipeline
// simulator server.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nlq-workbench/client/internal/sim"
)

// QuerySocketHandler handles WebSocket connections for query sessions.
type QuerySocketHandler struct {
	server *sim.Server
}

// NewQuerySocketHandler creates a new QuerySocketHandler.
func NewQuerySocketHandler(server *sim.Server) *QuerySocketHandler {
	return &QuerySocketHandler{server: server}
}

// Attach handles GET /ws/query - opens a query session over WebSocket.
func (h *QuerySocketHandler) Attach(c *gin.Context) {
	if err := h.server.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failure already wrote the HTTP error response.
		return
	}
}

// RegisterRoutes registers the WebSocket route on the Gin engine.
func (h *QuerySocketHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/query", h.Attach)
}
