package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlq-workbench/client/internal/sim"
)

// ProviderHandler serves the list of query providers the simulator
// accepts.
type ProviderHandler struct {
	engine *sim.Engine
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(engine *sim.Engine) *ProviderHandler {
	return &ProviderHandler{engine: engine}
}

// List handles GET /api/providers - lists the available providers.
func (h *ProviderHandler) List(c *gin.Context) {
	providers := h.engine.Providers()
	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"count":     len(providers),
	})
}

// RegisterRoutes registers the provider routes on a Gin router group.
func (h *ProviderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers", h.List)
}
