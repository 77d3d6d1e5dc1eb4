package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the reservation endpoints. authMiddleware may be nil
// when bearer auth is disabled.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reservations")

	if authMiddleware != nil {
		group.Use(authMiddleware)
	}
	{
		group.GET("", h.Query)
		group.GET("/filter", h.Filter)
		group.GET("/:id", h.Get)
		group.POST("", h.Reserve)
		group.POST("/:id/confirm", h.Confirm)
		group.PATCH("/:id", h.UpdateNote)
		group.DELETE("/:id", h.Delete)
	}
}
