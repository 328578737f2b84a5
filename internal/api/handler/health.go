package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/epicsum/mediasvc/internal/service"
)

// HealthHandler reports liveness and artifact-load readiness.
type HealthHandler struct {
	holder *service.Holder
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(holder *service.Holder) *HealthHandler {
	return &HealthHandler{holder: holder}
}

// Health handles GET /health. The process is healthy as soon as it can
// answer; ready flips once the catalog has loaded.
func (h *HealthHandler) Health(c *gin.Context) {
	resolver, err := h.holder.Get()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":          "initializing",
			"ready":           false,
			"database_loaded": false,
			"total_items":     0,
		})
		return
	}

	total, _, _ := resolver.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"ready":           true,
		"database_loaded": true,
		"total_items":     total,
	})
}

// Root handles GET /: service description plus database stats.
func (h *HealthHandler) Root(c *gin.Context) {
	info := gin.H{
		"service": "EpicSum Media Service",
		"usage": gin.H{
			"image": "/epicsum/media/image/<description>",
			"video": "/epicsum/media/video/<description>",
			"index": "append ___<n> to the description to pick the n-th result",
		},
	}

	resolver, err := h.holder.Get()
	if err != nil {
		info["ready"] = false
		c.JSON(http.StatusOK, info)
		return
	}

	total, images, videos := resolver.Stats()
	info["ready"] = true
	info["vector_search"] = resolver.VectorSearchEnabled()
	info["stats"] = gin.H{
		"total_items": total,
		"images":      images,
		"videos":      videos,
	}
	c.JSON(http.StatusOK, info)
}
