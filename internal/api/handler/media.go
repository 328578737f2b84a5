package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/epicsum/mediasvc/internal/domain"
	"github.com/epicsum/mediasvc/internal/logger"
	"github.com/epicsum/mediasvc/internal/service"
)

// indexSeparator splits the free-text description from a trailing numeric
// result offset, e.g. "blue jeans___3".
const indexSeparator = "___"

// MediaHandler answers media retrieval requests. It reads the resolver
// through the readiness holder so requests arriving before the artifacts
// finish loading get a retryable 503 instead of an error page.
type MediaHandler struct {
	holder *service.Holder
}

// NewMediaHandler creates a new media handler.
// Parameters:
//   - holder: readiness holder owning the query resolver.
// Returns:
//   - *MediaHandler: initialized handler.
func NewMediaHandler(holder *service.Holder) *MediaHandler {
	return &MediaHandler{holder: holder}
}

// GetImage handles GET /epicsum/media/image/*description.
func (h *MediaHandler) GetImage(c *gin.Context) {
	h.resolve(c, domain.ContentTypeImage)
}

// GetVideo handles GET /epicsum/media/video/*description.
func (h *MediaHandler) GetVideo(c *gin.Context) {
	h.resolve(c, domain.ContentTypeVideo)
}

func (h *MediaHandler) resolve(c *gin.Context, ct domain.ContentType) {
	resolver, err := h.holder.Get()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Service is still loading the media database, try again shortly",
		})
		return
	}

	description, requestedIndex := ParseDescription(c.Param("description"))

	ctx := logger.SetQueryID(c.Request.Context(), uuid.New().String())

	resolution, err := resolver.Resolve(ctx, description, ct, requestedIndex)
	if err != nil {
		logger.CtxError(ctx, "Resolution failed: content_type=%s, error=%v", ct, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to resolve media for query",
		})
		return
	}

	// Redirect by default so the URL can be embedded directly as a media
	// source; redirect=false returns the resolution metadata instead.
	if wantsRedirect(c.DefaultQuery("redirect", "true")) {
		c.Redirect(http.StatusFound, resolution.Record.Link)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"query":           resolution.Query,
		"requested_index": resolution.RequestedIndex,
		"actual_index":    resolution.ActualIndex,
		"total_matches":   resolution.TotalMatches,
		"result":          resolution.Record,
	})
}

// ParseDescription splits a raw path description into the query text and the
// requested result index. A trailing "___<n>" selects the n-th ranked result;
// a malformed suffix leaves the text untouched and selects index 0.
// Parameters:
//   - raw: wildcard path parameter, possibly with a leading slash.
// Returns:
//   - string: description text.
//   - int: requested result index (0 when absent or malformed).
func ParseDescription(raw string) (string, int) {
	description := strings.TrimPrefix(raw, "/")

	sep := strings.LastIndex(description, indexSeparator)
	if sep < 0 {
		return description, 0
	}

	index, err := strconv.Atoi(description[sep+len(indexSeparator):])
	if err != nil {
		return description, 0
	}

	return description[:sep], index
}

// wantsRedirect mirrors a lenient boolean query parameter: only the literal
// "true" (any case) redirects.
func wantsRedirect(value string) bool {
	return strings.EqualFold(value, "true")
}
