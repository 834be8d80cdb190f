package handlers

import (
	"errors"
	"net/http"

	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/media"
	"gift-storefront-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// UploadImage stores a multipart "file" under the "folder" form field and
// returns its public URL
// POST /api/admin/uploads
func (h *Handler) UploadImage(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Uploads are not configured"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	folder := c.PostForm("folder")
	contentType := fh.Header.Get("Content-Type")
	if err := media.Validate(folder, contentType, fh.Size); err != nil {
		h.respondUploadError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	url, err := h.uploader.Upload(c.Request.Context(), folder, contentType, f, fh.Size)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Handler) respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrInvalidFolder):
		badRequest(c, err.Error())
	default:
		h.respondError(c, err)
	}
}

// ClearCache drops every cached read
// POST /api/admin/cache/clear
func (h *Handler) ClearCache(c *gin.Context) {
	h.store.ClearCache()
	h.logger.Info().Str("admin", c.GetString(middleware.ContextAdmin)).Msg("store cache cleared")
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared"})
}

// CacheStats reports the counters of every registered cache
// GET /api/admin/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	stats := make(map[string]cache.Stats, len(h.caches))
	for _, rc := range h.caches {
		stats[rc.Name()] = rc.Stats()
	}
	c.JSON(http.StatusOK, stats)
}
