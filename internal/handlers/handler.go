// Package handlers implements the HTTP endpoints of the storefront API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gift-storefront-api/internal/auth"
	"gift-storefront-api/internal/bundle"
	"gift-storefront-api/internal/cache"
	"gift-storefront-api/internal/marketplace"
	"gift-storefront-api/internal/media"
	"gift-storefront-api/internal/realtime"
	"gift-storefront-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StatsReporter is a named cache whose counters are exposed to admins.
type StatsReporter interface {
	Name() string
	Stats() cache.Stats
}

// Deps holds everything the handlers depend on.
type Deps struct {
	Store   *store.Store
	Bundles *bundle.Service
	Hub     *realtime.Hub
	Auth    *auth.Authenticator

	// Uploader is nil when uploads are disabled.
	Uploader media.Uploader

	// Marketplace is nil when marketplace import is disabled.
	Marketplace *marketplace.Service

	// Caches are reported by the cache stats endpoint.
	Caches []StatsReporter

	// AssemblyServicePrice is added to every custom bundle order.
	AssemblyServicePrice float64

	Logger zerolog.Logger
}

// Handler serves the storefront and admin endpoints.
type Handler struct {
	store    *store.Store
	bundles  *bundle.Service
	hub      *realtime.Hub
	auth     *auth.Authenticator
	uploader media.Uploader
	market   *marketplace.Service
	caches   []StatsReporter
	assembly float64
	logger   zerolog.Logger
}

// New returns a Handler. A nil hub is replaced with an empty one.
func New(d Deps) *Handler {
	hub := d.Hub
	if hub == nil {
		hub = realtime.NewHub()
	}
	return &Handler{
		store:    d.Store,
		bundles:  d.Bundles,
		hub:      hub,
		auth:     d.Auth,
		uploader: d.Uploader,
		market:   d.Marketplace,
		caches:   d.Caches,
		assembly: d.AssemblyServicePrice,
		logger:   d.Logger,
	}
}

// respondError maps a store error to a status code and writes it.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, store.ErrInvalidOrder):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrForbidden):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// queryFloat parses an optional float query parameter.
func queryFloat(c *gin.Context, key string) *float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return nil
	}
	return &v
}

// queryBool parses an optional bool query parameter.
func queryBool(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}
