package handlers

import (
	"errors"
	"net/http"

	"gift-storefront-api/internal/marketplace"
	"gift-storefront-api/internal/proxy"

	"github.com/gin-gonic/gin"
)

// ParseProductRequest names a marketplace product to read.
type ParseProductRequest struct {
	URL string `json:"url" binding:"required"`
}

// ParseMarketplaceProduct reads a marketplace card without saving it
// POST /api/admin/products/parse
func (h *Handler) ParseMarketplaceProduct(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Marketplace import is not configured"})
		return
	}
	var req ParseProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	l, err := h.market.Preview(c.Request.Context(), req.URL)
	if err != nil {
		h.respondMarketplaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// ImportProduct creates a catalog product from a marketplace link
// POST /api/admin/products/import
func (h *Handler) ImportProduct(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Marketplace import is not configured"})
		return
	}
	var req marketplace.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	p, err := h.market.Import(c.Request.Context(), req)
	if err != nil {
		h.respondMarketplaceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// SyncPrices refreshes imported prices now. Only stale products are
// checked unless all=true.
// POST /api/admin/products/sync-prices?all=
func (h *Handler) SyncPrices(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Marketplace import is not configured"})
		return
	}
	sync := h.market.SyncStale
	if all := queryBool(c, "all"); all != nil && *all {
		sync = h.market.SyncAll
	}
	res, err := sync(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) respondMarketplaceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, marketplace.ErrUnsupported),
		errors.Is(err, marketplace.ErrNoProductID),
		errors.Is(err, proxy.ErrNotAllowed):
		badRequest(c, err.Error())
	case errors.Is(err, marketplace.ErrUpstream), errors.Is(err, marketplace.ErrNoProductData):
		h.logger.Warn().Err(err).Msg("marketplace read failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not read the product from the marketplace"})
	default:
		h.respondError(c, err)
	}
}
