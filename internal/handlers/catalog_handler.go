package handlers

import (
	"net/http"

	"gift-storefront-api/internal/models"

	"github.com/gin-gonic/gin"
)

// ListBanners returns active banners in display order
// GET /api/banners
func (h *Handler) ListBanners(c *gin.Context) {
	h.listBanners(c, true)
}

// AdminListBanners returns every banner
// GET /api/admin/banners
func (h *Handler) AdminListBanners(c *gin.Context) {
	h.listBanners(c, false)
}

func (h *Handler) listBanners(c *gin.Context, activeOnly bool) {
	banners, err := h.store.ListBanners(c.Request.Context(), activeOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, banners)
}

// CreateBanner POST /api/admin/banners
func (h *Handler) CreateBanner(c *gin.Context) {
	var b models.Banner
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, "Invalid banner payload")
		return
	}
	created, err := h.store.CreateBanner(c.Request.Context(), b)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateBanner PUT /api/admin/banners/:id
func (h *Handler) UpdateBanner(c *gin.Context) {
	var b models.Banner
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, "Invalid banner payload")
		return
	}
	updated, err := h.store.UpdateBanner(c.Request.Context(), c.Param("id"), b)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteBanner DELETE /api/admin/banners/:id
func (h *Handler) DeleteBanner(c *gin.Context) {
	if err := h.store.DeleteBanner(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPackaging returns packaging offered at checkout
// GET /api/packaging
func (h *Handler) ListPackaging(c *gin.Context) {
	h.listPackaging(c, true)
}

// AdminListPackaging GET /api/admin/packaging
func (h *Handler) AdminListPackaging(c *gin.Context) {
	h.listPackaging(c, false)
}

func (h *Handler) listPackaging(c *gin.Context, activeOnly bool) {
	list, err := h.store.ListPackaging(c.Request.Context(), activeOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreatePackaging POST /api/admin/packaging
func (h *Handler) CreatePackaging(c *gin.Context) {
	var p models.Packaging
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "Invalid packaging payload")
		return
	}
	created, err := h.store.CreatePackaging(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeletePackaging DELETE /api/admin/packaging/:id
func (h *Handler) DeletePackaging(c *gin.Context) {
	if err := h.store.DeletePackaging(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListServices returns additional services offered at checkout
// GET /api/services
func (h *Handler) ListServices(c *gin.Context) {
	h.listServices(c, true)
}

// AdminListServices GET /api/admin/services
func (h *Handler) AdminListServices(c *gin.Context) {
	h.listServices(c, false)
}

func (h *Handler) listServices(c *gin.Context, activeOnly bool) {
	list, err := h.store.ListServices(c.Request.Context(), activeOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateService POST /api/admin/services
func (h *Handler) CreateService(c *gin.Context) {
	var svc models.AdditionalService
	if err := c.ShouldBindJSON(&svc); err != nil {
		badRequest(c, "Invalid service payload")
		return
	}
	created, err := h.store.CreateService(c.Request.Context(), svc)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteService DELETE /api/admin/services/:id
func (h *Handler) DeleteService(c *gin.Context) {
	if err := h.store.DeleteService(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
