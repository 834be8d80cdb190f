package handlers

import (
	"net/http"
	"strings"

	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/store"

	"github.com/gin-gonic/gin"
)

// ListProducts returns one page of the catalog
// GET /api/products?search=&status=&type=&featured=&category=&min_price=&max_price=&sort=&limit=&offset=
func (h *Handler) ListProducts(c *gin.Context) {
	f := store.ProductFilter{
		Search:     c.Query("search"),
		Featured:   queryBool(c, "featured"),
		CategoryID: c.Query("category"),
		MinPrice:   queryFloat(c, "min_price"),
		MaxPrice:   queryFloat(c, "max_price"),
		SortBy:     c.Query("sort"),
		Limit:      queryInt(c, "limit", 0),
		Offset:     queryInt(c, "offset", 0),
	}
	for _, s := range splitQuery(c.Query("status")) {
		f.Statuses = append(f.Statuses, models.ProductStatus(s))
	}
	for _, t := range splitQuery(c.Query("type")) {
		f.Types = append(f.Types, models.ProductType(t))
	}

	page, err := h.store.ListProducts(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProduct returns a single product
// GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.store.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct adds a product to the catalog
// POST /api/admin/products
func (h *Handler) CreateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "Invalid product payload")
		return
	}
	created, err := h.store.CreateProduct(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct replaces a product's editable fields
// PUT /api/admin/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "Invalid product payload")
		return
	}
	updated, err := h.store.UpdateProduct(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct removes a product with its likes and reviews
// DELETE /api/admin/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.store.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCategories GET /api/categories
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.store.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// CreateCategory POST /api/admin/categories
func (h *Handler) CreateCategory(c *gin.Context) {
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		badRequest(c, "Invalid category payload")
		return
	}
	created, err := h.store.CreateCategory(c.Request.Context(), cat)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteCategory DELETE /api/admin/categories/:id
func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.store.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func splitQuery(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
