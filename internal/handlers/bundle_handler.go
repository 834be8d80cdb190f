package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"gift-storefront-api/internal/bundle"
	"gift-storefront-api/internal/middleware"
	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/store"

	"github.com/gin-gonic/gin"
)

// BundleResponse is the bundle state plus what the client may do next.
// Accepted is false when the requested change was rejected and the state
// is unchanged.
type BundleResponse struct {
	bundle.State
	CanAddMore bool `json:"canAddMore"`
	MinItems   int  `json:"minItems"`
	MaxItems   int  `json:"maxItems"`
	Accepted   bool `json:"accepted"`
}

// AddBundleItemRequest adds one unit of a product.
type AddBundleItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// UpdateBundleItemRequest sets the quantity of a product; zero or less
// removes it.
type UpdateBundleItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SetBundleStepRequest moves the bundle through the checkout flow.
type SetBundleStepRequest struct {
	Step bundle.Step `json:"step" binding:"required"`
}

// BundleCheckoutRequest places the bundle as an order.
type BundleCheckoutRequest struct {
	Customer    store.Customer `json:"customer" binding:"required"`
	PackagingID string         `json:"packaging_id"`
	ServiceIDs  []string       `json:"service_ids"`
}

func bundleResponse(b *bundle.Bundle, accepted bool) BundleResponse {
	limits := b.Limits()
	return BundleResponse{
		State:      b.State(),
		CanAddMore: b.CanAddMore(),
		MinItems:   limits.Min,
		MaxItems:   limits.Max,
		Accepted:   accepted,
	}
}

// GetBundle GET /api/bundle
func (h *Handler) GetBundle(c *gin.Context) {
	b, err := h.bundles.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundleResponse(b, true))
}

// AddBundleItem adds one unit of a catalog product
// POST /api/bundle/items
func (h *Handler) AddBundleItem(c *gin.Context) {
	var req AddBundleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id is required")
		return
	}

	p, err := h.store.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if p.Status == models.StatusOutOfStock {
		c.JSON(http.StatusConflict, gin.H{"error": "Product is not available"})
		return
	}

	b, accepted, err := h.bundles.AddProduct(c.Request.Context(), middleware.SessionID(c), bundleProduct(p))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundleResponse(b, accepted))
}

// UpdateBundleItem PATCH /api/bundle/items/:productId
func (h *Handler) UpdateBundleItem(c *gin.Context) {
	var req UpdateBundleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	b, accepted, err := h.bundles.UpdateQuantity(c.Request.Context(), middleware.SessionID(c), c.Param("productId"), *req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundleResponse(b, accepted))
}

// RemoveBundleItem DELETE /api/bundle/items/:productId
func (h *Handler) RemoveBundleItem(c *gin.Context) {
	b, accepted, err := h.bundles.RemoveProduct(c.Request.Context(), middleware.SessionID(c), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundleResponse(b, accepted))
}

// ClearBundle DELETE /api/bundle
func (h *Handler) ClearBundle(c *gin.Context) {
	b, err := h.bundles.Clear(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundleResponse(b, true))
}

// SetBundleStep PUT /api/bundle/step
func (h *Handler) SetBundleStep(c *gin.Context) {
	var req SetBundleStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "step is required")
		return
	}
	b, accepted, err := h.bundles.SetStep(c.Request.Context(), middleware.SessionID(c), req.Step)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundleResponse(b, accepted))
}

// CheckoutBundle places the session's bundle as a custom bundle order and
// clears the bundle
// POST /api/bundle/checkout
func (h *Handler) CheckoutBundle(c *gin.Context) {
	var req BundleCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid checkout payload: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	session := middleware.SessionID(c)
	var (
		order  models.Order
		placed bool
	)
	b, err := h.bundles.Checkout(ctx, session, func(st bundle.State) error {
		lines := make([]store.Line, 0, len(st.Items))
		for _, it := range st.Items {
			lines = append(lines, store.Line{ProductID: it.Product.ID, Quantity: it.Quantity})
		}
		o, err := h.store.CreateOrder(ctx, store.OrderInput{
			Session:              session,
			Customer:             req.Customer,
			Type:                 models.OrderCustomBundle,
			Lines:                lines,
			PackagingID:          req.PackagingID,
			ServiceIDs:           req.ServiceIDs,
			AssemblyServicePrice: h.assembly,
		})
		if err != nil {
			return err
		}
		order, placed = o, true
		return nil
	})
	switch {
	case errors.Is(err, bundle.ErrInvalidBundle):
		limits := b.Limits()
		badRequest(c, fmt.Sprintf("A bundle must contain between %d and %d items", limits.Min, limits.Max))
		return
	case err != nil && placed:
		h.logger.Error().Err(err).Str("session", session).Str("order", order.ID).Msg("order placed but bundle not cleared")
	case err != nil:
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func bundleProduct(p models.Product) bundle.Product {
	return bundle.Product{
		ID:     p.ID,
		SKU:    p.SKU,
		Name:   p.Name,
		Price:  p.Price,
		Type:   bundle.ProductType(p.Type),
		Images: p.Images,
	}
}
