package handlers

import (
	"net/http"

	"gift-storefront-api/internal/middleware"
	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/realtime"
	"gift-storefront-api/internal/store"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest is a regular cart checkout. Item prices are looked up
// in the catalog; any price sent by the client is ignored.
type CreateOrderRequest struct {
	Customer    store.Customer `json:"customer" binding:"required"`
	Items       []store.Line   `json:"items" binding:"required,min=1,dive"`
	PackagingID string         `json:"packaging_id"`
	ServiceIDs  []string       `json:"service_ids"`
}

// UpdateOrderStatusRequest represents the payload for changing an order status
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// CreateOrder places a regular order for the caller's session
// POST /api/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid order payload: "+err.Error())
		return
	}

	order, err := h.store.CreateOrder(c.Request.Context(), store.OrderInput{
		Session:     middleware.SessionID(c),
		Customer:    req.Customer,
		Type:        models.OrderRegular,
		Lines:       req.Items,
		PackagingID: req.PackagingID,
		ServiceIDs:  req.ServiceIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListMyOrders returns the caller's orders
// GET /api/orders
func (h *Handler) ListMyOrders(c *gin.Context) {
	orders, err := h.store.ListOrders(c.Request.Context(), store.OrderFilter{
		Session: middleware.SessionID(c),
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns one of the caller's orders
// GET /api/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.store.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	// other sessions' orders are reported as missing
	if order.UserSession != middleware.SessionID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// AdminListOrders GET /api/admin/orders?status=&limit=&offset=
func (h *Handler) AdminListOrders(c *gin.Context) {
	orders, err := h.store.ListOrders(c.Request.Context(), store.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus changes an order's status and notifies the customer's
// open connections
// PATCH /api/admin/orders/:id/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	order, err := h.store.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if order.UserSession != "" {
		n, err := h.hub.Publish(order.UserSession, realtime.EventOrderStatus, realtime.OrderStatus{
			OrderID: order.ID,
			Status:  string(order.Status),
		})
		if err != nil {
			h.logger.Warn().Err(err).Str("order", order.ID).Msg("failed to publish order status")
		} else {
			h.logger.Debug().Str("order", order.ID).Int("clients", n).Msg("order status published")
		}
	}
	c.JSON(http.StatusOK, order)
}
