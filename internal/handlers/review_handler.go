package handlers

import (
	"net/http"

	"gift-storefront-api/internal/middleware"
	"gift-storefront-api/internal/models"
	"gift-storefront-api/internal/store"

	"github.com/gin-gonic/gin"
)

// ReviewRequest is the body of a review submission or edit.
type ReviewRequest struct {
	AuthorName string   `json:"author_name" binding:"required"`
	Rating     int      `json:"rating" binding:"required"`
	Comment    string   `json:"comment"`
	Photos     []string `json:"photos"`
}

// ModerateReviewRequest sets a review's status and optional reply.
type ModerateReviewRequest struct {
	Status models.ReviewStatus `json:"status" binding:"required"`
	Reply  string              `json:"reply"`
}

// ListReviews returns the approved reviews of a product
// GET /api/products/:id/reviews
func (h *Handler) ListReviews(c *gin.Context) {
	reviews, err := h.store.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// CreateReview submits a review for moderation
// POST /api/products/:id/reviews
func (h *Handler) CreateReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "author_name and rating are required")
		return
	}
	r, err := h.store.CreateReview(c.Request.Context(), store.ReviewInput{
		ProductID:  c.Param("id"),
		Session:    middleware.SessionID(c),
		AuthorName: req.AuthorName,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Photos:     req.Photos,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateReview lets the author edit a review inside its edit window
// PUT /api/reviews/:id
func (h *Handler) UpdateReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "author_name and rating are required")
		return
	}
	r, err := h.store.UpdateReview(c.Request.Context(), c.Param("id"), store.ReviewInput{
		Session:    middleware.SessionID(c),
		AuthorName: req.AuthorName,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Photos:     req.Photos,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// AdminListReviews GET /api/admin/reviews?status=
func (h *Handler) AdminListReviews(c *gin.Context) {
	reviews, err := h.store.ListAllReviews(c.Request.Context(), models.ReviewStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// ModerateReview PATCH /api/admin/reviews/:id
func (h *Handler) ModerateReview(c *gin.Context) {
	var req ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	r, err := h.store.ModerateReview(c.Request.Context(), c.Param("id"), req.Status, req.Reply)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListLikes returns the ids of products the caller has liked
// GET /api/likes
func (h *Handler) ListLikes(c *gin.Context) {
	ids, err := h.store.LikedProductIDs(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_ids": ids})
}

// ToggleLike POST /api/likes/:productId
func (h *Handler) ToggleLike(c *gin.Context) {
	productID := c.Param("productId")
	liked, count, err := h.store.ToggleLike(c.Request.Context(), middleware.SessionID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "liked": liked, "likes_count": count})
}
