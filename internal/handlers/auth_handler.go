package handlers

import (
	"errors"
	"net/http"
	"time"

	"gift-storefront-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
}

// AdminLogin checks the admin credentials and issues a token
// POST /api/admin/login
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Username and password are required.")
		return
	}

	if err := h.auth.CheckCredentials(req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrLoginDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin login is not configured"})
			return
		}
		h.logger.Warn().Str("username", req.Username).Msg("admin login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expires, err := h.auth.GenerateToken(req.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Username:  req.Username,
		Message:   "Login successful",
	})
}
