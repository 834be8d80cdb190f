package middleware

import (
	"net/http"
	"strings"

	"gift-storefront-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// ContextAdmin is the gin context key holding the admin username.
const ContextAdmin = "admin"

// AdminAuth validates the admin JWT in the Authorization header
func AdminAuth(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ContextAdmin, claims.Username)
		c.Next()
	}
}
