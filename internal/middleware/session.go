package middleware

import (
	"net/http"

	"gift-storefront-api/internal/storage"

	"github.com/gin-gonic/gin"
)

const (
	// SessionHeader carries the browser's session ID in both directions.
	SessionHeader = "X-Session-ID"

	// ContextSession is the gin context key holding the session ID.
	ContextSession = "session"
)

// Session resolves the caller's session ID. A request without one gets a new
// ID, returned in the response header so the client can keep it. Websocket
// clients may pass it as the session query parameter instead.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id = c.Query("session")
		}
		if id == "" {
			id = storage.NewSessionID()
		} else if !storage.ValidSessionID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
			return
		}

		c.Header(SessionHeader, id)
		c.Set(ContextSession, id)
		c.Next()
	}
}

// SessionID returns the session resolved by Session.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSession)
}
