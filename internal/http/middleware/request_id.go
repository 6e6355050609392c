package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDKey = "request_id"

// RequestID gives every request an identifier: the client's X-Request-ID
// when it is 1..64 bytes long, a fresh UUID otherwise. The id is echoed in
// the response header and stored in the gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if l := len(id); l < 1 || l > 64 {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set(RequestIDKey, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
