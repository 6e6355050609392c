package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LimitConcurrentRequests rejects requests with 429 while maxConcurrent
// requests of the same route are in flight. Rejections are counted under
// name. maxConcurrent <= 0 disables the limit.
//
//	tv.POST("/single", LimitConcurrentRequests("single", 8), live.Single)
func LimitConcurrentRequests(name string, maxConcurrent int) gin.HandlerFunc {
	if maxConcurrent <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	semaphore := make(chan struct{}, maxConcurrent)
	rejected := RejectedRequests.WithLabelValues(name)

	return func(c *gin.Context) {
		select {
		case semaphore <- struct{}{}:
			defer func() { <-semaphore }()
			c.Next()
		default:
			rejected.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "too many concurrent requests",
			})
		}
	}
}
