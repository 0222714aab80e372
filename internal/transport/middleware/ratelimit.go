package middleware

import (
	"github.com/didip/tollbooth"
	"github.com/gin-gonic/gin"
)

// RateLimit throttles per client IP. Non-positive rates disable it.
func RateLimit(requestsPerSecond float64) gin.HandlerFunc {
	if requestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	lmt := tollbooth.NewLimiter(requestsPerSecond, nil)
	lmt.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})

	return func(c *gin.Context) {
		if httpErr := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); httpErr != nil {
			c.AbortWithStatusJSON(httpErr.StatusCode, gin.H{"error": "too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
