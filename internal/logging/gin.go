package logging

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinLogger writes one structured line per request in place of gin's default logger.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		ev := Info()
		switch {
		case status >= 500:
			ev = Error()
		case status >= 400:
			ev = Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
