package middleware

import (
	"time"

	"github.com/flexprice/installments/internal/logger"
	"github.com/gin-gonic/gin"
)

// quietPaths are polled constantly and only logged when they fail
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// LoggingMiddleware logs one line per request, tagged with the ids on the request context
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if quietPaths[c.Request.URL.Path] && status < 500 {
			return
		}

		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if subscriberID := c.Param("subscriber_id"); subscriberID != "" {
			fields = append(fields, "subscriber_id", subscriberID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		reqLog := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			reqLog.Errorw("HTTP_REQUEST_ERROR", fields...)
		case status >= 400:
			reqLog.Warnw("HTTP_REQUEST_WARNING", fields...)
		default:
			reqLog.Infow("HTTP_REQUEST_INFO", fields...)
		}
	}
}
