package middleware

import (
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/gin-gonic/gin"
)

// ErrorHandler writes the last error a handler attached with c.Error as an ErrorResponse.
// Server errors are reported to Sentry.
func ErrorHandler(sentryService *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			sentryService.CaptureException(err, map[string]string{
				"path":   c.FullPath(),
				"method": c.Request.Method,
			})
		}

		c.AbortWithStatusJSON(status, ierr.NewErrorResponse(err))
	}
}
