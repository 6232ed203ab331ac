package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/voxbill/voxbill/internal/errors"
)

// ErrorHandler converts the last error recorded on the gin context into the
// standard JSON error envelope, with the status derived from the sentinel
// the error was marked with.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
		}
	}
}
