package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/types"
)

// TenantMiddleware scopes the request context to the billing company named
// by the X-Tenant-ID header. Every repository query downstream filters on
// this value; requests without it are rejected before reaching a handler.
func TenantMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(types.HeaderTenantID)
		if tenantID == "" {
			log.Warnw("request rejected, missing tenant header",
				"path", c.Request.URL.Path,
				"request_id", types.GetRequestID(c.Request.Context()))
			err := ierr.NewError("missing tenant header").
				WithHint("X-Tenant-ID header is required").
				Mark(ierr.ErrValidation)
			c.AbortWithStatusJSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
			return
		}

		ctx := types.SetTenantID(c.Request.Context(), tenantID)
		if userID := c.GetHeader(types.HeaderUserID); userID != "" {
			ctx = types.SetUserID(ctx, userID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
