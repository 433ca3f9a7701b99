package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jaspervborcena/tovrika-sub001/pkg/errors"
	"github.com/jaspervborcena/tovrika-sub001/pkg/identity"
)

// Identity headers expected from the auth gateway.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderStoreID   = "X-Store-ID"
	HeaderUserID    = "X-User-ID"
)

// IdentityContext extracts the company/store/user identity from request
// headers and places it on the request context. Writes without a
// complete identity fail fast with an authentication error.
func IdentityContext(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ic := &identity.Context{
			CompanyID: c.GetHeader(HeaderCompanyID),
			StoreID:   c.GetHeader(HeaderStoreID),
			UserID:    c.GetHeader(HeaderUserID),
		}

		if required {
			if err := ic.Validate(); err != nil {
				AbortWithAppError(c, errors.ErrUnauthorized(err.Error()))
				return
			}
		}

		c.Request = c.Request.WithContext(identity.ToContext(c.Request.Context(), ic))
		c.Next()
	}
}

// AbortWithAppError aborts the request with an AppError
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	requestID, _ := c.Get(ContextKeyRequestID)
	reqID, _ := requestID.(string)

	c.AbortWithStatusJSON(appErr.HTTPStatus, APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: reqID,
		Path:      c.Request.URL.Path,
	})
}
