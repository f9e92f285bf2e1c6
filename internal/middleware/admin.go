package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/examforge/examforge-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the shared admin key.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey guards the admin API with a shared key. An empty key
// configuration disables the admin API entirely.
func RequireAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(AdminKeyHeader)
		if key == "" || given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrAdminKey)
			return
		}
		c.Next()
	}
}
