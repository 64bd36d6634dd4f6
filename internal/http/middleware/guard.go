// Admin guard: gates the console routes on the shared permission cache so
// any number of concurrently hit admin endpoints cost at most one remote
// authorization check.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avlonitis/go-shop-backend/internal/auth"
)

// redirectDelayMS is the uniform delay, in milliseconds, after which a denied
// client is expected to navigate back to the storefront root.
const redirectDelayMS = 1500

// AdminGuard returns a middleware that admits administrators and denies
// everyone else fail-closed. The denial body carries a uniform redirect hint
// so every guarded view behaves the same way.
func AdminGuard(cache *auth.PermissionCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.Identity{
			UserID: UserID(c),
			Email:  c.GetHeader("X-User-Email"),
			Token:  c.GetHeader("Authorization"),
		}
		if !cache.CheckIsAdmin(c.Request.Context(), id) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":        "forbidden",
				"message":     "administrator access required",
				"redirect_to": "/",
				"after_ms":    redirectDelayMS,
			})
			return
		}
		c.Next()
	}
}
