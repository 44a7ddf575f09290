package middlewares

import (
	"net/http"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/gin-gonic/gin"
)

// RequireRoles admits callers whose token role is in allowed. It
// authenticates first when RequireAuth did not already run. The role claim is
// trusted as issued: a role change applies from the user's next login.
func (m *AuthMiddleware) RequireRoles(allowed auth.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}

		claims, _ := ClaimsFromContext(c)
		if !allowed.Allows(claims.Role) {
			abortError(c, http.StatusForbidden, "forbidden", "Access denied: requires role "+allowed.String())
			return
		}
		c.Next()
	}
}
