package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/househub/internal/actorctx"
	"github.com/geocoder89/househub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authenticate(c) {
			c.Next()
		}
	}
}

// authenticate stores the verified claims on c, or aborts with 401.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	if _, ok := ClaimsFromContext(c); ok {
		return true
	}

	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		abortError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		return false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if raw == "" {
		abortError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
		return false
	}

	claims, err := m.jwt.Verify(raw)
	if err != nil {
		abortError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
		return false
	}

	c.Set(ctxClaimsKey, claims)
	c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
		UserID: claims.UserID,
		Role:   claims.Role,
	}))
	return true
}

// Optional helpers so handlers don’t need to know the magic keys.

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

func UserIDFromContext(c *gin.Context) (int64, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}
