package handlers

import (
	"context"
	"time"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// storeTimeout bounds every store call made while serving one request.
const storeTimeout = 5 * time.Second

func storeContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), storeTimeout)
}

// callerClaims returns the verified identity set by the auth middleware, or
// answers 401 when a route was wired without it.
func callerClaims(ctx *gin.Context) (*auth.Claims, bool) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return nil, false
	}
	return claims, true
}
