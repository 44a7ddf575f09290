// Package actorctx carries the authenticated caller on a context.Context so
// code below the HTTP layer can log who acted without importing gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/househub/internal/auth"
)

type ctxKey struct{}

type Actor struct {
	UserID int64
	Role   auth.Role
}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != 0
}
