package db

import (
	"context"
	"errors"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/config"
	"github.com/geocoder89/househub/internal/domain/user"
	"github.com/geocoder89/househub/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. It is a no-op
// without ADMIN_EMAIL and ADMIN_PASSWORD or when the email already exists.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	_, err = store.Create(ctx, user.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		Phone:        cfg.AdminPhone,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	})

	if errors.Is(err, user.ErrEmailTaken) {
		// another instance won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
