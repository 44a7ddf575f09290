package user

import (
	"errors"
	"time"

	"github.com/geocoder89/househub/internal/auth"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Claims is the token payload for this user.
func (u User) Claims() auth.Claims {
	return auth.Claims{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=2,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Phone    string `json:"phone" binding:"required,max=30"`
	// privileged roles are granted by staff, never at signup
	Role string `json:"role" binding:"omitempty,oneof=user owner"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateSelfRequest is what a user may change on their own account.
type UpdateSelfRequest struct {
	Username *string `json:"username" binding:"omitempty,min=2,max=60"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,min=1,max=30"`
	Password *string `json:"password" binding:"omitempty,min=6,max=72"`
}

// AdminUpdateRequest lets staff change any field, role included.
type AdminUpdateRequest struct {
	UpdateSelfRequest
	Role *string `json:"role" binding:"omitempty,oneof=admin subAdmin owner user"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Username     *string
	Email        *string
	Phone        *string
	PasswordHash *string
	Role         *auth.Role
}

func (p Patch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Phone == nil && p.PasswordHash == nil && p.Role == nil
}

// Apply returns u with every non-nil field of p written over it.
func (p Patch) Apply(u User) User {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}
