package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/domain/user"
	"github.com/geocoder89/househub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

type TokenIssuer interface {
	Issue(c auth.Claims) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	tokens     TokenIssuer
}

func NewAuthHandler(users UserReader, userWriter UserWriter, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		tokens:     tokens,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	// checked up front so a duplicate never costs a bcrypt round
	_, err := h.users.GetByEmail(cctx, req.Email)
	switch {
	case err == nil:
		RespondConflict(ctx, "email_taken", "User already registered")
		return
	case !errors.Is(err, user.ErrNotFound):
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	role := auth.RoleUser
	if req.Role != "" {
		role = auth.Role(req.Role)
	}

	u, err := h.userWriter.Create(cctx, user.User{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         role,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "User already registered")
			return
		}

		RespondInternal(ctx, "Could not create user", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully!",
		"user":    u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Invalid email or password.")
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			RespondBadRequest(ctx, "Invalid email or password.", nil)
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	token, err := h.tokens.Issue(u.Claims())

	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful!",
		"token":   token,
		"user":    u,
	})
}
