package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/domain/user"
	"github.com/geocoder89/househub/internal/security"
	"github.com/geocoder89/househub/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserDirectory interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, p user.Patch) (user.User, error)
	Delete(ctx context.Context, id int64) (user.User, error)
}

type UsersHandler struct {
	users UserDirectory
}

func NewUsersHandler(users UserDirectory) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := storeContext(ctx)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

func (h *UsersHandler) GetMe(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	u, err := h.users.GetByID(cctx, claims.UserID)
	if err != nil {
		h.respondUserError(ctx, err, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

// UpdateMe lets a caller edit their own non-role fields. A changed role only
// reaches the token at the next login.
func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	var req user.UpdateSelfRequest
	if !BindJSON(ctx, &req) {
		return
	}

	patch, err := selfPatch(req)
	if err != nil {
		RespondInternal(ctx, "Could not update user", err)
		return
	}

	h.update(ctx, claims.UserID, patch)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, err := utils.ParseID(ctx.Param("id"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"field": "id", "reason": err.Error()})
		return
	}

	var req user.AdminUpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	patch, err := selfPatch(req.UpdateSelfRequest)
	if err != nil {
		RespondInternal(ctx, "Could not update user", err)
		return
	}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		patch.Role = &role
	}

	h.update(ctx, id, patch)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, err := utils.ParseID(ctx.Param("id"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"field": "id", "reason": err.Error()})
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	u, err := h.users.Delete(cctx, id)
	if err != nil {
		h.respondUserError(ctx, err, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "DELETE User Successfully",
		"data":    u,
	})
}

func (h *UsersHandler) update(ctx *gin.Context, id int64, patch user.Patch) {
	cctx, cancel := storeContext(ctx)
	defer cancel()

	u, err := h.users.Update(cctx, id, patch)
	if err != nil {
		h.respondUserError(ctx, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    u,
	})
}

func (h *UsersHandler) respondUserError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use")
	default:
		RespondInternal(ctx, message, err)
	}
}

func selfPatch(req user.UpdateSelfRequest) (user.Patch, error) {
	patch := user.Patch{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return user.Patch{}, err
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}
