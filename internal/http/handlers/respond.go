package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const ctxExposeErrors = "expose_internal_errors"

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// ExposeInternalErrors controls whether 500 bodies carry the underlying error
// string. Turned on in dev only.
func ExposeInternalErrors(on bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(ctxExposeErrors, on)
		ctx.Next()
	}
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"message": message,
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

// RespondConflict keeps the 400 status clients of this API expect for
// duplicate records; code tells the cases apart.
func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusBadRequest, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), message,
		"err", err,
		"route", ctx.FullPath(),
		"request_id", requestIDFrom(ctx),
	)

	var details interface{}
	if err != nil && ctx.GetBool(ctxExposeErrors) {
		details = gin.H{"reason": err.Error()}
	}

	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, details)
}
