package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/geocoder89/househub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func BindJSON(ctx *gin.Context, out interface{}) bool {
	validation.Setup()

	err := ctx.ShouldBindJSON(out)

	if err != nil {
		if tooLarge(ctx, err) {
			return false
		}
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err))

		return false
	}

	return true
}

// BindForm binds and validates the non-file fields of a multipart form. File
// parts stay on the request for the upload store.
func BindForm(ctx *gin.Context, out interface{}) bool {
	validation.Setup()

	err := ctx.ShouldBindWith(out, binding.FormMultipart)

	if err != nil {
		if tooLarge(ctx, err) {
			return false
		}
		RespondBadRequest(ctx, "Invalid form data", parseBindError(err))

		return false
	}

	return true
}

func tooLarge(ctx *gin.Context, err error) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return false
	}

	RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large",
		fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit), nil)
	return true
}

func parseBindError(err error) interface{} {
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule, param := fieldError.Tag(), fieldError.Param()

			fields = append(fields, FieldError{
				Field:   fieldError.Field(),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	// encoding/json reports the path with the json keys already
	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be of type " + typeError.Type.String(),
			}},
		}
	}

	// a rent date that is not YYYY-MM-DD
	if errors.Is(err, rent.ErrInvalidDate) {
		return gin.H{"json": "invalid_date", "reason": "dates must use the YYYY-MM-DD format"}
	}

	return gin.H{"reason": err.Error()}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "gt":
		return "must be greater than " + param
	case validation.TagDateOrder:
		return "must not be before " + param
	case "number", "numeric":
		return "must be a number"
	case validation.TagPositiveNumber:
		return "must be a positive number"
	case validation.TagMaxAmount:
		return fmt.Sprintf("must be at most %.2f", validation.MaxAmount)
	case "lte":
		return "must be at most " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
