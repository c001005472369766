// Package response writes the {success, data, error} envelope every endpoint answers with.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JSON sends a successful envelope with status.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Success: true, Data: data})
}

// Fail sends a failed envelope with status and stops the handler chain.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: msg})
}

// OK sends 200 with data.
func OK(c *gin.Context, data interface{}) { JSON(c, http.StatusOK, data) }

// Created sends 201 with data.
func Created(c *gin.Context, data interface{}) { JSON(c, http.StatusCreated, data) }

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func BadRequest(c *gin.Context, msg string)   { Fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { Fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string)    { Fail(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)     { Fail(c, http.StatusNotFound, msg) }

// Conflict sends 409, e.g. for a taken slug or a user without a team.
func Conflict(c *gin.Context, msg string) { Fail(c, http.StatusConflict, msg) }

// Unprocessable sends 422 for well-formed requests the scheduler refuses, such as editing a
// meeting outside the visible week or removing its last attendee.
func Unprocessable(c *gin.Context, msg string) { Fail(c, http.StatusUnprocessableEntity, msg) }

func ServiceUnavailable(c *gin.Context, msg string) { Fail(c, http.StatusServiceUnavailable, msg) }
func Internal(c *gin.Context, msg string)           { Fail(c, http.StatusInternalServerError, msg) }

// Invalid sends 400 for a body that failed to bind. Validation failures are listed per field.
func Invalid(c *gin.Context, err error) {
	BadRequest(c, ValidationMessage(err))
}

// ValidationMessage turns a binding error into a client-facing sentence.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := snakeCase(fe.Field())
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// snakeCase maps a Go field name to the json key style used by request bodies.
func snakeCase(s string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range s {
		if unicode.IsUpper(r) {
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
