package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error codes shared by all handlers
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeForbidden         = "FORBIDDEN"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeDatabase          = "DATABASE_ERROR"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
)

// postgresUniqueViolation is SQLSTATE unique_violation
const postgresUniqueViolation = "23505"

// AppError is an error that knows how it should be reported to API clients
type AppError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed input, optionally with a field-level detail map
func NewValidationError(message string, details interface{}) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message, Details: details}
}

// NewNotFoundError reports a referenced id that does not exist
func NewNotFoundError(code, message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: message}
}

// NewConflictError reports a uniqueness violation with a friendly message
func NewConflictError(message string, err error) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeConflict, Message: message, Err: err}
}

// NewForbiddenError reports an authenticated caller acting outside their rights
func NewForbiddenError(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

// NewTransitionError reports an action the order lifecycle does not allow right now
func NewTransitionError(message string, err error) *AppError {
	return &AppError{Status: http.StatusConflict, Code: CodeInvalidTransition, Message: message, Err: err}
}

// NewInternalError reports a store failure; message is what the client sees
func NewInternalError(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeDatabase, Message: message, Err: err}
}

// NewUpstreamError reports an unreachable dependency such as the email provider
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeUpstream, Message: message, Err: err}
}

// AsAppError converts any error into an AppError, defaulting to a sanitized 500
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("An unexpected error occurred", err)
}

// IsNotFound reports whether err is a missing-row error from gorm
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err comes from a uniqueness constraint
// (works with both PostgreSQL and SQLite)
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint")
}

// ValidationDetails turns binding errors into a field -> failed rule map
func ValidationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[toSnakeCase(fe.Field())] = fe.Tag()
		}
		return details
	}
	return err.Error()
}

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if isUpper(r) {
			prevLower := i > 0 && !isUpper(runes[i-1]) && runes[i-1] != '_'
			nextLower := i > 0 && i+1 < len(runes) && !isUpper(runes[i+1]) && runes[i+1] != '_'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
