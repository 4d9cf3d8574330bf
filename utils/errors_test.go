package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres sqlstate", fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres other code", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: products.name"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestAsAppError(t *testing.T) {
	notFound := NewNotFoundError("ORDER_NOT_FOUND", "Order not found")
	wrapped := fmt.Errorf("loading: %w", notFound)
	assert.Same(t, notFound, AsAppError(wrapped))

	generic := AsAppError(errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, generic.Status)
	assert.Equal(t, "An unexpected error occurred", generic.Message, "internal details must not leak")
	assert.ErrorContains(t, generic, "disk full")
}

func TestConflictIsReportedAsBadRequest(t *testing.T) {
	err := NewConflictError("A product with this name already exists", gorm.ErrDuplicatedKey)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestValidationDetails(t *testing.T) {
	type request struct {
		ProductID uint `validate:"required"`
		Quantity  int  `validate:"gt=0"`
	}
	err := validator.New().Struct(request{})
	require.Error(t, err)

	details, ok := ValidationDetails(err).(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "required", details["product_id"])
	assert.Equal(t, "gt", details["quantity"])

	assert.Equal(t, "EOF", ValidationDetails(errors.New("EOF")))
}
