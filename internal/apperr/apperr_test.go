package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status())
	assert.Equal(t, http.StatusBadRequest, Validation("x").Status())
	assert.Equal(t, http.StatusNotFound, NotFound("x").Status())
	assert.Equal(t, http.StatusConflict, Conflict("x").Status())
	assert.Equal(t, http.StatusInternalServerError, (&Error{}).Status())
}

func TestIsThroughWrapping(t *testing.T) {
	cause := errors.New("db down")
	err := fmt.Errorf("loading product: %w", NotFound("Product not found").Wrap(cause))

	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindUnauthorized))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "loading product: Product not found: db down", err.Error())
}

func TestIsPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindValidation))
}
