package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	raw := errors.New("boom")
	err := FromError(raw)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, raw)
}

func TestCloneKeepsCode(t *testing.T) {
	clone := Clone(ErrConflict, "email already used")
	assert.Equal(t, "email already used", clone.Message)
	assert.Equal(t, ErrConflict.Code, clone.Code)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "review not found"))
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrValidation))
	assert.False(t, Is(nil, ErrNotFound))
}
