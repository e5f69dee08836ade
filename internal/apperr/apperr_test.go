package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	base := New(NotFound, "category not found")
	wrapped := fmt.Errorf("loading parent: %w", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, NotFound))
	assert.False(t, IsKind(wrapped, Forbidden))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("disk on fire")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ConstraintViolation))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ValidationError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal))
}

func TestMessageHidesInternalDetail(t *testing.T) {
	internal := Wrap(Internal, "failed to update path", errors.New("pq: connection reset"))
	assert.Equal(t, "internal server error", Message(internal))

	visible := New(ConstraintViolation, "a sibling with this name already exists")
	assert.Equal(t, "a sibling with this name already exists", Message(visible))

	assert.Equal(t, "internal server error", Message(errors.New("raw")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(Internal, "failed to update path", errors.New("timeout"))
	assert.Equal(t, "failed to update path: timeout", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "timeout")
}
