package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	cloned := Clone(ErrNotAuthorized, "you already approved this request")
	assert.True(t, Is(cloned, ErrNotAuthorized))
	assert.False(t, Is(cloned, ErrForbidden))
	assert.False(t, Is(errors.New("plain"), ErrInternal))
	assert.False(t, Is(nil, ErrInternal))
	assert.Equal(t, "actor is not authorized for this request", ErrNotAuthorized.Message)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	err := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)

	typed := Clone(ErrTerminalState, "request is already approved")
	assert.Same(t, typed, FromError(typed))
	assert.Nil(t, FromError(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to load approval request")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load approval request: connection reset", err.Error())
}
