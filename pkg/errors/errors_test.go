package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrNotFound, "teacher not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "teacher not found", err.Error())
}

func TestWrapAsUnwraps(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := WrapAs(ErrUpstream, cause, "")
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)

	wrapped := fmt.Errorf("context: %w", ErrSessionRequired)
	assert.Equal(t, ErrSessionRequired.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
