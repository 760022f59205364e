package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesKind(t *testing.T) {
	assert.ErrorIs(t, ErrTokenInvalid, ErrUnauthenticated)
	assert.ErrorIs(t, ErrLoginRequired, ErrUnauthenticated)
	assert.NotErrorIs(t, ErrLoginRequired, ErrTokenInvalid)
	assert.NotErrorIs(t, ErrForbidden, ErrUnauthenticated)
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("signup: %w", ErrEmailInUse)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.NotErrorIs(t, err, ErrUsernameInUse)
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, e.Kind)
}

func TestStoreUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreUnavailable(cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidation_Error(t *testing.T) {
	err := Validation("username", "cannot contain spaces")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "username: cannot contain spaces", err.Error())
}

func TestAs_PlainError(t *testing.T) {
	_, ok := As(errors.New("boom"))
	assert.False(t, ok)
}
