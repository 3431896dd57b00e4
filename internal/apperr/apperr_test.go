package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := Validation("reason must have at least %d characters", 10)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "reason must have at least 10 characters", Message(err))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("reserve: %w", Conflict("slot no longer available"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "slot no longer available", Message(err))
}

func TestStoreKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	err := Store("reserve appointment", cause)

	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, cause))
	assert.NotContains(t, Message(err), "10.0.0.5")
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))

	kinded := NotFound("appointment not found")
	assert.Same(t, kinded, Wrap("op", kinded))

	raw := errors.New("boom")
	assert.True(t, errors.Is(Wrap("load", raw), ErrStore))
}

func TestMessageForForeignError(t *testing.T) {
	assert.Equal(t, "unexpected error", Message(errors.New("boom")))
}
