package myerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassification(t *testing.T) {
	assert.True(t, IsValidation(Validation("bad input")))
	assert.True(t, IsNotFound(NotFound("ride %d not found", 5)))
	assert.True(t, IsInvalidTransition(InvalidTransition("no")))
	assert.True(t, IsForbidden(Forbidden("not yours")))
	assert.True(t, IsInternal(Internal("query failed", errors.New("pq: boom"))))
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.True(t, IsInternal(err))
	assert.False(t, IsNotFound(err))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("accepting ride: %w", InvalidTransition("ride 5 is already accepted"))
	assert.True(t, IsInvalidTransition(err))
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	err := Internal("complete ride", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "internal_error")
	assert.Contains(t, err.Error(), "complete ride")
}
