package errorutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil))
		assert.Nil(t, UnWrapResponse(nil))
	})

	t.Run("plain error is non-retryable", func(t *testing.T) {
		base := errors.New("boom")
		e := Wrap(base)
		require.NotNil(t, e)
		assert.Equal(t, CodeInternal, e.Code)
		assert.False(t, e.Retryable)
		assert.ErrorIs(t, e, base)
	})

	t.Run("wrapped Error is found in chain", func(t *testing.T) {
		inner := Conflict("busy")
		e := Wrap(fmt.Errorf("calculate: %w", inner))
		assert.Same(t, inner, e)
		assert.Equal(t, CodeConflict, e.Code)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Retriable("temporary")))
	assert.True(t, IsRetryable(fmt.Errorf("outer: %w", Partial("some failed"))))
	assert.False(t, IsRetryable(NonRetriable("bad input")))
	assert.False(t, IsRetryable(Invalid("no usable rows")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestWithCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	e := RetriableWithDetails("db unavailable", "").WithCause(cause)

	assert.Equal(t, "db unavailable", e.Error())
	assert.Equal(t, "dial tcp: refused", e.DevDetails)
	assert.ErrorIs(t, e, cause)

	kept := NonRetriableWithDetails("bad", "keep me").WithCause(cause)
	assert.Equal(t, "keep me", kept.DevDetails)
}
