package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsRetryable(ClassifyStatus(429, base)))
	assert.True(t, IsRetryable(ClassifyStatus(503, base)))
	assert.True(t, IsRetryable(errors.Wrap(&TransientError{Err: base}, "call")))
	assert.False(t, IsRetryable(ClassifyStatus(400, base)))
	assert.False(t, IsRetryable(ClassifyStatus(401, base)))
	assert.False(t, IsRetryable(base))
	assert.False(t, IsRetryable(nil))
}

func TestTransientErrorMessage(t *testing.T) {
	err := &TransientError{Attempts: 3, Err: errors.New("deadline exceeded")}
	assert.Equal(t, "transient completion failure after 3 attempts: deadline exceeded", err.Error())
}
