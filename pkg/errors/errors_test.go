package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	notFound := NotFound("invitation not found")

	assert.Equal(t, CodeNotFound, CodeOf(notFound))
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("accept: %w", notFound)))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, "store failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "store failed: connection reset", err.Error())
}
