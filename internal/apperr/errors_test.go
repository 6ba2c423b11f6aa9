package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageWrapsOnce(t *testing.T) {
	base := errors.New("disk I/O error")
	err := Storage("query streak", base)

	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "storage unavailable (query streak): disk I/O error", err.Error())

	// Re-wrapping keeps the original operation.
	again := Storage("outer", fmt.Errorf("load: %w", err))
	var se *StorageError
	assert.True(t, errors.As(again, &se))
	assert.Equal(t, "query streak", se.Op)
}

func TestStorageNil(t *testing.T) {
	assert.NoError(t, Storage("noop", nil))
}

func TestIllegalTransition(t *testing.T) {
	err := IllegalTransition("completed", "submit answer")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, "illegal transition: submit answer not allowed in state completed", err.Error())

	var ite *IllegalTransitionError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &ite))
	assert.Equal(t, "completed", ite.State)
}
