package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrWindowClosed, "window closed on 2024-01-31")

	assert.Equal(t, "window closed on 2024-01-31", err.Message)
	assert.Equal(t, "attendance window is closed", ErrWindowClosed.Message)
	assert.True(t, errors.Is(err, ErrWindowClosed))
	assert.True(t, errors.Is(fmt.Errorf("submit: %w", err), ErrWindowClosed))
	assert.False(t, errors.Is(err, ErrAlreadySubmitted))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(sql.ErrConnDone, ErrPersistenceFailure.Code, ErrPersistenceFailure.Status, "attendance could not be saved")

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, "attendance could not be saved: sql: connection is already closed", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)

	nested := FromError(fmt.Errorf("outer: %w", Clone(ErrNotAssigned, "")))
	assert.Equal(t, http.StatusUnprocessableEntity, nested.Status)
	assert.Equal(t, ErrNotAssigned.Message, nested.Message)
}
