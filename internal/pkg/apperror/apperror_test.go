package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapMatchesSentinel(t *testing.T) {
	sentinel := New(http.StatusInternalServerError, "database error")
	cause := errors.New("connection refused")

	err := WrapAs(sentinel, cause)

	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "database error: connection refused", err.Error())
}

func TestWrappedThroughFmt(t *testing.T) {
	sentinel := New(http.StatusNotFound, "reservation not found")
	err := fmt.Errorf("get reservation: %w", sentinel)

	assert.ErrorIs(t, err, sentinel)

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestDifferentSentinelsDoNotMatch(t *testing.T) {
	a := New(http.StatusBadRequest, "invalid user id")
	b := New(http.StatusBadRequest, "invalid resource id")

	assert.NotErrorIs(t, a, b)
	assert.NotErrorIs(t, WrapAs(a, errors.New("x")), b)
}
