package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("folder %s not found", "fld-1")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrValidation))
	assert.Equal(t, "folder fld-1 not found", err.Error())
}

func TestError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("move listing: %w", Validation("listing is not saved"))

	assert.True(t, Is(err, ErrValidation))
}

func TestPersistence_KeepsCause(t *testing.T) {
	err := Persistence(io.ErrUnexpectedEOF, "commit favorites")

	assert.True(t, Is(err, ErrPersistence))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "commit favorites")
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodePersistence, http.StatusServiceUnavailable},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	base := Validation("invalid folder")
	detailed := base.WithDetails(map[string]string{"name": "required"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.True(t, Is(detailed, ErrValidation))
}
