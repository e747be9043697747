package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/validation"
)

type folderRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(folderRequest{Name: "Cars", Color: "#ff0000"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       folderRequest
		wantField string
	}{
		{"missing name", folderRequest{}, "name"},
		{"long name", folderRequest{Name: strings.Repeat("a", 101)}, "name"},
		{"long description", folderRequest{Name: "x", Description: strings.Repeat("d", 501)}, "description"},
		{"bad color", folderRequest{Name: "x", Color: "red"}, "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_MaxCountsRunes(t *testing.T) {
	v := validation.New()

	// 100 multi-byte characters are within the limit.
	err := v.Validate(folderRequest{Name: strings.Repeat("ж", 100)})
	assert.NoError(t, err)
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("color", "#abc", "hexcolor"))

	err := v.Var("color", "blue", "hexcolor")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
