package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
	"github.com/refshelf/refshelf-server/internal/validation"
)

type saveRequest struct {
	Key      string `json:"bib_key" validate:"required,bibkey,max=100"`
	Type     string `json:"reference_type" validate:"required,fieldkey"`
	Username string `json:"username" validate:"omitempty,min=3,username"`
}

func TestValidator_Success(t *testing.T) {
	v := validation.New()

	err := v.Validate(saveRequest{Key: "Smith2020", Type: "article", Username: "alice"})
	assert.NoError(t, err)
}

func TestValidator_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       saveRequest
		wantField string
	}{
		{"missing key", saveRequest{Type: "article"}, "bib_key"},
		{"key with space", saveRequest{Key: "Smith 2020", Type: "article"}, "bib_key"},
		{"key with brace", saveRequest{Key: "Smith{2020", Type: "article"}, "bib_key"},
		{"uppercase type", saveRequest{Key: "k", Type: "Article"}, "reference_type"},
		{"short username", saveRequest{Key: "k", Type: "book", Username: "al"}, "username"},
		{"bad username", saveRequest{Key: "k", Type: "book", Username: "al ice"}, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("bib_key", "Doe2021a", "required,bibkey"))

	err := v.Var("bib_key", "has,comma", "required,bibkey")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
