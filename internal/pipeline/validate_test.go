package pipeline

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		category errors.ErrorCategory
		missing  string
	}{
		{name: "invalid json", body: `{"email":`, category: errors.CategoryValidation},
		{name: "not an object", body: `[1,2]`, category: errors.CategoryValidation},
		{name: "empty object", body: `{}`, category: errors.CategoryValidation, missing: "email, task, round, nonce, secret"},
		{name: "missing nonce", body: `{"email":"a@b.c","task":"t","round":1,"secret":"s3cret"}`, category: errors.CategoryValidation, missing: "nonce"},
		{name: "blank task", body: `{"email":"a@b.c","task":"  ","round":1,"nonce":"n","secret":"s3cret"}`, category: errors.CategoryValidation, missing: "task"},
		{name: "missing secret", body: `{"email":"a@b.c","task":"t","round":1,"nonce":"n"}`, category: errors.CategoryValidation, missing: "secret"},
		{name: "wrong secret", body: `{"email":"a@b.c","task":"t","round":1,"nonce":"n","secret":"nope"}`, category: errors.CategoryAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate([]byte(tt.body), "s3cret")
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.GetCategory(err))
			if tt.missing != "" {
				v, ok := errors.ContextValue(err, "missing")
				require.True(t, ok)
				assert.Equal(t, tt.missing, v)
				assert.True(t, stderrors.Is(err, ErrMissingFields))
			}
		})
	}
}

func TestValidate_AcceptsNumericAndStringRounds(t *testing.T) {
	for body, round := range map[string]string{
		`{"email":"a@b.c","task":"t","round":2,"nonce":"n","secret":"s3cret"}`:   "2",
		`{"email":"a@b.c","task":"t","round":"2","nonce":"n","secret":"s3cret"}`: "2",
		`{"email":"a@b.c","task":"t","round":1.5,"nonce":"n","secret":"s3cret"}`: "1.5",
	} {
		req, err := Validate([]byte(body), "s3cret")
		require.NoError(t, err, body)
		assert.Equal(t, round, req.Round.String())
	}
}

func TestValidate_ReturnsFieldsUnchanged(t *testing.T) {
	body := `{"email":"a@b.c","task":"Captcha Solver","round":1,"nonce":"xyz","secret":"s3cret",
		"brief":"Build it","attachments":[{"name":"sample.png","url":"data:image/png;base64,AAA"}]}`
	req, err := Validate([]byte(body), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", req.Email)
	assert.Equal(t, "Captcha Solver", req.Task)
	assert.Equal(t, "xyz", req.Nonce)
	assert.Equal(t, "Build it", req.Brief)
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, "sample.png", req.Attachments[0].Name)
}

func TestValidate_SecretMismatchIsSentinel(t *testing.T) {
	_, err := Validate([]byte(`{"email":"a","task":"t","round":1,"nonce":"n","secret":"s3cre"}`), "s3cret")
	assert.True(t, stderrors.Is(err, ErrSecretMismatch))
}
