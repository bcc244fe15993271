package pipeline

import (
	"crypto/subtle"
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

var (
	// ErrMissingFields is returned when required request fields are absent.
	ErrMissingFields = errors.ValidationError("missing required fields").Build()

	// ErrInvalidBody is returned when the request body is not a JSON object.
	ErrInvalidBody = errors.ValidationError("request body is not valid JSON").Build()

	// ErrSecretMismatch is returned when the shared secret does not match.
	ErrSecretMismatch = errors.AuthError("invalid secret").Build()
)

// Validate decodes body and checks the required fields and the shared
// secret. It performs no external calls.
func Validate(body []byte, expectedSecret string) (GenerationRequest, error) {
	var req GenerationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GenerationRequest{}, errors.WrapError(err, errors.CategoryValidation, ErrInvalidBody.Message()).Build()
	}
	if err := req.Check(expectedSecret); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// Check validates an already decoded request.
func (r GenerationRequest) Check(expectedSecret string) error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"email", r.Email},
		{"task", r.Task},
		{"round", r.Round.String()},
		{"nonce", r.Nonce},
		{"secret", r.Secret},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.NewError(errors.CategoryValidation, ErrMissingFields.Message()).
			WithContext("missing", strings.Join(missing, ", ")).
			Build()
	}

	if subtle.ConstantTimeCompare([]byte(r.Secret), []byte(expectedSecret)) != 1 {
		return ErrSecretMismatch
	}
	return nil
}
