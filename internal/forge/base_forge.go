package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/version"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 2048

// BaseForge provides the HTTP plumbing shared by forge API calls: URL
// building, JSON bodies, auth headers, status classification and decoding.
type BaseForge struct {
	httpClient    *http.Client
	apiURL        string
	token         string
	customHeaders map[string]string
}

// NewBaseForge creates a BaseForge with common forge HTTP client settings.
func NewBaseForge(httpClient *http.Client, apiURL, token string) *BaseForge {
	return &BaseForge{
		httpClient:    httpClient,
		apiURL:        apiURL,
		token:         token,
		customHeaders: make(map[string]string),
	}
}

// SetCustomHeader sets a header sent with every request (e.g. the GitHub API version).
func (b *BaseForge) SetCustomHeader(key, value string) {
	b.customHeaders[key] = value
}

// NewRequest creates an HTTP request against endpoint, a path relative to the
// API URL such as "/user/repos". Query strings in endpoint are preserved.
func (b *BaseForge) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(b.apiURL)
	if err != nil {
		return nil, errors.ForgeError("failed to parse API URL").
			WithCause(err).
			WithContext("api_url", b.apiURL).
			Build()
	}

	basePath := strings.TrimSuffix(u.Path, "/")
	u.Path = path.Join(basePath, cleanEndpoint)
	if rawQuery != "" {
		u.RawQuery = rawQuery
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		jsonBody, merr := json.Marshal(body)
		if merr != nil {
			return nil, errors.ForgeError("failed to marshal request body").
				WithCause(merr).
				Build()
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.ForgeError("failed to create request").
			WithCause(err).
			WithContext("method", method).
			WithContext("url", u.String()).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("User-Agent", version.UserAgent())
	for key, value := range b.customHeaders {
		req.Header.Set(key, value)
	}

	return req, nil
}

// DoRequest executes req and decodes a JSON response into result (when non-nil).
// Error statuses are returned as classified errors carrying the status code
// and a bounded copy of the response body under the "response" context key.
func (b *BaseForge) DoRequest(req *http.Request, result any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("failed to execute forge request").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Retryable().
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

		return errors.NewError(classifyStatus(resp.StatusCode, bodyStr), fmt.Sprintf("forge API error: %s", resp.Status)).
			WithContext("status", resp.Status).
			WithContext("code", resp.StatusCode).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			WithContext("response", bodyStr).
			Build()
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.ForgeError("failed to decode response").
				WithCause(err).
				WithContext("url", req.URL.String()).
				Build()
		}
	}

	return nil
}

// classifyStatus maps an error status onto an error category. GitHub reports
// duplicate names as 422 with an "already exists" validation message and
// duplicate resources such as an existing Pages site as 409.
func classifyStatus(code int, body string) errors.ErrorCategory {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryAuth
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusConflict:
		return errors.CategoryAlreadyExists
	case http.StatusUnprocessableEntity:
		if strings.Contains(strings.ToLower(body), "already exists") {
			return errors.CategoryAlreadyExists
		}
		return errors.CategoryForge
	default:
		return errors.CategoryForge
	}
}

// StatusCode returns the HTTP status recorded on a forge error, or 0.
func StatusCode(err error) int {
	v, ok := errors.ContextValue(err, "code")
	if !ok {
		return 0
	}
	code, _ := v.(int)
	return code
}
