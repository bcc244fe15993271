package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

func envOf(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"GITHUB_TOKEN":   "ghp_test",
		"LLM_API_KEY":    "sk-test",
		"SECRET_KEY":     "s3cret",
		"EVALUATION_URL": "https://eval.example.com/notify",
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("", envOf(requiredEnv()))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultGitHubAPIURL, cfg.GitHub.APIURL)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 5, cfg.Notify.MaxAttempts)
	assert.Equal(t, RetryBackoffExponential, cfg.Notify.Backoff)
	assert.Equal(t, 5, cfg.Provision.MaxNameAttempts)
	assert.Equal(t, DefaultCommitMessage, cfg.Publish.CommitMessage)
	assert.False(t, cfg.Journal.Enabled())
	assert.False(t, cfg.NATS.Enabled())
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	env := requiredEnv()
	env["PORT"] = "9090"
	env["GITHUB_API_URL"] = "http://ghe.local/api/v3/"
	env["LOG_LEVEL"] = "WARNING"
	env["LOG_FORMAT"] = "json"
	env["METRICS_ENABLED"] = "false"
	env["JOURNAL_PATH"] = "/tmp/runs.db"
	env["JOURNAL_RETENTION"] = "48h"
	env["NATS_URL"] = "nats://127.0.0.1:4222"

	cfg, err := LoadFrom("", envOf(env))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://ghe.local/api/v3", cfg.GitHub.APIURL)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Journal.Enabled())
	assert.Equal(t, 48*time.Hour, cfg.Journal.Retention)
	assert.True(t, cfg.NATS.Enabled())
	assert.Equal(t, DefaultNATSSubject, cfg.NATS.Subject)
}

func TestLoadFrom_LLMKeyAliases(t *testing.T) {
	env := requiredEnv()
	delete(env, "LLM_API_KEY")
	env["AIPIPE_TOKEN"] = "pipe-token"

	cfg, err := LoadFrom("", envOf(env))
	require.NoError(t, err)
	assert.Equal(t, "pipe-token", cfg.LLM.APIKey)

	env["OPENAI_API_KEY"] = "openai-token"
	cfg, err = LoadFrom("", envOf(env))
	require.NoError(t, err)
	assert.Equal(t, "openai-token", cfg.LLM.APIKey)
}

func TestLoadFrom_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pagesmith.yaml")
	content := `
port: "7000"
llm:
  model: gpt-4.1
  temperature: 0.2
notify:
  max_attempts: 6
  initial_backoff: 500ms
publish:
  blob_concurrency: 8
pages:
  build_timeout: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	env := requiredEnv()
	env["PORT"] = "7100"
	cfg, err := LoadFrom(path, envOf(env))
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Port, "environment wins over file")
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 6, cfg.Notify.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Notify.InitialBackoff)
	assert.Equal(t, 8, cfg.Publish.BlobConcurrency)
	assert.Equal(t, time.Duration(0), cfg.Pages.BuildTimeout)
	assert.Equal(t, DefaultLLMBaseURL, cfg.LLM.BaseURL, "untouched fields keep defaults")
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(env map[string]string)
	}{
		{"missing github token", func(env map[string]string) { delete(env, "GITHUB_TOKEN") }},
		{"missing secret", func(env map[string]string) { delete(env, "SECRET_KEY") }},
		{"missing llm key", func(env map[string]string) { delete(env, "LLM_API_KEY") }},
		{"missing evaluation url", func(env map[string]string) { delete(env, "EVALUATION_URL") }},
		{"evaluation url without scheme", func(env map[string]string) { env["EVALUATION_URL"] = "eval.example.com" }},
		{"bad port", func(env map[string]string) { env["PORT"] = "http" }},
		{"bad metrics flag", func(env map[string]string) { env["METRICS_ENABLED"] = "maybe" }},
		{"bad retention", func(env map[string]string) { env["JOURNAL_RETENTION"] = "forever" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := requiredEnv()
			tt.mutate(env)
			_, err := LoadFrom("", envOf(env))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), envOf(requiredEnv()))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestValidate_SecretsNotEchoed(t *testing.T) {
	env := requiredEnv()
	env["EVALUATION_URL"] = "ftp://nowhere"
	_, err := LoadFrom("", envOf(env))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "ghp_test")
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("logfmt"))
	assert.Equal(t, RetryBackoffLinear, NormalizeRetryBackoff("Linear"))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("random"))
}
