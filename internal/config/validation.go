package config

import (
	"fmt"
	"net/url"
	"strconv"

	ferrors "git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Validate checks that the configuration is complete enough to run the
// pipeline. Secrets are never echoed into the returned error.
func (c Config) Validate() error {
	validator := configurationValidator{config: c}
	return validator.validate()
}

type configurationValidator struct {
	config Config
}

func (cv configurationValidator) validate() error {
	if err := cv.validateCredentials(); err != nil {
		return err
	}
	if err := cv.validateEndpoints(); err != nil {
		return err
	}
	if err := cv.validateLimits(); err != nil {
		return err
	}
	return nil
}

func (cv configurationValidator) validateCredentials() error {
	missing := make([]string, 0, 3)
	if cv.config.GitHub.Token == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if cv.config.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if cv.config.Secret == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if len(missing) > 0 {
		return ferrors.ConfigError("missing required configuration").
			WithContext("missing", missing).
			Build()
	}
	return nil
}

func (cv configurationValidator) validateEndpoints() error {
	endpoints := []struct {
		key   string
		value string
	}{
		{"EVALUATION_URL", cv.config.EvaluationURL},
		{"GITHUB_API_URL", cv.config.GitHub.APIURL},
		{"LLM_BASE_URL", cv.config.LLM.BaseURL},
	}
	for _, e := range endpoints {
		if err := validateHTTPURL(e.value); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid endpoint").
				WithContext("key", e.key).
				Build()
		}
	}
	if cv.config.NATS.Enabled() && cv.config.NATS.Subject == "" {
		return ferrors.ConfigError("nats subject must be set when NATS_URL is configured").Build()
	}
	return nil
}

func (cv configurationValidator) validateLimits() error {
	c := cv.config
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return ferrors.ConfigError("invalid port").WithContext("port", c.Port).Build()
	}
	checks := []struct {
		ok   bool
		name string
	}{
		{c.LLM.Timeout > 0, "llm.timeout"},
		{c.LLM.MaxTokens > 0, "llm.max_tokens"},
		{c.GitHub.Timeout > 0, "github.timeout"},
		{c.Provision.MaxNameAttempts > 0, "provision.max_name_attempts"},
		{c.Publish.BlobConcurrency > 0, "publish.blob_concurrency"},
		{c.Publish.CommitMessage != "", "publish.commit_message"},
		{c.Notify.MaxAttempts > 0, "notify.max_attempts"},
		{c.Notify.Timeout > 0, "notify.timeout"},
		{c.Notify.InitialBackoff > 0, "notify.initial_backoff"},
		{c.Notify.MaxBackoff >= c.Notify.InitialBackoff, "notify.max_backoff"},
		{NormalizeRetryBackoff(string(c.Notify.Backoff)) != "", "notify.backoff"},
		{c.ShutdownTimeout > 0, "shutdown_timeout"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return ferrors.ConfigError("invalid configuration value").WithContext("field", chk.name).Build()
		}
	}
	if c.Journal.Enabled() && c.Journal.Retention <= 0 {
		return ferrors.ConfigError("journal retention must be positive").Build()
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
