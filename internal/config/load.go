package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// LookupFunc resolves a single environment key.
type LookupFunc func(key string) (string, bool)

// envFiles are loaded in order; a key set by an earlier file or the process
// environment is never overridden.
var envFiles = []string{".env", ".env.local"}

// Load resolves the configuration from defaults, the optional YAML file at
// path, `.env` files and the process environment, then validates it.
func Load(path string) (Config, error) {
	loadEnvFiles()
	return LoadFrom(path, os.LookupEnv)
}

// LoadFrom is Load without touching `.env` files, reading variables through
// lookup. It exists so tests can supply their own environment.
func LoadFrom(path string, lookup LookupFunc) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "file", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "file", name)
	}
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
			WithContext("path", path).
			Build()
	}
	return nil
}

// envBinding maps one environment key onto a config field.
type envBinding struct {
	keys  []string
	apply func(cfg *Config, value string) error
}

var envBindings = []envBinding{
	{keys: []string{"GITHUB_TOKEN"}, apply: func(c *Config, v string) error { c.GitHub.Token = v; return nil }},
	{keys: []string{"GITHUB_API_URL"}, apply: func(c *Config, v string) error { c.GitHub.APIURL = strings.TrimRight(v, "/"); return nil }},
	{keys: []string{"LLM_API_KEY", "OPENAI_API_KEY", "AIPIPE_TOKEN"}, apply: func(c *Config, v string) error { c.LLM.APIKey = v; return nil }},
	{keys: []string{"LLM_BASE_URL"}, apply: func(c *Config, v string) error { c.LLM.BaseURL = strings.TrimRight(v, "/"); return nil }},
	{keys: []string{"LLM_MODEL"}, apply: func(c *Config, v string) error { c.LLM.Model = v; return nil }},
	{keys: []string{"SECRET_KEY"}, apply: func(c *Config, v string) error { c.Secret = v; return nil }},
	{keys: []string{"EVALUATION_URL"}, apply: func(c *Config, v string) error { c.EvaluationURL = v; return nil }},
	{keys: []string{"PORT"}, apply: func(c *Config, v string) error { c.Port = v; return nil }},
	{keys: []string{"LOG_LEVEL"}, apply: func(c *Config, v string) error { c.Logging.Level = NormalizeLogLevel(v); return nil }},
	{keys: []string{"LOG_FORMAT"}, apply: func(c *Config, v string) error { c.Logging.Format = NormalizeLogFormat(v); return nil }},
	{keys: []string{"METRICS_ENABLED"}, apply: func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		c.Metrics.Enabled = b
		return nil
	}},
	{keys: []string{"JOURNAL_PATH"}, apply: func(c *Config, v string) error { c.Journal.Path = v; return nil }},
	{keys: []string{"JOURNAL_RETENTION"}, apply: func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JOURNAL_RETENTION: %w", err)
		}
		c.Journal.Retention = d
		return nil
	}},
	{keys: []string{"NATS_URL"}, apply: func(c *Config, v string) error { c.NATS.URL = v; return nil }},
	{keys: []string{"NATS_SUBJECT"}, apply: func(c *Config, v string) error { c.NATS.Subject = v; return nil }},
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range envBindings {
		value, ok := firstSet(lookup, b.keys)
		if !ok {
			continue
		}
		if err := b.apply(cfg, value); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid environment value").
				WithContext("key", b.keys[0]).
				Build()
		}
	}
	return nil
}

func firstSet(lookup LookupFunc, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
