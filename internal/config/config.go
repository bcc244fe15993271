// Package config loads the immutable runtime configuration of pagesmith.
//
// Values are resolved once at process start, in increasing precedence:
// built-in defaults, an optional YAML file, `.env`/`.env.local` files and
// finally the process environment. The resulting Config is passed by value
// into every constructor and never mutated afterwards.
package config

import (
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Port            string        `yaml:"port"`
	Secret          string        `yaml:"-"`
	EvaluationURL   string        `yaml:"evaluation_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	GitHub    GitHubConfig    `yaml:"github"`
	LLM       LLMConfig       `yaml:"llm"`
	Provision ProvisionConfig `yaml:"provision"`
	Publish   PublishConfig   `yaml:"publish"`
	Pages     PagesConfig     `yaml:"pages"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Journal   JournalConfig   `yaml:"journal"`
	NATS      NATSConfig      `yaml:"nats"`
}

// GitHubConfig configures the hosting API client.
type GitHubConfig struct {
	Token   string        `yaml:"-"`
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig configures the OpenAI-compatible generation client.
type LLMConfig struct {
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ProvisionConfig configures repository creation.
type ProvisionConfig struct {
	MaxNameAttempts   int           `yaml:"max_name_attempts"`
	License           string        `yaml:"license"`
	PostCreateDelay   time.Duration `yaml:"post_create_delay"`
	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`
	// ReadyTimeout bounds the default-branch poll; zero falls back to PostCreateDelay.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

// PublishConfig configures the commit sequence.
type PublishConfig struct {
	CommitMessage   string `yaml:"commit_message"`
	BlobConcurrency int    `yaml:"blob_concurrency"`
}

// PagesConfig configures static-site enablement.
type PagesConfig struct {
	PostEnableDelay time.Duration `yaml:"post_enable_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	// BuildTimeout bounds the build-status poll; zero falls back to PostEnableDelay.
	BuildTimeout time.Duration `yaml:"build_timeout"`
}

// NotifyConfig configures evaluation callback delivery.
type NotifyConfig struct {
	Timeout        time.Duration    `yaml:"timeout"`
	MaxAttempts    int              `yaml:"max_attempts"`
	Backoff        RetryBackoffMode `yaml:"backoff"`
	InitialBackoff time.Duration    `yaml:"initial_backoff"`
	MaxBackoff     time.Duration    `yaml:"max_backoff"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JournalConfig configures the run journal. An empty Path disables it.
type JournalConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// NATSConfig configures outcome announcements. An empty URL disables them.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Enabled reports whether the run journal should be opened.
func (j JournalConfig) Enabled() bool { return j.Path != "" }

// Enabled reports whether outcome announcements should be published.
func (n NATSConfig) Enabled() bool { return n.URL != "" }
