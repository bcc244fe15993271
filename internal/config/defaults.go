package config

import "time"

const (
	DefaultPort           = "8000"
	DefaultGitHubAPIURL   = "https://api.github.com"
	DefaultLLMBaseURL     = "https://api.openai.com/v1"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLLMTimeout     = 30 * time.Second
	DefaultLLMMaxTokens   = 4000
	DefaultLLMTemperature = 0.7
	DefaultCommitMessage  = "Initial commit: generated app"
	DefaultNATSSubject    = "pagesmith.runs"
)

// Defaults returns the configuration used when nothing overrides a field.
func Defaults() Config {
	return Config{
		Port:            DefaultPort,
		ShutdownTimeout: 15 * time.Second,
		GitHub: GitHubConfig{
			APIURL:  DefaultGitHubAPIURL,
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     DefaultLLMBaseURL,
			Model:       DefaultLLMModel,
			Temperature: DefaultLLMTemperature,
			MaxTokens:   DefaultLLMMaxTokens,
			Timeout:     DefaultLLMTimeout,
		},
		Provision: ProvisionConfig{
			MaxNameAttempts:   5,
			License:           "mit",
			PostCreateDelay:   2 * time.Second,
			ReadyPollInterval: time.Second,
			ReadyTimeout:      10 * time.Second,
		},
		Publish: PublishConfig{
			CommitMessage:   DefaultCommitMessage,
			BlobConcurrency: 4,
		},
		Pages: PagesConfig{
			PostEnableDelay: 30 * time.Second,
			PollInterval:    3 * time.Second,
			BuildTimeout:    30 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout:        10 * time.Second,
			MaxAttempts:    5,
			Backoff:        RetryBackoffExponential,
			InitialBackoff: time.Second,
			MaxBackoff:     16 * time.Second,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Metrics: MetricsConfig{Enabled: true},
		Journal: JournalConfig{Retention: 7 * 24 * time.Hour},
		NATS:    NATSConfig{Subject: DefaultNATSSubject},
	}
}
