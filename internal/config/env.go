// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g. EMBEDDING_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.ragserve
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/ragserve.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// CORSOrigins is a comma-separated list of allowed browser origins.
	// Env: CORS_ORIGINS
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// Embedding configures the embedding AI service.
	Embedding EndpointEnv `envconfig:"EMBEDDING"`

	// Chat configures the chat completion AI service.
	Chat EndpointEnv `envconfig:"CHAT"`

	// Identity configures the external identity provider.
	Identity IdentityEnv `envconfig:"IDENTITY"`

	// TopK is the number of context chunks retrieved per question.
	// Env: TOP_K (default: 3)
	TopK int `envconfig:"TOP_K" default:"3"`

	// ChunkSize is the ingestion chunk size in runes.
	// Env: CHUNK_SIZE (default: 1000)
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"1000"`

	// ChunkOverlap is the ingestion chunk overlap in runes.
	// Env: CHUNK_OVERLAP (default: 200)
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
}

// EndpointEnv holds environment configuration for an AI endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// BatchSize is the number of texts per embedding call.
	// Env: *_BATCH_SIZE (default: 5)
	BatchSize int `envconfig:"BATCH_SIZE" default:"5"`

	// BatchDelay is the wait between embedding batches in seconds.
	// Env: *_BATCH_DELAY (default: 1.0)
	BatchDelay float64 `envconfig:"BATCH_DELAY" default:"1.0"`

	// MaxAttempts is the per-batch attempt budget.
	// Env: *_MAX_ATTEMPTS (default: 3)
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"3"`
}

// IsConfigured returns true if the endpoint has an API key.
func (e EndpointEnv) IsConfigured() bool {
	return e.APIKey != ""
}

// ToEndpoint converts EndpointEnv to an Endpoint, applying the given default
// model when none is set in the environment.
func (e EndpointEnv) ToEndpoint(defaultModel string) Endpoint {
	model := e.Model
	if model == "" {
		model = defaultModel
	}

	opts := []EndpointOption{
		WithBaseURL(e.BaseURL),
		WithModel(model),
		WithAPIKey(e.APIKey),
		WithBatchSize(e.BatchSize),
		WithMaxAttempts(e.MaxAttempts),
	}
	if e.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(e.Timeout*float64(time.Second))))
	}
	if e.BatchDelay > 0 {
		opts = append(opts, WithBatchDelay(time.Duration(e.BatchDelay*float64(time.Second))))
	}

	return NewEndpointWithOptions(opts...)
}

// IdentityEnv holds environment configuration for the identity provider.
type IdentityEnv struct {
	// URL is the identity provider base URL.
	// Env: IDENTITY_URL
	URL string `envconfig:"URL"`

	// AnonKey is the public API key.
	// Env: IDENTITY_ANON_KEY
	AnonKey string `envconfig:"ANON_KEY"`

	// ServiceKey is the privileged service-role key.
	// Env: IDENTITY_SERVICE_KEY
	ServiceKey string `envconfig:"SERVICE_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: IDENTITY_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`
}

// IsConfigured returns true when both URL and anon key are set.
func (i IdentityEnv) IsConfigured() bool {
	return i.URL != "" && i.AnonKey != ""
}

// ToIdentityConfig converts IdentityEnv to an IdentityConfig.
func (i IdentityEnv) ToIdentityConfig() IdentityConfig {
	opts := []IdentityOption{
		WithIdentityURL(i.URL),
		WithAnonKey(i.AnonKey),
		WithServiceKey(i.ServiceKey),
	}
	if i.Timeout > 0 {
		opts = append(opts, WithIdentityTimeout(time.Duration(i.Timeout*float64(time.Second))))
	}
	return NewIdentityConfigWithOptions(opts...)
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "RAGSERVE" would require RAGSERVE_DB_URL instead of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.CORSOrigins != "" {
		cfg = cfg.Apply(WithCORSOrigins(ParseOrigins(e.CORSOrigins)))
	}

	cfg = cfg.Apply(
		WithEmbeddingEndpoint(e.Embedding.ToEndpoint(DefaultEmbeddingModel)),
		WithChatEndpoint(e.Chat.ToEndpoint(DefaultChatModel)),
		WithTopK(e.TopK),
		WithChunkSize(e.ChunkSize),
		WithChunkOverlap(e.ChunkOverlap),
	)

	if e.Identity.IsConfigured() {
		cfg = cfg.Apply(WithIdentityConfig(e.Identity.ToIdentityConfig()))
	}

	return cfg
}

func parseLogFormat(s string) LogFormat {
	if strings.EqualFold(s, string(LogFormatJSON)) {
		return LogFormatJSON
	}
	return LogFormatPretty
}
