// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultLogLevel        = "INFO"
	DefaultTopK            = 3
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultBatchSize       = 5
	DefaultBatchDelay      = 1 * time.Second
	DefaultMaxAttempts     = 3
	DefaultEndpointTimeout = 60 * time.Second
	DefaultEmbeddingModel  = "mistral-embed"
	DefaultChatModel       = "mistral-small-2506"
)

// DefaultCORSOrigins are the browser origins allowed by default, matching the
// local Vite/CRA dev servers the frontend runs on.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://localhost:5174",
}

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures an AI service endpoint.
type Endpoint struct {
	baseURL     string
	model       string
	apiKey      string
	timeout     time.Duration
	batchSize   int
	batchDelay  time.Duration
	maxAttempts int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:     DefaultEndpointTimeout,
		batchSize:   DefaultBatchSize,
		batchDelay:  DefaultBatchDelay,
		maxAttempts: DefaultMaxAttempts,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// BatchSize returns the number of texts per embedding call.
func (e Endpoint) BatchSize() int { return e.batchSize }

// BatchDelay returns the wait between embedding batches.
func (e Endpoint) BatchDelay() time.Duration { return e.batchDelay }

// MaxAttempts returns the per-batch attempt budget.
func (e Endpoint) MaxAttempts() int { return e.maxAttempts }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.apiKey != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithBatchSize sets the number of texts per embedding call.
func WithBatchSize(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithBatchDelay sets the wait between embedding batches.
func WithBatchDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.batchDelay = d }
}

// WithMaxAttempts sets the per-batch attempt budget.
func WithMaxAttempts(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// IdentityConfig configures the external identity provider that the auth
// layer delegates to.
type IdentityConfig struct {
	url        string
	anonKey    string
	serviceKey string
	timeout    time.Duration
}

// NewIdentityConfig creates a new IdentityConfig with defaults.
func NewIdentityConfig() IdentityConfig {
	return IdentityConfig{timeout: 30 * time.Second}
}

// URL returns the identity provider base URL.
func (i IdentityConfig) URL() string { return i.url }

// AnonKey returns the public (anon) API key.
func (i IdentityConfig) AnonKey() string { return i.anonKey }

// ServiceKey returns the privileged service-role key, if any.
func (i IdentityConfig) ServiceKey() string { return i.serviceKey }

// Timeout returns the request timeout.
func (i IdentityConfig) Timeout() time.Duration { return i.timeout }

// IsConfigured returns true when both the URL and anon key are set.
func (i IdentityConfig) IsConfigured() bool {
	return i.url != "" && i.anonKey != ""
}

// IdentityOption is a functional option for IdentityConfig.
type IdentityOption func(*IdentityConfig)

// WithIdentityURL sets the identity provider base URL.
func WithIdentityURL(url string) IdentityOption {
	return func(i *IdentityConfig) { i.url = url }
}

// WithAnonKey sets the public API key.
func WithAnonKey(key string) IdentityOption {
	return func(i *IdentityConfig) { i.anonKey = key }
}

// WithServiceKey sets the privileged service-role key.
func WithServiceKey(key string) IdentityOption {
	return func(i *IdentityConfig) { i.serviceKey = key }
}

// WithIdentityTimeout sets the request timeout.
func WithIdentityTimeout(d time.Duration) IdentityOption {
	return func(i *IdentityConfig) { i.timeout = d }
}

// NewIdentityConfigWithOptions creates an IdentityConfig with options.
func NewIdentityConfigWithOptions(opts ...IdentityOption) IdentityConfig {
	i := NewIdentityConfig()
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host         string
	port         int
	dataDir      string
	dbURL        string
	logLevel     string
	logFormat    LogFormat
	corsOrigins  []string
	embedding    Endpoint
	chat         Endpoint
	identity     IdentityConfig
	topK         int
	chunkSize    int
	chunkOverlap int
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ragserve"
	}
	return filepath.Join(home, ".ragserve")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:         DefaultHost,
		port:         DefaultPort,
		dataDir:      dataDir,
		dbURL:        "sqlite:///" + filepath.Join(dataDir, "ragserve.db"),
		logLevel:     DefaultLogLevel,
		logFormat:    LogFormatPretty,
		corsOrigins:  append([]string(nil), DefaultCORSOrigins...),
		embedding:    NewEndpointWithOptions(WithModel(DefaultEmbeddingModel)),
		chat:         NewEndpointWithOptions(WithModel(DefaultChatModel)),
		identity:     NewIdentityConfig(),
		topK:         DefaultTopK,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// CORSOrigins returns the allowed browser origins.
func (c AppConfig) CORSOrigins() []string {
	origins := make([]string, len(c.corsOrigins))
	copy(origins, c.corsOrigins)
	return origins
}

// Embedding returns the embedding endpoint config.
func (c AppConfig) Embedding() Endpoint { return c.embedding }

// Chat returns the chat endpoint config.
func (c AppConfig) Chat() Endpoint { return c.chat }

// Identity returns the identity provider config.
func (c AppConfig) Identity() IdentityConfig { return c.identity }

// TopK returns the number of context chunks retrieved per question.
func (c AppConfig) TopK() int { return c.topK }

// ChunkSize returns the chunk size in runes for ingestion.
func (c AppConfig) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the chunk overlap in runes for ingestion.
func (c AppConfig) ChunkOverlap() int { return c.chunkOverlap }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.Contains(c.dbURL, "ragserve.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "ragserve.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		c.corsOrigins = make([]string, len(origins))
		copy(c.corsOrigins, origins)
	}
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithChatEndpoint sets the chat endpoint.
func WithChatEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.chat = e }
}

// WithIdentityConfig sets the identity provider config.
func WithIdentityConfig(i IdentityConfig) AppConfigOption {
	return func(c *AppConfig) { c.identity = i }
}

// WithTopK sets the retrieval result count.
func WithTopK(k int) AppConfigOption {
	return func(c *AppConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithChunkSize sets the ingestion chunk size.
func WithChunkSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithChunkOverlap sets the ingestion chunk overlap.
func WithChunkOverlap(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n >= 0 {
			c.chunkOverlap = n
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are never included.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_model", c.embedding.Model()),
		slog.String("chat_model", c.chat.Model()),
		slog.Int("top_k", c.topK),
		slog.Int("chunk_size", c.chunkSize),
		slog.Int("chunk_overlap", c.chunkOverlap),
		slog.Bool("identity_configured", c.identity.IsConfigured()),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseOrigins parses a comma-separated string of CORS origins.
func ParseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
