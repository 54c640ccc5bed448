package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors AppConfig for YAML config files. Zero-valued fields are
// treated as unset and leave the underlying configuration untouched.
type FileConfig struct {
	Host         string             `yaml:"host"`
	Port         int                `yaml:"port"`
	DataDir      string             `yaml:"data_dir"`
	DBURL        string             `yaml:"db_url"`
	LogLevel     string             `yaml:"log_level"`
	LogFormat    string             `yaml:"log_format"`
	CORSOrigins  []string           `yaml:"cors_origins"`
	Embedding    FileEndpoint       `yaml:"embedding"`
	Chat         FileEndpoint       `yaml:"chat"`
	Identity     FileIdentityConfig `yaml:"identity"`
	TopK         int                `yaml:"top_k"`
	ChunkSize    int                `yaml:"chunk_size"`
	ChunkOverlap int                `yaml:"chunk_overlap"`
}

// FileEndpoint mirrors Endpoint for YAML config files.
type FileEndpoint struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Timeout     float64 `yaml:"timeout"`
	BatchSize   int     `yaml:"batch_size"`
	BatchDelay  float64 `yaml:"batch_delay"`
	MaxAttempts int     `yaml:"max_attempts"`
}

// FileIdentityConfig mirrors IdentityConfig for YAML config files.
type FileIdentityConfig struct {
	URL        string  `yaml:"url"`
	AnonKey    string  `yaml:"anon_key"`
	ServiceKey string  `yaml:"service_key"`
	Timeout    float64 `yaml:"timeout"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyTo overlays the file's set fields onto the given AppConfig.
func (f FileConfig) ApplyTo(cfg AppConfig) AppConfig {
	var opts []AppConfigOption

	if f.Host != "" {
		opts = append(opts, WithHost(f.Host))
	}
	if f.Port != 0 {
		opts = append(opts, WithPort(f.Port))
	}
	if f.DataDir != "" {
		opts = append(opts, WithDataDir(f.DataDir))
	}
	if f.DBURL != "" {
		opts = append(opts, WithDBURL(f.DBURL))
	}
	if f.LogLevel != "" {
		opts = append(opts, WithLogLevel(f.LogLevel))
	}
	if f.LogFormat != "" {
		opts = append(opts, WithLogFormat(parseLogFormat(f.LogFormat)))
	}
	if len(f.CORSOrigins) > 0 {
		opts = append(opts, WithCORSOrigins(f.CORSOrigins))
	}
	if f.TopK != 0 {
		opts = append(opts, WithTopK(f.TopK))
	}
	if f.ChunkSize != 0 {
		opts = append(opts, WithChunkSize(f.ChunkSize))
	}
	if f.ChunkOverlap != 0 {
		opts = append(opts, WithChunkOverlap(f.ChunkOverlap))
	}

	cfg = cfg.Apply(opts...)
	cfg = cfg.Apply(WithEmbeddingEndpoint(f.Embedding.applyTo(cfg.Embedding())))
	cfg = cfg.Apply(WithChatEndpoint(f.Chat.applyTo(cfg.Chat())))
	cfg = cfg.Apply(WithIdentityConfig(f.Identity.applyTo(cfg.Identity())))

	return cfg
}

func (f FileEndpoint) applyTo(e Endpoint) Endpoint {
	var opts []EndpointOption

	if f.BaseURL != "" {
		opts = append(opts, WithBaseURL(f.BaseURL))
	}
	if f.Model != "" {
		opts = append(opts, WithModel(f.Model))
	}
	if f.APIKey != "" {
		opts = append(opts, WithAPIKey(f.APIKey))
	}
	if f.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(f.Timeout*float64(time.Second))))
	}
	if f.BatchSize > 0 {
		opts = append(opts, WithBatchSize(f.BatchSize))
	}
	if f.BatchDelay > 0 {
		opts = append(opts, WithBatchDelay(time.Duration(f.BatchDelay*float64(time.Second))))
	}
	if f.MaxAttempts > 0 {
		opts = append(opts, WithMaxAttempts(f.MaxAttempts))
	}

	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (f FileIdentityConfig) applyTo(i IdentityConfig) IdentityConfig {
	var opts []IdentityOption

	if f.URL != "" {
		opts = append(opts, WithIdentityURL(f.URL))
	}
	if f.AnonKey != "" {
		opts = append(opts, WithAnonKey(f.AnonKey))
	}
	if f.ServiceKey != "" {
		opts = append(opts, WithServiceKey(f.ServiceKey))
	}
	if f.Timeout > 0 {
		opts = append(opts, WithIdentityTimeout(time.Duration(f.Timeout*float64(time.Second))))
	}

	for _, opt := range opts {
		opt(&i)
	}
	return i
}
