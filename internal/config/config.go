// Package config provides configuration loading for docqa.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. See Load for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete docqa configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Index     IndexConfig     `koanf:"index"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Chat      ChatConfig      `koanf:"chat"`
	Document  DocumentConfig  `koanf:"document"`
	Auth      AuthConfig      `koanf:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// IndexConfig holds remote vector index configuration.
type IndexConfig struct {
	// Name is the index (collection) holding all document vectors.
	Name string `koanf:"name"`

	// Host and Port locate the Qdrant gRPC endpoint (6334, not the REST port).
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
	APIKey Secret `koanf:"api_key"`

	// Dimension must match the embedding model output size.
	Dimension int    `koanf:"dimension"`
	Metric    string `koanf:"metric"`
	Cloud     string `koanf:"cloud"`
	Region    string `koanf:"region"`

	// RequestTimeout bounds every remote index call.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// EnumerationCap bounds the oversized query used to list filenames.
	// Entries beyond the cap are not observable through enumeration.
	EnumerationCap int `koanf:"enumeration_cap"`

	// DeleteBatchSize bounds id lists submitted per delete call.
	DeleteBatchSize int `koanf:"delete_batch_size"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// ChatConfig holds completion model configuration.
type ChatConfig struct {
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	APIKey      Secret  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	TopK        int     `koanf:"top_k"` // retrieved chunks per question
}

// DocumentConfig holds document processing configuration.
type DocumentConfig struct {
	ChunkSize     int   `koanf:"chunk_size"`
	ChunkOverlap  int   `koanf:"chunk_overlap"`
	MaxFileSizeMB int64 `koanf:"max_file_size_mb"`
}

// AuthConfig holds user store and session configuration.
type AuthConfig struct {
	DatabasePath   string        `koanf:"database_path"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminPassword seeds the bootstrap admin account on first start.
	AdminPassword Secret `koanf:"admin_password"`
}

// Default returns the configuration defaults.
//
// The index defaults mirror the managed-store deployment this service was
// built against: 1536-dimensional cosine vectors in aws/us-east-1.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Index: IndexConfig{
			Name:            "docqa",
			Host:            "localhost",
			Port:            6334,
			Dimension:       1536,
			Metric:          "cosine",
			Cloud:           "aws",
			Region:          "us-east-1",
			RequestTimeout:  30 * time.Second,
			EnumerationCap:  10000,
			DeleteBatchSize: 1000,
		},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-ada-002",
		},
		Chat: ChatConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			Temperature: 0,
			TopK:        4,
		},
		Document: DocumentConfig{
			ChunkSize:     1000,
			ChunkOverlap:  200,
			MaxFileSizeMB: 200,
		},
		Auth: AuthConfig{
			DatabasePath:   "users.db",
			SessionTimeout: 10 * time.Minute,
			AdminPassword:  "admin123",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or console)", c.Logging.Format)
	}

	if c.Index.Name == "" {
		return errors.New("index name is required")
	}
	if c.Index.Port < 1 || c.Index.Port > 65535 {
		return fmt.Errorf("invalid index port: %d (must be 1-65535)", c.Index.Port)
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("invalid index dimension: %d (must be > 0)", c.Index.Dimension)
	}
	switch c.Index.Metric {
	case "cosine", "dot", "euclidean":
	default:
		return fmt.Errorf("invalid index metric: %q (must be cosine, dot, or euclidean)", c.Index.Metric)
	}
	if c.Index.RequestTimeout <= 0 {
		return errors.New("index request timeout must be positive")
	}
	if c.Index.EnumerationCap <= 0 {
		return fmt.Errorf("invalid enumeration cap: %d (must be > 0)", c.Index.EnumerationCap)
	}
	if c.Index.DeleteBatchSize <= 0 {
		return fmt.Errorf("invalid delete batch size: %d (must be > 0)", c.Index.DeleteBatchSize)
	}

	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Chat.Model == "" {
		return errors.New("chat model is required")
	}

	if c.Document.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d (must be > 0)", c.Document.ChunkSize)
	}
	if c.Document.ChunkOverlap < 0 || c.Document.ChunkOverlap >= c.Document.ChunkSize {
		return fmt.Errorf("invalid chunk overlap: %d (must be >= 0 and < chunk size)", c.Document.ChunkOverlap)
	}
	if c.Document.MaxFileSizeMB <= 0 {
		return fmt.Errorf("invalid max file size: %d MB (must be > 0)", c.Document.MaxFileSizeMB)
	}

	if c.Auth.DatabasePath == "" {
		return errors.New("auth database path is required")
	}
	if c.Auth.SessionTimeout <= 0 {
		return errors.New("session timeout must be positive")
	}

	return nil
}
