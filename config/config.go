// Package config loads engine configuration. Values come from config.Default,
// overlaid by an optional YAML file and then by a few JOBFEED_* environment
// variables for secrets. The result is checked with struct-tag validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds every engine setting.
type Config struct {
	DataDir  string `koanf:"data_dir"`
	InMemory bool   `koanf:"in_memory"`
	Listen   string `koanf:"listen" validate:"required,hostname_port"`

	// Backend selects the similarity backend: badger scans, pgvector indexes.
	Backend  string         `koanf:"backend" validate:"oneof=badger pgvector"`
	Postgres PostgresConfig `koanf:"postgres"`

	// History selects where interaction history lives.
	History string      `koanf:"history" validate:"oneof=badger redis"`
	Redis   RedisConfig `koanf:"redis"`

	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Pagination PaginationConfig `koanf:"pagination"`
	Adaptation AdaptationConfig `koanf:"adaptation"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Logging    LoggingConfig    `koanf:"logging"`
	Tracing    TracingConfig    `koanf:"tracing"`
}

// PostgresConfig configures the pgvector backend.
type PostgresConfig struct {
	URL             string `koanf:"url"`
	Table           string `koanf:"table" validate:"required"`
	MaxConns        int32  `koanf:"max_conns" validate:"gte=0"`
	OverfetchFactor int    `koanf:"overfetch_factor" validate:"gt=0"`
	// Dimensions creates the schema on startup when positive.
	Dimensions int `koanf:"dimensions" validate:"gte=0"`
}

// RedisConfig configures the redis interaction history.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db" validate:"gte=0"`
	KeyPrefix string `koanf:"key_prefix" validate:"required"`
}

// RetrievalConfig bounds candidate retrieval.
type RetrievalConfig struct {
	MaxPool         int           `koanf:"max_pool" validate:"gt=0"`
	Timeout         time.Duration `koanf:"timeout" validate:"gte=0"`
	OverfetchFactor int           `koanf:"overfetch_factor" validate:"gt=0"`
}

// ScoringConfig sets the similarity stand-ins and the scoring pool size.
type ScoringConfig struct {
	MissingSimilarity  float64 `koanf:"missing_similarity" validate:"gte=0,lte=1"`
	BaselineSimilarity float64 `koanf:"baseline_similarity" validate:"gte=0,lte=1"`
	Workers            int     `koanf:"workers" validate:"gte=0"`
}

// PaginationConfig configures page sizes and cursor tokens.
type PaginationConfig struct {
	MaxLimit int           `koanf:"max_limit" validate:"gt=0"`
	EpochTTL time.Duration `koanf:"epoch_ttl" validate:"gte=0"`
	// CursorSecret keys the cursor checksum. Empty means a per-process random key.
	CursorSecret string `koanf:"cursor_secret" validate:"omitempty,min=16"`
}

// AdaptationConfig configures profile vector recomputation.
type AdaptationConfig struct {
	First        int64         `koanf:"first" validate:"gt=0"`
	Every        int64         `koanf:"every" validate:"gt=0"`
	Window       int           `koanf:"window" validate:"gt=0"`
	Alpha        float64       `koanf:"alpha" validate:"gt=0,lte=1"`
	Async        bool          `koanf:"async"`
	PoolSize     int           `koanf:"pool_size" validate:"gt=0"`
	AsyncTimeout time.Duration `koanf:"async_timeout" validate:"gt=0"`
	MaxAttempts  int           `koanf:"max_attempts" validate:"gt=0"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `koanf:"provider" validate:"oneof=mock openai"`
	Host     string `koanf:"host" validate:"omitempty,url"`
	Model    string `koanf:"model"`
	APIToken string `koanf:"api_token"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=console json"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	Insecure     bool    `koanf:"insecure"`
	Environment  string  `koanf:"environment"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"gte=0,lte=1"`
}

// Configuration errors that struct tags cannot express.
var (
	ErrMissingDataDir     = errors.New("data_dir is required unless in_memory is set")
	ErrMissingPostgresURL = errors.New("postgres.url is required for the pgvector backend")
	ErrMissingRedisAddr   = errors.New("redis.addr is required for redis history")
	ErrMissingAPIToken    = errors.New("embedding.api_token is required for the openai provider")
)

// Environment variables read after the file.
const (
	EnvCursorSecret   = "JOBFEED_CURSOR_SECRET"
	EnvPostgresURL    = "JOBFEED_POSTGRES_URL"
	EnvRedisPassword  = "JOBFEED_REDIS_PASSWORD"
	EnvEmbeddingToken = "JOBFEED_EMBEDDING_TOKEN"
)

// Default returns a configuration that runs a local embedded engine.
func Default() *Config {
	return &Config{
		DataDir: "./jobfeed-data",
		Listen:  "127.0.0.1:8080",
		Backend: "badger",
		Postgres: PostgresConfig{
			Table:           "candidates",
			OverfetchFactor: 5,
		},
		History: "badger",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "jobfeed",
		},
		Retrieval: RetrievalConfig{
			MaxPool:         500,
			Timeout:         2 * time.Second,
			OverfetchFactor: 25,
		},
		Scoring: ScoringConfig{
			MissingSimilarity:  0.60,
			BaselineSimilarity: 0.65,
		},
		Pagination: PaginationConfig{
			MaxLimit: 50,
			EpochTTL: 15 * time.Minute,
		},
		Adaptation: AdaptationConfig{
			First:        5,
			Every:        3,
			Window:       10,
			Alpha:        0.3,
			Async:        true,
			PoolSize:     4,
			AsyncTimeout: 30 * time.Second,
			MaxAttempts:  3,
		},
		Embedding: EmbeddingConfig{
			Provider: "mock",
			Host:     "http://localhost:11434/v1",
			Model:    "embeddinggemma",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Tracing: TracingConfig{
			Endpoint:     "localhost:4318",
			Insecure:     true,
			Environment:  "development",
			SamplingRate: 1,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCursorSecret); v != "" {
		c.Pagination.CursorSecret = v
	}
	if v := os.Getenv(EnvPostgresURL); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(EnvEmbeddingToken); v != "" {
		c.Embedding.APIToken = v
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	var errs []error
	if !c.InMemory && c.DataDir == "" {
		errs = append(errs, ErrMissingDataDir)
	}
	if c.Backend == "pgvector" && c.Postgres.URL == "" {
		errs = append(errs, ErrMissingPostgresURL)
	}
	if c.History == "redis" && c.Redis.Addr == "" {
		errs = append(errs, ErrMissingRedisAddr)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIToken == "" && !isLocal(c.Embedding.Host) {
		errs = append(errs, ErrMissingAPIToken)
	}
	return errors.Join(errs...)
}

// isLocal reports whether host points at a local OpenAI-compatible server,
// which typically needs no token.
func isLocal(host string) bool {
	return strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1")
}
