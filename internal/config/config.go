package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProviderConfig struct {
	// Default provider used when a request names none: "local" or "openai".
	Default      string `yaml:"default"`
	OpenAIKey    string `yaml:"openai_key"`
	OpenAIBase   string `yaml:"openai_base"`
	OpenAIModel  string `yaml:"openai_model"`
	RateLimit    int    `yaml:"rate_limit"`     // chunk starts per window
	RateWindowMs int    `yaml:"rate_window_ms"` // fixed window size
}

type PipelineConfig struct {
	DefaultBatchSize int           `yaml:"default_batch_size"` // dispatcher default
	MaxBatchSize     int           `yaml:"max_batch_size"`
	ChunkSize        int           `yaml:"chunk_size"` // sentiment sub-batch default
	MaxChunkSize     int           `yaml:"max_chunk_size"`
	MaxSentimentIDs  int           `yaml:"max_sentiment_ids"` // cap on one trigger
	ChunkPause       time.Duration `yaml:"chunk_pause"`       // pacing between sub-batches
	WriteBatchSize   int           `yaml:"write_batch_size"`  // sentiment writer-side batches
	PollInterval     time.Duration `yaml:"poll_interval"`     // background dispatch loop, 0 = off
	TaskTickInterval time.Duration `yaml:"task_tick_interval"`
	LockTTL          time.Duration `yaml:"lock_ttl"` // dispatch mutual-exclusion lock
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Pipeline PipelineConfig `yaml:"pipeline"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlaying a .env file for local
// development if one exists. Missing optional sections fall back to defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// env overrides for secrets
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Provider.OpenAIKey = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.API.APIKey = v
	}

	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Provider.Default == "" {
		cfg.Provider.Default = "local"
	}
	if cfg.Provider.OpenAIModel == "" {
		cfg.Provider.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Provider.RateLimit <= 0 {
		cfg.Provider.RateLimit = 30
	}
	if cfg.Provider.RateWindowMs <= 0 {
		cfg.Provider.RateWindowMs = 60_000
	}

	p := &cfg.Pipeline
	if p.DefaultBatchSize <= 0 {
		p.DefaultBatchSize = 10
	}
	if p.MaxBatchSize <= 0 {
		p.MaxBatchSize = 100
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = 50
	}
	if p.MaxChunkSize <= 0 {
		p.MaxChunkSize = 100
	}
	if p.MaxSentimentIDs <= 0 {
		p.MaxSentimentIDs = 1000
	}
	if p.ChunkPause <= 0 {
		p.ChunkPause = time.Second
	}
	if p.WriteBatchSize <= 0 {
		p.WriteBatchSize = 100
	}
	if p.TaskTickInterval <= 0 {
		p.TaskTickInterval = time.Minute
	}
	if p.LockTTL <= 0 {
		p.LockTTL = 2 * time.Minute
	}
}
