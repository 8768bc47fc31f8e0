// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Corpus, Indexer, Tokenizer, Merge, Kafka, Postgres, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Merge     MergeConfig     `yaml:"merge"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Publish   PublishConfig   `yaml:"publish"`
}

// CorpusConfig describes the delimited source file.
type CorpusConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	HasHeader bool   `yaml:"hasHeader"`
	IDField   int    `yaml:"idField"`
	TextField int    `yaml:"textField"`
	MinFields int    `yaml:"minFields"`
}

// IndexerConfig controls chunking, parallelism and artifact locations.
type IndexerConfig struct {
	ChunkSize         int    `yaml:"chunkSize"`
	Parallelism       int    `yaml:"parallelism"`
	IntermediateDir   string `yaml:"intermediateDir"`
	FinalPath         string `yaml:"finalPath"`
	CleanIntermediate bool   `yaml:"cleanIntermediate"`
	KeepIntermediate  bool   `yaml:"keepIntermediate"`
}

// Workers returns the effective parallelism degree.
func (c IndexerConfig) Workers() int {
	if c.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return c.Parallelism
}

// TokenizerConfig controls term normalisation and the exclusion set.
type TokenizerConfig struct {
	Mode          string   `yaml:"mode"`
	Stem          bool     `yaml:"stem"`
	MinTermLength int      `yaml:"minTermLength"`
	Exclusions    []string `yaml:"exclusions"`
}

// MergeConfig controls the merge phase.
type MergeConfig struct {
	Readers     int    `yaml:"readers"`
	LockShards  int    `yaml:"lockShards"`
	OnMalformed string `yaml:"onMalformed"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// KafkaConfig holds Kafka broker and topic settings for build notifications.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// PostgresConfig holds PostgreSQL connection parameters for the postgres sink.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters for the redis sink.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// PublishConfig selects and tunes the sink the final index is published to.
type PublishConfig struct {
	Sink      string      `yaml:"sink"`
	BatchSize int         `yaml:"batchSize"`
	Retry     RetryConfig `yaml:"retry"`
}

// RetryConfig controls how resilience.Retry retries a sink write.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialDelay   time.Duration `yaml:"initialDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Delimiter: "\t",
			HasHeader: true,
			IDField:   0,
			TextField: 2,
			MinFields: 3,
		},
		Indexer: IndexerConfig{
			ChunkSize:         100000,
			IntermediateDir:   "data/intermediate",
			FinalPath:         "data/final.jsonl",
			CleanIntermediate: true,
			KeepIntermediate:  true,
		},
		Tokenizer: TokenizerConfig{
			Mode:          "whitespace",
			MinTermLength: 1,
			Exclusions:    []string{"builtin:english", "builtin:punctuation"},
		},
		Merge: MergeConfig{
			LockShards:  64,
			OnMalformed: "abort",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "invindex-publisher",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "invindex",
			User:            "invindex",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "postings",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "postings:",
		},
		Publish: PublishConfig{
			BatchSize: 500,
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialDelay:   200 * time.Millisecond,
				MaxDelay:       5 * time.Second,
				AttemptTimeout: 30 * time.Second,
			},
		},
	}
}

// Validate checks the options the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Indexer.ChunkSize <= 0 {
		return fmt.Errorf("%w: indexer.chunkSize must be positive, got %d", apperrors.ErrInvalidConfig, c.Indexer.ChunkSize)
	}
	if c.Indexer.Parallelism < 0 {
		return fmt.Errorf("%w: indexer.parallelism must not be negative, got %d", apperrors.ErrInvalidConfig, c.Indexer.Parallelism)
	}
	if c.Indexer.IntermediateDir == "" {
		return fmt.Errorf("%w: indexer.intermediateDir is required", apperrors.ErrInvalidConfig)
	}
	if c.Indexer.FinalPath == "" {
		return fmt.Errorf("%w: indexer.finalPath is required", apperrors.ErrInvalidConfig)
	}
	if c.Corpus.Delimiter == "" {
		return fmt.Errorf("%w: corpus.delimiter is required", apperrors.ErrInvalidConfig)
	}
	if c.Corpus.IDField < 0 || c.Corpus.TextField < 0 {
		return fmt.Errorf("%w: corpus field indexes must not be negative", apperrors.ErrInvalidConfig)
	}
	if c.Merge.Readers < 0 {
		return fmt.Errorf("%w: merge.readers must not be negative, got %d", apperrors.ErrInvalidConfig, c.Merge.Readers)
	}
	if c.Merge.LockShards <= 0 {
		return fmt.Errorf("%w: merge.lockShards must be positive, got %d", apperrors.ErrInvalidConfig, c.Merge.LockShards)
	}
	switch c.Merge.OnMalformed {
	case "abort", "skip":
	default:
		return fmt.Errorf("%w: merge.onMalformed must be abort or skip, got %q", apperrors.ErrInvalidConfig, c.Merge.OnMalformed)
	}
	switch c.Tokenizer.Mode {
	case "words", "whitespace", "unicode":
	default:
		return fmt.Errorf("%w: tokenizer.mode must be words, whitespace or unicode, got %q", apperrors.ErrInvalidConfig, c.Tokenizer.Mode)
	}
	switch c.Publish.Sink {
	case "", "postgres", "redis":
	default:
		return fmt.Errorf("%w: publish.sink must be postgres or redis, got %q", apperrors.ErrInvalidConfig, c.Publish.Sink)
	}
	return nil
}

// applyEnvOverrides reads INVINDEX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INVINDEX_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("INVINDEX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.ChunkSize = n
		}
	}
	if v := os.Getenv("INVINDEX_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Parallelism = n
		}
	}
	if v := os.Getenv("INVINDEX_INTERMEDIATE_DIR"); v != "" {
		cfg.Indexer.IntermediateDir = v
	}
	if v := os.Getenv("INVINDEX_FINAL_PATH"); v != "" {
		cfg.Indexer.FinalPath = v
	}
	if v := os.Getenv("INVINDEX_EXCLUSIONS"); v != "" {
		cfg.Tokenizer.Exclusions = strings.Split(v, ",")
	}
	if v := os.Getenv("INVINDEX_MERGE_ON_MALFORMED"); v != "" {
		cfg.Merge.OnMalformed = v
	}
	if v := os.Getenv("INVINDEX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("INVINDEX_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("INVINDEX_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("INVINDEX_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("INVINDEX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("INVINDEX_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("INVINDEX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INVINDEX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
