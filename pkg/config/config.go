// Package config loads and validates pipeline configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// stage (Dataset, Tokenizer, Output) and every optional sink (Postgres,
// Kafka, Redis).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/resilience"
	"gopkg.in/yaml.v3"
)

// Sink names accepted in OutputConfig.Sinks.
const (
	SinkFile     = "file"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
	SinkRedis    = "redis"
)

// Config is the top-level pipeline configuration.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Output    OutputConfig    `yaml:"output"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DatasetConfig controls input locations, the train/test split and fact
// retrieval.
type DatasetConfig struct {
	DataDir    string  `yaml:"dataDir"`
	QAFile     string  `yaml:"qaFile"`
	KBFile     string  `yaml:"kbFile"`
	MaxFactNum int     `yaml:"maxFactNum"`
	TrainRatio float64 `yaml:"trainRatio"`
	Seed       uint64  `yaml:"seed"`
	Workers    int     `yaml:"workers"`
}

// QAPath returns the full path of the QA pairs file.
func (d DatasetConfig) QAPath() string {
	return joinPath(d.DataDir, d.QAFile)
}

// KBPath returns the full path of the KB facts file.
func (d DatasetConfig) KBPath() string {
	return joinPath(d.DataDir, d.KBFile)
}

// TokenizerConfig holds the entity pattern and segmenter dictionary.
type TokenizerConfig struct {
	EntityPattern      string `yaml:"entityPattern"`
	DictPath           string `yaml:"dictPath"`
	Normalize          string `yaml:"normalize"`
	RegisterKBEntities bool   `yaml:"registerKBEntities"`
}

// OutputConfig selects where built examples are written.
type OutputConfig struct {
	Dir       string                 `yaml:"dir"`
	Sinks     []string               `yaml:"sinks"`
	ShardSize int                    `yaml:"shardSize"`
	Retry     resilience.RetryConfig `yaml:"retry"`
}

// Enabled reports whether the named sink is selected.
func (o OutputConfig) Enabled(sink string) bool {
	for _, s := range o.Sinks {
		if s == sink {
			return true
		}
	}
	return false
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	BatchSize       int           `yaml:"batchSize"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	BatchSize int      `yaml:"batchSize"`
}

// RedisConfig holds Redis connection parameters and the key namespace.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server and Pushgateway.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Port           int    `yaml:"port"`
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. The result is validated before it is returned.
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Dataset.MaxFactNum < 1 {
		return fmt.Errorf("%w: dataset.maxFactNum must be >= 1, got %d",
			apperrors.ErrInvalidConfig, c.Dataset.MaxFactNum)
	}
	if c.Dataset.TrainRatio <= 0 || c.Dataset.TrainRatio > 1 {
		return fmt.Errorf("%w: dataset.trainRatio must be in (0, 1], got %v",
			apperrors.ErrInvalidConfig, c.Dataset.TrainRatio)
	}
	if c.Tokenizer.EntityPattern != "" {
		if _, err := regexp.Compile(c.Tokenizer.EntityPattern); err != nil {
			return fmt.Errorf("%w: tokenizer.entityPattern: %v", apperrors.ErrInvalidConfig, err)
		}
	}
	switch c.Tokenizer.Normalize {
	case "", "nfkc":
	default:
		return fmt.Errorf("%w: tokenizer.normalize must be \"\" or \"nfkc\", got %q",
			apperrors.ErrInvalidConfig, c.Tokenizer.Normalize)
	}
	for _, s := range c.Output.Sinks {
		switch s {
		case SinkFile, SinkPostgres, SinkKafka, SinkRedis:
		default:
			return fmt.Errorf("%w: unknown sink %q", apperrors.ErrInvalidConfig, s)
		}
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			DataDir:    "data",
			QAFile:     "qa_pairs",
			KBFile:     "kb_facts",
			MaxFactNum: 4,
			TrainRatio: 0.9,
			Workers:    4,
		},
		Output: OutputConfig{
			Dir:       "out",
			Sinks:     []string{SinkFile},
			ShardSize: 10000,
			Retry: resilience.RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     5 * time.Second,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "kbqa",
			User:            "kbqa",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			BatchSize:       500,
		},
		Kafka: KafkaConfig{
			Brokers:   []string{"localhost:9092"},
			Topic:     "kbqa-examples",
			BatchSize: 100,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "kbqa:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Job:     "kbqa-dataprep",
		},
	}
}

// applyEnvOverrides reads KP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KP_DATA_DIR"); v != "" {
		cfg.Dataset.DataDir = v
	}
	if v := os.Getenv("KP_MAX_FACT_NUM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dataset.MaxFactNum = n
		}
	}
	if v := os.Getenv("KP_TRAIN_RATIO"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dataset.TrainRatio = r
		}
	}
	if v := os.Getenv("KP_SEED"); v != "" {
		if s, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Dataset.Seed = s
		}
	}
	if v := os.Getenv("KP_ENTITY_PATTERN"); v != "" {
		cfg.Tokenizer.EntityPattern = v
	}
	if v := os.Getenv("KP_DICT_PATH"); v != "" {
		cfg.Tokenizer.DictPath = v
	}
	if v := os.Getenv("KP_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("KP_OUTPUT_SINKS"); v != "" {
		cfg.Output.Sinks = strings.Split(v, ",")
	}
	if v := os.Getenv("KP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("KP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("KP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("KP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("KP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("KP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KP_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("KP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("KP_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}

func joinPath(dir, file string) string {
	if dir == "" || strings.HasPrefix(file, "/") {
		return file
	}
	return strings.TrimSuffix(dir, "/") + "/" + file
}
