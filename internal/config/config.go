// Package config provides configuration management for the tiewatch daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the tiewatch daemon configuration.
type Config struct {
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	Postgres   PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch" yaml:"opensearch"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// NATSConfig holds fabric connection settings.
type NATSConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Name          string        `mapstructure:"name" yaml:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
	Username      string        `mapstructure:"username" yaml:"username"`
	Password      string        `mapstructure:"password" yaml:"password"`
	Token         string        `mapstructure:"token" yaml:"token"`
}

// RedisConfig holds latest-reputation cache settings.
type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	URL     string        `mapstructure:"url" yaml:"url"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// PostgresConfig holds change history store settings.
type PostgresConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Host          string `mapstructure:"host" yaml:"host"`
	Port          int    `mapstructure:"port" yaml:"port"`
	Database      string `mapstructure:"database" yaml:"database"`
	User          string `mapstructure:"user" yaml:"user"`
	Password      string `mapstructure:"password" yaml:"password"`
	SSLMode       string `mapstructure:"sslmode" yaml:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir" yaml:"migrations_dir"`
}

// ConnString builds a pgx-compatible connection string.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// OpenSearchConfig holds change index settings.
type OpenSearchConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	URL           string `mapstructure:"url" yaml:"url"`
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify" yaml:"tls_skip_verify"`
	IndexPrefix   string `mapstructure:"index_prefix" yaml:"index_prefix"`
}

// MetricsConfig holds the metrics/health HTTP listener settings.
type MetricsConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration from the given file (optional), environment
// variables, and defaults, in ascending precedence of defaults < file < env.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tiewatch")
	}

	v.SetEnvPrefix("TIEWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file on the default search path is fine; an explicit
		// file that cannot be read, or a malformed file, is not.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in defaults without consulting files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid built-in defaults: %v", err))
	}
	return &cfg
}

// WriteDefault writes the default configuration as YAML to path, creating
// parent directories as needed. Existing files are not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "tiewatch")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.database", "tiewatch")
	v.SetDefault("postgres.user", "tiewatch")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.migrations_dir", "migrations")

	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index_prefix", "tie-repchange")

	v.SetDefault("metrics.port", 9477)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
