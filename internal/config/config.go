// Package config loads the service configuration from a file, CHATFLOW_*
// environment variables and command flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CHATFLOW_SERVER_ADDR.
const EnvPrefix = "CHATFLOW"

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Flows     FlowsConfig     `mapstructure:"flows"`
	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// RateLimit is the sustained messages per second accepted per conversation.
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	MaxInputSize    int           `mapstructure:"max_input_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type FlowsConfig struct {
	Dir      string        `mapstructure:"dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	BadgerDir     string        `mapstructure:"badger_dir"`
	// DistributedLock serializes conversations across replicas (redis only).
	DistributedLock bool `mapstructure:"distributed_lock"`
	// EncryptionKey is a base64 AES-256 key sealing collected variables at rest.
	EncryptionKey          string   `mapstructure:"encryption_key"`
	EncryptionFallbackKeys []string `mapstructure:"encryption_fallback_keys"`
}

type AnalyticsConfig struct {
	// PostgresDSN enables the PostgreSQL sink. Empty keeps counters in memory.
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// RedactPatterns mask matching variable names in completion records.
	RedactPatterns []string `mapstructure:"redact_patterns"`
}

type CatalogConfig struct {
	// File is a YAML or JSON item list served to search_items. Empty means no catalog.
	File string `mapstructure:"file"`
}

type EngineConfig struct {
	MaxNodeVisits       int      `mapstructure:"max_node_visits"`
	MinIntentConfidence float64  `mapstructure:"min_intent_confidence"`
	SubstantiveIntents  []string `mapstructure:"substantive_intents"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// Defaults returns the values used for every unset key.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       5,
			RateBurst:       10,
			MaxInputSize:    4096,
			ShutdownTimeout: 5 * time.Second,
		},
		Flows: FlowsConfig{
			Dir:      "flows",
			CacheTTL: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver:    StoreMemory,
			RedisAddr: "localhost:6379",
			Prefix:    "chatflow:conversation:",
			BadgerDir: "data",
		},
		Engine: EngineConfig{
			MaxNodeVisits:       50,
			MinIntentConfidence: 0.5,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// keys lists every setting so environment variables are honored even when the
// key is absent from the config file.
var keys = []string{
	"server.addr", "server.rate_limit", "server.rate_burst", "server.max_input_size", "server.shutdown_timeout",
	"flows.dir", "flows.cache_ttl",
	"store.driver", "store.redis_addr", "store.redis_password", "store.redis_db", "store.prefix", "store.ttl",
	"store.badger_dir", "store.distributed_lock", "store.encryption_key", "store.encryption_fallback_keys",
	"analytics.postgres_dsn", "analytics.redact_patterns",
	"catalog.file",
	"engine.max_node_visits", "engine.min_intent_confidence", "engine.substantive_intents",
	"log.level", "log.format",
}

// Load reads the configuration through v. file may be empty.
func Load(v *viper.Viper, file string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreRedis, StoreBadger:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.DistributedLock && c.Store.Driver != StoreRedis {
		return errors.New("distributed_lock requires the redis store")
	}
	if c.Engine.MinIntentConfidence < 0 || c.Engine.MinIntentConfidence > 1 {
		return fmt.Errorf("min_intent_confidence must be within [0,1], got %v", c.Engine.MinIntentConfidence)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// LogLevel parses Log.Level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
