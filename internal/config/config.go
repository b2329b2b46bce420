package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. STEPWISE_STORE_BACKEND.
const EnvPrefix = "STEPWISE"

// Config is the CLI configuration.
type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Submit SubmitConfig `mapstructure:"submit"`
}

// StoreConfig selects and configures the snapshot backend.
type StoreConfig struct {
	// Backend is one of memory, file, redis, sqlite.
	Backend string `mapstructure:"backend"`
	// Path is the directory for file and the database file for sqlite.
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
	// EncryptionKey is a hex encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
	// PreviousKeys decrypt snapshots written before a key rotation.
	PreviousKeys []string `mapstructure:"previous_keys"`
	// Redact lists regular expressions of field names masked before saving.
	Redact []string `mapstructure:"redact"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `stepwise serve`.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SubmitConfig configures the REST submitter. An empty endpoint accepts
// payloads locally.
type SubmitConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Token    string        `mapstructure:"token"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "file",
			Path:    ".stepwise/sessions",
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "stepwise:session:",
				TTL:     24 * time.Hour,
				LockTTL: 30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Submit: SubmitConfig{
			Timeout: 15 * time.Second,
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.redis.addr", d.Store.Redis.Addr)
	v.SetDefault("store.redis.password", d.Store.Redis.Password)
	v.SetDefault("store.redis.db", d.Store.Redis.DB)
	v.SetDefault("store.redis.prefix", d.Store.Redis.Prefix)
	v.SetDefault("store.redis.ttl", d.Store.Redis.TTL)
	v.SetDefault("store.redis.lock_ttl", d.Store.Redis.LockTTL)
	v.SetDefault("store.encryption_key", d.Store.EncryptionKey)
	v.SetDefault("store.previous_keys", d.Store.PreviousKeys)
	v.SetDefault("store.redact", d.Store.Redact)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("submit.endpoint", d.Submit.Endpoint)
	v.SetDefault("submit.timeout", d.Submit.Timeout)
	v.SetDefault("submit.token", d.Submit.Token)
}

// New returns a viper instance with defaults, env overrides and the config
// file search path set up. An explicit file overrides the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("stepwise")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/stepwise")
	}
	return v
}

// Load reads the config file, if any, and unmarshals v. A missing file in
// the search path is not an error; a missing explicit file is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (c *StoreConfig) Key() ([]byte, error) {
	return decodeKey(c.EncryptionKey)
}

// FallbackKeys decodes the previous keys.
func (c *StoreConfig) FallbackKeys() ([][]byte, error) {
	keys := make([][]byte, 0, len(c.PreviousKeys))
	for _, k := range c.PreviousKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
