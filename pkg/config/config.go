// Package config loads the client, cache and logging settings shared by the
// upcoming binaries.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/upcoming-client/pkg/cache"
	"github.com/Sternrassler/upcoming-client/pkg/client"
	"github.com/Sternrassler/upcoming-client/pkg/logging"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendMemcache = "memcache"
	BackendRedis    = "redis"
)

// EnvPrefix prefixes environment overrides, e.g. UPCOMING_API_KEY.
const EnvPrefix = "UPCOMING_"

// Config is the file representation of a client setup.
type Config struct {
	Host            string        `yaml:"host" validate:"required"`
	APIKey          string        `yaml:"api_key" validate:"required"`
	RequestsPerHour int           `yaml:"requests_per_hour" validate:"min=1"`
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
	Coalesce        bool          `yaml:"coalesce"`
	UserAgent       string        `yaml:"user_agent"`
	Cache           CacheConfig   `yaml:"cache"`
	Log             LogConfig     `yaml:"log"`
	Listen          string        `yaml:"listen"`
}

// CacheConfig selects and configures the response cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=none memory memcache redis"`
	Servers       []string      `yaml:"servers" validate:"required_if=Backend memcache,dive,required"`
	Port          int           `yaml:"port" validate:"min=0,max=65535"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"min=0"`
	KeyPrefix     string        `yaml:"key_prefix"`
	EntryTTL      time.Duration `yaml:"entry_ttl" validate:"min=0"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Host:            client.DefaultHost,
		RequestsPerHour: 1,
		Timeout:         30 * time.Second,
		Cache: CacheConfig{
			Backend:   BackendMemory,
			Port:      11211,
			KeyPrefix: client.DefaultKeyPrefix,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Listen: ":8080",
	}
}

// Load reads the YAML file at path on top of Default, applies UPCOMING_*
// environment overrides and validates the result. An empty path skips the
// file. $VAR references in the file are expanded before decoding.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}

		expanded := os.ExpandEnv(string(content))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration. Field names in errors are the YAML names.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("yaml")
	})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("HOST", &c.Host)
	str("API_KEY", &c.APIKey)
	str("USER_AGENT", &c.UserAgent)
	str("LISTEN", &c.Listen)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("KEY_PREFIX", &c.Cache.KeyPrefix)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup(EnvPrefix + "MEMCACHE_SERVERS"); ok {
		c.Cache.Servers = splitList(v)
	}

	for _, err := range []error{
		num("REQUESTS_PER_HOUR", &c.RequestsPerHour),
		num("MEMCACHE_PORT", &c.Cache.Port),
		num("REDIS_DB", &c.Cache.RedisDB),
		dur("TIMEOUT", &c.Timeout),
		dur("ENTRY_TTL", &c.Cache.EntryTTL),
		flag("COALESCE", &c.Coalesce),
		flag("LOG_PRETTY", &c.Log.Pretty),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewStore builds the configured cache backend. It returns nil for "none".
func (c *Config) NewStore() (cache.Store, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return nil, nil
	case "", BackendMemory:
		return cache.NewMemoryStore(), nil
	case BackendMemcache:
		store, err := cache.NewMemcacheStore(c.Cache.Servers, c.Cache.Port)
		if err != nil {
			return nil, fmt.Errorf("memcache store: %w", err)
		}
		return store, nil
	case BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		})
		return cache.NewRedisStore(redisClient), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
}

// ClientConfig converts the file settings into a client configuration using
// store as the cache.
func (c *Config) ClientConfig(store cache.Store) client.Config {
	cfg := client.DefaultConfig(c.Host, c.APIKey)
	cfg.RequestsPerHour = c.RequestsPerHour
	cfg.Coalesce = c.Coalesce
	cfg.UserAgent = c.UserAgent
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	cfg.Cache = store
	if c.Cache.KeyPrefix != "" {
		cfg.KeyPrefix = c.Cache.KeyPrefix
	}
	cfg.EntryTTL = c.Cache.EntryTTL
	return cfg
}

// LogConfig converts the log settings. Unknown levels fall back to info.
func (c *Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}
