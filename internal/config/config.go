package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are joined
// with a double underscore: CTXSTORE_STORAGE__REDIS__URL -> storage.redis.url.
const EnvPrefix = "CTXSTORE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CTXSTORE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: CTXSTORE_STORAGE__BACKEND -> storage.backend, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Volatile reports whether records are lost when the process exits.
func (c *Config) Volatile() bool {
	return c.Storage.Backend == storage.BackendMemory
}

// validBackends is the set of recognized storage.backend values.
var validBackends = map[storage.BackendType]bool{
	storage.BackendMemory: true,
	storage.BackendRedis:  true,
	storage.BackendSQLite: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Storage.Backend == "" {
		return fmt.Errorf("storage.backend is required")
	}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage.backend %q: must be one of memory, redis, sqlite", c.Storage.Backend)
	}

	if c.Storage.Memory.MaxRecords < 0 {
		return fmt.Errorf("storage.memory.max_records must be non-negative")
	}

	switch c.Storage.Backend {
	case storage.BackendRedis:
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required for the redis backend")
		}
		if _, err := storage.CodecByName(c.Storage.Redis.Codec); err != nil {
			return fmt.Errorf("storage.redis.codec: %w", err)
		}
		if c.Storage.Redis.PoolSize < 0 || c.Storage.Redis.MaxTxRetries < 0 || c.Storage.Redis.TxBackoff < 0 {
			return fmt.Errorf("storage.redis pool_size, max_tx_retries and tx_backoff must be non-negative")
		}
	case storage.BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	}

	s := c.Service
	if s.DefaultLimit < 0 || s.MaxLimit < 0 || s.MaxBatchSize < 0 || s.SimilarLimit < 0 {
		return fmt.Errorf("service limits must be non-negative")
	}
	if s.MaxLimit > 0 && s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("service.default_limit (%d) exceeds service.max_limit (%d)", s.DefaultLimit, s.MaxLimit)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout must be non-negative")
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}
