package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// BackendType identifies a storage implementation.
type BackendType string

const (
	BackendMemory BackendType = backendMemory
	BackendRedis  BackendType = backendRedis
	BackendSQLite BackendType = backendSQLite
)

// Config selects and configures a backend.
type Config struct {
	Backend BackendType  `koanf:"backend" yaml:"backend"`
	Memory  MemoryConfig `koanf:"memory" yaml:"memory"`
	Redis   RedisConfig  `koanf:"redis" yaml:"redis"`
	SQLite  SQLiteConfig `koanf:"sqlite" yaml:"sqlite"`
}

// Open constructs the backend named by cfg.Backend.
func Open(cfg Config, log logrus.FieldLogger) (Backend, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryBackend(cfg.Memory), nil
	case BackendRedis:
		return NewRedisBackend(cfg.Redis, log)
	case BackendSQLite:
		return OpenSQLiteBackend(cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown storage backend %q: must be one of memory, redis, sqlite", cfg.Backend)
	}
}
