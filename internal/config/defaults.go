package config

import (
	"time"

	"github.com/ziadkadry99/context-store/internal/contextengine"
	"github.com/ziadkadry99/context-store/internal/logging"
	"github.com/ziadkadry99/context-store/internal/server"
	"github.com/ziadkadry99/context-store/internal/storage"
)

// DefaultSQLitePath is where the SQLite backend keeps its database unless
// configured otherwise.
const DefaultSQLitePath = ".ctxstore/contexts.db"

// DefaultConfig returns a Config with sensible defaults. The SQLite backend
// is the default so that records ingested by one command are visible to the
// next.
func DefaultConfig() *Config {
	return &Config{
		Storage: storage.Config{
			Backend: storage.BackendSQLite,
			Redis:   storage.DefaultRedisConfig(),
			SQLite:  storage.SQLiteConfig{Path: DefaultSQLitePath},
		},
		Service: contextengine.DefaultConfig(),
		Server: server.Config{
			Port:           8080,
			RequestTimeout: 60 * time.Second,
		},
		Log: logging.DefaultConfig(),
	}
}
