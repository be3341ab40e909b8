package config

import (
	"github.com/ziadkadry99/context-store/internal/contextengine"
	"github.com/ziadkadry99/context-store/internal/logging"
	"github.com/ziadkadry99/context-store/internal/server"
	"github.com/ziadkadry99/context-store/internal/storage"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = ".ctxstore.yml"

// Config is the top-level ctxstore configuration, corresponding to .ctxstore.yml.
type Config struct {
	Storage storage.Config       `yaml:"storage" koanf:"storage"`
	Service contextengine.Config `yaml:"service" koanf:"service"`
	Server  server.Config        `yaml:"server" koanf:"server"`
	Log     logging.Config       `yaml:"log" koanf:"log"`
}
