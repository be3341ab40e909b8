package cmd

import (
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ziadkadry99/context-store/internal/config"
	"github.com/ziadkadry99/context-store/internal/contextengine"
	"github.com/ziadkadry99/context-store/internal/logging"
	"github.com/ziadkadry99/context-store/internal/storage"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ctxstore init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr.
func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logCfg := cfg.Log
	if verbose {
		logCfg.Level = "debug"
	}
	return logging.New(logCfg, nil)
}

// openService wires config, logger and backend into a Service. The returned
// close func releases the backend. oneShot commands warn when the backend
// forgets everything on exit.
func openService(oneShot bool) (*config.Config, *contextengine.Service, *logrus.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if oneShot && cfg.Volatile() {
		log.Warn("storage.backend is memory: records will not outlive this command; use sqlite or redis to keep them")
	}

	backend, err := storage.Open(cfg.Storage, log.WithField("component", "storage"))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("opening %s backend: %w", cfg.Storage.Backend, err)
	}
	closeFn := func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Warn("closing backend")
		}
	}

	svc := contextengine.NewService(backend, cfg.Service, log.WithField("component", "service"))
	return cfg, svc, log, closeFn, nil
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
