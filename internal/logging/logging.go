// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config selects the log level and output format.
type Config struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// DefaultConfig logs at info level in text form.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatText}
}

// Validate checks that the level and format are recognized.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.levelOrDefault()); err != nil {
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	switch c.Format {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.Format)
	}
}

// New returns a logger writing to w. A nil w means stderr, which keeps stdout
// free for MCP protocol messages and command output.
func New(cfg Config, w io.Writer) (*logrus.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(w)
	level, _ := logrus.ParseLevel(cfg.levelOrDefault())
	log.SetLevel(level)

	if cfg.Format == FormatJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

func (c Config) levelOrDefault() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}
