package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to ctxstore! Let's configure your context store.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Backend selection.
	backendPrompt := promptui.Select{
		Label: "Select storage backend",
		Items: []string{
			"sqlite: local durable file",
			"redis: shared, durable Redis server",
			"memory: in-process, lost on restart",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	backends := []storage.BackendType{storage.BackendSQLite, storage.BackendRedis, storage.BackendMemory}
	cfg.Storage.Backend = backends[backendIdx]

	// 2. Backend-specific settings.
	switch cfg.Storage.Backend {
	case storage.BackendMemory:
		maxPrompt := promptui.Prompt{
			Label:    "Maximum records (0 for unbounded)",
			Default:  "0",
			Validate: validateNonNegativeInt,
		}
		maxStr, err := maxPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("max records: %w", err)
		}
		cfg.Storage.Memory.MaxRecords, _ = strconv.Atoi(strings.TrimSpace(maxStr))

	case storage.BackendRedis:
		urlPrompt := promptui.Prompt{
			Label:   "Redis URL",
			Default: cfg.Storage.Redis.URL,
			Validate: func(s string) error {
				if !strings.HasPrefix(s, "redis://") && !strings.HasPrefix(s, "rediss://") {
					return fmt.Errorf("must start with redis:// or rediss://")
				}
				return nil
			},
		}
		if cfg.Storage.Redis.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}

		codecPrompt := promptui.Select{
			Label: "Record encoding",
			Items: []string{storage.CodecJSON, storage.CodecMsgpack},
		}
		if _, cfg.Storage.Redis.Codec, err = codecPrompt.Run(); err != nil {
			return nil, fmt.Errorf("codec selection: %w", err)
		}

	case storage.BackendSQLite:
		pathPrompt := promptui.Prompt{
			Label:   "Database file",
			Default: cfg.Storage.SQLite.Path,
		}
		if cfg.Storage.SQLite.Path, err = pathPrompt.Run(); err != nil {
			return nil, fmt.Errorf("sqlite path: %w", err)
		}
	}

	// 3. HTTP port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port for `ctxstore server`",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be a port between 1 and 65535")
	}
	return nil
}
