package contextengine

import "github.com/ziadkadry99/context-store/internal/storage"

// Config tunes the service-level limits applied on top of a backend.
type Config struct {
	DefaultLimit int `koanf:"default_limit" yaml:"default_limit"`
	MaxLimit     int `koanf:"max_limit" yaml:"max_limit"`
	MaxBatchSize int `koanf:"max_batch_size" yaml:"max_batch_size"`
	SimilarLimit int `koanf:"similar_limit" yaml:"similar_limit"`
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: storage.DefaultLimit,
		MaxLimit:     100,
		MaxBatchSize: 100,
		SimilarLimit: 5,
	}
}

// BatchItemError describes one failed item of a batch ingest. Index is the
// 0-based position of the item in the submitted batch.
type BatchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchResult reports the outcome of a batch ingest.
type BatchResult struct {
	Success bool             `json:"success"`
	Partial bool             `json:"partial"`
	IDs     []string         `json:"ids"`
	Errors  []BatchItemError `json:"errors,omitempty"`
}

// Stats summarizes the store contents.
type Stats struct {
	Total  int                         `json:"total"`
	ByType map[storage.ContextType]int `json:"byType"`
}
