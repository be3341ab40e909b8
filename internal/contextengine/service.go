// Package contextengine is the context service: validation, batch ingest,
// similarity lookups and statistics layered over a storage backend, plus the
// HTTP routes that expose it.
package contextengine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// Service is the entry point used by the HTTP, MCP and CLI front ends.
type Service struct {
	backend storage.Backend
	cfg     Config
	log     logrus.FieldLogger
}

// NewService creates a service over backend. Zero fields in cfg take their
// defaults.
func NewService(backend storage.Backend, cfg Config, log logrus.FieldLogger) *Service {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if cfg.SimilarLimit <= 0 {
		cfg.SimilarLimit = def.SimilarLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{backend: backend, cfg: cfg, log: log}
}

// Config returns the effective limits.
func (s *Service) Config() Config { return s.cfg }

// Ingest validates p and stores it, returning the record id.
func (s *Service) Ingest(ctx context.Context, p *storage.ContextPayload) (string, error) {
	if err := validatePayload(p); err != nil {
		return "", err
	}
	id, err := s.backend.Store(ctx, p)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"id": id, "type": p.Type}).Debug("context stored")
	return id, nil
}

// BatchIngest ingests every item independently. Only an empty or oversized
// batch fails the call as a whole; per-item failures are reported in the
// result.
func (s *Service) BatchIngest(ctx context.Context, items []storage.ContextPayload) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, &storage.ValidationError{Field: "contexts", Reason: "batch is empty"}
	}
	if len(items) > s.cfg.MaxBatchSize {
		return nil, &storage.ValidationError{
			Field:  "contexts",
			Reason: fmt.Sprintf("batch of %d exceeds the maximum of %d", len(items), s.cfg.MaxBatchSize),
		}
	}

	res := &BatchResult{IDs: []string{}}
	for i := range items {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, BatchItemError{Index: i, Error: err.Error()})
			continue
		}
		id, err := s.Ingest(ctx, &items[i])
		if err != nil {
			res.Errors = append(res.Errors, BatchItemError{Index: i, Error: err.Error()})
			continue
		}
		res.IDs = append(res.IDs, id)
	}
	res.Success = len(res.Errors) == 0
	res.Partial = len(res.IDs) > 0 && len(res.Errors) > 0

	s.log.WithFields(logrus.Fields{
		"stored": len(res.IDs),
		"failed": len(res.Errors),
	}).Info("batch ingested")
	return res, nil
}

// Retrieve returns one record or storage.ErrNotFound.
func (s *Service) Retrieve(ctx context.Context, id string) (*storage.ContextPayload, error) {
	if id == "" {
		return nil, &storage.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	return s.backend.Retrieve(ctx, id)
}

// Update applies a partial update. It returns false when id is unknown.
func (s *Service) Update(ctx context.Context, id string, patch storage.ContextPatch) (bool, error) {
	if id == "" {
		return false, &storage.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := validatePatch(patch); err != nil {
		return false, err
	}
	ok, err := s.backend.Update(ctx, id, patch)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.WithField("id", id).Debug("context updated")
	}
	return ok, nil
}

// Delete removes a record. It returns false when id is unknown.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, &storage.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.WithField("id", id).Debug("context deleted")
	}
	return ok, nil
}

// Query returns one page of matching records. Limit defaults to the
// configured default and is capped at the configured maximum.
func (s *Service) Query(ctx context.Context, params storage.QueryParams) (*storage.QueryResult, error) {
	params, err := s.normalize(params)
	if err != nil {
		return nil, err
	}
	return s.backend.Query(ctx, params)
}

// FindSimilar returns up to limit records sharing the reference record's type
// and at least one of its tags. The reference itself is never included.
func (s *Service) FindSimilar(ctx context.Context, id string, limit int) ([]storage.ContextPayload, error) {
	if limit <= 0 {
		limit = s.cfg.SimilarLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	ref, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	// One extra row leaves room for the reference record.
	res, err := s.backend.Query(ctx, storage.QueryParams{
		Types: []storage.ContextType{ref.Type},
		Tags:  ref.Metadata.Tags,
		Limit: limit + 1,
	})
	if err != nil {
		return nil, err
	}

	similar := make([]storage.ContextPayload, 0, limit)
	for _, p := range res.Results {
		if p.ID == ref.ID {
			continue
		}
		if len(similar) == limit {
			break
		}
		similar = append(similar, p)
	}
	return similar, nil
}

// Count returns the number of records, or of those matching params when it
// is non-nil. Pagination fields in params are ignored.
func (s *Service) Count(ctx context.Context, params *storage.QueryParams) (int, error) {
	if params != nil {
		if err := validateTypes(params.Types); err != nil {
			return 0, err
		}
	}
	return s.backend.Count(ctx, params)
}

// Stats returns the total count and a per-type breakdown.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.backend.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Total: total, ByType: make(map[storage.ContextType]int, len(storage.ContextTypes))}
	for _, t := range storage.ContextTypes {
		n, err := s.backend.Count(ctx, &storage.QueryParams{Types: []storage.ContextType{t}})
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", t, err)
		}
		stats.ByType[t] = n
	}
	return stats, nil
}

// Ping checks that the backend answers.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.backend.Count(ctx, nil)
	return err
}

func (s *Service) normalize(params storage.QueryParams) (storage.QueryParams, error) {
	if err := validateTypes(params.Types); err != nil {
		return params, err
	}
	if params.Limit <= 0 {
		params.Limit = s.cfg.DefaultLimit
	}
	if params.Limit > s.cfg.MaxLimit {
		params.Limit = s.cfg.MaxLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return params, nil
}
