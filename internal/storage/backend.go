// Package storage defines the context record model, the Backend contract
// every storage implementation satisfies, and the memory, Redis and SQLite
// backends behind it.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Backend is the storage contract shared by every implementation.
type Backend interface {
	// Store persists p and all of its index memberships atomically, assigning
	// an id and timestamps when they are missing. It returns the id.
	Store(ctx context.Context, p *ContextPayload) (string, error)

	// Retrieve returns the record with the given id or ErrNotFound.
	Retrieve(ctx context.Context, id string) (*ContextPayload, error)

	// Query returns one page of records matching params.
	Query(ctx context.Context, params QueryParams) (*QueryResult, error)

	// Update merges patch into the stored record. It returns false when the
	// id is unknown.
	Update(ctx context.Context, id string, patch ContextPatch) (bool, error)

	// Delete removes the record and its index memberships. It returns false
	// when the id is unknown.
	Delete(ctx context.Context, id string) (bool, error)

	// Count returns the number of stored records, or the size of the
	// filtered set when params is non-nil.
	Count(ctx context.Context, params *QueryParams) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}

// nowFunc is replaced in tests that need deterministic timestamps.
var nowFunc = func() time.Time { return time.Now().UTC() }

// prepare returns a copy of p ready to be persisted: id assigned, CreatedAt
// and UpdatedAt defaulted to now.
func prepare(p *ContextPayload) *ContextPayload {
	out := p.Clone()
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	now := nowFunc()
	if out.Metadata.CreatedAt.IsZero() {
		out.Metadata.CreatedAt = now
	}
	if out.Metadata.UpdatedAt.IsZero() {
		out.Metadata.UpdatedAt = now
	}
	if out.Metadata.UpdatedAt.Before(out.Metadata.CreatedAt) {
		out.Metadata.UpdatedAt = out.Metadata.CreatedAt
	}
	return out
}

// keepCreated carries the original CreatedAt over when a store overwrites an
// existing record.
func keepCreated(old, p *ContextPayload) {
	if old == nil {
		return
	}
	p.Metadata.CreatedAt = old.Metadata.CreatedAt
	if p.Metadata.UpdatedAt.Before(p.Metadata.CreatedAt) {
		p.Metadata.UpdatedAt = p.Metadata.CreatedAt
	}
}
