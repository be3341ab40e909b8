package storage

import (
	"context"
	"fmt"
	"sync"
)

const backendMemory = "memory"

// MemoryConfig configures the in-process backend.
type MemoryConfig struct {
	// MaxRecords caps the number of stored records. Zero means unbounded.
	// Storing a new id beyond the cap is rejected with ErrCapacityExceeded;
	// nothing is evicted.
	MaxRecords int `koanf:"max_records" yaml:"max_records"`
}

// MemoryBackend keeps records and their secondary indexes in process memory.
// A single mutex covers the primary map and every index so readers never
// observe a record without its memberships or vice versa.
type MemoryBackend struct {
	mu         sync.RWMutex
	records    map[string]*ContextPayload
	index      map[IndexFamily]map[string]map[string]struct{}
	maxRecords int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(cfg MemoryConfig) *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]*ContextPayload),
		index: map[IndexFamily]map[string]map[string]struct{}{
			FamilyType:     {},
			FamilyTag:      {},
			FamilyContract: {},
		},
		maxRecords: cfg.MaxRecords,
	}
}

func (m *MemoryBackend) Store(ctx context.Context, p *ContextPayload) (string, error) {
	if p == nil {
		return "", &ValidationError{Reason: "payload is nil"}
	}
	rec := prepare(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.records[rec.ID]
	if old == nil && m.maxRecords > 0 && len(m.records) >= m.maxRecords {
		return "", storageErr(backendMemory, "store",
			fmt.Errorf("%w: limit of %d records reached", ErrCapacityExceeded, m.maxRecords))
	}
	keepCreated(old, rec)

	m.records[rec.ID] = rec
	m.applyIndexDelta(rec.ID, ComputeIndexDelta(old, rec))
	return rec.ID, nil
}

func (m *MemoryBackend) Retrieve(ctx context.Context, id string) (*ContextPayload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryBackend) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Paginate(m.candidates(params), params), nil
}

func (m *MemoryBackend) Update(ctx context.Context, id string, patch ContextPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.records[id]
	if !ok {
		return false, nil
	}
	rec := patch.Apply(old, nowFunc())

	m.records[id] = rec
	m.applyIndexDelta(id, ComputeIndexDelta(old, rec))
	return true, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.records[id]
	if !ok {
		return false, nil
	}
	delete(m.records, id)
	m.applyIndexDelta(id, ComputeIndexDelta(old, nil))
	return true, nil
}

func (m *MemoryBackend) Count(ctx context.Context, params *QueryParams) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if params == nil {
		return len(m.records), nil
	}
	return len(Filter(m.candidates(*params), *params)), nil
}

// Close is a no-op; the backend holds no external resources.
func (m *MemoryBackend) Close() error { return nil }

// Members returns the ids in one index bucket. It exists for consistency
// checks in tests and diagnostics.
func (m *MemoryBackend) Members(ctx context.Context, family IndexFamily, value string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.index[family][value]))
	for id := range m.index[family][value] {
		ids = append(ids, id)
	}
	return ids, nil
}

// candidates must be called with m.mu held.
func (m *MemoryBackend) candidates(params QueryParams) []*ContextPayload {
	seed := SeedFor(params)
	if seed.Family == "" {
		out := make([]*ContextPayload, 0, len(m.records))
		for _, rec := range m.records {
			out = append(out, rec)
		}
		return out
	}

	seen := make(map[string]bool)
	var out []*ContextPayload
	for _, value := range seed.Values {
		for id := range m.index[seed.Family][value] {
			if seen[id] {
				continue
			}
			seen[id] = true
			if rec, ok := m.records[id]; ok {
				out = append(out, rec)
			}
		}
	}
	return out
}

// applyIndexDelta must be called with m.mu held for writing. The master
// index is the primary map itself, so d.Master needs no extra work here.
func (m *MemoryBackend) applyIndexDelta(id string, d IndexDelta) {
	for _, e := range d.Remove {
		bucket := m.index[e.Family][e.Value]
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(m.index[e.Family], e.Value)
		}
	}
	for _, e := range d.Add {
		bucket, ok := m.index[e.Family][e.Value]
		if !ok {
			bucket = make(map[string]struct{})
			m.index[e.Family][e.Value] = bucket
		}
		bucket[id] = struct{}{}
	}
}
