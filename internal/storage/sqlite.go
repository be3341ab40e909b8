package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/context-store/internal/db"
)

const backendSQLite = "sqlite"

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string `koanf:"path" yaml:"path"`
}

// SQLiteBackend stores records in a contexts table and their index
// memberships in context_index. Each mutation runs in one transaction.
type SQLiteBackend struct {
	db *db.DB
}

// NewSQLiteBackend wraps an already opened database.
func NewSQLiteBackend(database *db.DB) *SQLiteBackend {
	return &SQLiteBackend{db: database}
}

// OpenSQLiteBackend opens the database described by cfg.
func OpenSQLiteBackend(cfg SQLiteConfig) (*SQLiteBackend, error) {
	var (
		database *db.DB
		err      error
	)
	if cfg.Path == "" || cfg.Path == ":memory:" {
		database, err = db.OpenMemory()
	} else {
		database, err = db.Open(cfg.Path)
	}
	if err != nil {
		return nil, storageErr(backendSQLite, "open", err)
	}
	return NewSQLiteBackend(database), nil
}

func (s *SQLiteBackend) Store(ctx context.Context, p *ContextPayload) (string, error) {
	if p == nil {
		return "", &ValidationError{Reason: "payload is nil"}
	}
	rec := prepare(p)

	err := s.inTx(ctx, "store", func(tx *sql.Tx) error {
		old, err := loadRow(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		keepCreated(old, rec)
		if err := upsertRow(ctx, tx, rec); err != nil {
			return err
		}
		return applySQLIndexDelta(ctx, tx, rec.ID, ComputeIndexDelta(old, rec))
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *SQLiteBackend) Retrieve(ctx context.Context, id string) (*ContextPayload, error) {
	rec, err := loadRow(ctx, s.db, id)
	if err != nil {
		return nil, storageErr(backendSQLite, "retrieve", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *SQLiteBackend) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	candidates, err := s.candidates(ctx, params)
	if err != nil {
		return nil, err
	}
	return Paginate(candidates, params), nil
}

func (s *SQLiteBackend) Update(ctx context.Context, id string, patch ContextPatch) (bool, error) {
	found := false
	err := s.inTx(ctx, "update", func(tx *sql.Tx) error {
		old, err := loadRow(ctx, tx, id)
		if err != nil || old == nil {
			return err
		}
		found = true
		rec := patch.Apply(old, nowFunc())
		if err := upsertRow(ctx, tx, rec); err != nil {
			return err
		}
		return applySQLIndexDelta(ctx, tx, id, ComputeIndexDelta(old, rec))
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := s.inTx(ctx, "delete", func(tx *sql.Tx) error {
		old, err := loadRow(ctx, tx, id)
		if err != nil || old == nil {
			return err
		}
		found = true
		if err := applySQLIndexDelta(ctx, tx, id, ComputeIndexDelta(old, nil)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting context: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *SQLiteBackend) Count(ctx context.Context, params *QueryParams) (int, error) {
	if params == nil {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts`).Scan(&n); err != nil {
			return 0, storageErr(backendSQLite, "count", err)
		}
		return n, nil
	}
	candidates, err := s.candidates(ctx, *params)
	if err != nil {
		return 0, err
	}
	return len(Filter(candidates, *params)), nil
}

// Close closes the underlying database.
func (s *SQLiteBackend) Close() error { return s.db.Close() }

// Members returns the ids in one index bucket.
func (s *SQLiteBackend) Members(ctx context.Context, family IndexFamily, value string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT context_id FROM context_index WHERE family = ? AND value = ? ORDER BY context_id`,
		string(family), value,
	)
	if err != nil {
		return nil, storageErr(backendSQLite, "members", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr(backendSQLite, "members", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteBackend) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(backendSQLite, op, fmt.Errorf("begin: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return storageErr(backendSQLite, op, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(backendSQLite, op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *SQLiteBackend) candidates(ctx context.Context, params QueryParams) ([]*ContextPayload, error) {
	query := `SELECT payload FROM contexts`
	var args []interface{}

	if seed := SeedFor(params); seed.Family != "" {
		placeholders := make([]string, len(seed.Values))
		args = append(args, string(seed.Family))
		for i, v := range seed.Values {
			placeholders[i] = "?"
			args = append(args, v)
		}
		query = `SELECT DISTINCT c.payload FROM contexts c
		 JOIN context_index i ON i.context_id = c.id
		 WHERE i.family = ? AND i.value IN (` + strings.Join(placeholders, ", ") + `)`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(backendSQLite, "query", err)
	}
	defer rows.Close()

	var out []*ContextPayload
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, storageErr(backendSQLite, "query", err)
		}
		var rec ContextPayload
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, storageErr(backendSQLite, "query", fmt.Errorf("decoding record: %w", err))
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(backendSQLite, "query", err)
	}
	return out, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// loadRow reads one record. A missing row yields (nil, nil).
func loadRow(ctx context.Context, q rowQuerier, id string) (*ContextPayload, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT payload FROM contexts WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading context: %w", err)
	}
	var rec ContextPayload
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding context %s: %w", id, err)
	}
	return &rec, nil
}

func upsertRow(ctx context.Context, tx *sql.Tx, rec *ContextPayload) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO contexts (id, type, contract_type, relevance_score, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   type = excluded.type,
		   contract_type = excluded.contract_type,
		   relevance_score = excluded.relevance_score,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		rec.ID, string(rec.Type), rec.Metadata.ContractType, rec.Metadata.RelevanceScore, string(data),
		rec.Metadata.CreatedAt.Format(time.RFC3339Nano), rec.Metadata.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing context: %w", err)
	}
	return nil
}

// applySQLIndexDelta writes d to context_index. The master index is the
// contexts table itself.
func applySQLIndexDelta(ctx context.Context, tx *sql.Tx, id string, d IndexDelta) error {
	for _, e := range d.Remove {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM context_index WHERE family = ? AND value = ? AND context_id = ?`,
			string(e.Family), e.Value, id,
		); err != nil {
			return fmt.Errorf("removing %s index %q: %w", e.Family, e.Value, err)
		}
	}
	for _, e := range d.Add {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO context_index (family, value, context_id) VALUES (?, ?, ?)`,
			string(e.Family), e.Value, id,
		); err != nil {
			return fmt.Errorf("adding %s index %q: %w", e.Family, e.Value, err)
		}
	}
	return nil
}
