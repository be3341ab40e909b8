package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contexts.db")
	ctx := context.Background()

	b, err := OpenSQLiteBackend(SQLiteConfig{Path: path})
	require.NoError(t, err)
	p := payload(TypeSecurityTip, "Check caller", 0.6, "auth")
	p.Metadata.ContractType = "governance"
	id, err := b.Store(ctx, p)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = OpenSQLiteBackend(SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Retrieve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Check caller", got.Metadata.Title)

	res, err := b.Query(ctx, QueryParams{ContractType: "governance"})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(res.Results))
}

func TestSQLiteDeleteCascadesIndex(t *testing.T) {
	b, err := OpenSQLiteBackend(SQLiteConfig{})
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	id, err := b.Store(ctx, payload(TypeDocumentation, "Doc", 0, "a", "b"))
	require.NoError(t, err)
	_, err = b.Delete(ctx, id)
	require.NoError(t, err)

	var n int
	require.NoError(t, b.db.QueryRow(`SELECT COUNT(*) FROM context_index`).Scan(&n))
	assert.Equal(t, 0, n)
}
