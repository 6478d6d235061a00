package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("/tmp/history.db")
	assert.True(t, strings.HasPrefix(dsn, "/tmp/history.db?"))
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_txlock=immediate")
}

func TestStore_AddAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	require.NoError(t, s.Add(ctx, "sales", "SELECT 1", true, 15*time.Millisecond))
	require.NoError(t, s.Add(ctx, "sales", "SELEC 2", false, 0))
	require.NoError(t, s.Add(ctx, "", "SHOW tables", true, time.Second))

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SHOW tables", entries[0].Statement)
	assert.Equal(t, time.Second, entries[0].Duration)
	assert.Equal(t, "SELEC 2", entries[1].Statement)
	assert.False(t, entries[1].Succeeded)
	assert.Equal(t, "sales", entries[1].Database)
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(ctx, "db", "SELECT 1", true, 0))
	}

	n, err := s.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), "db", "SELECT 42", true, 0))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	entries, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT 42", entries[0].Statement)
}
