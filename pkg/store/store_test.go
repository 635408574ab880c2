package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?mode=rwc"
	s, err := New(context.Background(), Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestNew(t *testing.T) {
	t.Run("creates schema", func(t *testing.T) {
		s := testStore(t)

		var count int
		err := s.db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('notifications','item_state')")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("schema init is idempotent", func(t *testing.T) {
		dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?mode=rwc"
		s1, err := New(context.Background(), Config{DSN: dsn})
		require.NoError(t, err)
		require.NoError(t, s1.Close())

		s2, err := New(context.Background(), Config{DSN: dsn})
		require.NoError(t, err)
		require.NoError(t, s2.Close())
	})
}

func TestIsLockError(t *testing.T) {
	assert.True(t, isLockError(errors.New("SQLITE_BUSY: database is locked")))
	assert.True(t, isLockError(errors.New("database is locked")))
	assert.True(t, isLockError(errors.New("database table is locked")))
	assert.False(t, isLockError(errors.New("syntax error")))
	assert.False(t, isLockError(nil))
}
