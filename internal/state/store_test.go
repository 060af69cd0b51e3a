package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	ok, err := s.Has(ctx, "BUY-2024-01-05")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "BUY-2024-01-05"))
	require.NoError(t, s.Put(ctx, "BUY-2024-01-05"))
	require.NoError(t, s.Put(ctx, "SELL-2024-01-04"))

	ok, err = s.Has(ctx, "BUY-2024-01-05")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BUY-2024-01-05", "SELL-2024-01-04"}, keys)

	if d, ok := s.(Deleter); ok {
		require.NoError(t, d.Delete(ctx, "SELL-2024-01-04"))
		keys, err = s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"BUY-2024-01-05"}, keys)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	storeContract(t, NewFileStore(filepath.Join(t.TempDir(), "state", "alerts.json")))
}

func TestFileStore_MissingFileInitializedEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	s := NewFileStore(path)

	ok, err := s.Has(context.Background(), "BUY-2024-01-05")
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, NewFileStore(path).Put(context.Background(), "SELL-2024-02-01"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"SELL-2024-02-01": true}`, string(data))

	ok, err := NewFileStore(path).Has(context.Background(), "SELL-2024-02-01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_CorruptFileIsPersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Has(context.Background(), "x")
	require.ErrorIs(t, err, ErrPersistence)
}

func TestFileStore_FailedWriteLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "alerts.json")
	s := NewFileStore(path)
	require.NoError(t, s.Put(ctx, "BUY-2024-01-05"))

	// A directory at the temp path makes every save fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	require.ErrorIs(t, s.Delete(ctx, "BUY-2024-01-05"), ErrPersistence)
	require.ErrorIs(t, s.Put(ctx, "BUY-2024-01-05"), ErrPersistence)
	require.ErrorIs(t, s.Put(ctx, "SELL-2024-01-08"), ErrPersistence)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BUY-2024-01-05"}, keys)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"BUY-2024-01-05": true}`, string(data))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(RedisConfig{Addr: addr, Hash: "kumo:test:" + t.Name()})
	require.NoError(t, err)
	defer s.Close()

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), keys...))
	storeContract(t, s)
}
