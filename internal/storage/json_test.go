package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "marketplace.json")
	s, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)
	defer s.Close()

	runStorageSuite(t, s)
}

func TestJSONStorage_RequiresPath(t *testing.T) {
	_, err := NewJSONStorage(Config{})
	assert.Error(t, err)
}

func TestJSONStorage_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	_, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJSONStorage_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	first, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.SaveUser(ctx, &models.User{ID: "u-1", Email: "a@example.com", Role: models.RoleAdmin}))

	second, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)
	got, err := second.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestJSONStorage_ReloadsEditedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	s, err := NewJSONStorage(Config{Path: path, CacheTTL: time.Nanosecond})
	require.NoError(t, err)

	seed := `{"listings":[{"id":"job-1","kind":"job","title":"Nail technician","description":"","status":"approved","city":"Westminster","created_at":"2025-01-01T00:00:00Z"}],"users":[],"sessions":[]}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	got, err := s.Candidates(ctx, models.KindJob, "nail", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Westminster", got[0].City)
}

func TestJSONStorage_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewJSONStorage(Config{Path: path})
	assert.Error(t, err)
}

func TestJSONStorage_PingMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := NewJSONStorage(Config{Path: path})
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	assert.Error(t, s.Ping(context.Background()))
}
