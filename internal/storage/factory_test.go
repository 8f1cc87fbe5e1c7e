package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func TestFactory(t *testing.T) {
	factory := NewFactory()

	t.Run("GetSupportedProviders", func(t *testing.T) {
		assert.Equal(t, []string{"json", "memory", "postgres", "sqlite"}, factory.GetSupportedProviders())
	})

	t.Run("ValidateConfig", func(t *testing.T) {
		tests := []struct {
			name      string
			config    models.StorageConfig
			expectErr bool
		}{
			{name: "valid json config", config: models.StorageConfig{Type: "json", Path: "/tmp/test.json"}},
			{name: "valid memory config", config: models.StorageConfig{Type: "memory"}},
			{name: "valid sqlite config", config: models.StorageConfig{Type: "sqlite", Database: models.DatabaseConfig{DSN: ":memory:"}}},
			{name: "invalid storage type", config: models.StorageConfig{Type: "invalid"}, expectErr: true},
			{name: "json without path", config: models.StorageConfig{Type: "json"}, expectErr: true},
			{name: "postgres without dsn", config: models.StorageConfig{Type: "postgres"}, expectErr: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := factory.ValidateConfig(tt.config)
				if tt.expectErr {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("Create", func(t *testing.T) {
		ctx := context.Background()

		mem, err := factory.Create(ctx, models.StorageConfig{Type: models.StorageTypeMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, mem)

		js, err := factory.Create(ctx, models.StorageConfig{
			Type: models.StorageTypeJSON,
			Path: filepath.Join(t.TempDir(), "store.json"),
		})
		require.NoError(t, err)
		assert.IsType(t, &JSONStorage{}, js)

		lite, err := factory.Create(ctx, models.StorageConfig{
			Type:     models.StorageTypeSQLite,
			Database: models.DatabaseConfig{DSN: ":memory:", Migrate: true},
		})
		require.NoError(t, err)
		defer lite.Close()
		assert.IsType(t, &SQLiteStorage{}, lite)

		_, err = factory.Create(ctx, models.StorageConfig{Type: "redis"})
		assert.Error(t, err)
	})
}
