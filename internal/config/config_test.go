package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, models.StorageTypeMemory, config.Storage.Type)
	assert.True(t, config.Security.RateLimit.Enabled)
	assert.Equal(t, 30, config.Security.RateLimit.Search.Limit)
	assert.Equal(t, time.Minute, config.Security.RateLimit.Search.Window)
	assert.Equal(t, "/admin", config.Security.Admin.PathPrefix)
	assert.Equal(t, 10, config.Search.DefaultRadius)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
  host: "127.0.0.1"
  read_timeout: 10s
  cors:
    enabled: true
    allowed_origins: ["https://example.com"]

storage:
  type: sqlite
  database:
    dsn: "./data/test.db"
    migrate: true

security:
  rate_limit:
    enabled: true
    search:
      limit: 5
      window: 30s
    public:
      limit: 50
      window: 1m
    sweep_probability: 0.05
    shards: 8
  admin:
    path_prefix: /staff
    privileged_role: superuser
    lookup_timeout: 2s
    identity:
      provider: remote
      remote:
        url: https://auth.example.com
        anon_key: key-123

search:
  default_radius: 15
  max_radius: 100
  fetch_limit: 200
  concurrency: 2
  backend_qps: 20
  backend_burst: 5

logging:
  level: debug
  format: text
  output: stderr
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 10*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, []string{"https://example.com"}, config.Server.CORS.AllowedOrigins)

	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
	assert.Equal(t, "./data/test.db", config.Storage.Database.DSN)

	rl := config.Security.RateLimit
	assert.Equal(t, models.RateLimitRule{Limit: 5, Window: 30 * time.Second}, rl.Search)
	assert.Equal(t, models.RateLimitRule{Limit: 50, Window: time.Minute}, rl.Public)
	assert.Equal(t, 0.05, rl.SweepProbability)
	assert.Equal(t, 8, rl.Shards)

	admin := config.Security.Admin
	assert.Equal(t, "/staff", admin.PathPrefix)
	assert.Equal(t, "superuser", admin.PrivilegedRole)
	assert.Equal(t, 2*time.Second, admin.LookupTimeout)
	assert.Equal(t, models.IdentityProviderRemote, admin.Identity.Provider)
	assert.Equal(t, "https://auth.example.com", admin.Identity.Remote.URL)

	assert.Equal(t, 15, config.Search.DefaultRadius)
	assert.Equal(t, 20.0, config.Search.BackendQPS)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")

	bad := writeFile(t, "bad.yaml", "server: [port: 1")
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"port", "server:\n  port: 70000\n", "invalid server config"},
		{"storage type", "storage:\n  type: mongo\n", "invalid storage type"},
		{"sqlite without dsn", "storage:\n  type: sqlite\n", "database DSN is required"},
		{"sweep probability", "security:\n  rate_limit:\n    sweep_probability: 2\n", "sweep probability"},
		{"admin prefix", "security:\n  admin:\n    path_prefix: admin\n", "must start with /"},
		{"identity provider", "security:\n  admin:\n    identity:\n      provider: ldap\n", "invalid identity provider"},
		{"radius", "search:\n  default_radius: 0\n", "default radius must be positive"},
		{"log level", "logging:\n  level: loud\n", "invalid log level"},
		{"tracing exporter", "observability:\n  tracing:\n    enabled: true\n    exporter: zipkin\n", "invalid trace exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_DeprecatedKeysAreIgnored(t *testing.T) {
	path := writeFile(t, "config.yaml", `
search:
  max_results: 200
security:
  rate_limit:
    cleanup_interval: 5m
    requests_per_minute: 60
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, config.Security.RateLimit.Search.Limit)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MARKETPLACE_PORT", "9100")
	t.Setenv("MARKETPLACE_HOST", "localhost")
	t.Setenv("MARKETPLACE_READ_TIMEOUT", "5s")
	t.Setenv("MARKETPLACE_CORS_ENABLED", "true")
	t.Setenv("MARKETPLACE_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MARKETPLACE_STORAGE_TYPE", "postgres")
	t.Setenv("MARKETPLACE_DATABASE_DSN", "postgres://localhost/marketplace")
	t.Setenv("MARKETPLACE_RATE_LIMIT_SEARCH_LIMIT", "7")
	t.Setenv("MARKETPLACE_RATE_LIMIT_SEARCH_WINDOW", "10s")
	t.Setenv("MARKETPLACE_RATE_LIMIT_SWEEP_PROBABILITY", "0.5")
	t.Setenv("MARKETPLACE_ADMIN_PRIVILEGED_ROLE", "owner")
	t.Setenv("MARKETPLACE_IDENTITY_PROVIDER", "remote")
	t.Setenv("MARKETPLACE_IDENTITY_URL", "https://auth.example.com")
	t.Setenv("MARKETPLACE_SEARCH_CONCURRENCY", "8")
	t.Setenv("MARKETPLACE_LOG_LEVEL", "warn")
	t.Setenv("MARKETPLACE_METRICS_ENABLED", "1")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 5*time.Second, config.Server.ReadTimeout)
	assert.True(t, config.Server.CORS.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.Server.CORS.AllowedOrigins)
	assert.Equal(t, models.StorageTypePostgres, config.Storage.Type)
	assert.Equal(t, "postgres://localhost/marketplace", config.Storage.Database.DSN)
	assert.Equal(t, models.RateLimitRule{Limit: 7, Window: 10 * time.Second}, config.Security.RateLimit.Search)
	assert.Equal(t, 0.5, config.Security.RateLimit.SweepProbability)
	assert.Equal(t, "owner", config.Security.Admin.PrivilegedRole)
	assert.Equal(t, models.IdentityProviderRemote, config.Security.Admin.Identity.Provider)
	assert.Equal(t, "https://auth.example.com", config.Security.Admin.Identity.Remote.URL)
	assert.Equal(t, 8, config.Search.Concurrency)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.True(t, config.Metrics.Enabled)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  port: 9000\n")
	t.Setenv("MARKETPLACE_PORT", "9200")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, config.Server.Port)
}

func TestLoad_MalformedEnvironmentIgnored(t *testing.T) {
	t.Setenv("MARKETPLACE_PORT", "not-a-number")
	t.Setenv("MARKETPLACE_READ_TIMEOUT", "forever")
	t.Setenv("MARKETPLACE_RATE_LIMIT_ENABLED", "maybe")
	t.Setenv("MARKETPLACE_HOST", "   ")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.True(t, config.Security.RateLimit.Enabled)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "MARKETPLACE_TEST_DOTENV_PORT=9300\nMARKETPLACE_TEST_DOTENV_KEEP=from-file\n")
	t.Setenv("MARKETPLACE_TEST_DOTENV_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("MARKETPLACE_TEST_DOTENV_PORT") })

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))

	assert.Equal(t, "9300", os.Getenv("MARKETPLACE_TEST_DOTENV_PORT"))
	assert.Equal(t, "from-env", os.Getenv("MARKETPLACE_TEST_DOTENV_KEEP"))
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	dir := t.TempDir()
	err := LoadDotEnv(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}

func TestSaveExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveExample(path))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
	assert.Equal(t, "./data/marketplace.db", config.Storage.Database.DSN)
	assert.Equal(t, time.Minute, config.Security.RateLimit.Search.Window)
	assert.Equal(t, "localhost:6379", config.Security.RateLimit.Stats.Redis.Addr)
}
