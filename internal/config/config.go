// Package config loads the service configuration. Values are layered in
// order: built-in defaults, an optional YAML file, then MARKETPLACE_*
// environment variables (which may themselves come from a .env file).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"marketplace/internal/models"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MARKETPLACE_"

// Load builds the configuration from defaults, configPath (optional) and
// the environment, then validates it.
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
		slog.Debug("Loaded env file", "path", p)
	}
	return nil
}

// deprecatedConfig mirrors keys that are accepted but ignored.
type deprecatedConfig struct {
	Search struct {
		MaxResults *int `yaml:"max_results"`
	} `yaml:"search"`
	Security struct {
		RateLimit struct {
			CleanupInterval   *string `yaml:"cleanup_interval"`
			RequestsPerMinute *int    `yaml:"requests_per_minute"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
}

// warnDeprecatedKeys logs a warning for each ignored key found in data.
func warnDeprecatedKeys(data []byte) {
	var dep deprecatedConfig
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return
	}
	if dep.Search.MaxResults != nil {
		slog.Warn("Config key is ignored; search responses are capped at a fixed size.", "config_key", "search.max_results")
	}
	if dep.Security.RateLimit.CleanupInterval != nil {
		slog.Warn("Config key is ignored; idle rate limit windows are swept probabilistically. Use sweep_probability.", "config_key", "security.rate_limit.cleanup_interval")
	}
	if dep.Security.RateLimit.RequestsPerMinute != nil {
		slog.Warn("Config key is ignored; configure security.rate_limit.search and security.rate_limit.public instead.", "config_key", "security.rate_limit.requests_per_minute")
	}
}

func loadFromFile(config *models.Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", filePath)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnDeprecatedKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func loadFromEnvironment(config *models.Config) {
	// Server
	envInt("PORT", &config.Server.Port)
	envString("HOST", &config.Server.Host)
	envDuration("READ_TIMEOUT", &config.Server.ReadTimeout)
	envDuration("WRITE_TIMEOUT", &config.Server.WriteTimeout)
	envDuration("IDLE_TIMEOUT", &config.Server.IdleTimeout)
	envBool("TLS_ENABLED", &config.Server.TLSEnabled)
	envString("TLS_CERT_FILE", &config.Server.TLSCertFile)
	envString("TLS_KEY_FILE", &config.Server.TLSKeyFile)
	envBool("CORS_ENABLED", &config.Server.CORS.Enabled)
	envList("CORS_ALLOWED_ORIGINS", &config.Server.CORS.AllowedOrigins)

	// Storage
	envString("STORAGE_TYPE", &config.Storage.Type)
	envString("STORAGE_PATH", &config.Storage.Path)
	envString("DATABASE_DSN", &config.Storage.Database.DSN)
	envInt("DATABASE_MAX_OPEN_CONNS", &config.Storage.Database.MaxOpenConns)
	envDuration("DATABASE_CONN_MAX_LIFETIME", &config.Storage.Database.ConnMaxLifetime)
	envBool("DATABASE_MIGRATE", &config.Storage.Database.Migrate)

	// Rate limiting
	rl := &config.Security.RateLimit
	envBool("RATE_LIMIT_ENABLED", &rl.Enabled)
	envInt("RATE_LIMIT_SEARCH_LIMIT", &rl.Search.Limit)
	envDuration("RATE_LIMIT_SEARCH_WINDOW", &rl.Search.Window)
	envInt("RATE_LIMIT_PUBLIC_LIMIT", &rl.Public.Limit)
	envDuration("RATE_LIMIT_PUBLIC_WINDOW", &rl.Public.Window)
	envFloat("RATE_LIMIT_SWEEP_PROBABILITY", &rl.SweepProbability)
	envInt("RATE_LIMIT_SHARDS", &rl.Shards)
	envBool("RATE_LIMIT_STATS_ENABLED", &rl.Stats.Enabled)
	envString("REDIS_ADDR", &rl.Stats.Redis.Addr)
	envString("REDIS_PASSWORD", &rl.Stats.Redis.Password)
	envInt("REDIS_DB", &rl.Stats.Redis.DB)

	// Admin admission
	admin := &config.Security.Admin
	envString("ADMIN_PATH_PREFIX", &admin.PathPrefix)
	envString("ADMIN_PRIVILEGED_ROLE", &admin.PrivilegedRole)
	envDuration("ADMIN_LOOKUP_TIMEOUT", &admin.LookupTimeout)
	envString("IDENTITY_PROVIDER", &admin.Identity.Provider)
	envString("IDENTITY_SESSION_COOKIE", &admin.Identity.SessionCookie)
	envString("IDENTITY_URL", &admin.Identity.Remote.URL)
	envString("IDENTITY_ANON_KEY", &admin.Identity.Remote.AnonKey)
	envDuration("IDENTITY_TIMEOUT", &admin.Identity.Remote.Timeout)

	// Search
	envInt("SEARCH_DEFAULT_RADIUS", &config.Search.DefaultRadius)
	envInt("SEARCH_MAX_RADIUS", &config.Search.MaxRadius)
	envInt("SEARCH_FETCH_LIMIT", &config.Search.FetchLimit)
	envInt("SEARCH_CONCURRENCY", &config.Search.Concurrency)
	envFloat("SEARCH_BACKEND_QPS", &config.Search.BackendQPS)
	envInt("SEARCH_BACKEND_BURST", &config.Search.BackendBurst)

	// Logging
	envString("LOG_LEVEL", &config.Logging.Level)
	envString("LOG_FORMAT", &config.Logging.Format)
	envString("LOG_OUTPUT", &config.Logging.Output)
	envString("LOG_FILE_PATH", &config.Logging.FilePath)

	// Metrics and tracing
	envBool("METRICS_ENABLED", &config.Metrics.Enabled)
	envString("METRICS_PATH", &config.Metrics.Path)
	envInt("METRICS_PORT", &config.Metrics.Port)
	envBool("TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	envString("TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	envString("TRACING_OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	envFloat("TRACING_SAMPLE_RATE", &config.Observability.Tracing.SampleRate)
}

// Malformed numeric, boolean and duration values are ignored and leave the
// current value in place.

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v, ok := lookup(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(name string, dst *float64) {
	if v, ok := lookup(name); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(name string, dst *bool) {
	if v, ok := lookup(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := lookup(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envList(name string, dst *[]string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// SaveExample writes an example configuration to filePath.
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Database.DSN = "./data/marketplace.db"
	config.Security.RateLimit.Stats.Redis.Addr = "localhost:6379"
	config.Security.Admin.Identity.Remote.URL = "https://your-project.example.com"
	config.Security.Admin.Identity.Remote.AnonKey = "your-anon-key"
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
