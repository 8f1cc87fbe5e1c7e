// Package models - Service configuration.
// The configuration tree is grouped by component (server, storage, security,
// search, logging, metrics, observability) and validated as a whole on load.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Storage type constants
const (
	StorageTypeJSON     = "json"
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Identity provider constants
const (
	IdentityProviderSession = "session"
	IdentityProviderRemote  = "remote"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Search        SearchConfig        `yaml:"search" json:"search"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate" json:"migrate"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin" json:"admin"`
}

// RateLimitRule is one limit/window pair as it appears in configuration.
type RateLimitRule struct {
	Limit  int           `yaml:"limit" json:"limit"`
	Window time.Duration `yaml:"window" json:"window"`
}

type RateLimitConfig struct {
	Enabled          bool           `yaml:"enabled" json:"enabled"`
	Search           RateLimitRule  `yaml:"search" json:"search"`
	Public           RateLimitRule  `yaml:"public" json:"public"`
	SweepProbability float64        `yaml:"sweep_probability" json:"sweep_probability"`
	Shards           int            `yaml:"shards" json:"shards"`
	Stats            RateLimitStats `yaml:"stats" json:"stats"`
}

// RateLimitStats configures the optional Redis decision counters.
type RateLimitStats struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

type AdminConfig struct {
	PathPrefix     string         `yaml:"path_prefix" json:"path_prefix"`
	LoginPath      string         `yaml:"login_path" json:"login_path"`
	DefaultPath    string         `yaml:"default_path" json:"default_path"`
	PrivilegedRole string         `yaml:"privileged_role" json:"privileged_role"`
	LookupTimeout  time.Duration  `yaml:"lookup_timeout" json:"lookup_timeout"`
	Identity       IdentityConfig `yaml:"identity" json:"identity"`
}

type IdentityConfig struct {
	Provider      string               `yaml:"provider" json:"provider"`
	SessionCookie string               `yaml:"session_cookie" json:"session_cookie"`
	Remote        RemoteIdentityConfig `yaml:"remote" json:"remote"`
}

type RemoteIdentityConfig struct {
	URL               string        `yaml:"url" json:"url"`
	AnonKey           string        `yaml:"anon_key" json:"anon_key"`
	AccessTokenCookie string        `yaml:"access_token_cookie" json:"access_token_cookie"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

type SearchConfig struct {
	DefaultRadius int     `yaml:"default_radius" json:"default_radius"`
	MaxRadius     int     `yaml:"max_radius" json:"max_radius"`
	FetchLimit    int     `yaml:"fetch_limit" json:"fetch_limit"`
	Concurrency   int     `yaml:"concurrency" json:"concurrency"`
	BackendQPS    float64 `yaml:"backend_qps" json:"backend_qps"`
	BackendBurst  int     `yaml:"backend_burst" json:"backend_burst"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig returns a configuration that runs out of the box against
// in-memory storage with rate limiting enabled.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         86400,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Path: "./data/marketplace.json",
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				ConnMaxLifetime: 5 * time.Minute,
				Migrate:         true,
			},
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:          true,
				Search:           RateLimitRule{Limit: 30, Window: time.Minute},
				Public:           RateLimitRule{Limit: 120, Window: time.Minute},
				SweepProbability: 0.01,
				Shards:           32,
				Stats: RateLimitStats{
					TTL: 24 * time.Hour,
				},
			},
			Admin: AdminConfig{
				PathPrefix:     "/admin",
				LoginPath:      "/login",
				DefaultPath:    "/dashboard",
				PrivilegedRole: "admin",
				LookupTimeout:  5 * time.Second,
				Identity: IdentityConfig{
					Provider:      IdentityProviderSession,
					SessionCookie: "session",
					Remote: RemoteIdentityConfig{
						AccessTokenCookie: "sb-access-token",
						Timeout:           5 * time.Second,
					},
				},
			},
		},
		Search: SearchConfig{
			DefaultRadius: 10,
			MaxRadius:     500,
			FetchLimit:    100,
			Concurrency:   4,
			BackendQPS:    0,
			BackendBurst:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "marketplace",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("invalid search config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}
	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}
	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypePostgres, StorageTypeSQLite:
		if stc.Database.DSN == "" {
			return errors.New("database DSN is required for database storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}
	return nil
}

func (sec *SecurityConfig) Validate() error {
	rl := sec.RateLimit
	if rl.Enabled {
		if rl.SweepProbability < 0 || rl.SweepProbability > 1 {
			return errors.New("sweep probability must be between 0 and 1")
		}
		if rl.Shards < 0 {
			return errors.New("shard count cannot be negative")
		}
		if rl.Stats.Enabled && rl.Stats.Redis.Addr == "" {
			return errors.New("redis address is required when rate limit stats are enabled")
		}
	}

	admin := sec.Admin
	if !strings.HasPrefix(admin.PathPrefix, "/") {
		return errors.New("admin path prefix must start with /")
	}
	if admin.LoginPath == "" || admin.DefaultPath == "" {
		return errors.New("admin login and default paths are required")
	}
	if admin.PrivilegedRole == "" {
		return errors.New("admin privileged role cannot be empty")
	}
	if admin.LookupTimeout <= 0 {
		return errors.New("admin lookup timeout must be positive")
	}
	switch admin.Identity.Provider {
	case IdentityProviderSession:
		if admin.Identity.SessionCookie == "" {
			return errors.New("session cookie name is required for session identity")
		}
	case IdentityProviderRemote:
		// Missing remote credentials are not a startup error: the admission
		// filter reports them per request.
	default:
		return fmt.Errorf("invalid identity provider: %s", admin.Identity.Provider)
	}
	return nil
}

func (s *SearchConfig) Validate() error {
	if s.DefaultRadius <= 0 {
		return errors.New("default radius must be positive")
	}
	if s.MaxRadius < s.DefaultRadius {
		return errors.New("max radius cannot be below default radius")
	}
	if s.FetchLimit <= 0 {
		return errors.New("fetch limit must be positive")
	}
	if s.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if s.BackendQPS < 0 {
		return errors.New("backend qps cannot be negative")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}
	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}
	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}
	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}
	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}
	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}
	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}
	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("otlp endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}
	return nil
}
