package storage

import (
	"context"
	"time"

	"marketplace/internal/models"
)

// Storage defines the interface for marketplace content and account
// persistence. It can be implemented by different backends such as JSON
// files or databases.
type Storage interface {
	// Candidates returns visible listings of one kind whose title or
	// description loosely matches query, newest first. A non-positive limit
	// returns every match.
	Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error)

	// GetListing retrieves a listing by its ID
	GetListing(ctx context.Context, id string) (*models.Listing, error)

	// SaveListing stores or updates a listing
	SaveListing(ctx context.Context, listing *models.Listing) error

	// GetUser retrieves a user record by its ID
	GetUser(ctx context.Context, id string) (*models.User, error)

	// SaveUser stores or updates a user record
	SaveUser(ctx context.Context, user *models.User) error

	// GetSessionByHash looks up a session by the SHA-256 hash of its token
	GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// SaveSession stores a session
	SaveSession(ctx context.Context, session *models.Session) error

	// Ping verifies the storage backend is reachable and operational
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (json, memory, postgres, sqlite)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// CacheTTL specifies how long the JSON backend trusts its in-memory copy
	CacheTTL time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`

	MaxOpenConns    int           `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime,omitempty" yaml:"conn_max_lifetime,omitempty"`

	// Migrate applies embedded schema migrations on open
	Migrate bool `json:"migrate,omitempty" yaml:"migrate,omitempty"`
}
