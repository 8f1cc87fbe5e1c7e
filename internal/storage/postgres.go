package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"marketplace/internal/models"
)

// PostgresStorage implements the Storage interface using PostgreSQL through a
// pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and, when
// configured, applies the embedded migrations.
func NewPostgresStorage(ctx context.Context, config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.Migrate {
		db := stdlib.OpenDBFromPool(pool)
		err := migrate(ctx, db, goose.DialectPostgres, "migrations/postgres")
		db.Close()
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &PostgresStorage{pool: pool}, nil
}

// Candidates returns visible listings of one kind matching query, newest first.
func (ps *PostgresStorage) Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := ps.pool.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE kind = $1
		  AND status = $2
		  AND (position(lower($3) in lower(title)) > 0 OR position(lower($3) in lower(description)) > 0)
		ORDER BY created_at DESC, id ASC
		LIMIT $4`,
		string(kind), models.ListingStatusApproved, strings.TrimSpace(query), limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s candidates: %w", kind, err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		l := &models.Listing{}
		if err := scanListing(rows, l, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s candidates: %w", kind, err)
	}

	return listings, nil
}

// GetListing retrieves a listing by its ID.
func (ps *PostgresStorage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	row := ps.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)

	l := &models.Listing{}
	if err := scanListing(row, l, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// SaveListing stores or updates a listing (upsert).
func (ps *PostgresStorage) SaveListing(ctx context.Context, listing *models.Listing) error {
	createdAt := listing.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			image_url = EXCLUDED.image_url,
			location = EXCLUDED.location,
			city = EXCLUDED.city,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			status = EXCLUDED.status`,
		listingArgs(listing, createdAt)...,
	)
	if err != nil {
		return fmt.Errorf("failed to save listing %s: %w", listing.ID, err)
	}
	return nil
}

// GetUser retrieves a user record by its ID.
func (ps *PostgresStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	err := ps.pool.QueryRow(ctx,
		`SELECT id, email, name, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// SaveUser stores or updates a user record (upsert).
func (ps *PostgresStorage) SaveUser(ctx context.Context, user *models.User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			role = EXCLUDED.role`,
		user.ID, user.Email, user.Name, user.Role, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}
	return nil
}

// GetSessionByHash looks up a session by the hash of its token.
func (ps *PostgresStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	s := &models.Session{}
	err := ps.pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// SaveSession stores a session.
func (ps *PostgresStorage) SaveSession(ctx context.Context, session *models.Session) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at`,
		session.ID, session.UserID, session.TokenHash, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
