package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"marketplace/internal/models"
)

// SQLiteStorage implements the Storage interface on an embedded SQLite
// database. Timestamps are stored as Unix milliseconds.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database named by the connection string (a file
// path or ":memory:") and, when configured, applies the embedded migrations.
func NewSQLiteStorage(ctx context.Context, config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(config.ConnectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.Migrate {
		if err := migrate(ctx, db, goose.DialectSQLite3, "migrations/sqlite"); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLiteStorage{db: db}, nil
}

// Candidates returns visible listings of one kind matching query, newest first.
func (ss *SQLiteStorage) Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error) {
	if limit <= 0 {
		limit = -1
	}

	q := strings.TrimSpace(query)
	rows, err := ss.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE kind = ?
		  AND status = ?
		  AND (instr(lower(title), lower(?)) > 0 OR instr(lower(description), lower(?)) > 0)
		ORDER BY created_at DESC, id ASC
		LIMIT ?`,
		string(kind), models.ListingStatusApproved, q, q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s candidates: %w", kind, err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		l := &models.Listing{}
		var createdAt int64
		if err := scanListing(rows, l, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.CreatedAt = fromUnixMillis(createdAt)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s candidates: %w", kind, err)
	}

	return listings, nil
}

// GetListing retrieves a listing by its ID.
func (ss *SQLiteStorage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	row := ss.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)

	l := &models.Listing{}
	var createdAt int64
	if err := scanListing(row, l, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	l.CreatedAt = fromUnixMillis(createdAt)
	return l, nil
}

// SaveListing stores or updates a listing (upsert).
func (ss *SQLiteStorage) SaveListing(ctx context.Context, listing *models.Listing) error {
	createdAt := listing.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			description = excluded.description,
			price = excluded.price,
			address = excluded.address,
			phone = excluded.phone,
			website = excluded.website,
			image_url = excluded.image_url,
			location = excluded.location,
			city = excluded.city,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			status = excluded.status`,
		listingArgs(listing, toUnixMillis(createdAt))...,
	)
	if err != nil {
		return fmt.Errorf("failed to save listing %s: %w", listing.ID, err)
	}
	return nil
}

// GetUser retrieves a user record by its ID.
func (ss *SQLiteStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	var createdAt int64
	err := ss.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = fromUnixMillis(createdAt)
	return u, nil
}

// SaveUser stores or updates a user record (upsert).
func (ss *SQLiteStorage) SaveUser(ctx context.Context, user *models.User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			role = excluded.role`,
		user.ID, user.Email, user.Name, user.Role, toUnixMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}
	return nil
}

// GetSessionByHash looks up a session by the hash of its token.
func (ss *SQLiteStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	s := &models.Session{}
	var expiresAt, createdAt int64
	err := ss.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.ExpiresAt = fromUnixMillis(expiresAt)
	s.CreatedAt = fromUnixMillis(createdAt)
	return s, nil
}

// SaveSession stores a session.
func (ss *SQLiteStorage) SaveSession(ctx context.Context, session *models.Session) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at`,
		session.ID, session.UserID, session.TokenHash,
		toUnixMillis(session.ExpiresAt), toUnixMillis(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the database.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}
