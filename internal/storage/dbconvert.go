package storage

import (
	"time"

	"marketplace/internal/models"
)

const listingColumns = `id, kind, title, description, price, address, phone, website,
	image_url, location, city, latitude, longitude, status, created_at`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanListing reads one row in listingColumns order. createdAt receives the
// last column so each backend can decode its own timestamp representation.
func scanListing(row rowScanner, l *models.Listing, createdAt any) error {
	var kind string
	err := row.Scan(
		&l.ID, &kind, &l.Title, &l.Description, &l.Price,
		&l.Address, &l.Phone, &l.Website, &l.ImageURL,
		&l.Location, &l.City, &l.Latitude, &l.Longitude,
		&l.Status, createdAt,
	)
	l.Kind = models.Kind(kind)
	return err
}

// listingArgs returns a listing's values in listingColumns order.
func listingArgs(l *models.Listing, createdAt any) []any {
	return []any{
		l.ID, string(l.Kind), l.Title, l.Description, l.Price,
		l.Address, l.Phone, l.Website, l.ImageURL,
		l.Location, l.City, l.Latitude, l.Longitude,
		l.Status, createdAt,
	}
}

// toUnixMillis encodes a timestamp for SQLite INTEGER columns.
func toUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// fromUnixMillis decodes a SQLite INTEGER timestamp as UTC.
func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
