package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind is a content category that can appear in proximity search results.
type Kind string

const (
	KindAll         Kind = "all"
	KindBusiness    Kind = "business"
	KindMarketplace Kind = "marketplace"
	KindJob         Kind = "job"
	KindService     Kind = "service"
)

// searchableKinds is the fixed fan-out order. It also decides how equal
// distances from different categories are ordered.
var searchableKinds = []Kind{KindBusiness, KindMarketplace, KindJob, KindService}

// SearchableKinds returns every concrete kind in fan-out order.
func SearchableKinds() []Kind {
	out := make([]Kind, len(searchableKinds))
	copy(out, searchableKinds)
	return out
}

// ParseKind parses a "type" query value. The empty string means KindAll.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" || k == KindAll {
		return KindAll, nil
	}
	for _, known := range searchableKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown search type: %q", s)
}

// Expand returns the concrete kinds a filter enables.
func (k Kind) Expand() []Kind {
	if k == KindAll || k == "" {
		return SearchableKinds()
	}
	return []Kind{k}
}

// Listing status values. Only approved listings are visible to search.
const (
	ListingStatusPending  = "pending"
	ListingStatusApproved = "approved"
	ListingStatusRejected = "rejected"
)

// Listing is a stored piece of content of any kind: a business profile,
// a marketplace item, a job post or a service offer.
type Listing struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       *float64  `json:"price,omitempty"`
	Address     string    `json:"address,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Location    string    `json:"location,omitempty"` // free text, e.g. "Bellaire Blvd, Houston TX"
	City        string    `json:"city,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Visible reports whether the listing may be returned by search.
func (l *Listing) Visible() bool {
	return l.Status == ListingStatusApproved
}

// MatchesQuery is the loose text filter applied by the data store: a
// case-insensitive substring match on title or description. An empty query
// matches everything.
func (l *Listing) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Title), q) ||
		strings.Contains(strings.ToLower(l.Description), q)
}

// Coordinates returns the explicit coordinates of the listing, if both are set.
func (l *Listing) Coordinates() (Coordinates, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return Coordinates{}, false
	}
	c := Coordinates{Lat: *l.Latitude, Lng: *l.Longitude}
	return c, c.Valid()
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are set. A zero component is
// treated as unset, so points on the equator or prime meridian are rejected.
func (c Coordinates) Valid() bool {
	return c.Lat != 0 && c.Lng != 0
}

// SearchResult is the normalized, per-request shape of a ranked listing.
type SearchResult struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Kind          Kind     `json:"type"`
	DistanceMiles float64  `json:"distance"`
	Price         *float64 `json:"price,omitempty"`
	Address       string   `json:"address,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Website       string   `json:"website,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// NewSearchResult copies the public fields of a listing into a result.
func NewSearchResult(l *Listing, distanceMiles float64) SearchResult {
	return SearchResult{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		Kind:          l.Kind,
		DistanceMiles: distanceMiles,
		Price:         l.Price,
		Address:       l.Address,
		Phone:         l.Phone,
		Website:       l.Website,
		ImageURL:      l.ImageURL,
	}
}
