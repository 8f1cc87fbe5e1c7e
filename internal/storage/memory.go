package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketplace/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data structures.
// This provider is ideal for development, testing, and scenarios where data
// persistence is not required. It provides fast access but data is lost on restart.
type MemoryStorage struct {
	mu            sync.RWMutex
	listings      map[string]*models.Listing
	users         map[string]*models.User
	sessions      map[string]*models.Session // keyed by ID
	sessionHashes map[string]string          // hash -> ID
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		listings:      make(map[string]*models.Listing),
		users:         make(map[string]*models.User),
		sessions:      make(map[string]*models.Session),
		sessionHashes: make(map[string]string),
	}, nil
}

// Candidates returns visible listings of one kind matching query, newest first
func (m *MemoryStorage) Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*models.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		all = append(all, l)
	}
	return selectCandidates(all, kind, query, limit), nil
}

// GetListing retrieves a listing by its ID
func (m *MemoryStorage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, exists := m.listings[id]
	if !exists {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}

	listingCopy := *l
	return &listingCopy, nil
}

// SaveListing stores or updates a listing
func (m *MemoryStorage) SaveListing(ctx context.Context, listing *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy to prevent external modification
	listingCopy := *listing
	m.listings[listing.ID] = &listingCopy
	return nil
}

// GetUser retrieves a user record by its ID
func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	userCopy := *u
	return &userCopy, nil
}

// SaveUser stores or updates a user record
func (m *MemoryStorage) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userCopy := *user
	m.users[user.ID] = &userCopy
	return nil
}

// GetSessionByHash looks up a session by the hash of its token
func (m *MemoryStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.sessionHashes[tokenHash]
	if !exists {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}

	sessionCopy := *m.sessions[id]
	return &sessionCopy, nil
}

// SaveSession stores a session
func (m *MemoryStorage) SaveSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.sessions[session.ID]; exists {
		delete(m.sessionHashes, old.TokenHash)
	}

	sessionCopy := *session
	m.sessions[session.ID] = &sessionCopy
	m.sessionHashes[session.TokenHash] = session.ID
	return nil
}

// Ping always succeeds for in-memory storage.
func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close closes the storage (no-op for memory storage)
func (m *MemoryStorage) Close() error {
	return nil
}

// selectCandidates applies the candidate filter shared by the in-process
// backends: kind, visibility and text match, newest first, then limit.
// Returned listings are copies.
func selectCandidates(all []*models.Listing, kind models.Kind, query string, limit int) []*models.Listing {
	out := make([]*models.Listing, 0)
	for _, l := range all {
		if l.Kind != kind || !l.Visible() || !l.MatchesQuery(query) {
			continue
		}
		listingCopy := *l
		out = append(out, &listingCopy)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
