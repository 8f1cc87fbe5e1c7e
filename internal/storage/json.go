package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"marketplace/internal/models"
)

// JSONStorage implements the Storage interface using a JSON file for persistence.
// It keeps an in-memory cache that is revalidated against the file's
// modification time once the cache TTL has passed, so a seed file edited by
// hand is picked up without a restart.
type JSONStorage struct {
	filePath     string
	cacheTTL     time.Duration
	mu           sync.RWMutex
	data         *JSONData
	lastModified time.Time
	cacheExpiry  time.Time
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	Listings    []*models.Listing `json:"listings"`
	Users       []*models.User    `json:"users"`
	Sessions    []*models.Session `json:"sessions"`
	LastUpdated time.Time         `json:"last_updated"`
}

// NewJSONStorage creates a new JSON-based storage instance
func NewJSONStorage(config Config) (*JSONStorage, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("path is required for JSON storage")
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	storage := &JSONStorage{
		filePath: config.Path,
		cacheTTL: cacheTTL,
	}

	if err := storage.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}

	if err := storage.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	return storage, nil
}

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONStorage) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}

		emptyData := &JSONData{
			Listings: []*models.Listing{},
			Users:    []*models.User{},
			Sessions: []*models.Session{},
		}

		return j.saveData(emptyData)
	}
	return nil
}

// loadData loads data from the JSON file with caching.
// It uses double-checked locking: a fast read-lock path for cache hits,
// and a write-lock slow path with re-validation.
func (j *JSONStorage) loadData() error {
	j.mu.RLock()
	if j.data != nil && time.Now().Before(j.cacheExpiry) {
		j.mu.RUnlock()
		return nil
	}
	j.mu.RUnlock()

	j.mu.Lock()
	defer j.mu.Unlock()

	// Another goroutine may have loaded while we waited for the write lock.
	if j.data != nil && time.Now().Before(j.cacheExpiry) {
		return nil
	}

	info, err := os.Stat(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if j.data != nil && !info.ModTime().After(j.lastModified) {
		j.cacheExpiry = time.Now().Add(j.cacheTTL)
		return nil
	}

	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	j.data = &data
	j.lastModified = info.ModTime()
	j.cacheExpiry = time.Now().Add(j.cacheTTL)
	return nil
}

// saveData saves data to the JSON file. Callers hold the write lock.
func (j *JSONStorage) saveData(data *JSONData) error {
	data.LastUpdated = time.Now()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(j.filePath, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if info, err := os.Stat(j.filePath); err == nil {
		j.lastModified = info.ModTime()
	}
	return nil
}

// Candidates returns visible listings of one kind matching query, newest first
func (j *JSONStorage) Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	return selectCandidates(j.data.Listings, kind, query, limit), nil
}

// GetListing retrieves a listing by its ID
func (j *JSONStorage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, l := range j.data.Listings {
		if l.ID == id {
			listingCopy := *l
			return &listingCopy, nil
		}
	}

	return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
}

// SaveListing stores or updates a listing
func (j *JSONStorage) SaveListing(ctx context.Context, listing *models.Listing) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	listingCopy := *listing
	for i, existing := range j.data.Listings {
		if existing.ID == listing.ID {
			j.data.Listings[i] = &listingCopy
			return j.saveData(j.data)
		}
	}

	j.data.Listings = append(j.data.Listings, &listingCopy)
	return j.saveData(j.data)
}

// GetUser retrieves a user record by its ID
func (j *JSONStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, u := range j.data.Users {
		if u.ID == id {
			userCopy := *u
			return &userCopy, nil
		}
	}

	return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

// SaveUser stores or updates a user record
func (j *JSONStorage) SaveUser(ctx context.Context, user *models.User) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	userCopy := *user
	for i, existing := range j.data.Users {
		if existing.ID == user.ID {
			j.data.Users[i] = &userCopy
			return j.saveData(j.data)
		}
	}

	j.data.Users = append(j.data.Users, &userCopy)
	return j.saveData(j.data)
}

// GetSessionByHash looks up a session by the hash of its token
func (j *JSONStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, s := range j.data.Sessions {
		if s.TokenHash == tokenHash {
			sessionCopy := *s
			return &sessionCopy, nil
		}
	}

	return nil, fmt.Errorf("session: %w", ErrNotFound)
}

// SaveSession stores a session
func (j *JSONStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	sessionCopy := *session
	for i, existing := range j.data.Sessions {
		if existing.ID == session.ID {
			j.data.Sessions[i] = &sessionCopy
			return j.saveData(j.data)
		}
	}

	j.data.Sessions = append(j.data.Sessions, &sessionCopy)
	return j.saveData(j.data)
}

// Ping verifies the backing file is still readable.
func (j *JSONStorage) Ping(_ context.Context) error {
	if _, err := os.Stat(j.filePath); err != nil {
		return fmt.Errorf("json storage unavailable: %w", err)
	}
	return nil
}

// Close closes the storage connection and cleans up resources
func (j *JSONStorage) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.data = nil
	j.cacheExpiry = time.Time{}

	return nil
}
