package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/storage"
)

// SessionStore is the part of storage.Storage the session provider reads.
type SessionStore interface {
	GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error)
}

// SessionProvider resolves identities from a server-side session cookie.
type SessionProvider struct {
	store  SessionStore
	cookie string
	now    func() time.Time
}

// NewSessionProvider creates a provider reading cookieName.
func NewSessionProvider(store SessionStore, cookieName string) *SessionProvider {
	return &SessionProvider{
		store:  store,
		cookie: cookieName,
		now:    time.Now,
	}
}

func (p *SessionProvider) Configured() bool {
	return p != nil && p.store != nil && p.cookie != ""
}

func (p *SessionProvider) Resolve(ctx context.Context, r *http.Request) (string, error) {
	c, err := r.Cookie(p.cookie)
	if err != nil || c.Value == "" {
		return "", ErrNoIdentity
	}

	session, err := p.store.GetSessionByHash(ctx, models.HashSessionToken(c.Value))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("unknown session: %w", ErrNoIdentity)
		}
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	if session.Expired(p.now()) {
		return "", fmt.Errorf("session expired: %w", ErrNoIdentity)
	}

	return session.UserID, nil
}
