package identity

import (
	"fmt"

	"marketplace/internal/models"
)

// NewProvider builds the provider selected by configuration.
func NewProvider(cfg models.IdentityConfig, sessions SessionStore) (Provider, error) {
	switch cfg.Provider {
	case models.IdentityProviderSession:
		return NewSessionProvider(sessions, cfg.SessionCookie), nil
	case models.IdentityProviderRemote:
		return NewRemoteProvider(cfg.Remote, nil), nil
	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", cfg.Provider)
	}
}
