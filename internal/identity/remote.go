package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"marketplace/internal/models"
	"marketplace/internal/version"
)

// RemoteProvider resolves identities against a hosted auth service that
// exposes GET {url}/auth/v1/user.
type RemoteProvider struct {
	baseURL string
	anonKey string
	cookie  string
	client  *http.Client
}

// NewRemoteProvider creates a provider from configuration. A nil client gets
// one with the configured timeout.
func NewRemoteProvider(cfg models.RemoteIdentityConfig, client *http.Client) *RemoteProvider {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		anonKey: strings.TrimSpace(cfg.AnonKey),
		cookie:  cfg.AccessTokenCookie,
		client:  client,
	}
}

// Configured is false when the URL or key is missing or still a template
// placeholder.
func (p *RemoteProvider) Configured() bool {
	if p == nil {
		return false
	}
	return p.baseURL != "" && p.anonKey != "" &&
		!isPlaceholder(p.baseURL) && !isPlaceholder(p.anonKey)
}

func (p *RemoteProvider) Resolve(ctx context.Context, r *http.Request) (string, error) {
	token := p.accessToken(r)
	if token == "" {
		return "", ErrNoIdentity
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("access token rejected: %w", ErrNoIdentity)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode identity response: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("identity response has no user id: %w", ErrNoIdentity)
	}

	return user.ID, nil
}

// accessToken reads the token from the configured cookie, falling back to a
// bearer Authorization header.
func (p *RemoteProvider) accessToken(r *http.Request) string {
	if p.cookie != "" {
		if c, err := r.Cookie(p.cookie); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func isPlaceholder(v string) bool {
	lower := strings.ToLower(v)
	return strings.Contains(lower, "placeholder") ||
		strings.Contains(lower, "your-") ||
		strings.Contains(lower, "your_") ||
		strings.Contains(lower, "<") ||
		lower == "changeme"
}
