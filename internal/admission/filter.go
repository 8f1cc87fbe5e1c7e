// Package admission gates the administrative area of the site. Every request
// under the protected prefix is checked for a signed-in user holding the
// privileged role before it reaches a handler; anything else is redirected.
// Decisions are recomputed per request and never cached.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketplace/internal/identity"
	"marketplace/internal/models"
)

// DecisionKind is the outcome of an admission check.
type DecisionKind int

const (
	Proceed DecisionKind = iota
	RedirectToLogin
	RedirectToDefault
	RejectConfigError
)

func (k DecisionKind) String() string {
	switch k {
	case Proceed:
		return "proceed"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToDefault:
		return "redirect_to_default"
	case RejectConfigError:
		return "reject_config_error"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// Decision is the filter's verdict for one request. Location is empty for
// Proceed.
type Decision struct {
	Kind     DecisionKind
	Location string
	Reason   string
}

// DefaultLookupTimeout bounds each collaborator call when none is configured.
const DefaultLookupTimeout = 5 * time.Second

// Filter decides whether a request may enter the protected area.
type Filter struct {
	identity       identity.Provider
	roles          RoleLookup
	prefix         string
	loginPath      string
	defaultPath    string
	privilegedRole string
	timeout        time.Duration
	observers      []func(Decision)
}

// Option configures a Filter.
type Option func(*Filter)

// WithObserver registers fn to be called with every decision.
func WithObserver(fn func(Decision)) Option {
	return func(f *Filter) { f.observers = append(f.observers, fn) }
}

// NewFilter creates a filter from the admin configuration.
func NewFilter(provider identity.Provider, roles RoleLookup, cfg models.AdminConfig, opts ...Option) *Filter {
	f := &Filter{
		identity:       provider,
		roles:          roles,
		prefix:         strings.TrimRight(cfg.PathPrefix, "/"),
		loginPath:      cfg.LoginPath,
		defaultPath:    cfg.DefaultPath,
		privilegedRole: cfg.PrivilegedRole,
		timeout:        cfg.LookupTimeout,
	}
	if f.prefix == "" {
		f.prefix = "/admin"
	}
	if f.loginPath == "" {
		f.loginPath = "/login"
	}
	if f.defaultPath == "" {
		f.defaultPath = "/dashboard"
	}
	if f.privilegedRole == "" {
		f.privilegedRole = models.RoleAdmin
	}
	if f.timeout <= 0 {
		f.timeout = DefaultLookupTimeout
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Protects reports whether path falls under the protected prefix.
func (f *Filter) Protects(path string) bool {
	return path == f.prefix || strings.HasPrefix(path, f.prefix+"/")
}

// Decide runs the admission check for r. It never panics: a failure inside
// a collaborator is turned into a redirect to the login page.
func (f *Filter) Decide(r *http.Request) (d Decision) {
	returnURL := r.URL.RequestURI()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Admin check failed",
				"path", r.URL.Path,
				"panic", fmt.Sprint(rec),
			)
			d = Decision{
				Kind:     RedirectToLogin,
				Location: f.loginURL(url.Values{"error": {"admin_check_failed"}, "returnUrl": {returnURL}}),
				Reason:   "admin check failed",
			}
		}
		for _, observe := range f.observers {
			observe(d)
		}
	}()

	if f.identity == nil || !f.identity.Configured() || f.roles == nil {
		slog.Error("Admin area requested but identity provider is not configured", "path", r.URL.Path)
		return Decision{
			Kind:     RejectConfigError,
			Location: f.loginURL(url.Values{"error": {"admin_not_configured"}}),
			Reason:   "identity provider not configured",
		}
	}

	userID, err := f.resolveIdentity(r)
	if err != nil || userID == "" {
		reason := "no identity"
		if err != nil {
			reason = err.Error()
		}
		return Decision{
			Kind:     RedirectToLogin,
			Location: f.loginURL(url.Values{"returnUrl": {returnURL}}),
			Reason:   reason,
		}
	}

	role, err := f.lookupRole(r, userID)
	// A returned error, timeout included, is a denial. Only a panic is a
	// failed check and goes back to login through the recover above.
	if err != nil {
		slog.Warn("Role lookup failed", "user_id", userID, "error", err)
		return Decision{Kind: RedirectToDefault, Location: f.defaultPath, Reason: "role lookup failed"}
	}
	if role != f.privilegedRole {
		return Decision{Kind: RedirectToDefault, Location: f.defaultPath, Reason: "insufficient role"}
	}

	return Decision{Kind: Proceed, Reason: "privileged"}
}

func (f *Filter) resolveIdentity(r *http.Request) (string, error) {
	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()
	return f.identity.Resolve(ctx, r)
}

func (f *Filter) lookupRole(r *http.Request, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()
	return f.roles.Role(ctx, userID)
}

func (f *Filter) loginURL(q url.Values) string {
	return f.loginPath + "?" + q.Encode()
}

// Middleware enforces the filter on protected paths. Other paths pass
// through untouched.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.Protects(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		d := f.Decide(r)
		if d.Kind == Proceed {
			next.ServeHTTP(w, r)
			return
		}

		slog.Info("Admin request redirected",
			"path", r.URL.Path,
			"decision", d.Kind.String(),
			"reason", d.Reason,
		)
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
	})
}
