// Package identity resolves the signed-in user behind a request.
package identity

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoIdentity is returned when a request carries no usable credentials.
var ErrNoIdentity = errors.New("no identity present")

// Provider resolves a request to a user id.
type Provider interface {
	// Configured reports whether the provider has what it needs to run.
	Configured() bool

	// Resolve returns the user id behind r, or an error wrapping
	// ErrNoIdentity when the request is anonymous.
	Resolve(ctx context.Context, r *http.Request) (string, error)
}
