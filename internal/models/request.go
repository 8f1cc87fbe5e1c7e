// Package models - API request types.
package models

import (
	"errors"
	"strings"
)

// ErrMissingCoordinates is returned when a search center is absent or zero.
var ErrMissingCoordinates = errors.New("Latitude and longitude are required")

// SearchRequest is a proximity search over every enabled content kind.
type SearchRequest struct {
	Center      Coordinates `json:"center"`
	RadiusMiles int         `json:"radius"`
	Kind        Kind        `json:"type"`
	Query       string      `json:"q"`
}

// Validate checks the request before any data store access.
func (r *SearchRequest) Validate() error {
	if !r.Center.Valid() {
		return ErrMissingCoordinates
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	return nil
}

// Normalize fills defaults: a non-positive radius becomes defaultRadius and
// anything above maxRadius is clamped. Query whitespace is trimmed.
func (r *SearchRequest) Normalize(defaultRadius, maxRadius int) {
	if r.RadiusMiles <= 0 {
		r.RadiusMiles = defaultRadius
	}
	if maxRadius > 0 && r.RadiusMiles > maxRadius {
		r.RadiusMiles = maxRadius
	}
	if k, err := ParseKind(string(r.Kind)); err == nil {
		r.Kind = k
	}
	r.Query = strings.TrimSpace(r.Query)
}
