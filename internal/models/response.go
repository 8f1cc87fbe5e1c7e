// Package models - API response types and error codes.
// Every JSON endpoint answers either with its own response type or with
// ErrorResponse, so clients can branch on Code without parsing messages.
package models

import (
	"time"
)

// SearchResponse is the payload of GET /api/search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"` // survivors before truncation
	Center  Coordinates    `json:"center"`
	Radius  int            `json:"radius"`
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Metrics    map[string]interface{}     `json:"metrics,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RateLimitStatsResponse is served on the admin rate limit endpoint.
type RateLimitStatsResponse struct {
	Enabled            bool      `json:"enabled"`
	TrackedIdentifiers int       `json:"tracked_identifiers"`
	Shards             int       `json:"shards"`
	Allowed            *int64    `json:"allowed,omitempty"` // from the stats backend, when configured
	Denied             *int64    `json:"denied,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeBadRequest         = "BAD_REQUEST"
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"
	ErrorCodeValidation         = "VALIDATION_ERROR"
	ErrorCodeInternalError      = "INTERNAL_ERROR"
	ErrorCodeUnauthorized       = "UNAUTHORIZED"
	ErrorCodeForbidden          = "FORBIDDEN"
	ErrorCodeRateLimited        = "RATE_LIMITED"
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// WithRequestID attaches the request id assigned by the logging middleware.
func (e *ErrorResponse) WithRequestID(id string) *ErrorResponse {
	e.RequestID = id
	return e
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
		Metrics:    make(map[string]interface{}),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	if status != StatusHealthy && h.Status == StatusHealthy {
		h.Status = StatusDegraded
	}
}

func (h *HealthCheckResponse) AddMetric(name string, value interface{}) {
	h.Metrics[name] = value
}
