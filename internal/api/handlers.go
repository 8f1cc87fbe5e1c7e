package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/logger"
	"marketplace/internal/models"
	"marketplace/internal/ratelimit"
	"marketplace/internal/search"
	"marketplace/internal/storage"
	"marketplace/internal/version"
)

// StatsSource reports cumulative rate limit decisions from a stats backend.
type StatsSource interface {
	Totals(ctx context.Context) (allowed, denied int64, err error)
}

// Handlers contains HTTP handlers for the marketplace API
type Handlers struct {
	searchService search.ServiceInterface
	storage       storage.Storage
	windows       *ratelimit.WindowStore
	stats         StatsSource
	version       version.Info
	startTime     time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handlers)

// WithWindowStore exposes the limiter's window store on the admin endpoints.
func WithWindowStore(store *ratelimit.WindowStore) HandlerOption {
	return func(h *Handlers) { h.windows = store }
}

// WithStatsSource adds cumulative decision counts to the rate limit report.
func WithStatsSource(src StatsSource) HandlerOption {
	return func(h *Handlers) { h.stats = src }
}

// WithVersion sets the build info reported by health endpoints.
func WithVersion(info version.Info) HandlerOption {
	return func(h *Handlers) { h.version = info }
}

// NewHandlers creates a new handlers instance
func NewHandlers(searchService search.ServiceInterface, store storage.Storage, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		searchService: searchService,
		storage:       store,
		version:       version.GetInfo(),
		startTime:     time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Search handles proximity search requests
// GET /api/search?lat=&lng=&radius=&type=&q=
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := &models.SearchRequest{
		Center: models.Coordinates{
			Lat: parseCoordinate(q.Get("lat")),
			Lng: parseCoordinate(q.Get("lng")),
		},
		RadiusMiles: parseRadius(q.Get("radius")),
		Kind:        models.Kind(q.Get("type")),
		Query:       q.Get("q"),
	}

	resp, err := h.searchService.Search(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Debug("Search served",
		"kind", req.Kind,
		"radius", resp.Radius,
		"total", resp.Total,
		"returned", len(resp.Results),
	)
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// HealthCheck handles health check requests
// GET /health, GET /api/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version
	storageStatus, storageMsg := h.storageStatus(r.Context())
	response.AddComponent("storage", storageStatus, storageMsg)
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	h.writeJSONResponse(w, http.StatusOK, response)
}

func (h *Handlers) storageStatus(ctx context.Context) (status, message string) {
	if h.storage == nil {
		return models.StatusUnhealthy, "Storage is not configured"
	}
	if err := h.storage.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Storage health check failed", "error", err)
		return models.StatusUnhealthy, "Storage is unreachable"
	}
	return models.StatusHealthy, "Storage is operational"
}

// writeServiceError maps a search.ServiceError to its status and code.
// Anything else is reported as an internal error without details.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *search.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.StatusCode >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("Search failed", "error", err)
		}
		h.writeErrorResponse(w, r, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	logger.FromContext(r.Context()).Error("Unexpected search error", "error", err)
	h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data)
}

// writeErrorResponse writes an error response tagged with the request id.
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	errorResp := models.NewErrorResponse(message, errorCode).WithRequestID(RequestID(r.Context()))
	writeJSON(w, statusCode, errorResp)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to report to the client.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// parseCoordinate returns 0 (unset) for empty, malformed or non-finite input.
func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseRadius truncates fractional miles. Malformed input yields 0, which
// the search service replaces with the default radius.
func parseRadius(s string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
