package api

import (
	"net/http"
	"runtime"
	"time"

	"marketplace/internal/logger"
	"marketplace/internal/models"
)

// AdminHealth reports detailed health for operators.
// GET /admin/health
func (h *Handlers) AdminHealth(w http.ResponseWriter, r *http.Request) {
	resp := models.NewHealthCheckResponse(models.StatusHealthy)
	resp.Version = h.version.Version
	resp.Uptime = time.Since(h.startTime).Round(time.Second).String()

	storageStatus, storageMsg := h.storageStatus(r.Context())
	resp.AddComponent("storage", storageStatus, storageMsg)
	resp.AddComponent("api", models.StatusHealthy, "API is operational")
	if h.windows != nil {
		resp.AddComponent("rate_limiter", models.StatusHealthy, "Rate limiter is active")
		resp.AddMetric("rate_limit_tracked_identifiers", h.windows.Len())
	} else {
		resp.AddComponent("rate_limiter", models.StatusHealthy, "Rate limiting is disabled")
	}

	resp.AddMetric("goroutines", runtime.NumGoroutine())
	resp.AddMetric("git_commit", h.version.GitCommit)
	resp.AddMetric("build_date", h.version.BuildDate)
	resp.AddMetric("instance_id", h.version.InstanceID)

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// AdminRateLimit reports the limiter's in-process state and, when a stats
// backend is configured, cumulative decision counts.
// GET /admin/ratelimit
func (h *Handlers) AdminRateLimit(w http.ResponseWriter, r *http.Request) {
	resp := models.RateLimitStatsResponse{
		Enabled:   h.windows != nil,
		Timestamp: time.Now(),
	}
	if h.windows != nil {
		resp.TrackedIdentifiers = h.windows.Len()
		resp.Shards = h.windows.Shards()
	}

	if h.stats != nil {
		allowed, denied, err := h.stats.Totals(r.Context())
		if err != nil {
			logger.FromContext(r.Context()).Warn("Failed to read rate limit stats", "error", err)
		} else {
			resp.Allowed = &allowed
			resp.Denied = &denied
		}
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}
