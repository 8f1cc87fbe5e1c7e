package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"marketplace/internal/admission"
	"marketplace/internal/models"
	"marketplace/internal/ratelimit"
)

// Rate limit route names. They prefix limiter keys and label decisions.
const (
	RouteSearch = "search"
	RoutePublic = "public"
)

type routeOptions struct {
	otelService string
	limiter     ratelimit.Limiter
	recorder    ratelimit.Recorder
	admission   *admission.Filter
}

// RouteOption configures optional route behavior.
type RouteOption func(*routeOptions)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(o *routeOptions) { o.otelService = serviceName }
}

// WithRateLimiter enforces the configured rules on public routes. rec may
// be nil.
func WithRateLimiter(limiter ratelimit.Limiter, rec ratelimit.Recorder) RouteOption {
	return func(o *routeOptions) {
		o.limiter = limiter
		o.recorder = rec
	}
}

// WithAdmission gates the admin area. Without it admin routes are not
// registered.
func WithAdmission(filter *admission.Filter) RouteOption {
	return func(o *routeOptions) { o.admission = filter }
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	o := &routeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	router := mux.NewRouter()

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)
	if o.otelService != "" {
		router.Use(otelmux.Middleware(o.otelService,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && r.URL.Path != "/api/health"
			}),
		))
	}
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}

	limit := func(route string, rule models.RateLimitRule) func(http.Handler) http.Handler {
		if o.limiter == nil || !config.Security.RateLimit.Enabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimit.Middleware(o.limiter,
			ratelimit.Rule{Limit: rule.Limit, Window: rule.Window},
			ratelimit.WithRoute(route),
			ratelimit.WithRecorder(o.recorder),
		)
	}
	searchLimit := limit(RouteSearch, config.Security.RateLimit.Search)
	publicLimit := limit(RoutePublic, config.Security.RateLimit.Public)

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Handle("/search", searchLimit(http.HandlerFunc(handlers.Search))).Methods(http.MethodGet)
	api.Handle("/health", publicLimit(http.HandlerFunc(handlers.HealthCheck))).Methods(http.MethodGet)
	api.PathPrefix("").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).Methods(http.MethodOptions)

	if o.admission != nil {
		prefix := config.Security.Admin.PathPrefix
		admin := router.PathPrefix(prefix).Subrouter()
		admin.Use(adminMiddleware(o.admission))
		admin.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, prefix+"/health", http.StatusSeeOther)
		}).Methods(http.MethodGet)
		admin.HandleFunc("/health", handlers.AdminHealth).Methods(http.MethodGet)
		admin.HandleFunc("/ratelimit", handlers.AdminRateLimit).Methods(http.MethodGet)
		// Any other path or method under the prefix still has to pass the filter.
		admin.PathPrefix("").Handler(jsonError(http.StatusNotFound, models.ErrorCodeNotFound, "Not found"))
	} else {
		slog.Warn("Admin routes disabled: no admission filter configured")
	}

	router.NotFoundHandler = jsonError(http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
	router.MethodNotAllowedHandler = jsonError(http.StatusMethodNotAllowed, models.ErrorCodeInvalidRequest, "Method not allowed")

	return router
}
