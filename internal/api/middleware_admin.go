package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"marketplace/internal/admission"
)

// adminMiddleware runs the admission filter in front of the admin area and
// keeps admin responses out of shared caches.
func adminMiddleware(filter *admission.Filter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		gated := filter.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			gated.ServeHTTP(w, r)
		})
	}
}
