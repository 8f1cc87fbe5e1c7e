package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// MetricsServer serves Prometheus metrics on a separate port so scrapes
// bypass the public router and its rate limits.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics server exposing the provider's scrape
// handler at path. Without metrics the server answers 404.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if h := provider.MetricsHandler(); h != nil {
		mux.Handle(path, h)
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start listens on the configured address and serves metrics in a
// blocking call. Returns http.ErrServerClosed on graceful shutdown.
func (ms *MetricsServer) Start() error {
	l, err := net.Listen("tcp", ms.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ms.server.Addr, err)
	}
	return ms.serve(l)
}

func (ms *MetricsServer) serve(l net.Listener) error {
	slog.Info("Starting metrics server", "addr", l.Addr().String())
	return ms.server.Serve(l)
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}
