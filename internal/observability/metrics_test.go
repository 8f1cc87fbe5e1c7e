package observability

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
	"marketplace/internal/version"
)

func TestNewMetricsServer(t *testing.T) {
	provider, err := Setup(models.MetricsConfig{Enabled: true}, models.ObservabilityConfig{}, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	ms := NewMetricsServer(9090, "/metrics", provider)
	require.NotNil(t, ms)
	assert.Equal(t, ":9090", ms.server.Addr)
}

func TestNewMetricsServer_NilProvider(t *testing.T) {
	ms := NewMetricsServer(9090, "/metrics", nil)
	assert.NotNil(t, ms)
}

func TestMetricsServer_ServeAndShutdown(t *testing.T) {
	provider, err := Setup(models.MetricsConfig{Enabled: true}, models.ObservabilityConfig{}, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ms := NewMetricsServer(0, "/metrics", provider)
	errCh := make(chan error, 1)
	go func() { errCh <- ms.serve(l) }()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + l.Addr().String() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ms.Shutdown(ctx))
	assert.Equal(t, http.ErrServerClosed, <-errCh)
}

func TestMetricsServer_StartPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()

	ms := NewMetricsServer(l.Addr().(*net.TCPAddr).Port, "/metrics", nil)
	err = ms.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
