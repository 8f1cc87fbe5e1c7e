package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/admission"
	"marketplace/internal/api"
	"marketplace/internal/config"
	"marketplace/internal/identity"
	"marketplace/internal/logger"
	"marketplace/internal/models"
	"marketplace/internal/observability"
	"marketplace/internal/ratelimit"
	"marketplace/internal/search"
	"marketplace/internal/storage"
	"marketplace/internal/version"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	envFile       = flag.String("env-file", ".env", "Path to an optional .env file")
	exampleConfig = flag.String("write-example-config", "", "Write an example configuration to this path and exit")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	if *exampleConfig != "" {
		if err := config.SaveExample(*exampleConfig); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		slog.Info("Example configuration written", "path", *exampleConfig)
		return
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("Failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	if err := run(cfg, ver); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires every component and serves until SIGINT or SIGTERM.
func run(cfg *models.Config, ver version.Info) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	storageInstance, err := storage.NewFactory().Create(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer storageInstance.Close()

	instrumented := cfg.Metrics.Enabled || cfg.Observability.Tracing.Enabled

	var activeStorage storage.Storage = storageInstance
	if instrumented {
		wrapped, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			return fmt.Errorf("instrument storage: %w", err)
		}
		activeStorage = wrapped
	}

	searchService, err := newSearchService(cfg, activeStorage, instrumented)
	if err != nil {
		return err
	}

	filter, err := newAdmissionFilter(cfg, activeStorage, instrumented)
	if err != nil {
		return err
	}

	handlerOpts := []api.HandlerOption{api.WithVersion(ver)}
	routeOpts := []api.RouteOption{api.WithAdmission(filter)}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	if cfg.Security.RateLimit.Enabled {
		rlCfg := cfg.Security.RateLimit
		windows := ratelimit.NewWindowStore(rlCfg.Shards)
		limiter := ratelimit.NewSlidingWindow(windows, ratelimit.WithSweepProbability(rlCfg.SweepProbability))

		var recorders []ratelimit.Recorder
		if instrumented {
			rec, err := observability.NewDecisionRecorder()
			if err != nil {
				return fmt.Errorf("create rate limit metrics: %w", err)
			}
			recorders = append(recorders, rec)
		}
		if rlCfg.Stats.Enabled {
			rdb, err := ratelimit.NewRedisClient(ctx, rlCfg.Stats.Redis)
			if err != nil {
				// Stats are optional.
				slog.Warn("Rate limit stats disabled", "error", err)
			} else {
				defer rdb.Close()
				redisRecorder := ratelimit.NewRedisRecorder(rdb, ratelimit.WithRecorderTTL(rlCfg.Stats.TTL))
				recorders = append(recorders, redisRecorder)
				handlerOpts = append(handlerOpts, api.WithStatsSource(redisRecorder))
			}
		}

		handlerOpts = append(handlerOpts, api.WithWindowStore(windows))
		routeOpts = append(routeOpts, api.WithRateLimiter(limiter, ratelimit.Recorders(recorders...)))
		slog.Info("Rate limiting enabled",
			"search_limit", rlCfg.Search.Limit,
			"search_window", rlCfg.Search.Window,
			"shards", windows.Shards(),
		)
	}

	handlers := api.NewHandlers(searchService, activeStorage, handlerOpts...)
	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "tls", cfg.Server.TLSEnabled, "storage", cfg.Storage.Type)
		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

func newSearchService(cfg *models.Config, store storage.Storage, instrumented bool) (search.ServiceInterface, error) {
	opts := search.ConfigOptions(cfg.Search)
	if !instrumented {
		return search.NewService(store, opts...), nil
	}

	hook, err := observability.KindFailureCounter()
	if err != nil {
		return nil, fmt.Errorf("create search metrics: %w", err)
	}
	svc, err := observability.NewInstrumentedSearch(search.NewService(store, append(opts, search.WithKindFailureHook(hook))...))
	if err != nil {
		return nil, fmt.Errorf("instrument search: %w", err)
	}
	return svc, nil
}

func newAdmissionFilter(cfg *models.Config, store storage.Storage, instrumented bool) (*admission.Filter, error) {
	adminCfg := cfg.Security.Admin

	provider, err := identity.NewProvider(adminCfg.Identity, store)
	if err != nil {
		return nil, fmt.Errorf("initialize identity provider: %w", err)
	}
	if !provider.Configured() {
		slog.Warn("Identity provider is not configured; admin requests will be rejected",
			"provider", adminCfg.Identity.Provider)
	}

	var opts []admission.Option
	if instrumented {
		observe, err := observability.AdmissionObserver()
		if err != nil {
			return nil, fmt.Errorf("create admission metrics: %w", err)
		}
		opts = append(opts, admission.WithObserver(observe))
	}

	return admission.NewFilter(provider, admission.RolesFromStore(store), adminCfg, opts...), nil
}
