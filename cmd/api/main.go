package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"community-hub/internal/backend"
	"community-hub/internal/config"
	hhttp "community-hub/internal/handler/http"
	hfeed "community-hub/internal/handler/http/feed"
	"community-hub/internal/handler/http/requestid"
	"community-hub/internal/infra/supabase"
	"community-hub/internal/observability/logging"
	"community-hub/internal/observability/tracing"
	"community-hub/internal/request"
	"community-hub/internal/resilience/circuitbreaker"
	feedUC "community-hub/internal/usecase/feed"
	envconfig "community-hub/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	tp := initTracing()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	client, err := supabase.New(cfg.Supabase)
	if err != nil {
		logger.Error("failed to create supabase client", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(logger, cfg, client, getVersion()); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initTracing installs a W3C trace-context propagator and an SDK tracer
// provider so spans carry real ids. Spans are not exported.
func initTracing() *sdktrace.TracerProvider {
	ratio := envconfig.GetEnvFloat("TRACE_SAMPLE_RATIO", 1)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp
}

func getVersion() string {
	return envconfig.GetEnvString("VERSION", "dev")
}

// setupServer builds the request pipeline and the HTTP handler tree. A nil
// storage disables uploads and leaves media paths unresolved.
func setupServer(logger *slog.Logger, cfg config.Config, client backend.Client, storage backend.Storage, version string) (http.Handler, *request.Orchestrator) {
	retryCfg := cfg.Backend.Retry()
	orch := request.New(request.Options{
		Policy: circuitbreaker.NewPolicy(cfg.Backend.Policy(),
			circuitbreaker.WithStateChangeHook(request.StateChangeHook(logger))),
		Retry:  &retryCfg,
		Logger: logger,
	})

	svc := &feedUC.Service{
		Orch:       orch,
		Backend:    client,
		Pagination: cfg.Pagination,
	}
	if storage != nil {
		svc.Assets = storage
	}

	mux := http.NewServeMux()
	hfeed.Register(mux, &hfeed.Handler{
		Svc:        svc,
		Pagination: cfg.Pagination,
		Logger:     logger,
		Storage:    storage,
	})
	mux.Handle("GET /health", &hhttp.HealthHandler{Backend: orch, Version: version})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{Backend: orch})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	limiter := hhttp.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	// Tracing and metrics read r.Pattern after the mux returns, so nothing
	// that replaces the request may sit between them and the mux.
	handler := hhttp.Chain(hhttp.MetricsMiddleware(mux),
		requestid.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		limiter.Limit,
		hhttp.InputValidation(),
		hhttp.Timeout(cfg.Server.RequestTimeout),
		tracing.Middleware,
	)
	return handler, orch
}

// run serves HTTP and the optional background workers until SIGINT or
// SIGTERM, then shuts everything down.
func run(logger *slog.Logger, cfg config.Config, client *supabase.Client, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, _ := setupServer(logger, cfg, client, client.Storage(), version)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("addr", cfg.Server.Addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.Any("error", err))
		}
		logger.Info("server stopped")
		return nil
	})

	if email := os.Getenv("SUPABASE_EMAIL"); email != "" {
		g.Go(func() error {
			return keepSession(gctx, logger, client.Auth(), email, os.Getenv("SUPABASE_PASSWORD"))
		})
	}

	if len(cfg.Backend.RealtimeTables) > 0 {
		rt := client.Realtime(logger)
		g.Go(func() error {
			return watchTables(gctx, logger, rt, cfg.Backend.RealtimeTables)
		})
	}

	return g.Wait()
}

// keepSession signs in once and refreshes the session a minute before it
// expires, so backend reads run as that user. A failed refresh falls back to
// a fresh sign-in on the next round.
func keepSession(ctx context.Context, logger *slog.Logger, auth *supabase.Auth, email, password string) error {
	signIn := func() {
		if _, err := auth.SignInWithPassword(ctx, email, password); err != nil && ctx.Err() == nil {
			logger.Error("supabase sign-in failed", slog.Any("error", err))
		}
	}
	signIn()

	for {
		wait := time.Minute
		if s := auth.Session(); s != nil && !s.ExpiresAt.IsZero() {
			wait = max(time.Until(s.ExpiresAt)-time.Minute, 5*time.Second)
		}

		select {
		case <-ctx.Done():
			auth.SignOut()
			return nil
		case <-time.After(wait):
		}

		if auth.Session() == nil {
			signIn()
			continue
		}
		if _, err := auth.RefreshSession(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("supabase session refresh failed", slog.Any("error", err))
			auth.SignOut()
		}
	}
}

// watchTables logs realtime changes on tables until ctx is done.
func watchTables(ctx context.Context, logger *slog.Logger, rt *supabase.Realtime, tables []string) error {
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("realtime close failed", slog.Any("error", err))
		}
	}()

	for _, table := range tables {
		_, err := rt.Subscribe(ctx, table, func(ev backend.ChangeEvent) {
			logger.Info("realtime change",
				slog.String("table", ev.Table),
				slog.String("type", string(ev.Type)),
				slog.Any("record", ev.Record))
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("realtime subscribe failed",
				slog.String("table", table),
				slog.Any("error", err))
			continue
		}
		logger.Info("realtime subscribed", slog.String("table", table))
	}

	<-ctx.Done()
	return nil
}
