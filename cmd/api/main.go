package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/feedbackhub/internal/auth"
	"github.com/geocoder89/feedbackhub/internal/config"
	"github.com/geocoder89/feedbackhub/internal/db"
	httpx "github.com/geocoder89/feedbackhub/internal/http"
	"github.com/geocoder89/feedbackhub/internal/http/middlewares"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/geocoder89/feedbackhub/internal/redisclient"
	"github.com/geocoder89/feedbackhub/internal/repo/postgres"
	"github.com/geocoder89/feedbackhub/internal/security"
	"github.com/geocoder89/feedbackhub/internal/supervisor"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if supervisor.IsWorker() || cfg.Workers == 1 || !supervisor.ReusePortSupported {
		if err := runWorker(ctx, log, cfg); err != nil {
			log.Error("worker stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := runPrimary(ctx, log, cfg); err != nil {
		log.Error("supervisor stopped", "err", err)
		os.Exit(1)
	}
}

func runPrimary(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	spawner, err := supervisor.NewExecSpawner()
	if err != nil {
		return err
	}

	log.Info("primary starting", "pid", os.Getpid(), "workers", cfg.Workers, "port", cfg.Port)

	sup := supervisor.New(supervisor.Config{
		Size:          cfg.Workers,
		RespawnDelay:  time.Second,
		ShutdownGrace: 15 * time.Second,
	}, spawner, log)

	return sup.Run(ctx)
}

func runWorker(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	log = log.With("pid", os.Getpid())

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "feedbackhub",
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			shutdownTracer = shutdown
		}
	}

	pool, err := db.Connect(ctx, log, cfg.DBURL, cfg.DBConnectAttempts)
	if err != nil {
		return err
	}
	defer pool.Close()

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureSchema(schemaCtx, pool)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	var limits middlewares.LimitStore
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unreachable, rate limits are per process", "addr", cfg.RedisAddr, "err", err)
		} else {
			limits = rdb
		}
	}

	// set up routers with the log
	router := httpx.NewRouter(log, httpx.Deps{
		Config:   cfg,
		Store:    postgres.NewStore(pool, prom),
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		Hasher:   security.NewHasher(cfg.BcryptCost),
		Registry: reg,
		Prom:     prom,
		Limits:   limits,
	})

	ln, err := supervisor.Listen(ctx, fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// server set up
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.Serve(ln)

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	log.Info("server shutting down")

	shutdownCtx, cancelShutdown := config.WithTimeout(10 * time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
	return nil
}
