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
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"monit-collector/internal/collector"
	"monit-collector/internal/config"
	"monit-collector/internal/db"
	"monit-collector/internal/httpapi"
	"monit-collector/internal/metrics"
	"monit-collector/internal/publish"
	"monit-collector/internal/registry"
	"monit-collector/internal/store"
)

func main() {
	cfgPath := flag.String("config", "/etc/monitcollectord.yaml", "config file path")
	initSchema := flag.Bool("init-schema", false, "create the database tables on startup")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, *initSchema, logger); err != nil {
		logger.Error("monitcollectord stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, initSchema bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agents, err := registry.New(cfg.Registry.Size, logger)
	if err != nil {
		return fmt.Errorf("agent registry: %w", err)
	}

	sinks := []collector.Handlers{
		collector.LogHandlers(logger),
		metrics.Handlers(),
		agents.Handlers(),
	}
	deps := httpapi.Deps{Config: cfg, Agents: agents, Logger: logger}

	if cfg.DBDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if initSchema {
			if err := store.InitSchema(ctx, pool); err != nil {
				return err
			}
		}

		st, err := store.New(pool, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		sinks = append(sinks, st.Handlers())
		deps.Store = st
		deps.Checks = append(deps.Checks, httpapi.Check{Name: "db", Ping: pool.Ping})
	} else {
		logger.Warn("db_dsn not set, reports will not be stored")
	}

	if cfg.NATS.URL != "" {
		conn, err := publish.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer conn.Drain()

		sinks = append(sinks, publish.New(conn, cfg.NATS.Subject, logger).Handlers())
		deps.Checks = append(deps.Checks, httpapi.Check{Name: "nats", Ping: natsPing(conn)})
	}

	deps.Dispatcher = collector.NewDispatcher(collector.Chain(sinks...), collector.Mode(cfg.Collector.Mode), logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpapi.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("monit collector listening", "addr", cfg.ListenAddr, "mode", cfg.Collector.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("monit collector stopped")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func natsPing(conn *nats.Conn) func(context.Context) error {
	return func(context.Context) error {
		if !conn.IsConnected() {
			return fmt.Errorf("nats: %s", conn.Status())
		}
		return nil
	}
}
