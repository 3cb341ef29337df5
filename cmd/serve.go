package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomkit/roomd/config"
	"github.com/roomkit/roomd/internal/files"
	"github.com/roomkit/roomd/internal/room"
	"github.com/roomkit/roomd/internal/state"
	httpx "github.com/roomkit/roomd/internal/transport/http"
	"github.com/roomkit/roomd/internal/transport/ws"
	"github.com/roomkit/roomd/pkg/logger"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var reloadEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(reloadEvery)
		},
	}

	cmd.Flags().DurationVar(&reloadEvery, "config-poll", 5*time.Second, "How often to check the config file for changes")

	return cmd
}

func runServe(reloadEvery time.Duration) error {
	// --- config ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting roomd",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return err
	}

	// --- config hot reload ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := config.NewWatcher(cfg)
	go watcher.Run(ctx, reloadEvery)

	// --- stores ---
	stateStore := state.New(cfg.Storage.DataDir, cfg.Storage.Persistence)
	fileStore := files.New(cfg.Storage.DataDir)

	// --- core ---
	registry := room.NewRegistry()
	broadcaster := room.NewBroadcaster(registry)
	core := room.NewServer(registry, broadcaster, stateStore, func() string {
		return watcher.Current().Rooms.Default
	})

	// --- transports ---
	wsServer := ws.NewServer(core, watcher)
	handler := httpx.NewHandler(stateStore, fileStore, registry, watcher)
	router := httpx.NewRouter(handler, wsServer, watcher)

	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
	return nil
}
