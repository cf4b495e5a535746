package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/streamconsole/internal/config"
	"github.com/matthewbaird/streamconsole/internal/seed"
	"github.com/matthewbaird/streamconsole/internal/server"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:           "streamconsole-server",
		Short:         "Serve the record API and the console WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", ".", "directory containing console.yaml")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	st, closeStore, err := server.OpenStores(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("database ready", slog.String("dsn", cfg.Database.DSN))
	if cfg.Database.Seed {
		n, err := seed.Demo(ctx, st.Records, logger)
		if err != nil {
			return err
		}
		logger.Info("demo records seeded", slog.Int("count", n))
	}

	app, err := server.New(cfg, st, server.WithLogger(logger))
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
