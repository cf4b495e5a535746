// Command console lists and deletes records of a running stream console
// backend from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/config"
	"github.com/matthewbaird/streamconsole/internal/console"
	"github.com/matthewbaird/streamconsole/internal/i18n"
	"github.com/matthewbaird/streamconsole/internal/remote"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// globals are the flags every command shares.
type globals struct {
	configPath string
	baseURL    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "console",
		Short:         "Manage stream console records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", ".", "directory containing console.yaml")
	root.PersistentFlags().StringVar(&g.baseURL, "base-url", "", "manager API base URL (overrides remote.base_url)")
	root.AddCommand(newListCmd(g), newDeleteCmd(g), newCatalogCmd(g))
	return root
}

// env is what a command needs to drive a page against the backend.
type env struct {
	cfg  config.Config
	deps console.Deps
	opts []console.Option
}

func (g *globals) load() (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.baseURL != "" {
		cfg.Remote.BaseURL = g.baseURL
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	overlays, err := catalog.ReadOverlays(cfg.Catalog.Overlays...)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(overlays...)
	if err != nil {
		return nil, err
	}
	reg := variant.NewRegistry()
	if err := cat.Register(reg); err != nil {
		return nil, err
	}
	labels, err := i18n.NewCatalog(cfg.I18n.Locale, i18n.Default)
	if err != nil {
		return nil, err
	}
	client, err := remote.New(cfg.Remote.BaseURL, remote.WithTimeout(cfg.Remote.Timeout), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:  cfg,
		deps: console.Deps{Catalog: cat, Registry: reg, Remote: client},
		opts: []console.Option{
			console.WithLabels(labels),
			console.WithLogger(logger),
			console.WithPageSize(cfg.List.PageSize),
		},
	}, nil
}
