// Package server assembles the record API, the catalog endpoints and the
// console WebSocket, and runs them until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/streamconsole/internal/activity"
	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/config"
	"github.com/matthewbaird/streamconsole/internal/console"
	"github.com/matthewbaird/streamconsole/internal/event"
	"github.com/matthewbaird/streamconsole/internal/eventbus"
	"github.com/matthewbaird/streamconsole/internal/handler"
	"github.com/matthewbaird/streamconsole/internal/i18n"
	"github.com/matthewbaird/streamconsole/internal/options"
	"github.com/matthewbaird/streamconsole/internal/remote"
	"github.com/matthewbaird/streamconsole/internal/session"
	"github.com/matthewbaird/streamconsole/internal/types"
	"github.com/matthewbaird/streamconsole/internal/variant"
	"github.com/matthewbaird/streamconsole/internal/wire"
)

// App is the assembled server.
type App struct {
	cfg      config.Config
	logger   *slog.Logger
	bus      *eventbus.Bus
	sessions *session.Manager
	router   http.Handler
	cleanup  time.Duration
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithCleanupInterval sets how often expired console sessions are swept.
func WithCleanupInterval(d time.Duration) Option {
	return func(a *App) { a.cleanup = d }
}

// New wires the catalog, the record API over st.Records, the change
// history over st.Activity, the event bus and the console sessions. Console
// pages reach the records through the HTTP API at cfg.Remote.BaseURL,
// normally this server itself.
func New(cfg config.Config, st Stores, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, logger: slog.Default(), cleanup: time.Minute}
	for _, o := range opts {
		o(a)
	}

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
		return nil, fmt.Errorf("register catalog: %w", err)
	}
	labels, err := i18n.NewCatalog(cfg.I18n.Locale, i18n.Default)
	if err != nil {
		return nil, err
	}

	a.bus = eventbus.New(256, eventbus.WithLogger(a.logger))
	a.bus.Subscribe("log", eventbus.NewLogConsumer(a.logger))

	if st.Activity == nil {
		st.Activity = activity.NewMemoryStore()
	}
	a.bus.Subscribe("activity", activity.NewIndexer(st.Activity,
		activity.WithLabeler(func(kind string) string {
			if e, ok := cat.Entity(kind); ok && e.Label != "" {
				return e.Label
			}
			return kind
		}),
		activity.WithLogger(a.logger),
	))

	records := handler.NewRecordHandler(st.Records, cat, reg,
		handler.WithRecorder(event.NewRecorder(a.bus)),
		handler.WithLogger(a.logger),
	)

	client, err := remote.New(cfg.Remote.BaseURL,
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	loader := options.NewLoader(client,
		options.WithCache(cfg.Options.CacheSize, cfg.Options.CacheTTL),
		options.WithDefaultDebounce(cfg.Options.Debounce),
		options.WithLogger(a.logger),
	)

	a.sessions = session.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout)
	ws := wire.NewHandler(a.sessions,
		console.Deps{Catalog: cat, Registry: reg, Remote: client, Loader: loader},
		wire.WithPageOptions(
			console.WithLabels(labels),
			console.WithPageSize(cfg.List.PageSize),
			console.WithLogger(a.logger),
		),
		wire.WithOriginPatterns(cfg.Server.AllowedOrigins...),
		wire.WithLogger(a.logger),
	)
	a.bus.Subscribe("console", wire.NewHub(a.sessions, a.logger))
	// cached option lists go stale as soon as a record changes
	a.bus.Subscribe("options", eventbus.HandlerFunc(func(context.Context, types.ChangeEvent) error {
		loader.Purge()
		return nil
	}))

	history := handler.NewActivityHandler(st.Activity, cat, a.logger)
	a.router = handler.NewRouter(records, a.logger, func(r chi.Router) {
		r.Route("/v1/activity", history.Routes)
		r.Route("/console", ws.Routes)
	})
	return a, nil
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.router }

// Sessions returns the console session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Run listens on the configured port and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// and stops the event bus.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	a.bus.Start(gctx)
	defer a.bus.Stop()

	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		a.logger.Info("server: listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		a.logger.Info("server: shutting down")
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		a.sweep(gctx)
		return nil
	})
	return g.Wait()
}

// sweep removes expired console sessions until ctx is done.
func (a *App) sweep(ctx context.Context) {
	if a.cleanup <= 0 {
		return
	}
	ticker := time.NewTicker(a.cleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Cleanup(); n > 0 {
				a.logger.Info("server: expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
