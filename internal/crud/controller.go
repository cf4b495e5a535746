package crud

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/matthewbaird/streamconsole/internal/i18n"
	"github.com/matthewbaird/streamconsole/internal/types"
)

// State is a snapshot of a controller.
type State struct {
	Kind       string           `json:"kind"`
	Query      types.ListQuery  `json:"query"`
	Result     types.ListResult `json:"result"`
	Pagination types.Pagination `json:"pagination"`
	Loading    bool             `json:"loading"`
	Deleting   []int64          `json:"deleting,omitempty"`
	Err        error            `json:"-"`
}

// Controller owns the list query and result of one entity kind. Every query
// change issues exactly one list call tagged with a sequence number; only
// the response to the most recently issued call is applied.
//
// The mutex guards controller state only and is never held across a remote
// call.
type Controller struct {
	kind      string
	remote    Remote
	confirmer Confirmer
	notifier  Notifier
	labels    i18n.Resolver
	logger    *slog.Logger
	pageSize  int
	filters   map[string]any

	mu        sync.Mutex
	query     types.ListQuery
	shown     types.ListQuery // query of the applied result
	result    types.ListResult
	loading   bool
	err       error
	seq       uint64
	deleting  map[int64]struct{}
	listeners []func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfirmer sets the confirmation surface awaited before deletes.
// Without one every delete is declined.
func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) { c.confirmer = cf }
}

// WithNotifier sets where success and failure notices go.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithLabels sets the resolver for prompt and notice texts.
func WithLabels(r i18n.Resolver) Option {
	return func(c *Controller) { c.labels = r }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPageSize sets the page size used on mount.
func WithPageSize(n int) Option {
	return func(c *Controller) { c.pageSize = n }
}

// WithInitialFilters sets the filters used on mount.
func WithInitialFilters(f map[string]any) Option {
	return func(c *Controller) { c.filters = f }
}

// New returns a controller for kind.
func New(kind string, remote Remote, opts ...Option) *Controller {
	c := &Controller{
		kind:     kind,
		remote:   remote,
		labels:   i18n.Identity{},
		logger:   slog.Default(),
		pageSize: types.DefaultPageSize,
		deleting: make(map[int64]struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.query = types.NewListQuery(c.pageSize, c.filters)
	c.shown = c.query
	return c
}

// Kind returns the entity kind.
func (c *Controller) Kind() string { return c.kind }

// OnChange registers fn to receive a snapshot after every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Mount issues the initial list call.
func (c *Controller) Mount(ctx context.Context) error {
	return c.fetch(ctx, types.NewListQuery(c.pageSize, c.filters))
}

// OnFilterChange merges filters into the query, returns to page 1 and
// issues one list call.
func (c *Controller) OnFilterChange(ctx context.Context, filters map[string]any) error {
	return c.fetch(ctx, c.currentQuery().WithFilters(filters))
}

// OnPageChange keeps the filters and issues one list call for the page.
func (c *Controller) OnPageChange(ctx context.Context, pageNum, pageSize int) error {
	return c.fetch(ctx, c.currentQuery().WithPage(pageNum, pageSize))
}

// OnSortChange orders the list by s and returns to page 1.
func (c *Controller) OnSortChange(ctx context.Context, s *types.Sort) error {
	return c.fetch(ctx, c.currentQuery().WithSort(s))
}

// Refetch reissues the current query.
func (c *Controller) Refetch(ctx context.Context) error {
	return c.fetch(ctx, c.currentQuery())
}

func (c *Controller) currentQuery() types.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// fetch replaces the query and issues its list call. A response that
// arrives after a newer call was issued is dropped and fetch returns nil.
// On failure the previous query and result stay in place.
func (c *Controller) fetch(ctx context.Context, q types.ListQuery) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.query = q
	c.loading = true
	c.emitLocked()

	res, err := c.remote.List(ctx, c.kind, q)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("list response discarded",
			slog.String("kind", c.kind),
			slog.Uint64("seq", seq),
			slog.Any("reason", ErrStaleResponse))
		return nil
	}
	c.loading = false
	if err != nil {
		err = Classify("list", 0, err)
		c.query = c.shown
		c.err = err
		c.emitLocked()
		c.fail(ctx, "list", err)
		return err
	}
	if res.List == nil {
		res.List = []types.Record{}
	}
	c.result = res
	c.shown = q
	c.err = nil
	c.emitLocked()
	return nil
}

// Create persists payload and returns the new id. It does not touch the
// list; the caller refetches once its session closes.
func (c *Controller) Create(ctx context.Context, payload map[string]any) (int64, error) {
	id, err := c.remote.Create(ctx, c.kind, payload)
	if err != nil {
		err = Classify("create", 0, err)
		c.fail(ctx, "create", err)
		return 0, err
	}
	c.logger.Info("record created", slog.String("kind", c.kind), slog.Int64("id", id))
	return id, nil
}

// Update persists payload for id. A conflict forces a refetch.
func (c *Controller) Update(ctx context.Context, id int64, payload map[string]any) error {
	if err := c.remote.Update(ctx, c.kind, id, payload); err != nil {
		err = Classify("update", id, err)
		c.fail(ctx, "update", err)
		if errors.Is(err, ErrConflict) {
			c.resync(ctx)
		}
		return err
	}
	c.logger.Info("record updated", slog.String("kind", c.kind), slog.Int64("id", id))
	return nil
}

// Remove deletes id after the confirmer affirms. It reports whether the
// delete was issued and succeeded. A declined confirmation returns false
// and no error. A second Remove for the same id while the first is pending
// fails with ErrDeleteInFlight. Every issued delete is followed by a
// refetch; the list is never edited locally.
func (c *Controller) Remove(ctx context.Context, id int64, params map[string]any) (bool, error) {
	c.mu.Lock()
	if _, busy := c.deleting[id]; busy {
		c.mu.Unlock()
		return false, ErrDeleteInFlight
	}
	c.deleting[id] = struct{}{}
	c.emitLocked()
	defer func() {
		c.mu.Lock()
		delete(c.deleting, id)
		c.emitLocked()
	}()

	if c.confirmer == nil {
		c.logger.Warn("delete declined, no confirmer", slog.String("kind", c.kind), slog.Int64("id", id))
		return false, nil
	}
	ok, err := c.confirmer.Confirm(ctx, Prompt{
		Kind:    c.kind,
		ID:      id,
		Title:   c.labels.Label("basic.Delete"),
		Message: c.labels.Label("basic.DeleteConfirm"),
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := c.remote.Delete(ctx, c.kind, id, params); err != nil {
		err = Classify("delete", id, err)
		c.fail(ctx, "delete", err)
		if errors.Is(err, ErrConflict) {
			c.resync(ctx)
		}
		return false, err
	}
	c.logger.Info("record deleted", slog.String("kind", c.kind), slog.Int64("id", id))
	c.notify(ctx, Notice{Level: LevelInfo, Message: c.labels.Label("basic.DeleteSuccess")})
	c.resync(ctx)
	return true, nil
}

// resync refetches after a mutation. Its failure is already reflected in
// State and notified, so it is only logged here.
func (c *Controller) resync(ctx context.Context) {
	if err := c.Refetch(ctx); err != nil {
		c.logger.Warn("refetch failed", slog.String("kind", c.kind), slog.Any("error", err))
	}
}

func (c *Controller) fail(ctx context.Context, op string, err error) {
	c.logger.Warn("remote call failed",
		slog.String("kind", c.kind),
		slog.String("op", op),
		slog.Any("error", err))
	c.notify(ctx, Notice{Level: LevelError, Message: err.Error()})
}

func (c *Controller) notify(ctx context.Context, n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(ctx, n)
	}
}

func (c *Controller) snapshotLocked() State {
	var deleting []int64
	for id := range c.deleting {
		deleting = append(deleting, id)
	}
	sort.Slice(deleting, func(i, j int) bool { return deleting[i] < deleting[j] })
	return State{
		Kind:       c.kind,
		Query:      c.query,
		Result:     c.result,
		Pagination: types.PaginationFor(c.query, c.result),
		Loading:    c.loading,
		Deleting:   deleting,
		Err:        c.err,
	}
}

// emitLocked snapshots the state, releases the lock and calls listeners.
func (c *Controller) emitLocked() {
	state := c.snapshotLocked()
	listeners := c.listeners
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}
