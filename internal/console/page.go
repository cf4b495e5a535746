// Package console assembles one entity page: the list controller, the
// create/edit modal, the remote option fields of the open form and the
// local row stores of its editable tables, all driven by the catalog.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/crud"
	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/i18n"
	"github.com/matthewbaird/streamconsole/internal/modal"
	"github.com/matthewbaird/streamconsole/internal/options"
	"github.com/matthewbaird/streamconsole/internal/rowstore"
	"github.com/matthewbaird/streamconsole/internal/types"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// ErrUnknownKind is returned when a page is requested for a kind the
// catalog does not declare.
var ErrUnknownKind = errors.New("unknown kind")

// Part names the portion of a page that changed.
type Part string

const (
	PartList    Part = "list"
	PartForm    Part = "form"
	PartOptions Part = "options"
)

// Deps are the collaborators every page of a console shares.
type Deps struct {
	Catalog  *catalog.Catalog
	Registry *variant.Registry
	Remote   crud.Remote
	Loader   *options.Loader
}

// Page drives one entity kind.
type Page struct {
	kind     string
	catalog  *catalog.Catalog
	registry *variant.Registry
	loader   *options.Loader
	labels   i18n.Resolver
	logger   *slog.Logger
	interp   *form.Interpreter
	list     *crud.Controller
	modal    *modal.Orchestrator
	fallback string

	confirmer crud.Confirmer
	notifier  crud.Notifier
	pageSize  int
	filters   map[string]any

	mu        sync.Mutex
	fields    map[string]*options.Field
	unloaded  map[string]bool
	tables    map[string]*rowstore.Store
	listeners []func(Part)
}

// Option configures a Page.
type Option func(*Page)

// WithConfirmer sets the delete confirmation surface.
func WithConfirmer(c crud.Confirmer) Option {
	return func(p *Page) { p.confirmer = c }
}

// WithNotifier sets where notices go.
func WithNotifier(n crud.Notifier) Option {
	return func(p *Page) { p.notifier = n }
}

// WithLabels sets the label resolver.
func WithLabels(r i18n.Resolver) Option {
	return func(p *Page) { p.labels = r }
}

// WithLogger sets the page logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Page) { p.logger = l }
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(p *Page) { p.pageSize = n }
}

// WithFilters presets list filters, such as the group a stream page is
// scoped to. They override the catalog's initial filter values.
func WithFilters(f map[string]any) Option {
	return func(p *Page) { p.filters = f }
}

// NewPage builds the page of kind. The registry must hold the catalog's
// variants.
func NewPage(kind string, deps Deps, opts ...Option) (*Page, error) {
	if _, ok := deps.Catalog.Entity(kind); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if len(deps.Registry.Variants(kind)) == 0 {
		return nil, fmt.Errorf("%w: %s has no registered variants", ErrUnknownKind, kind)
	}
	p := &Page{
		kind:     kind,
		catalog:  deps.Catalog,
		registry: deps.Registry,
		loader:   deps.Loader,
		labels:   i18n.Identity{},
		logger:   slog.Default(),
		pageSize: types.DefaultPageSize,
		fields:   make(map[string]*options.Field),
		unloaded: make(map[string]bool),
		tables:   make(map[string]*rowstore.Store),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With(slog.String("kind", kind))
	p.interp = form.New(form.WithLabels(p.labels), form.WithLogger(p.logger))
	p.fallback = p.defaultTag()

	filters := form.InitialValues(p.catalog.Filters(kind)).Merge(p.filters)
	p.list = crud.New(kind, deps.Remote,
		crud.WithConfirmer(p.confirmer),
		crud.WithNotifier(p.notifier),
		crud.WithLabels(p.labels),
		crud.WithLogger(p.logger),
		crud.WithPageSize(p.pageSize),
		crud.WithInitialFilters(filters),
	)
	p.modal = modal.New(committer{p}, modal.WithInterpreter(p.interp), modal.WithLogger(p.logger))

	p.list.OnChange(func(crud.State) { p.emit(PartList) })
	p.modal.OnChange(func(s modal.Session) {
		if s.State == modal.Closed {
			p.release()
		}
		p.emit(PartForm)
	})
	return p, nil
}

// defaultTag is the variant a new record starts as: the discriminator's
// initial value when it names a variant, else the first variant.
func (p *Page) defaultTag() string {
	disc := p.catalog.Discriminator(p.kind)
	tags := p.catalog.Tags(p.kind)
	if disc == "" || len(tags) == 0 {
		return variant.DefaultTag
	}
	descs, err := p.catalog.Fields(p.kind, tags[0])
	if err == nil {
		if s, ok := form.InitialValues(descs)[disc].(string); ok && p.knownTag(s) {
			return s
		}
	}
	return tags[0]
}

func (p *Page) knownTag(tag string) bool {
	for _, t := range p.catalog.Tags(p.kind) {
		if t == tag {
			return true
		}
	}
	return false
}

// tagOf picks the variant selected by values.
func (p *Page) tagOf(values map[string]any) string {
	disc := p.catalog.Discriminator(p.kind)
	if disc == "" {
		return variant.DefaultTag
	}
	if s, ok := values[disc].(string); ok && p.knownTag(s) {
		return s
	}
	return p.fallback
}

// schema is the modal schema: the rows of the variant the values select.
func (p *Page) schema(values form.FormState) []form.FieldDescriptor {
	rows, err := p.registry.Rows(p.kind, p.tagOf(values))
	if err != nil {
		p.logger.Error("console: no rows for variant", slog.Any("error", err))
		return nil
	}
	return rows(values)
}

// Kind returns the entity kind.
func (p *Page) Kind() string { return p.kind }

// OnChange registers fn to be told which part of the page changed.
func (p *Page) OnChange(fn func(Part)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *Page) emit(part Part) {
	p.mu.Lock()
	listeners := p.listeners
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(part)
	}
}

// Mount loads the first page.
func (p *Page) Mount(ctx context.Context) error {
	return p.list.Mount(ctx)
}

// Filter merges filter values and reloads from page 1.
func (p *Page) Filter(ctx context.Context, values map[string]any) error {
	return p.list.OnFilterChange(ctx, values)
}

// Paginate moves to another page or page size.
func (p *Page) Paginate(ctx context.Context, pageNum, pageSize int) error {
	return p.list.OnPageChange(ctx, pageNum, pageSize)
}

// Sort orders the list.
func (p *Page) Sort(ctx context.Context, s *types.Sort) error {
	return p.list.OnSortChange(ctx, s)
}

// Refetch reloads the current page.
func (p *Page) Refetch(ctx context.Context) error {
	return p.list.Refetch(ctx)
}

// OpenCreate opens the create form seeded with preset values. Without a
// preset discriminator the form starts as the default variant.
func (p *Page) OpenCreate(ctx context.Context, preset map[string]any) error {
	seed := form.FormState(preset).Clone()
	if disc := p.catalog.Discriminator(p.kind); disc != "" {
		if _, ok := seed[disc]; !ok {
			seed[disc] = p.fallback
		}
	}
	if err := p.modal.OpenCreate(p.schema, seed); err != nil {
		return err
	}
	p.attach(ctx)
	return nil
}

// OpenEdit opens the edit form for a row of the current page.
func (p *Page) OpenEdit(ctx context.Context, id int64) error {
	var row *types.Record
	for _, r := range p.list.State().Result.List {
		if r.ID == id {
			row = &r
			break
		}
	}
	if row == nil {
		return fmt.Errorf("open edit %s %d: %w", p.kind, id, types.ErrNotFound)
	}
	values, err := p.registry.FromBackend(p.kind, p.tagOf(row.Values), row.Values)
	if err != nil {
		return err
	}
	if err := p.modal.OpenEdit(p.schema, types.Persisted(id, values)); err != nil {
		return err
	}
	p.attach(ctx)
	return nil
}

// Change merges edited values into the open form. Fields that appear
// because of the change start at their initial values.
func (p *Page) Change(ctx context.Context, values map[string]any) error {
	state, err := p.modal.Change(values)
	if err != nil {
		return err
	}
	missing := make(map[string]any)
	for _, d := range p.schema(state) {
		if _, ok := state[d.Name]; !ok && d.InitialValue != nil {
			missing[d.Name] = d.InitialValue
		}
	}
	if len(missing) > 0 {
		if _, err := p.modal.Change(missing); err != nil {
			return err
		}
	}
	p.attach(ctx)
	return nil
}

// Commit validates and saves the open form. Validation failures come back
// as form.ValidationErrors and leave the form open.
func (p *Page) Commit(ctx context.Context) (int64, error) {
	s := p.modal.Session()
	if s.State == modal.Closed {
		return 0, modal.ErrNotOpen
	}
	return p.modal.Commit(ctx, s.Values)
}

// Cancel closes the form and discards its values.
func (p *Page) Cancel() {
	p.modal.Cancel()
}

// Delete removes id after confirmation. The kind's delete params are taken
// from the current filters, falling back to the row's own values.
func (p *Page) Delete(ctx context.Context, id int64) (bool, error) {
	state := p.list.State()
	params := make(map[string]any)
	names := p.catalog.DeleteParams(p.kind)
	for _, name := range names {
		if v, ok := state.Query.Filters[name]; ok && v != nil && v != "" {
			params[name] = v
		}
	}
	if len(params) < len(names) {
		for _, r := range state.Result.List {
			if r.ID != id {
				continue
			}
			for _, name := range names {
				if _, ok := params[name]; !ok {
					if v, ok := r.Values[name]; ok {
						params[name] = v
					}
				}
			}
		}
	}
	return p.list.Remove(ctx, id, params)
}

// RefreshOptions reloads the option list of one field of the open form.
func (p *Page) RefreshOptions(ctx context.Context, field string) error {
	p.mu.Lock()
	f, ok := p.fields[field]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("refresh options: no option field %q", field)
	}
	err := f.Refresh(ctx)
	if errors.Is(err, options.ErrStale) {
		return nil
	}
	return err
}

// committer serializes form values for the backend before they reach the
// list controller.
type committer struct{ p *Page }

func (c committer) Create(ctx context.Context, payload map[string]any) (int64, error) {
	body, err := c.p.registry.ToBackend(c.p.kind, c.p.tagOf(payload), payload)
	if err != nil {
		return 0, err
	}
	return c.p.list.Create(ctx, body)
}

func (c committer) Update(ctx context.Context, id int64, payload map[string]any) error {
	body, err := c.p.registry.ToBackend(c.p.kind, c.p.tagOf(payload), payload)
	if err != nil {
		return err
	}
	return c.p.list.Update(ctx, id, body)
}

func (c committer) Refetch(ctx context.Context) error {
	return c.p.list.Refetch(ctx)
}
