// Package modal coordinates the single create or edit session of a list
// page. A session is opened explicitly, validated and committed through the
// form interpreter, and destroyed on a successful commit or a cancel.
package modal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/types"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed from
	// the current state.
	ErrInvalidTransition = errors.New("invalid modal transition")

	// ErrNotOpen is returned by actions that need an open session.
	ErrNotOpen = errors.New("no open modal session")

	// ErrCommitInFlight is returned when a commit is already running.
	ErrCommitInFlight = errors.New("commit already in flight")
)

// State is the lifecycle state of the session.
type State int

const (
	Closed State = iota
	CreateOpen
	EditOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case CreateOpen:
		return "create"
	case EditOpen:
		return "edit"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Closed, CreateOpen, EditOpen} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown modal state %q", text)
}

var transitions = map[State][]State{
	Closed:     {CreateOpen, EditOpen},
	CreateOpen: {Closed},
	EditOpen:   {Closed},
}

func validateTransition(current, target State) error {
	for _, s := range transitions[current] {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, target)
}

// Committer persists committed values and refreshes the list afterwards.
// *crud.Controller satisfies it.
type Committer interface {
	Create(ctx context.Context, payload map[string]any) (int64, error)
	Update(ctx context.Context, id int64, payload map[string]any) error
	Refetch(ctx context.Context) error
}

// Schema produces the descriptor list for the current values. Variant
// editors switch field sets on a discriminator value.
type Schema func(values form.FormState) []form.FieldDescriptor

// Static returns a Schema that ignores values.
func Static(descs []form.FieldDescriptor) Schema {
	return func(form.FormState) []form.FieldDescriptor { return descs }
}

// Session is a snapshot of the modal.
type Session struct {
	State      State                 `json:"state"`
	Target     *types.Record         `json:"target,omitempty"`
	Values     form.FormState        `json:"values,omitempty"`
	Errors     form.ValidationErrors `json:"errors,omitempty"`
	Submitting bool                  `json:"submitting,omitempty"`
	LastErr    error                 `json:"-"`
}

// Orchestrator owns at most one session. Its mutex is never held across a
// remote call.
type Orchestrator struct {
	committer Committer
	interp    *form.Interpreter
	logger    *slog.Logger

	mu        sync.Mutex
	session   Session
	schema    Schema
	gen       uint64
	listeners []func(Session)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInterpreter sets the interpreter used to resolve and validate.
func WithInterpreter(in *form.Interpreter) Option {
	return func(o *Orchestrator) { o.interp = in }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New returns a closed orchestrator committing through c.
func New(c Committer, opts ...Option) *Orchestrator {
	o := &Orchestrator{committer: c, interp: form.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnChange registers fn to receive a snapshot after every change.
func (o *Orchestrator) OnChange(fn func(Session)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// Session returns the current snapshot.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// OpenCreate opens a create session seeded with the schema's initial values
// overlaid by initial. It fails unless the modal is closed.
func (o *Orchestrator) OpenCreate(schema Schema, initial form.FormState) error {
	o.mu.Lock()
	if err := validateTransition(o.session.State, CreateOpen); err != nil {
		o.mu.Unlock()
		return err
	}
	values := form.InitialValues(schema(initial)).Merge(initial)
	o.gen++
	o.schema = schema
	o.session = Session{State: CreateOpen, Values: values}
	o.emitLocked()
	return nil
}

// OpenEdit opens an edit session for a persisted record. It fails unless
// the modal is closed.
func (o *Orchestrator) OpenEdit(schema Schema, rec types.Record) error {
	if !rec.IsPersisted() {
		return fmt.Errorf("open edit: %w", types.ErrInvalidIdentity)
	}
	o.mu.Lock()
	if err := validateTransition(o.session.State, EditOpen); err != nil {
		o.mu.Unlock()
		return err
	}
	flat := form.FormState(rec.Flat())
	values := form.InitialValues(schema(flat)).Merge(flat)
	target := rec.WithValues(nil)
	o.gen++
	o.schema = schema
	o.session = Session{State: EditOpen, Target: &target, Values: values}
	o.emitLocked()
	return nil
}

// Change merges values into the open session and returns the result.
func (o *Orchestrator) Change(values map[string]any) (form.FormState, error) {
	o.mu.Lock()
	if o.session.State == Closed {
		o.mu.Unlock()
		return nil, ErrNotOpen
	}
	o.session.Values = o.session.Values.Merge(values)
	out := o.session.Values.Clone()
	o.emitLocked()
	return out, nil
}

// Resolve resolves the open session's schema against its values.
func (o *Orchestrator) Resolve() ([]form.ResolvedField, error) {
	o.mu.Lock()
	if o.session.State == Closed {
		o.mu.Unlock()
		return nil, ErrNotOpen
	}
	schema, values := o.schema, o.session.Values.Clone()
	o.mu.Unlock()
	return o.interp.Resolve(schema(values), values)
}

// Cancel discards the session and closes the modal. It is allowed from any
// state; a commit still in flight finishes without reopening anything.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.gen++
	o.schema = nil
	o.session = Session{State: Closed}
	o.emitLocked()
}

// Commit validates values against the session's schema and, if they pass,
// creates or updates through the committer with the visible values only.
//
// Validation failures keep the session open and are returned as
// form.ValidationErrors without any remote call. A remote failure keeps the
// session open with values intact. On success the modal closes and the
// list is refetched once. Commit returns the record id.
func (o *Orchestrator) Commit(ctx context.Context, values form.FormState) (int64, error) {
	o.mu.Lock()
	s := o.session
	if s.State == Closed {
		o.mu.Unlock()
		return 0, ErrNotOpen
	}
	if s.Submitting {
		o.mu.Unlock()
		return 0, ErrCommitInFlight
	}
	schema := o.schema
	gen := o.gen

	cleared, err := o.interp.ApplyClearOnHide(schema(values), values)
	if err != nil {
		o.mu.Unlock()
		return 0, err
	}
	resolved, err := o.interp.Resolve(schema(cleared), cleared)
	if err != nil {
		o.mu.Unlock()
		return 0, err
	}
	o.session.Values = cleared
	if errs := o.interp.Validate(resolved, cleared); len(errs) > 0 {
		o.session.Errors = errs
		o.emitLocked()
		return 0, errs
	}
	payload := form.VisibleValues(resolved, cleared)
	o.session.Errors = nil
	o.session.LastErr = nil
	o.session.Submitting = true
	o.emitLocked()

	var id int64
	if s.State == CreateOpen {
		id, err = o.committer.Create(ctx, payload)
	} else {
		id = s.Target.ID
		err = o.committer.Update(ctx, id, payload)
	}

	o.mu.Lock()
	current := o.gen == gen
	if err != nil {
		if current {
			o.session.Submitting = false
			o.session.LastErr = err
			o.emitLocked()
		} else {
			o.mu.Unlock()
		}
		return 0, err
	}
	if current {
		o.schema = nil
		o.session = Session{State: Closed}
		o.emitLocked()
	} else {
		o.mu.Unlock()
	}

	if rerr := o.committer.Refetch(ctx); rerr != nil {
		o.logger.Warn("refetch after commit failed", slog.Any("error", rerr))
	}
	return id, nil
}

func (o *Orchestrator) snapshotLocked() Session {
	s := o.session
	s.Values = s.Values.Clone()
	if s.Target != nil {
		t := s.Target.WithValues(nil)
		s.Target = &t
	}
	return s
}

// emitLocked snapshots the session, releases the lock and calls listeners.
func (o *Orchestrator) emitLocked() {
	s := o.snapshotLocked()
	listeners := o.listeners
	o.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
