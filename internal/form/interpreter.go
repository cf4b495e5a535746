package form

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/matthewbaird/streamconsole/internal/i18n"
)

// ErrMalformedDescriptor marks descriptor lists that cannot be interpreted.
// These are programming errors in a catalog, not user input errors.
var ErrMalformedDescriptor = errors.New("malformed field descriptor")

// DescriptorError reports which descriptor is malformed and why.
type DescriptorError struct {
	Index  int
	Name   string
	Reason string
}

func (e *DescriptorError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("descriptor %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("descriptor %d (%s): %s", e.Index, e.Name, e.Reason)
}

func (e *DescriptorError) Is(target error) bool {
	return target == ErrMalformedDescriptor
}

// requiredKey is the label key of the default required-rule message.
const requiredKey = "basic.Required"

// Interpreter resolves and validates descriptor lists.
type Interpreter struct {
	labels i18n.Resolver
	logger *slog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLabels sets the resolver used for field labels and default messages.
func WithLabels(r i18n.Resolver) Option {
	return func(in *Interpreter) { in.labels = r }
}

// WithLogger sets the interpreter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// New returns an Interpreter. Without WithLabels, labels pass through as
// written.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{labels: i18n.Identity{}, logger: slog.Default()}
	for _, o := range opts {
		o(in)
	}
	return in
}

var defaultInterpreter = New()

// Resolve evaluates descs against values with the default interpreter.
func Resolve(descs []FieldDescriptor, values FormState) ([]ResolvedField, error) {
	return defaultInterpreter.Resolve(descs, values)
}

// Validate checks resolved fields with the default interpreter.
func Validate(resolved []ResolvedField, values FormState) ValidationErrors {
	return defaultInterpreter.Validate(resolved, values)
}

// Resolve evaluates every descriptor against values and returns the visible
// ones in their original order. Hidden descriptors are omitted; values is
// never modified. A malformed descriptor fails the whole call with a
// *DescriptorError.
func (in *Interpreter) Resolve(descs []FieldDescriptor, values FormState) ([]ResolvedField, error) {
	if err := checkDescriptors(descs); err != nil {
		return nil, err
	}
	out := make([]ResolvedField, 0, len(descs))
	for i := range descs {
		if rf, ok := in.resolveOne(&descs[i], values); ok {
			out = append(out, rf)
		}
	}
	return out, nil
}

func (in *Interpreter) resolveOne(d *FieldDescriptor, values FormState) (ResolvedField, bool) {
	if !visible(d, values) {
		return ResolvedField{}, false
	}

	props := make(map[string]any, len(d.Props))
	for k, v := range d.Props {
		props[k] = v
	}
	if d.PropsFunc != nil {
		for k, v := range d.PropsFunc(values.Clone()) {
			props[k] = v
		}
	}

	rf := ResolvedField{
		Name:    d.Name,
		Type:    d.Type,
		Label:   in.labels.Label(d.Label),
		Props:   props,
		Options: d.Options,
	}
	if v, ok := values[d.Name]; ok {
		rf.Value = v
	} else {
		rf.Value = d.InitialValue
	}
	if len(d.Rules) > 0 {
		rf.Rules = append([]Rule(nil), d.Rules...)
		for _, r := range d.Rules {
			if r.Kind == RuleRequired {
				rf.Required = true
			}
		}
	}
	if d.Options != nil {
		rf.OptionKey = d.Options.Key(values)
	}
	if d.Suffix != nil {
		if s, ok := in.resolveOne(d.Suffix, values); ok {
			rf.Suffix = &s
		}
	}
	if d.Extra != nil {
		if e, ok := in.resolveOne(d.Extra, values); ok {
			rf.Extra = &e
		}
	}
	return rf, true
}

func visible(d *FieldDescriptor, values FormState) bool {
	if d.Hidden {
		return false
	}
	if d.VisibleWhen != nil && !d.VisibleWhen.Holds(values) {
		return false
	}
	if d.VisibleFunc != nil && !d.VisibleFunc(values) {
		return false
	}
	return true
}

func checkDescriptors(descs []FieldDescriptor) error {
	seen := make(map[string]struct{})
	var check func(i int, d *FieldDescriptor) error
	check = func(i int, d *FieldDescriptor) error {
		if d.Name == "" {
			return &DescriptorError{Index: i, Reason: "missing name"}
		}
		if d.Type == "" {
			return &DescriptorError{Index: i, Name: d.Name, Reason: "missing type"}
		}
		if _, dup := seen[d.Name]; dup {
			return &DescriptorError{Index: i, Name: d.Name, Reason: "duplicate name"}
		}
		seen[d.Name] = struct{}{}
		if d.VisibleWhen != nil {
			if err := d.VisibleWhen.check(); err != nil {
				return &DescriptorError{Index: i, Name: d.Name, Reason: err.Error()}
			}
		}
		for _, r := range d.Rules {
			if err := r.check(); err != nil {
				return &DescriptorError{Index: i, Name: d.Name, Reason: err.Error()}
			}
		}
		for _, sub := range []*FieldDescriptor{d.Suffix, d.Extra} {
			if sub != nil {
				if err := check(i, sub); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for i := range descs {
		if err := check(i, &descs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Validate applies each resolved field's rules to its value. Only fields in
// resolved are checked, so a hidden required field never blocks a submit.
// It returns nil when every rule passes.
func (in *Interpreter) Validate(resolved []ResolvedField, values FormState) ValidationErrors {
	var errs ValidationErrors
	requiredMsg := in.labels.Label(requiredKey)
	for _, f := range resolved {
		f.Walk(func(rf ResolvedField) {
			v := values[rf.Name]
			label := rf.Label
			if label == "" {
				label = rf.Name
			}
			for _, r := range rf.Rules {
				if msg := r.failure(v, label, requiredMsg); msg != "" {
					errs = append(errs, ValidationError{Field: rf.Name, Rule: r.Kind, Message: msg})
				}
			}
		})
	}
	if len(errs) > 0 {
		in.logger.Debug("form validation failed", slog.Int("errors", len(errs)))
	}
	return errs
}

// ApplyClearOnHide returns a copy of values with the stored value of every
// hidden clear-on-hide field removed. Clearing can hide further fields, so
// it repeats until nothing changes.
func (in *Interpreter) ApplyClearOnHide(descs []FieldDescriptor, values FormState) (FormState, error) {
	if err := checkDescriptors(descs); err != nil {
		return nil, err
	}
	out := values.Clone()
	for {
		changed := false
		var visit func(d *FieldDescriptor, parentVisible bool)
		visit = func(d *FieldDescriptor, parentVisible bool) {
			if d == nil {
				return
			}
			shown := parentVisible && visible(d, out)
			if !shown && d.ClearOnHide {
				if _, ok := out[d.Name]; ok {
					delete(out, d.Name)
					changed = true
				}
			}
			visit(d.Suffix, shown)
			visit(d.Extra, shown)
		}
		for i := range descs {
			visit(&descs[i], true)
		}
		if !changed {
			return out, nil
		}
	}
}
