// Package variant keeps the closed set of entity variants (sink types, node
// types) and the capabilities each one registers. Dispatch is a lookup by
// kind and tag into per-capability tables.
package variant

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/matthewbaird/streamconsole/internal/form"
)

// DefaultTag names the variant of kinds that have no discriminator.
const DefaultTag = "default"

var (
	// ErrUnknownVariant is returned for a kind and tag never registered.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrCapabilityMissing is returned when a variant exists but did not
	// register the requested capability.
	ErrCapabilityMissing = errors.New("variant lacks capability")

	// ErrDuplicateVariant is returned when a kind and tag are registered
	// twice.
	ErrDuplicateVariant = errors.New("variant already registered")
)

// Variant identifies one concrete form of an entity kind.
type Variant struct {
	Kind  string `json:"kind"`
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// Serializer converts between form values and the backend payload.
type Serializer struct {
	ToBackend   func(form.FormState) map[string]any
	FromBackend func(map[string]any) form.FormState
}

// RowRenderer returns the editor fields for the current values.
type RowRenderer func(form.FormState) []form.FieldDescriptor

// Column is one table column.
type Column struct {
	Title     string `json:"title"`
	DataIndex string `json:"dataIndex"`
}

// ListRenderer returns the table columns.
type ListRenderer func() []Column

type key struct{ kind, tag string }

type entry struct {
	variant    Variant
	serializer *Serializer
	rows       RowRenderer
	list       ListRenderer
}

// Capability registers one capability of a variant.
type Capability func(*entry)

// WithSerializer registers the backend-serializable capability.
func WithSerializer(s Serializer) Capability {
	return func(e *entry) { e.serializer = &s }
}

// WithRows registers the row-renderable capability.
func WithRows(r RowRenderer) Capability {
	return func(e *entry) { e.rows = r }
}

// WithList registers the list-renderable capability.
func WithList(l ListRenderer) Capability {
	return func(e *entry) { e.list = l }
}

// Registry holds the variants of every kind.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]*entry)}
}

// Register adds v with the given capabilities. An empty tag registers the
// default variant.
func (r *Registry) Register(v Variant, caps ...Capability) error {
	if v.Kind == "" {
		return fmt.Errorf("register variant: missing kind")
	}
	if v.Tag == "" {
		v.Tag = DefaultTag
	}
	e := &entry{variant: v}
	for _, c := range caps {
		c(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{v.Kind, v.Tag}
	if _, exists := r.entries[k]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateVariant, v.Kind, v.Tag)
	}
	r.entries[k] = e
	return nil
}

func (r *Registry) lookup(kind, tag string) (*entry, error) {
	if tag == "" {
		tag = DefaultTag
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key{kind, tag}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownVariant, kind, tag)
	}
	return e, nil
}

// Variants lists the variants of kind ordered by tag.
func (r *Registry) Variants(kind string) []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Variant
	for k, e := range r.entries {
		if k.kind == kind {
			out = append(out, e.variant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Kinds lists every registered kind.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for k := range r.entries {
		if _, ok := seen[k.kind]; !ok {
			seen[k.kind] = struct{}{}
			out = append(out, k.kind)
		}
	}
	sort.Strings(out)
	return out
}

// Serializer returns the serializer of a variant.
func (r *Registry) Serializer(kind, tag string) (Serializer, error) {
	e, err := r.lookup(kind, tag)
	if err != nil {
		return Serializer{}, err
	}
	if e.serializer == nil {
		return Serializer{}, fmt.Errorf("%w: %s/%s serializer", ErrCapabilityMissing, kind, e.variant.Tag)
	}
	return *e.serializer, nil
}

// Rows returns the row renderer of a variant.
func (r *Registry) Rows(kind, tag string) (RowRenderer, error) {
	e, err := r.lookup(kind, tag)
	if err != nil {
		return nil, err
	}
	if e.rows == nil {
		return nil, fmt.Errorf("%w: %s/%s rows", ErrCapabilityMissing, kind, e.variant.Tag)
	}
	return e.rows, nil
}

// List returns the list renderer of a variant.
func (r *Registry) List(kind, tag string) (ListRenderer, error) {
	e, err := r.lookup(kind, tag)
	if err != nil {
		return nil, err
	}
	if e.list == nil {
		return nil, fmt.Errorf("%w: %s/%s list", ErrCapabilityMissing, kind, e.variant.Tag)
	}
	return e.list, nil
}

// ToBackend serializes values with the variant's serializer, or returns a
// plain copy when the variant registered none.
func (r *Registry) ToBackend(kind, tag string, values form.FormState) (map[string]any, error) {
	s, err := r.Serializer(kind, tag)
	if errors.Is(err, ErrCapabilityMissing) {
		return values.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return s.ToBackend(values), nil
}

// FromBackend is the inverse of ToBackend.
func (r *Registry) FromBackend(kind, tag string, payload map[string]any) (form.FormState, error) {
	s, err := r.Serializer(kind, tag)
	if errors.Is(err, ErrCapabilityMissing) {
		return form.FormState(payload).Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return s.FromBackend(payload), nil
}
