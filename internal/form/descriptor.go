// Package form evaluates declarative field descriptors against live form
// values. Resolution is a pure function of (descriptors, values): hidden
// fields drop out of the resolved schema and out of validation, but their
// stored values are left alone unless a descriptor asks to be cleared.
package form

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/streamconsole/internal/options"
)

// TypeTag names the control a field renders as. The widget registry that
// maps tags to controls lives with the renderer.
type TypeTag string

const (
	TypeInput         TypeTag = "input"
	TypeInputSearch   TypeTag = "inputsearch"
	TypeInputNumber   TypeTag = "inputnumber"
	TypeTextArea      TypeTag = "textarea"
	TypeSelect        TypeTag = "select"
	TypeRadio         TypeTag = "radio"
	TypeCheckbox      TypeTag = "checkbox"
	TypeSwitch        TypeTag = "switch"
	TypeDatePicker    TypeTag = "datepicker"
	TypeText          TypeTag = "text"
	TypeEditableTable TypeTag = "editabletable"
	TypePassword      TypeTag = "password"
)

// FormState maps field names to their current values.
type FormState map[string]any

// Clone returns a shallow copy.
func (s FormState) Clone() FormState {
	out := make(FormState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy with name set to v.
func (s FormState) With(name string, v any) FormState {
	out := s.Clone()
	out[name] = v
	return out
}

// Merge returns a copy with every entry of other applied.
func (s FormState) Merge(other map[string]any) FormState {
	out := s.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Predicate decides visibility from the current values.
type Predicate func(FormState) bool

// PropsFunc computes control props from the current values. It must not
// have side effects; callers memoize expensive functions themselves.
type PropsFunc func(FormState) map[string]any

// FieldDescriptor declares one form field. Descriptor lists are ordered and
// the order is the render order.
type FieldDescriptor struct {
	Name         string
	Type         TypeTag
	Label        string
	InitialValue any

	// Hidden statically removes the field. VisibleWhen and VisibleFunc
	// must both hold (when set) for the field to be visible.
	Hidden      bool
	VisibleWhen *VisibilityRule
	VisibleFunc Predicate

	Props     map[string]any
	PropsFunc PropsFunc

	Rules []Rule

	// ClearOnHide drops the stored value when the field becomes hidden.
	ClearOnHide bool

	Suffix *FieldDescriptor
	Extra  *FieldDescriptor

	Options *OptionBinding
}

// OptionBinding attaches a remote option source to a field. The values of
// the DependsOn fields form the dependent key of the fetch.
type OptionBinding struct {
	Source    options.Source
	DependsOn []string
}

// Key derives the dependent key from the current values.
func (b *OptionBinding) Key(values FormState) string {
	if b == nil || len(b.DependsOn) == 0 {
		return ""
	}
	parts := make([]string, len(b.DependsOn))
	for i, name := range b.DependsOn {
		if v, ok := values[name]; ok && v != nil {
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, "/")
}

// ResolvedField is a render-ready field: visible, with labels resolved and
// static and computed props merged.
type ResolvedField struct {
	Name      string         `json:"name"`
	Type      TypeTag        `json:"type"`
	Label     string         `json:"label"`
	Value     any            `json:"value,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
	Rules     []Rule         `json:"rules,omitempty"`
	Required  bool           `json:"required,omitempty"`
	OptionKey string         `json:"optionKey,omitempty"`
	Suffix    *ResolvedField `json:"suffix,omitempty"`
	Extra     *ResolvedField `json:"extra,omitempty"`

	Options *OptionBinding `json:"-"`
}

// Walk calls fn for f and its suffix and extra fields.
func (f ResolvedField) Walk(fn func(ResolvedField)) {
	fn(f)
	if f.Suffix != nil {
		f.Suffix.Walk(fn)
	}
	if f.Extra != nil {
		f.Extra.Walk(fn)
	}
}

// InitialValues collects the declared initial values of descs.
func InitialValues(descs []FieldDescriptor) FormState {
	out := FormState{}
	var visit func(d *FieldDescriptor)
	visit = func(d *FieldDescriptor) {
		if d == nil {
			return
		}
		if d.InitialValue != nil {
			out[d.Name] = d.InitialValue
		}
		visit(d.Suffix)
		visit(d.Extra)
	}
	for i := range descs {
		visit(&descs[i])
	}
	return out
}

// VisibleValues returns the values of the resolved fields only. It is the
// payload a commit sends.
func VisibleValues(resolved []ResolvedField, values FormState) FormState {
	out := FormState{}
	for _, f := range resolved {
		f.Walk(func(rf ResolvedField) {
			if v, ok := values[rf.Name]; ok {
				out[rf.Name] = v
			}
		})
	}
	return out
}
