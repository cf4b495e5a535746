package catalog

import (
	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// File is the decoded catalog: every entity kind the console manages.
type File struct {
	Entities map[string]Entity `json:"entities"`
}

// Entity declares one kind. Kinds with a discriminator have one variant
// per discriminator value; the others have a single default variant made of
// the common fields.
type Entity struct {
	Label         string                `json:"label,omitempty"`
	Discriminator string                `json:"discriminator,omitempty"`
	Filters       []Field               `json:"filters,omitempty"`
	Common        []Field               `json:"common,omitempty"`
	Columns       []variant.Column      `json:"columns,omitempty"`
	DeleteParams  []string              `json:"deleteParams,omitempty"`
	Variants      map[string]VariantDef `json:"variants,omitempty"`
}

// VariantDef adds fields and columns to the common ones.
type VariantDef struct {
	Label   string           `json:"label,omitempty"`
	Fields  []Field          `json:"fields,omitempty"`
	Columns []variant.Column `json:"columns,omitempty"`
}

// Field is the declarative form of a form.FieldDescriptor.
type Field struct {
	Name        string               `json:"name"`
	Type        string               `json:"type" jsonschema:"enum=input,enum=inputsearch,enum=inputnumber,enum=textarea,enum=select,enum=radio,enum=checkbox,enum=switch,enum=datepicker,enum=text,enum=editabletable,enum=password"`
	Label       string               `json:"label,omitempty"`
	Initial     any                  `json:"initial,omitempty"`
	Visible     *form.VisibilityRule `json:"visible,omitempty"`
	ClearOnHide bool                 `json:"clearOnHide,omitempty"`
	Encoding    string               `json:"encoding,omitempty" jsonschema:"enum=json,enum=csv"`
	Rules       []form.Rule          `json:"rules,omitempty"`
	Props       map[string]any       `json:"props,omitempty"`
	Options     *OptionsDef          `json:"options,omitempty"`
	Suffix      *Field               `json:"suffix,omitempty"`
	Extra       *Field               `json:"extra,omitempty"`
}

// OptionsDef declares a remote option source.
type OptionsDef struct {
	URL         string         `json:"url"`
	Method      string         `json:"method,omitempty" jsonschema:"enum=GET,enum=POST"`
	Params      map[string]any `json:"params,omitempty"`
	KeyParam    string         `json:"keyParam,omitempty"`
	DependsOn   []string       `json:"dependsOn,omitempty"`
	LabelKey    string         `json:"labelKey,omitempty"`
	ValueKey    string         `json:"valueKey,omitempty"`
	Shape       string         `json:"shape,omitempty" jsonschema:"enum=list,enum=array"`
	RequestAuto bool           `json:"requestAuto,omitempty"`
	DebounceMs  int            `json:"debounceMs,omitempty" jsonschema:"minimum=0"`
}
