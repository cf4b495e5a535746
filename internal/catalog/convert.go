package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/options"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// Tags lists the variant tags of kind in order. Kinds without a
// discriminator have only variant.DefaultTag.
func (c *Catalog) Tags(kind string) []string {
	e, ok := c.file.Entities[kind]
	if !ok {
		return nil
	}
	if e.Discriminator == "" || len(e.Variants) == 0 {
		return []string{variant.DefaultTag}
	}
	tags := make([]string, 0, len(e.Variants))
	for t := range e.Variants {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Fields returns the descriptors of one variant: common fields first, then
// the variant's own.
func (c *Catalog) Fields(kind, tag string) ([]form.FieldDescriptor, error) {
	e, ok := c.file.Entities[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", variant.ErrUnknownVariant, kind)
	}
	fields := append([]Field(nil), e.Common...)
	if e.Discriminator != "" {
		v, ok := e.Variants[tag]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", variant.ErrUnknownVariant, kind, tag)
		}
		fields = append(fields, v.Fields...)
	}
	return descriptors(fields), nil
}

// Columns returns the table columns of one variant.
func (c *Catalog) Columns(kind, tag string) []variant.Column {
	e := c.file.Entities[kind]
	cols := append([]variant.Column(nil), e.Columns...)
	if v, ok := e.Variants[tag]; ok && e.Discriminator != "" {
		cols = append(cols, v.Columns...)
	}
	return cols
}

// Filters returns the filter form of kind.
func (c *Catalog) Filters(kind string) []form.FieldDescriptor {
	return descriptors(c.file.Entities[kind].Filters)
}

// DeleteParams lists the current filter values sent along with a delete.
func (c *Catalog) DeleteParams(kind string) []string {
	return append([]string(nil), c.file.Entities[kind].DeleteParams...)
}

// Discriminator returns the field selecting the variant of kind, if any.
func (c *Catalog) Discriminator(kind string) string {
	return c.file.Entities[kind].Discriminator
}

// Register adds every variant of every kind to reg with its rows, list and
// serializer capabilities.
func (c *Catalog) Register(reg *variant.Registry) error {
	for _, kind := range c.Kinds() {
		e := c.file.Entities[kind]
		for _, tag := range c.Tags(kind) {
			descs, err := c.Fields(kind, tag)
			if err != nil {
				return err
			}
			label := e.Label
			if v, ok := e.Variants[tag]; ok && v.Label != "" {
				label = v.Label
			}
			cols := c.Columns(kind, tag)
			ser := serializerFor(e, tag)
			err = reg.Register(
				variant.Variant{Kind: kind, Tag: tag, Label: label},
				variant.WithRows(func(form.FormState) []form.FieldDescriptor { return descs }),
				variant.WithList(func() []variant.Column { return cols }),
				variant.WithSerializer(ser),
			)
			if err != nil {
				return fmt.Errorf("catalog: register %s/%s: %w", kind, tag, err)
			}
		}
	}
	return nil
}

func descriptors(fields []Field) []form.FieldDescriptor {
	out := make([]form.FieldDescriptor, len(fields))
	for i := range fields {
		out[i] = descriptor(fields[i])
	}
	return out
}

func descriptor(f Field) form.FieldDescriptor {
	d := form.FieldDescriptor{
		Name:         f.Name,
		Type:         form.TypeTag(f.Type),
		Label:        f.Label,
		InitialValue: f.Initial,
		ClearOnHide:  f.ClearOnHide,
		Rules:        append([]form.Rule(nil), f.Rules...),
		Props:        f.Props,
	}
	if d.Label == "" {
		d.Label = f.Name
	}
	if f.Visible != nil {
		rule := *f.Visible
		d.VisibleWhen = &rule
	}
	if f.Options != nil {
		d.Options = binding(*f.Options)
	}
	if f.Suffix != nil {
		s := descriptor(*f.Suffix)
		d.Suffix = &s
	}
	if f.Extra != nil {
		x := descriptor(*f.Extra)
		d.Extra = &x
	}
	return d
}

func binding(o OptionsDef) *form.OptionBinding {
	labelKey, valueKey := o.LabelKey, o.ValueKey
	if labelKey == "" {
		labelKey = "name"
	}
	if valueKey == "" {
		valueKey = labelKey
	}
	format := options.ListField(labelKey, valueKey)
	if o.Shape == "array" {
		format = options.ArrayField(labelKey, valueKey)
	}
	return &form.OptionBinding{
		Source: options.Source{
			URL:          o.URL,
			Method:       o.Method,
			Params:       o.Params,
			KeyParam:     o.KeyParam,
			RequestAuto:  o.RequestAuto,
			Debounce:     time.Duration(o.DebounceMs) * time.Millisecond,
			FormatResult: format,
		},
		DependsOn: append([]string(nil), o.DependsOn...),
	}
}

// serializerFor encodes fields whose backend form differs from the form
// value: "json" fields travel as JSON text and "csv" fields as a comma
// separated string.
func serializerFor(e Entity, tag string) variant.Serializer {
	encodings := make(map[string]string)
	collect := func(fields []Field) {
		for _, f := range fields {
			if f.Encoding != "" {
				encodings[f.Name] = f.Encoding
			}
		}
	}
	collect(e.Common)
	if v, ok := e.Variants[tag]; ok {
		collect(v.Fields)
	}

	return variant.Serializer{
		ToBackend: func(values form.FormState) map[string]any {
			out := values.Clone()
			for name, enc := range encodings {
				v, ok := out[name]
				if !ok || v == nil {
					continue
				}
				switch enc {
				case "json":
					if data, err := json.Marshal(v); err == nil {
						out[name] = string(data)
					}
				case "csv":
					if items, ok := v.([]any); ok {
						parts := make([]string, len(items))
						for i, it := range items {
							parts[i] = fmt.Sprint(it)
						}
						out[name] = strings.Join(parts, ",")
					}
				}
			}
			return out
		},
		FromBackend: func(payload map[string]any) form.FormState {
			out := form.FormState(payload).Clone()
			for name, enc := range encodings {
				s, ok := out[name].(string)
				if !ok {
					continue
				}
				switch enc {
				case "json":
					var v any
					if err := json.Unmarshal([]byte(s), &v); err == nil {
						out[name] = v
					}
				case "csv":
					items := []any{}
					if s != "" {
						for _, p := range strings.Split(s, ",") {
							items = append(items, p)
						}
					}
					out[name] = items
				}
			}
			return out
		},
	}
}
