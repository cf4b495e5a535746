// Package catalog declares the entity kinds the console manages: their
// fields, variants, table columns and filters. The built-in catalog is
// written in CUE and embedded; YAML overlays can extend or override it and
// are checked against a JSON Schema reflected from the Go types.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/streamconsole/internal/form"
)

//go:embed catalog.cue
var builtin []byte

const schemaURL = "catalog.schema.json"

// Overlay is one YAML document merged over the built-in catalog.
type Overlay struct {
	Name string
	Data []byte
}

// ReadOverlays reads overlay files from disk.
func ReadOverlays(paths ...string) ([]Overlay, error) {
	out := make([]Overlay, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read overlay: %w", err)
		}
		out = append(out, Overlay{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

// Catalog is a loaded, validated set of entities.
type Catalog struct {
	file File
}

// Load compiles the built-in catalog and merges overlays in order.
func Load(overlays ...Overlay) (*Catalog, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	base, err := loadBuiltin()
	if err != nil {
		return nil, err
	}
	if err := validateDoc(schema, "builtin", base); err != nil {
		return nil, err
	}
	var file File
	if err := json.Unmarshal(base, &file); err != nil {
		return nil, fmt.Errorf("catalog: decode builtin: %w", err)
	}

	for _, o := range overlays {
		patch, err := decodeOverlay(schema, o)
		if err != nil {
			return nil, err
		}
		file.merge(patch)
	}

	c := &Catalog{file: file}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadBuiltin evaluates the embedded CUE and exports it as JSON.
func loadBuiltin() ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(builtin, cue.Filename("catalog.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("catalog: compile: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("catalog: validate: %w", err)
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("catalog: export: %w", err)
	}
	return data, nil
}

// Schema returns the JSON Schema catalogs and overlays must satisfy.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true, Anonymous: true}
	s := r.Reflect(&File{})
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal schema: %w", err)
	}
	return data, nil
}

func compileSchema() (*sjsonschema.Schema, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("catalog: add schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: compile schema: %w", err)
	}
	return s, nil
}

func validateDoc(schema *sjsonschema.Schema, name string, doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("catalog: %s: %w", name, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("catalog: %s: %w", name, err)
	}
	return nil
}

// decodeOverlay parses YAML, validates it and decodes it into a File.
func decodeOverlay(schema *sjsonschema.Schema, o Overlay) (File, error) {
	var raw any
	if err := yaml.Unmarshal(o.Data, &raw); err != nil {
		return File{}, fmt.Errorf("catalog: overlay %s: %w", o.Name, err)
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return File{}, fmt.Errorf("catalog: overlay %s: %w", o.Name, err)
	}
	if err := validateDoc(schema, "overlay "+o.Name, doc); err != nil {
		return File{}, err
	}
	var f File
	if err := json.Unmarshal(doc, &f); err != nil {
		return File{}, fmt.Errorf("catalog: overlay %s: %w", o.Name, err)
	}
	return f, nil
}

// check enforces what the schema cannot: discriminated kinds have variants
// and a discriminator field, and every variant resolves.
func (c *Catalog) check() error {
	for _, kind := range c.Kinds() {
		e := c.file.Entities[kind]
		if e.Discriminator != "" {
			if len(e.Variants) == 0 {
				return fmt.Errorf("catalog: %s: discriminator %q without variants", kind, e.Discriminator)
			}
			if !hasField(e.Common, e.Discriminator) {
				return fmt.Errorf("catalog: %s: discriminator %q is not a common field", kind, e.Discriminator)
			}
		}
		for _, tag := range c.Tags(kind) {
			descs, err := c.Fields(kind, tag)
			if err != nil {
				return err
			}
			if _, err := form.Resolve(descs, form.InitialValues(descs)); err != nil {
				return fmt.Errorf("catalog: %s/%s: %w", kind, tag, err)
			}
		}
		if _, err := form.Resolve(c.Filters(kind), nil); err != nil {
			return fmt.Errorf("catalog: %s filters: %w", kind, err)
		}
	}
	return nil
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Kinds lists the entity kinds in name order.
func (c *Catalog) Kinds() []string {
	out := make([]string, 0, len(c.file.Entities))
	for k := range c.file.Entities {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Entity returns the declaration of kind.
func (c *Catalog) Entity(kind string) (Entity, bool) {
	e, ok := c.file.Entities[kind]
	return e, ok
}
