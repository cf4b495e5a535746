package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/modal"
	"github.com/matthewbaird/streamconsole/internal/options"
	"github.com/matthewbaird/streamconsole/internal/rowstore"
)

// attach binds option fields and table row stores to the visible fields of
// the open form. Option fields are created on first sight and loaded once
// their dependent key is known; after that the key is kept in step with the
// values.
func (p *Page) attach(ctx context.Context) {
	resolved, err := p.modal.Resolve()
	if err != nil {
		if !errors.Is(err, modal.ErrNotOpen) {
			p.logger.Error("console: resolve form", slog.Any("error", err))
		}
		return
	}
	values := p.modal.Session().Values
	for _, top := range resolved {
		top.Walk(func(f form.ResolvedField) {
			if f.Options != nil {
				p.attachOptions(ctx, f)
			}
			if f.Type == form.TypeEditableTable {
				p.attachTable(f.Name, values[f.Name])
			}
		})
	}
}

func (p *Page) attachOptions(ctx context.Context, f form.ResolvedField) {
	if p.loader == nil {
		return
	}
	p.mu.Lock()
	field, ok := p.fields[f.Name]
	if !ok {
		field = p.loader.Field(f.Name, f.Options.Source)
		field.OnChange(func(options.FieldState) { p.emit(PartOptions) })
		p.fields[f.Name] = field
		p.unloaded[f.Name] = true
	}
	first := p.unloaded[f.Name]
	p.mu.Unlock()

	// a dependent source waits for its key, and drops the options of a key
	// that was cleared
	if f.OptionKey == "" && len(f.Options.DependsOn) > 0 {
		if !first {
			field.Clear()
		}
		return
	}
	if !first {
		if err := field.SetKey(ctx, f.OptionKey); err != nil {
			p.optionFailed(f.Name, err)
		}
		return
	}
	p.mu.Lock()
	delete(p.unloaded, f.Name)
	p.mu.Unlock()
	if err := field.Load(ctx, f.OptionKey); err != nil {
		p.optionFailed(f.Name, err)
	}
}

func (p *Page) optionFailed(name string, err error) {
	if errors.Is(err, options.ErrStale) {
		return
	}
	p.logger.Warn("console: option fetch failed", slog.String("field", name), slog.Any("error", err))
}

func (p *Page) attachTable(name string, value any) {
	p.mu.Lock()
	if _, ok := p.tables[name]; ok {
		p.mu.Unlock()
		return
	}
	st := rowstore.New(rowstore.WithOnChange(func(rows []map[string]any) {
		items := make([]any, len(rows))
		for i, r := range rows {
			items[i] = r
		}
		if _, err := p.modal.Change(map[string]any{name: items}); err != nil && !errors.Is(err, modal.ErrNotOpen) {
			p.logger.Warn("console: table change", slog.String("field", name), slog.Any("error", err))
		}
	}))
	p.tables[name] = st
	p.mu.Unlock()
	st.Load(tableRows(value))
}

// tableRows reads an editable table value as rows.
func tableRows(v any) []map[string]any {
	switch rows := v.(type) {
	case []map[string]any:
		return rows
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			if m, ok := r.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// release drops the option fields and tables of a closed form.
func (p *Page) release() {
	p.mu.Lock()
	fields := p.fields
	p.fields = make(map[string]*options.Field)
	p.unloaded = make(map[string]bool)
	p.tables = make(map[string]*rowstore.Store)
	p.mu.Unlock()
	for _, f := range fields {
		f.Stop()
	}
}

func (p *Page) table(name string) (*rowstore.Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.tables[name]
	if !ok {
		return nil, fmt.Errorf("no editable table %q in the open form", name)
	}
	return st, nil
}

// AddRow appends a row to an editable table of the open form and returns
// its token.
func (p *Page) AddRow(field string, values map[string]any) (string, error) {
	st, err := p.table(field)
	if err != nil {
		return "", err
	}
	return st.Add(values).Token, nil
}

// UpdateRow merges values into the row named by token.
func (p *Page) UpdateRow(field, token string, values map[string]any) error {
	st, err := p.table(field)
	if err != nil {
		return err
	}
	return st.Update(token, values)
}

// RemoveRow deletes the row named by token.
func (p *Page) RemoveRow(field, token string) error {
	st, err := p.table(field)
	if err != nil {
		return err
	}
	return st.Remove(token)
}
