package console

import (
	"errors"
	"log/slog"

	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/modal"
	"github.com/matthewbaird/streamconsole/internal/options"
	"github.com/matthewbaird/streamconsole/internal/rowstore"
	"github.com/matthewbaird/streamconsole/internal/types"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// ListView is what the table of a page renders.
type ListView struct {
	Kind       string               `json:"kind"`
	Label      string               `json:"label"`
	Columns    []variant.Column     `json:"columns"`
	Filters    []form.ResolvedField `json:"filters"`
	Rows       []map[string]any     `json:"rows"`
	Pagination types.Pagination     `json:"pagination"`
	Loading    bool                 `json:"loading,omitempty"`
	Deleting   []int64              `json:"deleting,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// TableRow is one row of an editable table, addressed by its token.
type TableRow struct {
	Token  string         `json:"token"`
	Values map[string]any `json:"values"`
}

// FormView is what the create/edit modal renders.
type FormView struct {
	State      modal.State           `json:"state"`
	TargetID   int64                 `json:"targetId,omitempty"`
	Variant    string                `json:"variant,omitempty"`
	Variants   []variant.Variant     `json:"variants,omitempty"`
	Fields     []form.ResolvedField  `json:"fields,omitempty"`
	Values     form.FormState        `json:"values,omitempty"`
	Errors     map[string]string     `json:"errors,omitempty"`
	Tables     map[string][]TableRow `json:"tables,omitempty"`
	Submitting bool                  `json:"submitting,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// OptionState is the option list of one field.
type OptionState struct {
	Key     string         `json:"key"`
	Options []options.Pair `json:"options"`
	Loading bool           `json:"loading,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// OptionsView holds the option lists of the open form by field name.
type OptionsView map[string]OptionState

// View is the whole page.
type View struct {
	List    ListView    `json:"list"`
	Form    FormView    `json:"form"`
	Options OptionsView `json:"options"`
}

// View returns a snapshot of the whole page.
func (p *Page) View() View {
	return View{List: p.ListView(), Form: p.FormView(), Options: p.OptionsView()}
}

// ListView returns a snapshot of the table. Columns follow the variant
// selected by the discriminator filter, if any.
func (p *Page) ListView() ListView {
	st := p.list.State()
	e, _ := p.catalog.Entity(p.kind)

	tag := variant.DefaultTag
	if disc := p.catalog.Discriminator(p.kind); disc != "" {
		tag, _ = st.Query.Filters[disc].(string)
	}
	var cols []variant.Column
	if list, err := p.registry.List(p.kind, tag); err == nil {
		cols = append([]variant.Column(nil), list()...)
	} else {
		cols = p.catalog.Columns(p.kind, "")
	}
	for i := range cols {
		cols[i].Title = p.labels.Label(cols[i].Title)
	}

	filters, err := p.interp.Resolve(p.catalog.Filters(p.kind), st.Query.Filters)
	if err != nil {
		p.logger.Error("console: resolve filters", slog.Any("error", err))
	}

	rows := make([]map[string]any, len(st.Result.List))
	for i, r := range st.Result.List {
		rows[i] = r.Flat()
	}
	v := ListView{
		Kind:       p.kind,
		Label:      p.labels.Label(e.Label),
		Columns:    cols,
		Filters:    filters,
		Rows:       rows,
		Pagination: st.Pagination,
		Loading:    st.Loading,
		Deleting:   st.Deleting,
	}
	if st.Err != nil {
		v.Error = st.Err.Error()
	}
	return v
}

// FormView returns a snapshot of the modal.
func (p *Page) FormView() FormView {
	s := p.modal.Session()
	v := FormView{State: s.State, Submitting: s.Submitting}
	if s.State == modal.Closed {
		return v
	}
	if s.Target != nil {
		v.TargetID = s.Target.ID
	}
	v.Values = s.Values
	v.Variant = p.tagOf(s.Values)
	for _, vr := range p.registry.Variants(p.kind) {
		vr.Label = p.labels.Label(vr.Label)
		v.Variants = append(v.Variants, vr)
	}
	fields, err := p.modal.Resolve()
	if err != nil && !errors.Is(err, modal.ErrNotOpen) {
		p.logger.Error("console: resolve form", slog.Any("error", err))
	}
	v.Fields = fields
	if len(s.Errors) > 0 {
		v.Errors = s.Errors.ByField()
	}
	if s.LastErr != nil {
		v.Error = s.LastErr.Error()
	}

	p.mu.Lock()
	tables := make(map[string]*rowstore.Store, len(p.tables))
	for name, st := range p.tables {
		tables[name] = st
	}
	p.mu.Unlock()
	if len(tables) > 0 {
		v.Tables = make(map[string][]TableRow, len(tables))
		for name, st := range tables {
			snap := st.Snapshot()
			rows := make([]TableRow, len(snap))
			for i, r := range snap {
				rows[i] = TableRow{Token: r.Token, Values: r.Flat()}
			}
			v.Tables[name] = rows
		}
	}
	return v
}

// OptionsView returns the option lists of the open form.
func (p *Page) OptionsView() OptionsView {
	p.mu.Lock()
	fields := make([]*options.Field, 0, len(p.fields))
	for _, f := range p.fields {
		fields = append(fields, f)
	}
	p.mu.Unlock()
	out := make(OptionsView, len(fields))
	for _, f := range fields {
		st := f.State()
		o := OptionState{Key: st.Key, Options: st.Options, Loading: st.Loading}
		if st.Err != nil {
			o.Error = st.Err.Error()
		}
		out[f.Name()] = o
	}
	return out
}
