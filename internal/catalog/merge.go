package catalog

import "github.com/matthewbaird/streamconsole/internal/variant"

// merge applies an overlay. New kinds and variants are added; for existing
// ones, set scalars replace, fields and columns with a known name replace
// in place and unknown ones are appended.
func (f *File) merge(patch File) {
	if f.Entities == nil {
		f.Entities = make(map[string]Entity)
	}
	for kind, pe := range patch.Entities {
		e, ok := f.Entities[kind]
		if !ok {
			f.Entities[kind] = pe
			continue
		}
		if pe.Label != "" {
			e.Label = pe.Label
		}
		if pe.Discriminator != "" {
			e.Discriminator = pe.Discriminator
		}
		if len(pe.DeleteParams) > 0 {
			e.DeleteParams = pe.DeleteParams
		}
		e.Filters = mergeFields(e.Filters, pe.Filters)
		e.Common = mergeFields(e.Common, pe.Common)
		e.Columns = mergeColumns(e.Columns, pe.Columns)
		if len(pe.Variants) > 0 {
			variants := make(map[string]VariantDef, len(e.Variants)+len(pe.Variants))
			for tag, v := range e.Variants {
				variants[tag] = v
			}
			for tag, pv := range pe.Variants {
				v, ok := variants[tag]
				if !ok {
					variants[tag] = pv
					continue
				}
				if pv.Label != "" {
					v.Label = pv.Label
				}
				v.Fields = mergeFields(v.Fields, pv.Fields)
				v.Columns = mergeColumns(v.Columns, pv.Columns)
				variants[tag] = v
			}
			e.Variants = variants
		}
		f.Entities[kind] = e
	}
}

func mergeFields(base, patch []Field) []Field {
	out := append([]Field(nil), base...)
	for _, p := range patch {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

func mergeColumns(base, patch []variant.Column) []variant.Column {
	out := append([]variant.Column(nil), base...)
	for _, p := range patch {
		replaced := false
		for i := range out {
			if out[i].DataIndex == p.DataIndex {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}
