package form_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/i18n"
	"github.com/matthewbaird/streamconsole/internal/options"
)

// sinkFields mirrors a sink editor: partitions only show for Kafka sinks,
// table name only for Hive ones.
func sinkFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		{
			Name:         "sinkType",
			Type:         form.TypeRadio,
			Label:        "meta.Sinks.SinkType",
			InitialValue: "HIVE",
			Props: map[string]any{
				"options": []string{"HIVE", "KAFKA"},
			},
			Rules: []form.Rule{form.Required("")},
		},
		{
			Name:  "sinkName",
			Type:  form.TypeInput,
			Label: "meta.Sinks.SinkName",
			Rules: []form.Rule{
				form.Required(""),
				form.Pattern(`^[a-z_][a-z0-9_]*$`, "lowercase letters, digits and underscores only"),
			},
			PropsFunc: func(v form.FormState) map[string]any {
				return map[string]any{"disabled": v["id"] != nil}
			},
		},
		{
			Name:        "tableName",
			Type:        form.TypeInput,
			Label:       "meta.Sinks.Hive.TableName",
			VisibleWhen: &form.VisibilityRule{Field: "sinkType", Operator: form.OpEq, Value: "HIVE"},
			Rules:       []form.Rule{form.Required("")},
		},
		{
			Name:        "partitions",
			Type:        form.TypeInputNumber,
			Label:       "meta.Sinks.Kafka.Partitions",
			VisibleWhen: &form.VisibilityRule{Field: "sinkType", Operator: form.OpEq, Value: "KAFKA"},
			Rules:       []form.Rule{form.Required(""), form.Min(1, ""), form.Max(100, "")},
			Suffix: &form.FieldDescriptor{
				Name: "partitionUnit",
				Type: form.TypeText,
			},
		},
	}
}

func names(resolved []form.ResolvedField) []string {
	out := make([]string, len(resolved))
	for i, f := range resolved {
		out[i] = f.Name
	}
	return out
}

func TestResolve_IsPure(t *testing.T) {
	values := form.FormState{"sinkType": "KAFKA", "sinkName": "orders", "id": 3}
	before := values.Clone()

	first, err := form.Resolve(sinkFields(), values)
	require.NoError(t, err)
	second, err := form.Resolve(sinkFields(), values)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, values)
}

func TestResolve_OrderAndVisibility(t *testing.T) {
	resolved, err := form.Resolve(sinkFields(), form.FormState{"sinkType": "HIVE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sinkType", "sinkName", "tableName"}, names(resolved))

	resolved, err = form.Resolve(sinkFields(), form.FormState{"sinkType": "KAFKA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sinkType", "sinkName", "partitions"}, names(resolved))
	require.NotNil(t, resolved[2].Suffix)
	assert.Equal(t, "partitionUnit", resolved[2].Suffix.Name)
	assert.True(t, resolved[2].Required)
}

func TestResolve_MergesComputedProps(t *testing.T) {
	resolved, err := form.Resolve(sinkFields(), form.FormState{"sinkType": "HIVE", "id": 9})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"disabled": true}, resolved[1].Props)
	assert.Equal(t, []string{"HIVE", "KAFKA"}, resolved[0].Props["options"])

	resolved, err = form.Resolve(sinkFields(), form.FormState{"sinkType": "HIVE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"disabled": false}, resolved[1].Props)
}

func TestResolve_ValueFallsBackToInitial(t *testing.T) {
	resolved, err := form.Resolve(sinkFields(), form.FormState{})
	require.NoError(t, err)
	assert.Equal(t, "HIVE", resolved[0].Value)
}

func TestResolve_HidingPreservesStoredValue(t *testing.T) {
	descs := []form.FieldDescriptor{
		{Name: "a", Type: form.TypeSelect},
		{
			Name:        "b",
			Type:        form.TypeInput,
			VisibleWhen: &form.VisibilityRule{Field: "a", Operator: form.OpNeq, Value: "hide"},
		},
	}
	values := form.FormState{"a": "show", "b": "kept"}

	values = values.With("a", "hide")
	resolved, err := form.Resolve(descs, values)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(resolved))

	values = values.With("a", "show")
	resolved, err = form.Resolve(descs, values)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names(resolved))
	assert.Equal(t, "kept", values["b"])
	assert.Equal(t, "kept", resolved[1].Value)
}

func TestResolve_MalformedDescriptor(t *testing.T) {
	cases := map[string][]form.FieldDescriptor{
		"missing name":     {{Type: form.TypeInput}},
		"missing type":     {{Name: "a"}},
		"duplicate":        {{Name: "a", Type: form.TypeInput}, {Name: "a", Type: form.TypeSelect}},
		"bad operator":     {{Name: "a", Type: form.TypeInput, VisibleWhen: &form.VisibilityRule{Field: "b", Operator: "gt"}}},
		"bad pattern":      {{Name: "a", Type: form.TypeInput, Rules: []form.Rule{form.Pattern("(", "")}}},
		"nameless suffix":  {{Name: "a", Type: form.TypeInput, Suffix: &form.FieldDescriptor{Type: form.TypeText}}},
		"suffix duplicate": {{Name: "a", Type: form.TypeInput, Suffix: &form.FieldDescriptor{Name: "a", Type: form.TypeText}}},
	}
	for name, descs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := form.Resolve(descs, form.FormState{})
			require.Error(t, err)
			assert.ErrorIs(t, err, form.ErrMalformedDescriptor)
			var de *form.DescriptorError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestValidate_HiddenRequiredDoesNotBlock(t *testing.T) {
	values := form.FormState{"sinkType": "HIVE", "sinkName": "orders", "tableName": "t_orders"}
	resolved, err := form.Resolve(sinkFields(), values)
	require.NoError(t, err)

	// partitions is required but hidden for Hive sinks
	assert.Empty(t, form.Validate(resolved, values))
}

func TestValidate_ReportsVisibleFailures(t *testing.T) {
	values := form.FormState{"sinkType": "KAFKA", "sinkName": "Bad-Name", "partitions": 0}
	resolved, err := form.Resolve(sinkFields(), values)
	require.NoError(t, err)

	errs := form.Validate(resolved, values)
	require.Len(t, errs, 2)
	byField := errs.ByField()
	assert.Equal(t, "lowercase letters, digits and underscores only", byField["sinkName"])
	assert.Contains(t, byField["partitions"], "at least 1")
	assert.Contains(t, errs.Error(), "validation failed")
}

func TestValidate_RequiredUsesLabels(t *testing.T) {
	labels, err := i18n.NewCatalog("en", i18n.Default)
	require.NoError(t, err)
	in := form.New(form.WithLabels(labels))

	resolved, err := in.Resolve(sinkFields(), form.FormState{"sinkType": "HIVE"})
	require.NoError(t, err)
	assert.Equal(t, "Sink type", resolved[0].Label)

	errs := in.Validate(resolved, form.FormState{"sinkType": "HIVE"})
	assert.Equal(t, map[string]string{
		"sinkName":  "This field is required",
		"tableName": "This field is required",
	}, errs.ByField())
}

func TestValidate_LengthAndItems(t *testing.T) {
	descs := []form.FieldDescriptor{
		{Name: "name", Type: form.TypeInput, Rules: []form.Rule{form.MinLength(2, ""), form.MaxLength(4, "")}},
		{Name: "fields", Type: form.TypeEditableTable, Rules: []form.Rule{form.MinItems(1, "add a field"), form.MaxItems(2, "")}},
	}
	resolved, err := form.Resolve(descs, nil)
	require.NoError(t, err)

	errs := form.Validate(resolved, form.FormState{"name": "toolong", "fields": []any{}})
	assert.Equal(t, map[string]string{
		"name":   "name must be at most 4 characters",
		"fields": "add a field",
	}, errs.ByField())

	errs = form.Validate(resolved, form.FormState{"name": "ok", "fields": []any{1, 2, 3}})
	require.Len(t, errs, 1)
	assert.Equal(t, form.RuleMaxItems, errs[0].Rule)

	// optional and empty passes
	assert.Nil(t, form.Validate(resolved, form.FormState{}))
}

func TestApplyClearOnHide(t *testing.T) {
	descs := []form.FieldDescriptor{
		{Name: "filterEnabled", Type: form.TypeSwitch},
		{
			Name:        "streams",
			Type:        form.TypeSelect,
			ClearOnHide: true,
			VisibleWhen: &form.VisibilityRule{Field: "filterEnabled", Operator: form.OpEq, Value: true},
		},
		{
			Name:        "note",
			Type:        form.TypeInput,
			VisibleWhen: &form.VisibilityRule{Field: "filterEnabled", Operator: form.OpEq, Value: true},
		},
	}
	values := form.FormState{"filterEnabled": false, "streams": []any{"a"}, "note": "keep"}

	cleared, err := form.New().ApplyClearOnHide(descs, values)
	require.NoError(t, err)
	assert.NotContains(t, cleared, "streams")
	assert.Equal(t, "keep", cleared["note"])
	assert.Contains(t, values, "streams", "input is not modified")
}

func TestVisibleValues(t *testing.T) {
	values := form.FormState{"sinkType": "KAFKA", "partitions": 3, "partitionUnit": "p", "tableName": "stale"}
	resolved, err := form.Resolve(sinkFields(), values)
	require.NoError(t, err)

	assert.Equal(t, form.FormState{
		"sinkType":      "KAFKA",
		"partitions":    3,
		"partitionUnit": "p",
	}, form.VisibleValues(resolved, values))
}

func TestInitialValues(t *testing.T) {
	assert.Equal(t, form.FormState{"sinkType": "HIVE"}, form.InitialValues(sinkFields()))
}

func TestOptionBinding_Key(t *testing.T) {
	b := &form.OptionBinding{
		Source:    options.Source{URL: "/stream/list"},
		DependsOn: []string{"inlongGroupId", "dataNodeName"},
	}
	assert.Equal(t, "g1/", b.Key(form.FormState{"inlongGroupId": "g1"}))
	assert.Equal(t, "g1/n1", b.Key(form.FormState{"inlongGroupId": "g1", "dataNodeName": "n1"}))

	descs := []form.FieldDescriptor{{Name: "streams", Type: form.TypeSelect, Options: b}}
	resolved, err := form.Resolve(descs, form.FormState{"inlongGroupId": "g1"})
	require.NoError(t, err)
	assert.Equal(t, "g1/", resolved[0].OptionKey)
	assert.Same(t, b, resolved[0].Options)
}

func TestVisibilityRule_Operators(t *testing.T) {
	values := form.FormState{"n": int64(3), "s": "", "list": []any{"x"}}
	cases := []struct {
		rule form.VisibilityRule
		want bool
	}{
		{form.VisibilityRule{Field: "n", Operator: form.OpEq, Value: 3.0}, true},
		{form.VisibilityRule{Field: "n", Operator: form.OpEq, Value: "3"}, false},
		{form.VisibilityRule{Field: "n", Operator: form.OpIn, Values: []any{1, 3}}, true},
		{form.VisibilityRule{Field: "n", Operator: form.OpNotIn, Values: []any{1, 2}}, true},
		{form.VisibilityRule{Field: "s", Operator: form.OpEmpty}, true},
		{form.VisibilityRule{Field: "missing", Operator: form.OpEmpty}, true},
		{form.VisibilityRule{Field: "list", Operator: form.OpNotEmpty}, true},
		{form.VisibilityRule{Field: "list", Operator: form.OpNeq, Value: nil}, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.rule.Holds(values), "%+v", c.rule)
	}
}
