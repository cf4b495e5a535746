package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

func load(t *testing.T, overlays ...catalog.Overlay) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(overlays...)
	require.NoError(t, err)
	return c
}

func fieldNames(descs []form.FieldDescriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name
	}
	return out
}

func TestLoad_Builtin(t *testing.T) {
	c := load(t)

	assert.Equal(t, []string{"consume", "group", "node", "sink", "stream"}, c.Kinds())
	assert.Equal(t, []string{"HIVE", "KAFKA"}, c.Tags("sink"))
	assert.Equal(t, []string{"COS", "MYSQL"}, c.Tags("node"))
	assert.Equal(t, []string{variant.DefaultTag}, c.Tags("group"))
	assert.Equal(t, "sinkType", c.Discriminator("sink"))
	assert.Equal(t, []string{"sinkType"}, c.DeleteParams("sink"))
}

func TestFields_CommonThenVariant(t *testing.T) {
	c := load(t)

	descs, err := c.Fields("node", "COS")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"name", "type", "description",
		"bucketName", "credentialsId", "credentialsKey", "region",
	}, fieldNames(descs))

	// every COS field is required
	for _, d := range descs[3:] {
		require.NotEmpty(t, d.Rules, d.Name)
		assert.Equal(t, form.RuleRequired, d.Rules[0].Kind, d.Name)
	}

	_, err = c.Fields("node", "ORACLE")
	assert.ErrorIs(t, err, variant.ErrUnknownVariant)
	_, err = c.Fields("nope", "")
	assert.ErrorIs(t, err, variant.ErrUnknownVariant)
}

func TestFields_ResolveWithVisibility(t *testing.T) {
	c := load(t)
	descs, err := c.Fields("sink", "KAFKA")
	require.NoError(t, err)

	values := form.InitialValues(descs)
	assert.Equal(t, "HIVE", values["sinkType"])
	assert.Equal(t, float64(3), values["partitions"])

	resolved, err := form.Resolve(descs, values)
	require.NoError(t, err)
	assert.Contains(t, resolvedNames(resolved), "partitions")

	resolved, err = form.Resolve(descs, values.With("enableCreateResource", 0))
	require.NoError(t, err)
	assert.NotContains(t, resolvedNames(resolved), "partitions")
}

func resolvedNames(resolved []form.ResolvedField) []string {
	out := make([]string, len(resolved))
	for i, f := range resolved {
		out[i] = f.Name
	}
	return out
}

func TestFields_OptionBindings(t *testing.T) {
	c := load(t)
	descs, err := c.Fields("sink", "HIVE")
	require.NoError(t, err)

	var streams *form.OptionBinding
	for _, d := range descs {
		if d.Name == "inlongStreamId" {
			streams = d.Options
		}
	}
	require.NotNil(t, streams)
	assert.Equal(t, "/stream/list", streams.Source.URL)
	assert.Equal(t, "inlongGroupId", streams.Source.KeyParam)
	assert.True(t, streams.Source.RequestAuto)
	assert.Equal(t, []string{"inlongGroupId"}, streams.DependsOn)
	require.NotNil(t, streams.Source.FormatResult)

	pairs, err := streams.Source.FormatResult([]byte(`{"list":[{"inlongStreamId":"s1"}],"total":1}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", pairs[0].Label)
}

func TestColumns(t *testing.T) {
	c := load(t)
	cols := c.Columns("sink", "HIVE")
	var idx []string
	for _, col := range cols {
		idx = append(idx, col.DataIndex)
	}
	assert.Equal(t, []string{"inlongStreamId", "sinkName", "status", "dbName", "tableName"}, idx)
}

func TestRegister(t *testing.T) {
	c := load(t)
	reg := variant.NewRegistry()
	require.NoError(t, c.Register(reg))

	rows, err := reg.Rows("node", "MYSQL")
	require.NoError(t, err)
	assert.Contains(t, fieldNames(rows(nil)), "url")

	list, err := reg.List("group", "")
	require.NoError(t, err)
	assert.Len(t, list(), 4)

	vs := reg.Variants("sink")
	require.Len(t, vs, 2)
	assert.Equal(t, "Hive", vs[0].Label)

	// registering twice collides
	assert.ErrorIs(t, c.Register(reg), variant.ErrDuplicateVariant)
}

func TestSerializer_Encodings(t *testing.T) {
	c := load(t)
	reg := variant.NewRegistry()
	require.NoError(t, c.Register(reg))

	out, err := reg.ToBackend("consume", "", form.FormState{
		"consumerGroup":  "cg",
		"inlongStreamId": []any{"s1", "s2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1,s2", out["inlongStreamId"])

	back, err := reg.FromBackend("consume", "", out)
	require.NoError(t, err)
	assert.Equal(t, []any{"s1", "s2"}, back["inlongStreamId"])

	out, err = reg.ToBackend("stream", "", form.FormState{
		"fields": []any{map[string]any{"fieldName": "a", "fieldType": "string"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"fieldName":"a","fieldType":"string"}]`, out["fields"].(string))

	back, err = reg.FromBackend("stream", "", out)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"fieldName": "a", "fieldType": "string"}}, back["fields"])
}

func TestLoad_OverlayExtendsCatalog(t *testing.T) {
	overlay := catalog.Overlay{Name: "extra.yaml", Data: []byte(`
entities:
  node:
    label: Data node
    variants:
      MYSQL:
        fields:
          - name: url
            type: input
            label: JDBC
            rules:
              - kind: required
      REDIS:
        label: Redis
        fields:
          - name: clusterMode
            type: select
            initial: standalone
  audit:
    label: Audit
    common:
      - name: auditId
        type: input
    columns:
      - title: ID
        dataIndex: auditId
`)}
	c := load(t, overlay)

	e, ok := c.Entity("node")
	require.True(t, ok)
	assert.Equal(t, "Data node", e.Label)
	assert.Equal(t, []string{"COS", "MYSQL", "REDIS"}, c.Tags("node"))

	descs, err := c.Fields("node", "MYSQL")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "type", "description", "url", "username", "password"}, fieldNames(descs))
	assert.Equal(t, "JDBC", descs[3].Label)
	assert.Len(t, descs[3].Rules, 1)

	assert.Contains(t, c.Kinds(), "audit")
}

func TestLoad_OverlayRejected(t *testing.T) {
	cases := map[string]string{
		"unknown property": `
entities:
  node:
    colour: blue
`,
		"bad field type": `
entities:
  node:
    common:
      - name: x
        type: slider
`,
		"missing field name": `
entities:
  node:
    common:
      - type: input
`,
		"not yaml": "entities: [",
		"discriminator without variants": `
entities:
  job:
    discriminator: kind
    common:
      - name: kind
        type: select
`,
		"duplicate field": `
entities:
  job:
    common:
      - name: a
        type: input
      - name: a
        type: input
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load(catalog.Overlay{Name: name, Data: []byte(doc)})
			assert.Error(t, err)
		})
	}
}

func TestSchema(t *testing.T) {
	data, err := catalog.Schema()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entities"`)
	assert.Contains(t, string(data), `"editabletable"`)
}
