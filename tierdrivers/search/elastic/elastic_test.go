package elastic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/filter"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/types/consts"
)

type testDoc struct {
	schema.BaseSchema
	Name string `json:"name"`
}

func TestFieldMappingCoversEveryKind(t *testing.T) {
	cases := []struct {
		field schema.Field
		typ   string
	}{
		{schema.Field{Kind: consts.FieldString}, "text"},
		{schema.Field{Kind: consts.FieldString, Keyword: true}, "keyword"},
		{schema.Field{Kind: consts.FieldKeyword}, "keyword"},
		{schema.Field{Kind: consts.FieldUUID}, "keyword"},
		{schema.Field{Kind: consts.FieldListScalar}, "keyword"},
		{schema.Field{Kind: consts.FieldInt}, "long"},
		{schema.Field{Kind: consts.FieldFloat}, "double"},
		{schema.Field{Kind: consts.FieldBool}, "boolean"},
		{schema.Field{Kind: consts.FieldDatetime}, "date"},
	}
	for _, c := range cases {
		m := fieldMapping(c.field)
		assert.Equal(t, c.typ, m["type"], "kind %v", c.field.Kind)
	}
}

func TestFieldMappingNestedRecursesIntoProperties(t *testing.T) {
	f := schema.Field{
		Kind: consts.FieldNestedObject,
		Nested: []schema.Field{
			{Name: "city", Kind: consts.FieldString},
		},
	}
	m := fieldMapping(f)
	assert.Equal(t, "object", m["type"])
	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
}

func TestBuildMappingIncludesShardSettingsOnlyWhenSet(t *testing.T) {
	info := &schema.Info{SearchShards: 3, SearchReplicas: 1}
	m := buildMapping(info, []schema.Field{{Name: "name", Kind: consts.FieldString}})
	settings, ok := m["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, settings["number_of_shards"])
	assert.Equal(t, 1, settings["number_of_replicas"])

	bare := buildMapping(&schema.Info{}, nil)
	assert.NotContains(t, bare, "settings")
}

func TestBuildMappingAddsExpireAtField(t *testing.T) {
	m := buildMapping(&schema.Info{}, []schema.Field{{Name: "name", Kind: consts.FieldString}})
	mappings, ok := m["mappings"].(map[string]any)
	require.True(t, ok)
	props, ok := mappings["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, expireAtField)
	assert.Equal(t, map[string]any{"type": "long"}, props[expireAtField])
}

func TestDecodeHitsStripsExpireAtField(t *testing.T) {
	body := `{"hits":{"hits":[
		{"_source":{"id":"1","name":"a","` + expireAtField + `":1234567890}}
	]}}`
	objs, err := decodeHits[*testDoc](strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, objs, 1)

	raw, err := json.Marshal(objs[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), expireAtField)
}

func TestDecodeHitsUnmarshalsEachSource(t *testing.T) {
	body := `{"hits":{"hits":[
		{"_source":{"id":"1","name":"a"}},
		{"_source":{"id":"2","name":"b"}}
	]}}`
	objs, err := decodeHits[*testDoc](strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "1", objs[0].GetID())
	assert.Equal(t, "b", objs[1].Name)
}

func TestDecodeHitsEmptyResult(t *testing.T) {
	objs, err := decodeHits[*testDoc](strings.NewReader(`{"hits":{"hits":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestDriverMethodsFailClosedBeforeConnect(t *testing.T) {
	d := New[*testDoc](config.Elasticsearch{Addresses: []string{"http://127.0.0.1:9200"}})

	assert.Error(t, d.Health())
	assert.Error(t, d.RegisterModel(&schema.Info{Dref: "x"}, nil))
	assert.Error(t, d.Create(t.Context(), &schema.Info{Dref: "x"}, newInstance[*testDoc]()))
	assert.Error(t, d.Delete(t.Context(), &schema.Info{Dref: "x"}, "1"))

	_, err := d.Search(t.Context(), &schema.Info{Dref: "x", Translator: &filter.Translator{}}, schema.Query{})
	assert.Error(t, err)

	_, err = d.Count(t.Context(), &schema.Info{Dref: "x", Translator: &filter.Translator{}}, schema.Query{})
	assert.Error(t, err)

	assert.NoError(t, d.Disconnect(t.Context()))
}
