package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
)

type testEntity struct {
	schema.BaseSchema
	Name string `json:"name"`
}

func newTestDriver(t *testing.T) *Driver[*testEntity] {
	t.Helper()
	mr := miniredis.RunT(t)
	d := &Driver[*testEntity]{}
	d.cli = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return d
}

func TestCreateGetRoundTrip(t *testing.T) {
	d := newTestDriver(t)
	info := &schema.Info{Dref: "mod_widget_1_0"}
	obj := &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}, Name: "bolt"}

	require.NoError(t, d.Create(t.Context(), info, obj))

	got, err := d.Get(t.Context(), info, "w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.GetID())
	assert.Equal(t, "bolt", got.Name)
}

func TestGetMissIsLookupError(t *testing.T) {
	d := newTestDriver(t)
	info := &schema.Info{Dref: "mod_widget_1_0"}

	_, err := d.Get(t.Context(), info, "missing")
	require.Error(t, err)
	assert.True(t, tier.IsLookupError(err))
}

func TestDeleteMissingKeyIsNotFound(t *testing.T) {
	d := newTestDriver(t)
	info := &schema.Info{Dref: "mod_widget_1_0"}

	err := d.Delete(t.Context(), info, "missing")
	require.Error(t, err)
	te, ok := tier.As(err)
	require.True(t, ok)
	assert.Equal(t, tier.NotFound, te.Kind)
}

func TestDeleteRemovesKey(t *testing.T) {
	d := newTestDriver(t)
	info := &schema.Info{Dref: "mod_widget_1_0"}
	obj := &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}}
	require.NoError(t, d.Create(t.Context(), info, obj))

	require.NoError(t, d.Delete(t.Context(), info, "w1"))

	_, err := d.Get(t.Context(), info, "w1")
	require.Error(t, err)
}

func TestCacheKeyNamespacesBySchema(t *testing.T) {
	assert.Equal(t, "mod_widget_1_0:w1", cacheKey(&schema.Info{Dref: "mod_widget_1_0"}, "w1"))
}

func TestDriverMethodsFailClosedBeforeConnect(t *testing.T) {
	d := New[*testEntity](config.Redis{Addr: "127.0.0.1:1"})
	info := &schema.Info{Dref: "x"}

	assert.Error(t, d.Health())
	_, err := d.Get(t.Context(), info, "1")
	assert.Error(t, err)
	assert.Error(t, d.Create(t.Context(), info, &testEntity{}))
	assert.Error(t, d.Delete(t.Context(), info, "1"))
	assert.NoError(t, d.Disconnect(t.Context()))
}
