package refresolve

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/types/consts"
	"go.uber.org/zap/zapcore"
)

type refEntity struct {
	schema.BaseSchema
	Name string `json:"name"`
}

func (e *refEntity) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("sref", e.GetSref())
	return nil
}

type fakeFetcher struct {
	body   []byte
	status int
	err    error
}

func (f *fakeFetcher) Fetch(context.Context, string, http.Header) ([]byte, int, error) {
	return f.body, f.status, f.err
}

func registerTestSchema(t *testing.T, sref string, crud consts.CRUD, provider string) {
	t.Helper()
	_, err := schema.Register[*refEntity](sref, schema.RegisterOptions{
		Provider: provider,
		Service:  "svc",
		Major:    1,
		CRUD:     crud,
	}, nil, nil, nil)
	require.NoError(t, err)
}

func TestResolveRejectsMissingSref(t *testing.T) {
	r := New(func(string) (Fetcher, error) { return &fakeFetcher{}, nil })
	_, err := r.Resolve(context.Background(), Reference{Uref: "/x/1"}, nil)
	require.Error(t, err)
}

func TestResolveRejectsUnknownSref(t *testing.T) {
	r := New(func(string) (Fetcher, error) { return &fakeFetcher{}, nil })
	_, err := r.Resolve(context.Background(), Reference{Sref: "nope.NotRegistered"}, nil)
	require.Error(t, err)
}

func TestResolveRejectsNoProvider(t *testing.T) {
	registerTestSchema(t, "refresolve_test.NoProvider", consts.CRUDRead, "")
	r := New(func(string) (Fetcher, error) { return &fakeFetcher{}, nil })
	_, err := r.Resolve(context.Background(), Reference{Sref: "refresolve_test.NoProvider", Uref: "/x/1"}, nil)
	require.Error(t, err)
}

func TestResolveRejectsNonReadableSchema(t *testing.T) {
	registerTestSchema(t, "refresolve_test.WriteOnly", consts.CRUDCreate, "http://upstream")
	r := New(func(string) (Fetcher, error) { return &fakeFetcher{}, nil })
	_, err := r.Resolve(context.Background(), Reference{Sref: "refresolve_test.WriteOnly", Uref: "/x/1"}, nil)
	require.Error(t, err)
}

func TestResolveFetchesFromProvider(t *testing.T) {
	registerTestSchema(t, "refresolve_test.Readable", consts.CRUDRead, "http://upstream")
	fetcher := &fakeFetcher{body: []byte(`{"id":"1","name":"x"}`), status: 200}
	r := New(func(provider string) (Fetcher, error) {
		assert.Equal(t, "http://upstream", provider)
		return fetcher, nil
	})

	data, err := r.Resolve(context.Background(), Reference{Sref: "refresolve_test.Readable", Uref: "/x/1"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","name":"x"}`, string(data))
}

func TestAuthHeadersForwardsOnlyAuthFields(t *testing.T) {
	inbound := http.Header{}
	inbound.Set(consts.HeaderAuthorization, "Bearer tok")
	inbound.Set(consts.HeaderOrganization, "acme")
	inbound.Set("X-Other", "ignored")

	out := AuthHeaders(inbound)
	assert.Equal(t, "Bearer tok", out.Get(consts.HeaderAuthorization))
	assert.Equal(t, "acme", out.Get(consts.HeaderOrganization))
	assert.Empty(t, out.Get("X-Other"))
}
