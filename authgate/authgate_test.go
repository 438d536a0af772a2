package authgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/types/consts"
)

type fakeDriver struct {
	stored map[string]*schema.AuthInfo
}

func newFakeDriver() *fakeDriver { return &fakeDriver{stored: make(map[string]*schema.AuthInfo)} }

func (f *fakeDriver) Connect(context.Context) error    { return nil }
func (f *fakeDriver) Disconnect(context.Context) error { return nil }
func (f *fakeDriver) Health() error                    { return nil }

func (f *fakeDriver) GetAuthInfo(_ context.Context, token string) (*schema.AuthInfo, bool, error) {
	info, ok := f.stored[token]
	return info, ok, nil
}

func (f *fakeDriver) SetAuthInfo(_ context.Context, token string, info *schema.AuthInfo, _ time.Duration) error {
	f.stored[token] = info
	return nil
}

func (f *fakeDriver) RefreshRBACs(context.Context, []schema.Policy) error { return nil }

type fakeIDP struct{ info *schema.AuthInfo }

func (f *fakeIDP) Resolve(context.Context, string) (*schema.AuthInfo, error) { return f.info, nil }

func TestGateResolveMemoizesAcrossDriverAndMemo(t *testing.T) {
	driver := newFakeDriver()
	idp := &fakeIDP{info: &schema.AuthInfo{Username: "alice", ReadAllowed: map[string]struct{}{"mod.X": {}}}}
	g := New(driver, idp)

	ctx := context.Background()
	info, err := g.resolve(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)

	// Second call must hit the process-local memo, not the IDP or driver.
	idp.info = nil
	info2, err := g.resolve(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", info2.Username)

	// Driver must have the write-back from the first resolution.
	stored, ok, err := driver.GetAuthInfo(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", stored.Username)
}

func TestGateInvalidateForcesReResolve(t *testing.T) {
	driver := newFakeDriver()
	idp := &fakeIDP{info: &schema.AuthInfo{Username: "bob"}}
	g := New(driver, idp)
	ctx := context.Background()

	_, err := g.resolve(ctx, "tok-2")
	require.NoError(t, err)

	g.Invalidate()
	idp.info = &schema.AuthInfo{Username: "bob-reresolved"}
	delete(driver.stored, "tok-2")

	info, err := g.resolve(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "bob-reresolved", info.Username)
}

func TestMiddlewareFreeSchemaSkipsAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := New(nil, nil)
	info := &schema.Info{Sref: "mod.X", AAA: consts.AAAFree}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/mod/v1/x", nil)

	called := false
	handler := g.Middleware(info, VerbRead)
	handler(c)
	c.Next()
	_ = called
	assert.False(t, c.IsAborted())
}

func TestMiddlewareMissingTokenUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := New(nil, nil)
	info := &schema.Info{Sref: "mod.X", AAA: consts.AAAAuthorized}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/mod/v1/x", nil)

	handler := g.Middleware(info, VerbRead)
	handler(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScopeFilterInjectsOrgAndOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(consts.CTX_ORG, "acme")
	c.Set(consts.CTX_AUTHINFO, &schema.AuthInfo{Username: "alice"})

	info := &schema.Info{Sref: "mod.X", AAA: consts.AAAAuthorizedOwner}
	node := ScopeFilter(c, info, nil)
	require.NotNil(t, node)
	// org AND owner, conjoined left-to-right.
	assert.Equal(t, "org", node.Left.Field)
	assert.Equal(t, "owner", node.Right.Field)
	assert.Equal(t, "alice", node.Right.Value)
}

func TestCheckOwnerRejectsMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(consts.CTX_AUTHINFO, &schema.AuthInfo{Username: "alice"})

	info := &schema.Info{Sref: "mod.X", AAA: consts.AAAAuthorizedOwner}
	err := CheckOwner(c, info, "bob")
	require.Error(t, err)

	err = CheckOwner(c, info, "alice")
	require.NoError(t, err)
}
