package controller

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/filter"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types"
	"github.com/tierforge/tierserve/types/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Controller = nopLogger{}
}

// nopLogger satisfies types.Logger without touching zap or the
// filesystem, so controller tests don't depend on logger/zap.Init.
type nopLogger struct{}

func (nopLogger) With(...string) types.Logger                                    { return nopLogger{} }
func (nopLogger) WithObject(string, zapcore.ObjectMarshaler) types.Logger         { return nopLogger{} }
func (nopLogger) WithArray(string, zapcore.ArrayMarshaler) types.Logger           { return nopLogger{} }
func (nopLogger) WithControllerContext(*types.ControllerContext, consts.Phase) types.Logger {
	return nopLogger{}
}
func (nopLogger) WithServiceContext(*types.ServiceContext, consts.Phase) types.Logger {
	return nopLogger{}
}
func (nopLogger) WithDatabaseContext(*types.DatabaseContext, consts.Phase) types.Logger {
	return nopLogger{}
}
func (nopLogger) Debug(...any)                 {}
func (nopLogger) Info(...any)                  {}
func (nopLogger) Warn(...any)                  {}
func (nopLogger) Error(...any)                 {}
func (nopLogger) Fatal(...any)                 {}
func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(string, ...any)        {}
func (nopLogger) Fatalf(string, ...any)        {}
func (nopLogger) Debugw(string, ...any)        {}
func (nopLogger) Infow(string, ...any)         {}
func (nopLogger) Warnw(string, ...any)         {}
func (nopLogger) Errorw(string, ...any)        {}
func (nopLogger) Fatalw(string, ...any)        {}
func (nopLogger) Debugz(string, ...zap.Field)  {}
func (nopLogger) Infoz(string, ...zap.Field)   {}
func (nopLogger) Warnz(string, ...zap.Field)   {}
func (nopLogger) Errorz(string, ...zap.Field)  {}
func (nopLogger) Fatalz(string, ...zap.Field)  {}

type testEntity struct {
	schema.BaseSchema
	Name string `json:"name"`
}

// fakeDatabase is an in-memory schema.DatabaseDriver used as the sole
// tier so Coordinator's switch statements pick the database-primary path
// without a real postgres/elastic/redis dependency.
type fakeDatabase struct {
	rows      map[string]*testEntity
	lastQuery schema.Query
}

func newFakeDatabase() *fakeDatabase { return &fakeDatabase{rows: make(map[string]*testEntity)} }

func (f *fakeDatabase) Connect(context.Context) error       { return nil }
func (f *fakeDatabase) Disconnect(context.Context) error    { return nil }
func (f *fakeDatabase) Reconnect(context.Context)           {}
func (f *fakeDatabase) Health() error                       { return nil }
func (f *fakeDatabase) RegisterModel(*schema.Info, []schema.Field) error { return nil }

func (f *fakeDatabase) Create(_ context.Context, _ *schema.Info, obj *testEntity) error {
	f.rows[obj.GetID()] = obj
	return nil
}

func (f *fakeDatabase) Get(_ context.Context, _ *schema.Info, id string) (*testEntity, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, tier.NewLookupError(errors.New("no row with id " + id))
	}
	return row, nil
}

func (f *fakeDatabase) Search(_ context.Context, _ *schema.Info, q schema.Query) ([]*testEntity, error) {
	f.lastQuery = q
	out := make([]*testEntity, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeDatabase) Count(_ context.Context, _ *schema.Info, q schema.Query) (int64, error) {
	f.lastQuery = q
	return int64(len(f.rows)), nil
}

func (f *fakeDatabase) Update(_ context.Context, _ *schema.Info, obj *testEntity) error {
	if _, ok := f.rows[obj.GetID()]; !ok {
		return tier.New(tier.NotFound, "update target not found: "+obj.GetID())
	}
	f.rows[obj.GetID()] = obj
	return nil
}

func (f *fakeDatabase) Delete(_ context.Context, _ *schema.Info, id string, _ bool) error {
	if _, ok := f.rows[id]; !ok {
		return tier.New(tier.NotFound, "delete target not found: "+id)
	}
	delete(f.rows, id)
	return nil
}

func freeInfo() *schema.Info {
	return &schema.Info{Sref: "mod.widget.1.0", Path: "/svc/v1/widgets", AAA: consts.AAAFree}
}

func newFreeCoordinator() (*tier.Coordinator[*testEntity], *fakeDatabase) {
	db := newFakeDatabase()
	info := freeInfo()
	return &tier.Coordinator[*testEntity]{Info: info, Database: db}, db
}

func doRequest(handler gin.HandlerFunc, method, path, body string, params gin.Params) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reqBody *bytes.Buffer
	if body == "" {
		reqBody = bytes.NewBuffer(nil)
	} else {
		reqBody = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	handler(c)
	return w
}

func TestCreateStampsEnvelopeAndWrites(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()

	w := doRequest(Create[*testEntity](info, coord), http.MethodPost, "/svc/v1/widgets", `{"name":"bolt"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, db.rows, 1)

	for _, row := range db.rows {
		assert.Equal(t, "bolt", row.Name)
		assert.Equal(t, info.Sref, row.GetSref())
		assert.Equal(t, info.Path+"/"+row.GetID(), row.GetUref())
		assert.NotZero(t, row.GetTstamp())
		assert.NotEmpty(t, row.GetID())
	}
}

func TestCreateToleratesEmptyBody(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()

	w := doRequest(Create[*testEntity](info, coord), http.MethodPost, "/svc/v1/widgets", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, db.rows, 1)
}

func TestReadRoundTrip(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()
	obj := &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}, Name: "bolt"}
	db.rows["w1"] = obj

	w := doRequest(Read[*testEntity](info, coord), http.MethodGet, "/svc/v1/widgets/w1", "", gin.Params{{Key: "id", Value: "w1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bolt")
}

func TestReadMissingIsNotFound(t *testing.T) {
	coord, _ := newFreeCoordinator()
	info := freeInfo()

	w := doRequest(Read[*testEntity](info, coord), http.MethodGet, "/svc/v1/widgets/missing", "", gin.Params{{Key: "id", Value: "missing"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRewritesFields(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()
	db.rows["w1"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w1", Sref: info.Sref}, Name: "bolt"}

	w := doRequest(Update[*testEntity](info, coord), http.MethodPut, "/svc/v1/widgets/w1", `{"name":"nut"}`, gin.Params{{Key: "id", Value: "w1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nut", db.rows["w1"].Name)
	assert.Equal(t, "w1", db.rows["w1"].GetID())
	assert.Equal(t, info.Path+"/w1", db.rows["w1"].GetUref())
}

func TestDeleteForceRemovesRow(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()
	db.rows["w1"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}}

	w := doRequest(Delete[*testEntity](info, coord), http.MethodDelete, "/svc/v1/widgets/w1?$force", "", gin.Params{{Key: "id", Value: "w1"}})
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := db.rows["w1"]
	assert.False(t, ok)
}

func TestDeleteSoftStampsDeletedFlag(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()
	db.rows["w1"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}}

	w := doRequest(Delete[*testEntity](info, coord), http.MethodDelete, "/svc/v1/widgets/w1", "", gin.Params{{Key: "id", Value: "w1"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, db.rows, "w1")
	assert.True(t, db.rows["w1"].IsDeleted())
}

func TestSearchScopesFreeInfoWithoutOrgFilter(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()
	db.rows["w1"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}}
	db.rows["w2"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w2"}}

	w := doRequest(Search[*testEntity](info, coord), http.MethodGet, "/svc/v1/widgets?name=bolt", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// AAAFree schemas carry no org/owner scope clause (authgate.ScopeFilter
	// is a no-op at this AAA level), but the bare equality param still
	// becomes a Term filter the coordinator receives.
	require.NotNil(t, db.lastQuery.Filter)
	assert.Equal(t, filter.Term, db.lastQuery.Filter.Kind)
}

func TestCountReportsTotal(t *testing.T) {
	coord, db := newFreeCoordinator()
	info := freeInfo()
	db.rows["w1"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w1"}}
	db.rows["w2"] = &testEntity{BaseSchema: schema.BaseSchema{ID: "w2"}}

	w := doRequest(Count[*testEntity](info, coord), http.MethodGet, "/svc/v1/widgets/count", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result":2`)
}

func TestHealthReportsDegradedOnDriverFailure(t *testing.T) {
	ok := healthFunc(func() error { return nil })
	bad := healthFunc(func() error { return assert.AnError })

	w := doRequest(Health("widgets", map[string]HealthDriver{"cache": ok, "database": bad}), http.MethodGet, "/svc/v1/widgets/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

type healthFunc func() error

func (f healthFunc) Health() error { return f() }
