package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tierforge/tierserve/authgate"
	"github.com/tierforge/tierserve/controller"
	"github.com/tierforge/tierserve/logger"
	pkgzap "github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/metrics"
	"github.com/tierforge/tierserve/middleware"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types/consts"
)

func TestMain(m *testing.M) {
	// Console loggers avoid touching the filesystem; metrics/route-param
	// manager must exist before middleware.Logger/RouteParams run.
	logger.Protocol = pkgzap.New("/dev/stdout")
	logger.Controller = pkgzap.New("/dev/stdout")
	_ = middleware.Init()
	_ = metrics.Init()
	m.Run()
}

type routerTestEntity struct {
	schema.BaseSchema
	Name string `json:"name"`
}

func readOnlyInfo(path string) *schema.Info {
	return &schema.Info{
		Sref: "mod.widget.1.0",
		Path: path,
		AAA:  consts.AAAFree,
		CRUD: consts.CRUDRead,
	}
}

func fullCRUDInfo(path string) *schema.Info {
	return &schema.Info{
		Sref: "mod.gadget.1.0",
		Path: path,
		AAA:  consts.AAAFree,
		CRUD: consts.CRUDCreate | consts.CRUDRead | consts.CRUDUpdate | consts.CRUDDelete,
	}
}

func TestRegisterOnlyMountsEnabledVerbs(t *testing.T) {
	Init()
	coord := &tier.Coordinator[*routerTestEntity]{Info: readOnlyInfo("/svc/v1/ro-widgets")}
	Register(readOnlyInfo("/svc/v1/ro-widgets"), coord, &authgate.Gate{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/svc/v1/ro-widgets", nil)
	Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "create route must not be mounted for a read-only schema")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/svc/v1/ro-widgets", nil)
	Engine().ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusNotFound, w.Code, "search route must be mounted for a read-only schema")
}

func TestRegisterMountsFullCRUD(t *testing.T) {
	Init()
	info := fullCRUDInfo("/svc/v1/gadgets")
	coord := &tier.Coordinator[*routerTestEntity]{Info: info}
	Register(info, coord, &authgate.Gate{})

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/svc/v1/gadgets"},
		{http.MethodGet, "/svc/v1/gadgets"},
		{http.MethodGet, "/svc/v1/gadgets/count"},
		{http.MethodGet, "/svc/v1/gadgets/g1"},
		{http.MethodPut, "/svc/v1/gadgets/g1"},
		{http.MethodDelete, "/svc/v1/gadgets/g1"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		Engine().ServeHTTP(w, req)
		assert.NotEqual(t, http.StatusNotFound, w.Code, "%s %s should be routed", tc.method, tc.path)
	}
}

func TestRegisterRecordsNamedTaggedOperations(t *testing.T) {
	Init()
	info := fullCRUDInfo("/svc/v1/widgets-tagged")
	info.Name = "Widget"
	info.Tags = []string{"Mod"}
	coord := &tier.Coordinator[*routerTestEntity]{Info: info}
	Register(info, coord, &authgate.Gate{})

	byPath := make(map[string]Operation)
	for _, op := range Operations.All() {
		if op.Path == info.Path || op.Path == info.Path+"/:id" || op.Path == info.Path+"/count" {
			byPath[op.Method+" "+op.Path] = op
		}
	}

	create := byPath[http.MethodPost+" "+info.Path]
	require.NotZero(t, create)
	assert.Equal(t, "Create Widget", create.Name)
	assert.Equal(t, []string{"Mod"}, create.Tags)

	del := byPath[http.MethodDelete+" "+info.Path+"/:id"]
	require.NotZero(t, del)
	assert.Equal(t, "Delete Widget", del.Name)
	assert.Equal(t, []string{"Mod"}, del.Tags)
}

func TestRoutesHandlerServesRegisteredOperations(t *testing.T) {
	Init()
	info := fullCRUDInfo("/svc/v1/routes-widgets")
	info.Name = "Routes Widget"
	info.Tags = []string{"Mod"}
	coord := &tier.Coordinator[*routerTestEntity]{Info: info}
	Register(info, coord, &authgate.Gate{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Create Routes Widget"`)
}

func TestRegisterHealthReportsOK(t *testing.T) {
	Init()
	RegisterHealth("/svc/v1/health", "svc", map[string]controller.HealthDriver{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/svc/v1/health", nil)
	Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
