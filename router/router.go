// Package router materializes the REST surface spec.md §6 names: one
// route group per registered schema, wired through the auth gate and the
// per-schema tier coordinator. Grounded on the teacher's router.Init/Run/
// Stop lifecycle and its global root *gin.Engine + auth/pub RouterGroup
// split, generalized from the teacher's fixed verb-factory registration
// (Create/Delete/Update/Patch/List/Get/...Many) down to the six
// operations spec.md §6's table actually names, gated per-schema by
// info.CRUD instead of a caller-supplied verb list.
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tierforge/tierserve/authgate"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/controller"
	"github.com/tierforge/tierserve/middleware"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types/consts"
	"go.uber.org/zap"
)

var (
	root   *gin.Engine
	server *http.Server
)

// Init builds the root engine and wires the ambient middleware chain
// every route (gated or not) runs through, mirroring the teacher's
// router.Init.
func Init() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	root = gin.New()
	root.Use(
		middleware.Logger("api.log"),
		middleware.Recovery("recovery.log"),
		middleware.RouteParams(),
		middleware.Timeout(config.App.Server.ReadTimeout),
	)
	root.Use(middleware.CommonMiddlewares...)
	root.GET("/metrics", gin.WrapH(promhttp.Handler()))
	root.GET("/routes", routesHandler)
	return root
}

// Engine returns the root engine Register calls mount schemas onto.
func Engine() *gin.Engine { return root }

// Register materializes one schema's gated CRUD/search/count routes
// under info.Path. It mounts no health route; RegisterHealth does that
// separately.
func Register[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M], gate *authgate.Gate) {
	group := root.Group(info.Path)

	if info.CRUD.Has(consts.CRUDCreate) {
		group.POST("", gate.Middleware(info, authgate.VerbCreate), controller.Create[M](info, coord))
		middleware.RouteManager.Add(info.Path)
		Operations.Add(http.MethodPost, info.Path, operationName("Create", info.Name), info.Tags)
	}
	if info.CRUD.Has(consts.CRUDRead) {
		group.GET("", gate.Middleware(info, authgate.VerbRead), controller.Search[M](info, coord))
		group.GET("/count", gate.Middleware(info, authgate.VerbRead), controller.Count[M](info, coord))
		group.GET("/:id", gate.Middleware(info, authgate.VerbRead), controller.Read[M](info, coord))
		middleware.RouteManager.Add(info.Path + "/:id")
		middleware.RouteManager.Add(info.Path + "/count")
		Operations.Add(http.MethodGet, info.Path, operationName("Search", info.Name), info.Tags)
		Operations.Add(http.MethodGet, info.Path+"/count", operationName("Count", info.Name), info.Tags)
		Operations.Add(http.MethodGet, info.Path+"/:id", operationName("Read", info.Name), info.Tags)
	}
	if info.CRUD.Has(consts.CRUDUpdate) {
		group.PUT("/:id", gate.Middleware(info, authgate.VerbUpdate), controller.Update[M](info, coord))
		Operations.Add(http.MethodPut, info.Path+"/:id", operationName("Update", info.Name), info.Tags)
	}
	if info.CRUD.Has(consts.CRUDDelete) {
		group.DELETE("/:id", gate.Middleware(info, authgate.VerbDelete), controller.Delete[M](info, coord))
		Operations.Add(http.MethodDelete, info.Path+"/:id", operationName("Delete", info.Name), info.Tags)
	}
}

// RegisterHealth mounts the process-wide health route spec.md §6 names
// ("GET /<service>/health"), reporting each wired driver's last health.
func RegisterHealth(path, title string, drivers map[string]controller.HealthDriver) {
	root.GET(path, controller.Health(title, drivers))
}

// Run starts the HTTP server, blocking until Stop shuts it down or it
// fails outright — mirrors the teacher's router.Run.
func Run() error {
	log := zap.S()
	addr := config.App.Server.Addr()
	log.Infow("router serving", "addr", addr)

	server = &http.Server{
		Addr:           addr,
		Handler:        root,
		ReadTimeout:    config.App.Server.ReadTimeout,
		WriteTimeout:   config.App.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorw("router serve failed", "error", err)
		return err
	}
	return nil
}

// Stop gracefully drains in-flight requests before returning, mirroring
// the teacher's router.Stop.
func Stop(ctx context.Context) error {
	if server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, config.App.Server.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	server = nil
	return err
}
