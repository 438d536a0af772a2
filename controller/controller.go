// Package controller materializes one schema's CRUD/search/count
// operations into gin handlers. Grounded on the teacher's
// controller.CreateFactory/GetFactory/ListFactory/DeleteFactory shape —
// one generic factory per HTTP verb, parameterized by the entity type —
// generalized from the teacher's Request/Response/Model triple (service
// layer + GORM database handle) down to a single Entity type flowing
// straight through a *tier.Coordinator, since this framework's core has
// no separate service layer: the coordinator IS the business logic.
package controller

import (
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/tierforge/tierserve/authgate"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/response"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types"
	"github.com/tierforge/tierserve/types/consts"
)

func newInstance[M schema.Entity]() M {
	var zero M
	return reflect.New(reflect.TypeOf(zero).Elem()).Interface().(M)
}

var kindToCode = map[tier.Kind]response.Code{
	tier.BadRequest:         response.CodeBadRequest,
	tier.Unauthorized:       response.CodeUnauthorized,
	tier.Forbidden:          response.CodeForbidden,
	tier.NotFound:           response.CodeNotFound,
	tier.MethodNotAllowed:   response.CodeMethodNotAllowed,
	tier.Conflict:           response.CodeConflict,
	tier.NotImplemented:     response.CodeNotImplemented,
	tier.ServiceUnavailable: response.CodeServiceUnavailable,
}

// handleError recovers a *tier.Error's Kind and renders the matching
// response.Code; anything else is an unclassified failure.
func handleError(c *gin.Context, log types.Logger, err error) {
	if te, ok := tier.As(err); ok {
		log.Warnw("request failed", "kind", te.Kind, "error", te.Error())
		response.ResponseJSON(c, kindToCode[te.Kind].WithMsg(te.Error()))
		return
	}
	log.Error(err)
	response.ResponseJSON(c, response.CodeFailure.WithErr(err))
}

// stampNew assigns the envelope fields a freshly created row always
// carries: a generated id, its owning schema's sref/uref, and a creation
// timestamp. org/owner are stamped separately by authgate.StampWrite.
func stampNew(info *schema.Info, obj schema.Entity) {
	obj.SetID()
	obj.SetSref(info.Sref)
	obj.SetUref(info.Path + "/" + obj.GetID())
	obj.SetTstamp(time.Now().Unix())
}

// Create binds the request body into a fresh M, stamps its envelope and
// tenant scope, and writes it through the coordinator.
func Create[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M]) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Controller.WithControllerContext(types.NewControllerContext(c), consts.PhaseCreate)

		obj := newInstance[M]()
		if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
			response.ResponseJSON(c, response.CodeInvalidParam.WithErr(err))
			return
		}
		stampNew(info, obj)
		authgate.StampWrite(c, obj)

		created, err := coord.Create(c.Request.Context(), obj)
		if err != nil {
			handleError(c, log, err)
			return
		}
		log.Infow("created", "id", created.GetID())
		response.ResponseJSON(c, response.CodeSuccess.WithStatus(http.StatusCreated), created)
	}
}

// Read resolves one row by its route-parameter id, enforcing
// AAAAuthorizedOwner against the row once it has been read.
func Read[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M]) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Controller.WithControllerContext(types.NewControllerContext(c), consts.PhaseRead)

		id := c.Param("id")
		obj, err := coord.Read(c.Request.Context(), id)
		if err != nil {
			handleError(c, log, err)
			return
		}
		if err := authgate.CheckOwner(c, info, obj.GetOwner()); err != nil {
			handleError(c, log, err)
			return
		}
		response.ResponseJSON(c, response.CodeSuccess, obj)
	}
}

// Update pre-reads the target row to enforce ownership, binds the
// request body over it, re-stamps org/owner, and writes it through the
// coordinator.
func Update[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M]) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Controller.WithControllerContext(types.NewControllerContext(c), consts.PhaseUpdate)

		id := c.Param("id")
		existing, err := coord.Read(c.Request.Context(), id)
		if err != nil {
			handleError(c, log, err)
			return
		}
		if err := authgate.CheckOwner(c, info, existing.GetOwner()); err != nil {
			handleError(c, log, err)
			return
		}

		if err := c.ShouldBindJSON(existing); err != nil {
			response.ResponseJSON(c, response.CodeInvalidParam.WithErr(err))
			return
		}
		existing.SetID(id)
		existing.SetSref(info.Sref)
		existing.SetUref(info.Path + "/" + id)
		authgate.StampWrite(c, existing)

		updated, err := coord.Update(c.Request.Context(), existing)
		if err != nil {
			handleError(c, log, err)
			return
		}
		log.Infow("updated", "id", updated.GetID())
		response.ResponseJSON(c, response.CodeSuccess, updated)
	}
}

// Delete pre-reads the target to enforce ownership, then deletes it via
// the coordinator — hard or soft depending on '$force'.
func Delete[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M]) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Controller.WithControllerContext(types.NewControllerContext(c), consts.PhaseDelete)

		id := c.Param("id")
		force, err := parseTriState(c, consts.QueryForce)
		if err != nil {
			response.ResponseJSON(c, response.CodeInvalidParam.WithErr(err))
			return
		}

		existing, err := coord.Read(c.Request.Context(), id)
		if err != nil {
			handleError(c, log, err)
			return
		}
		if err := authgate.CheckOwner(c, info, existing.GetOwner()); err != nil {
			handleError(c, log, err)
			return
		}

		if _, err := coord.Delete(c.Request.Context(), id, force, func(obj M) { obj.SetDeleted(true) }); err != nil {
			handleError(c, log, err)
			return
		}
		log.Infow("deleted", "id", id, "force", force)
		response.ResponseJSON(c, response.CodeSuccess, gin.H{
			"id": id, "sref": info.Sref, "uref": info.Path + "/" + id, "status": "deleted",
		})
	}
}

// Search lists rows matching '$f/$filter/$orderby/$order/$size/$skip'
// (plus non-reserved equality params) and injects the caller's
// org/owner scope ahead of the query.
func Search[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M]) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Controller.WithControllerContext(types.NewControllerContext(c), consts.PhaseSearch)

		q, err := parseSearchQuery(c)
		if err != nil {
			response.ResponseJSON(c, response.CodeBadRequest.WithErr(err))
			return
		}
		archive, err := parseTriState(c, consts.QueryArchive)
		if err != nil {
			response.ResponseJSON(c, response.CodeInvalidParam.WithErr(err))
			return
		}
		q.Filter = authgate.ScopeFilter(c, info, q.Filter)

		objs, err := coord.Search(c.Request.Context(), q, archive)
		if err != nil {
			handleError(c, log, err)
			return
		}
		response.ResponseJSON(c, response.CodeSuccess, objs)
	}
}

// Count mirrors Search's query parsing but returns only the match count,
// alongside the resolved sref/uref this collection resource carries.
func Count[M schema.Entity](info *schema.Info, coord *tier.Coordinator[M]) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Controller.WithControllerContext(types.NewControllerContext(c), consts.PhaseCount)

		q, err := parseSearchQuery(c)
		if err != nil {
			response.ResponseJSON(c, response.CodeBadRequest.WithErr(err))
			return
		}
		archive, err := parseTriState(c, consts.QueryArchive)
		if err != nil {
			response.ResponseJSON(c, response.CodeInvalidParam.WithErr(err))
			return
		}
		q.Filter = authgate.ScopeFilter(c, info, q.Filter)

		total, err := coord.Count(c.Request.Context(), q, archive)
		if err != nil {
			handleError(c, log, err)
			return
		}
		response.ResponseJSON(c, response.CodeSuccess, gin.H{
			"sref": info.Sref, "uref": info.Path, "query": c.Request.URL.RawQuery, "result": total,
		})
	}
}

// HealthDriver is the narrow surface Health checks against any tier
// driver, mirroring the teacher's controller.Probe pattern.
type HealthDriver interface {
	Health() error
}

// Health reports each wired driver's last-known health, per spec.md §6's
// "GET /<service>/health". title/service come from the caller since no
// single schema speaks for the whole process.
func Health(title string, drivers map[string]HealthDriver) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail := make(gin.H, len(drivers))
		healthy := true
		for name, d := range drivers {
			if d == nil {
				continue
			}
			if err := d.Health(); err != nil {
				healthy = false
				detail[name] = err.Error()
			} else {
				detail[name] = "ok"
			}
		}
		status := "ok"
		if !healthy {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"title":   title,
			"status":  status,
			"healthy": healthy,
			"detail":  detail,
		})
	}
}
