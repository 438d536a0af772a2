// Package tier implements the read-through / write-fan-out / archive-route
// / failover engine that sits at the center of the framework: the Tier
// Coordinator (spec §4.2). Every route handler invokes exactly one of its
// six operations; the coordinator alone knows the fixed tier-consultation
// order and the backfill policy.
package tier

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/filter"
	"github.com/tierforge/tierserve/schema"
	"go.uber.org/zap"
)

// Coordinator dispatches read/search/count/create/update/delete for one
// registered schema across its cache, search and database drivers. It is
// parameterized the way the teacher parameterizes Database[M Model]: one
// Coordinator instance per entity type, built once at registration and
// held for the lifetime of the process.
type Coordinator[M schema.Entity] struct {
	Info *schema.Info

	Cache    schema.CacheDriver[M]
	Search   schema.SearchDriver[M]
	Database schema.DatabaseDriver[M]

	Backfill *BackfillPool
	Logger   *zap.SugaredLogger
	Metrics  Metrics
}

// Metrics is the narrow set of hooks the coordinator fires on every probe
// outcome. A nil-safe no-op implementation is used when unset so tests
// don't need to stub it.
type Metrics interface {
	ObserveProbe(tierName string, sref string, hit bool)
	ObserveFallback(fromTier, toTier, sref string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveProbe(string, string, bool)    {}
func (noopMetrics) ObserveFallback(string, string, string) {}

func (c *Coordinator[M]) metrics() Metrics {
	if c.Metrics == nil {
		return noopMetrics{}
	}
	return c.Metrics
}

func (c *Coordinator[M]) log() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.S()
	}
	return c.Logger
}

// Read consults cache, search, database in that fixed order. The first
// tier to yield a non-nil entity ends the chain; misses along the way
// enqueue a backfill into the tiers that missed.
func (c *Coordinator[M]) Read(ctx context.Context, id string) (M, error) {
	var zero M
	sref := c.Info.Sref

	if c.Cache != nil {
		obj, err := c.Cache.Get(ctx, c.Info, id)
		if err == nil {
			c.metrics().ObserveProbe("cache", sref, true)
			return obj, nil
		}
		if isInfra(err) {
			return zero, Wrap(ServiceUnavailable, err, "cache probe failed")
		}
		c.metrics().ObserveProbe("cache", sref, false)
	}

	if c.Search != nil {
		obj, err := c.searchGet(ctx, id)
		if err == nil {
			c.metrics().ObserveProbe("search", sref, true)
			c.submitBackfill(func(bctx context.Context) {
				if c.Cache != nil {
					_ = c.Cache.Create(bctx, c.Info, obj)
				}
			})
			return obj, nil
		}
		if !errors.Is(err, schema.ErrNotFoundInResult) && isInfra(err) {
			return zero, Wrap(ServiceUnavailable, err, "search probe failed")
		}
		c.metrics().ObserveProbe("search", sref, false)
	}

	if c.Database != nil {
		obj, err := c.Database.Get(ctx, c.Info, id)
		if err == nil {
			c.metrics().ObserveProbe("database", sref, true)
			c.submitBackfill(func(bctx context.Context) {
				if c.Cache != nil {
					_ = c.Cache.Create(bctx, c.Info, obj)
				}
				if c.Search != nil {
					_ = c.Search.Create(bctx, c.Info, obj)
				}
			})
			return obj, nil
		}
		if isInfra(err) {
			return zero, Wrap(ServiceUnavailable, err, "database probe failed")
		}
		c.metrics().ObserveProbe("database", sref, false)
	}

	return zero, New(NotFound, "entity exhausted all tiers: "+sref)
}

// searchGet fetches a single id from the search tier via a term filter on
// "id"; drivers without native get-by-id support implement Search to
// honor a size=1 query the same way.
func (c *Coordinator[M]) searchGet(ctx context.Context, id string) (M, error) {
	var zero M
	objs, err := c.Search.Search(ctx, c.Info, schema.Query{
		Fields: nil,
		Filter: filter.NewTerm("id", id),
		Size:   1,
	})
	if err != nil {
		return zero, err
	}
	for _, o := range objs {
		if o.GetID() == id {
			return o, nil
		}
	}
	return zero, schema.ErrNotFoundInResult
}

// Search routes by archive mode. archive=true with database in layer
// queries the database first, falling back to search on a non-lookup
// database error; otherwise it queries search first, falling back to
// database. Projected queries never backfill.
func (c *Coordinator[M]) Search(ctx context.Context, q schema.Query, archive bool) ([]M, error) {
	sref := c.Info.Sref

	if archive && c.Database != nil {
		objs, err := c.Database.Search(ctx, c.Info, q)
		if err == nil {
			c.metrics().ObserveProbe("database", sref, true)
			if !q.Projected() {
				c.submitBackfill(func(bctx context.Context) {
					if c.Search != nil {
						_ = c.Search.Create(bctx, c.Info, objs...)
					}
					if c.Cache != nil {
						for _, o := range objs {
							_ = c.Cache.Create(bctx, c.Info, o)
						}
					}
				})
			}
			return objs, nil
		}
		if IsLookupError(err) {
			return nil, Wrap(BadRequest, err, "malformed database query")
		}
		if c.Search != nil {
			c.metrics().ObserveFallback("database", "search", sref)
			objs, serr := c.Search.Search(ctx, c.Info, q)
			if serr == nil {
				return objs, nil
			}
			return nil, Wrap(ServiceUnavailable, serr, "database and search both failed")
		}
		return nil, New(NotImplemented, "no fallback tier available for archive search")
	}

	if c.Search != nil {
		objs, err := c.Search.Search(ctx, c.Info, q)
		if err == nil {
			c.metrics().ObserveProbe("search", sref, true)
			if !q.Projected() && c.Cache != nil {
				c.submitBackfill(func(bctx context.Context) {
					for _, o := range objs {
						_ = c.Cache.Create(bctx, c.Info, o)
					}
				})
			}
			return objs, nil
		}
		if IsLookupError(err) {
			return nil, Wrap(BadRequest, err, "malformed search query")
		}
		c.metrics().ObserveFallback("search", "database", sref)
		if c.Database != nil {
			objs, derr := c.Database.Search(ctx, c.Info, q)
			if derr == nil {
				if !q.Projected() {
					c.submitBackfill(func(bctx context.Context) {
						if c.Search != nil {
							_ = c.Search.Create(bctx, c.Info, objs...)
						}
					})
				}
				return objs, nil
			}
			return nil, Wrap(ServiceUnavailable, derr, "search and database both failed")
		}
		return nil, Wrap(ServiceUnavailable, err, "search failed, no fallback")
	}

	if c.Database != nil {
		return c.Database.Search(ctx, c.Info, q)
	}
	return nil, New(NotImplemented, "no driver wired for search")
}

// Count mirrors Search's routing without any backfill.
func (c *Coordinator[M]) Count(ctx context.Context, q schema.Query, archive bool) (int64, error) {
	sref := c.Info.Sref

	if archive && c.Database != nil {
		n, err := c.Database.Count(ctx, c.Info, q)
		if err == nil {
			return n, nil
		}
		if IsLookupError(err) {
			return 0, Wrap(BadRequest, err, "malformed database count query")
		}
		if c.Search != nil {
			c.metrics().ObserveFallback("database", "search", sref)
			n, serr := c.Search.Count(ctx, c.Info, q)
			if serr == nil {
				return n, nil
			}
			return 0, Wrap(ServiceUnavailable, serr, "database and search count both failed")
		}
		return 0, New(NotImplemented, "no fallback tier available for archive count")
	}

	if c.Search != nil {
		n, err := c.Search.Count(ctx, c.Info, q)
		if err == nil {
			return n, nil
		}
		if IsLookupError(err) {
			return 0, Wrap(BadRequest, err, "malformed search count query")
		}
		if c.Database != nil {
			c.metrics().ObserveFallback("search", "database", sref)
			n, derr := c.Database.Count(ctx, c.Info, q)
			if derr == nil {
				return n, nil
			}
			return 0, Wrap(ServiceUnavailable, derr, "search and database count both failed")
		}
		return 0, Wrap(ServiceUnavailable, err, "search count failed, no fallback")
	}

	if c.Database != nil {
		return c.Database.Count(ctx, c.Info, q)
	}
	return 0, New(NotImplemented, "no driver wired for count")
}

// Create writes to the primary tier first and only fans out to the
// secondary tiers after the primary acknowledges. The primary is
// database when present; otherwise search; otherwise cache. tstamp is
// stamped to now before the primary write.
func (c *Coordinator[M]) Create(ctx context.Context, obj M) (M, error) {
	var zero M
	obj.SetTstamp(time.Now().Unix())

	switch {
	case c.Database != nil:
		if err := c.Database.Create(ctx, c.Info, obj); err != nil {
			if IsLookupError(err) {
				return zero, Wrap(BadRequest, err, "malformed create payload")
			}
			if isAlreadyExists(err) {
				return zero, Wrap(Conflict, err, "entity already exists")
			}
			return zero, Wrap(ServiceUnavailable, err, "database create failed")
		}
		c.submitBackfill(func(bctx context.Context) {
			if c.Cache != nil {
				_ = c.Cache.Create(bctx, c.Info, obj)
			}
			if c.Search != nil {
				_ = c.Search.Create(bctx, c.Info, obj)
			}
		})
		return obj, nil

	case c.Search != nil:
		if err := c.Search.Create(ctx, c.Info, obj); err != nil {
			if IsLookupError(err) {
				return zero, Wrap(BadRequest, err, "malformed create payload")
			}
			return zero, Wrap(ServiceUnavailable, err, "search create failed")
		}
		c.submitBackfill(func(bctx context.Context) {
			if c.Cache != nil {
				_ = c.Cache.Create(bctx, c.Info, obj)
			}
		})
		return obj, nil

	case c.Cache != nil:
		if err := c.Cache.Create(ctx, c.Info, obj); err != nil {
			return zero, Wrap(ServiceUnavailable, err, "cache create failed")
		}
		return obj, nil
	}

	return zero, New(NotImplemented, "no driver wired for create")
}

// Update follows the same primary-order as Create. A not-found or
// soft-deleted target at the primary surfaces as Conflict: the write was
// rejected there, not merely absent. tstamp is stamped to now before the
// primary write.
func (c *Coordinator[M]) Update(ctx context.Context, obj M) (M, error) {
	var zero M
	obj.SetTstamp(time.Now().Unix())

	switch {
	case c.Database != nil:
		if err := c.Database.Update(ctx, c.Info, obj); err != nil {
			if IsLookupError(err) {
				return zero, Wrap(BadRequest, err, "malformed update payload")
			}
			if isNotFoundOrDeleted(err) {
				return zero, Wrap(Conflict, err, "update target not present or soft-deleted")
			}
			return zero, Wrap(ServiceUnavailable, err, "database update failed")
		}
		c.submitBackfill(func(bctx context.Context) {
			if c.Cache != nil {
				_ = c.Cache.Create(bctx, c.Info, obj)
			}
			if c.Search != nil {
				_ = c.Search.Create(bctx, c.Info, obj)
			}
		})
		return obj, nil

	case c.Search != nil:
		if err := c.Search.Create(ctx, c.Info, obj); err != nil {
			return zero, Wrap(ServiceUnavailable, err, "search update failed")
		}
		c.submitBackfill(func(bctx context.Context) {
			if c.Cache != nil {
				_ = c.Cache.Create(bctx, c.Info, obj)
			}
		})
		return obj, nil

	case c.Cache != nil:
		if err := c.Cache.Create(ctx, c.Info, obj); err != nil {
			return zero, Wrap(ServiceUnavailable, err, "cache update failed")
		}
		return obj, nil
	}

	return zero, New(NotImplemented, "no driver wired for update")
}

// Delete has two modes. force=true physically deletes at the primary and
// enqueues secondary deletes. force=false reads the current row, stamps
// it deleted, and writes it back through Update.
func (c *Coordinator[M]) Delete(ctx context.Context, id string, force bool, stampDeleted func(M)) (M, error) {
	var zero M

	primaryDelete := func(ctx context.Context, id string) error {
		switch {
		case c.Database != nil:
			return c.Database.Delete(ctx, c.Info, id, force)
		case c.Search != nil:
			return c.Search.Delete(ctx, c.Info, id)
		case c.Cache != nil:
			return c.Cache.Delete(ctx, c.Info, id)
		}
		return New(NotImplemented, "no driver wired for delete")
	}

	if force {
		if err := primaryDelete(ctx, id); err != nil {
			if isNotFound(err) {
				return zero, Wrap(NotFound, err, "delete target not present")
			}
			if te, ok := As(err); ok {
				return zero, te
			}
			return zero, Wrap(ServiceUnavailable, err, "primary delete failed")
		}
		c.submitBackfill(func(bctx context.Context) {
			if c.Cache != nil {
				_ = c.Cache.Delete(bctx, c.Info, id)
			}
			if c.Search != nil {
				_ = c.Search.Delete(bctx, c.Info, id)
			}
		})
		return zero, nil
	}

	// Soft delete: read current row from the primary, stamp, write back.
	var current M
	var err error
	switch {
	case c.Database != nil:
		current, err = c.Database.Get(ctx, c.Info, id)
	case c.Search != nil:
		current, err = c.searchGet(ctx, id)
	default:
		return zero, New(NotImplemented, "no driver wired for delete")
	}
	if err != nil {
		return zero, Wrap(NotFound, err, "delete target not present")
	}

	stampDeleted(current)
	updated, uerr := c.Update(ctx, current)
	if uerr != nil {
		return zero, uerr
	}
	c.submitBackfill(func(bctx context.Context) {
		if c.Cache != nil {
			_ = c.Cache.Delete(bctx, c.Info, id)
		}
		if c.Search != nil {
			_ = c.Search.Delete(bctx, c.Info, id)
		}
	})
	return updated, nil
}

func (c *Coordinator[M]) submitBackfill(job func(context.Context)) {
	if c.Backfill == nil {
		return
	}
	c.Backfill.Submit(job)
}

// isInfra reports whether err is an infrastructure failure (as opposed to
// a LookupError) — the distinction that decides fallback vs BadRequest.
func isInfra(err error) bool {
	return err != nil && !IsLookupError(err)
}

func isAlreadyExists(err error) bool {
	ae, ok := As(err)
	return ok && ae.Kind == Conflict
}

func isNotFound(err error) bool {
	ne, ok := As(err)
	return ok && ne.Kind == NotFound
}

func isNotFoundOrDeleted(err error) bool {
	return isNotFound(err)
}
