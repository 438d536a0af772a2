package schema

import (
	"context"
	"time"
)

// CacheDriver is the fast tier: per-schema KV namespace, JSON-encoded
// values, per-schema TTL. Implementations MAY share one connection pool
// across schemas or open one logical index per schema — both are
// permitted by the concurrency model.
type CacheDriver[M Entity] interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Health() error

	// RegisterModel stashes whatever precomputed state (TTL, namespace
	// index) this driver needs for info, derived from fields.
	RegisterModel(info *Info, fields []Field) error

	Create(ctx context.Context, info *Info, obj M) error
	Get(ctx context.Context, info *Info, id string) (M, error)
	Delete(ctx context.Context, info *Info, id string) error
}

// SearchDriver is the secondary tier: one index per schema, the shape
// builder's mapping, a structured query sink fed by the filter
// translator.
type SearchDriver[M Entity] interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Health() error

	RegisterModel(info *Info, fields []Field) error

	Create(ctx context.Context, info *Info, objs ...M) error
	Search(ctx context.Context, info *Info, q Query) ([]M, error)
	Count(ctx context.Context, info *Info, q Query) (int64, error)
	Delete(ctx context.Context, info *Info, id string) error
}

// DatabaseDriver is the authoritative tier. Reconnect schedules a single-
// flight background reconnect on a broken session; callers in flight
// during the reconnect see the original error.
type DatabaseDriver[M Entity] interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Reconnect(ctx context.Context)
	Health() error

	RegisterModel(info *Info, fields []Field) error

	Create(ctx context.Context, info *Info, obj M) error
	Get(ctx context.Context, info *Info, id string) (M, error)
	Search(ctx context.Context, info *Info, q Query) ([]M, error)
	Count(ctx context.Context, info *Info, q Query) (int64, error)
	Update(ctx context.Context, info *Info, obj M) error
	Delete(ctx context.Context, info *Info, id string, force bool) error
}

// AuthInfo is the per-token derived authorization context. The four
// allow-sets are the union of every policy the user holds.
type AuthInfo struct {
	Realm    string
	Username string
	Admin    bool
	Policies []string

	ReadAllowed   map[string]struct{}
	CreateAllowed map[string]struct{}
	UpdateAllowed map[string]struct{}
	DeleteAllowed map[string]struct{}
}

func (a *AuthInfo) allows(set map[string]struct{}, sref string) bool {
	if a == nil {
		return false
	}
	if a.Admin {
		return true
	}
	_, ok := set[sref]
	return ok
}

func (a *AuthInfo) CanRead(sref string) bool   { return a.allows(a.ReadAllowed, sref) }
func (a *AuthInfo) CanCreate(sref string) bool { return a.allows(a.CreateAllowed, sref) }
func (a *AuthInfo) CanUpdate(sref string) bool { return a.allows(a.UpdateAllowed, sref) }
func (a *AuthInfo) CanDelete(sref string) bool { return a.allows(a.DeleteAllowed, sref) }

// Policy is the flattened snapshot the policy refresher pushes to
// AuthDriver.RefreshRBACs and backfills into cache/search.
type Policy struct {
	Name          string
	ReadAllowed   []string
	CreateAllowed []string
	UpdateAllowed []string
	DeleteAllowed []string
}

// AuthDriver backs the AuthInfo cache's shared-tier lookup (the second of
// the three resolution steps in the auth gate) and receives policy
// snapshots from the refresher loop.
type AuthDriver interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Health() error

	GetAuthInfo(ctx context.Context, token string) (*AuthInfo, bool, error)
	SetAuthInfo(ctx context.Context, token string, info *AuthInfo, ttl time.Duration) error

	RefreshRBACs(ctx context.Context, policies []Policy) error
}
