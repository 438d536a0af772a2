// Package authgate resolves the caller's AuthInfo, enforces the schema's
// required AAA level and injects tenant/owner scoping ahead of every
// auth-gated route. It sits between the router and the controller: by the
// time a request reaches a controller handler, gin.Context already carries
// the resolved *schema.AuthInfo and caller org under the consts.CTX_*
// keys this package writes.
package authgate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/filter"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/response"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types/consts"
)

// IdentityProvider resolves a bearer token into its AuthInfo.
// identity/jwt implements it for self-issued tokens (local signature
// check); identity/ldapidp implements it for externally-issued ones.
type IdentityProvider interface {
	Resolve(ctx context.Context, token string) (*schema.AuthInfo, error)
}

// Gate holds the shared AuthDriver, the process-local memo and the
// identity provider chain used to resolve tokens this service never
// minted itself.
type Gate struct {
	Driver   schema.AuthDriver
	Identity IdentityProvider

	mu   sync.RWMutex
	memo map[string]memoEntry
}

type memoEntry struct {
	info    *schema.AuthInfo
	expires time.Time
}

func New(driver schema.AuthDriver, idp IdentityProvider) *Gate {
	return &Gate{Driver: driver, Identity: idp, memo: make(map[string]memoEntry)}
}

// Invalidate unconditionally evicts the process-local memo, called by the
// policy refresher's invalidation loop.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.memo = make(map[string]memoEntry)
	g.mu.Unlock()
}

// resolve implements the three-step lookup: process-local map, then the
// shared cache tier via Driver, then the external identity provider, with
// the result written back to both faster tiers on a miss.
func (g *Gate) resolve(ctx context.Context, token string) (*schema.AuthInfo, error) {
	g.mu.RLock()
	entry, ok := g.memo[token]
	g.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.info, nil
	}

	ttl := config.App.Policy.AuthInfoTTL

	if g.Driver != nil {
		info, found, err := g.Driver.GetAuthInfo(ctx, token)
		if err != nil {
			logger.AuthGate.Warnw("auth driver lookup failed, falling back to identity provider", "error", err)
		} else if found {
			g.memoize(token, info, ttl)
			return info, nil
		}
	}

	if g.Identity == nil {
		return nil, tier.New(tier.Unauthorized, "no identity provider configured")
	}
	info, err := g.Identity.Resolve(ctx, token)
	if err != nil {
		return nil, tier.Wrap(tier.Unauthorized, err, "token resolution failed")
	}

	g.memoize(token, info, ttl)
	if g.Driver != nil {
		if err := g.Driver.SetAuthInfo(ctx, token, info, ttl); err != nil {
			logger.AuthGate.Warnw("auth driver write-back failed", "error", err)
		}
	}
	return info, nil
}

func (g *Gate) memoize(token string, info *schema.AuthInfo, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	g.mu.Lock()
	g.memo[token] = memoEntry{info: info, expires: time.Now().Add(ttl)}
	g.mu.Unlock()
}

// MemoSize reports the process-local memo's current entry count, polled by
// the policy refresher loop to feed metrics.AuthInfoMemoSize.
func (g *Gate) MemoSize() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.memo)
}

// verb distinguishes which allow-set a route checks.
type verb int

const (
	VerbRead verb = iota
	VerbCreate
	VerbUpdate
	VerbDelete
)

func allowed(info *schema.AuthInfo, v verb, sref string) bool {
	switch v {
	case VerbCreate:
		return info.CanCreate(sref)
	case VerbUpdate:
		return info.CanUpdate(sref)
	case VerbDelete:
		return info.CanDelete(sref)
	default:
		return info.CanRead(sref)
	}
}

// Middleware returns a gin.HandlerFunc enforcing info.AAA for one route.
// It extracts the bearer token and tenant, resolves AuthInfo, applies the
// AAA check for v, and stashes the resolved AuthInfo/org on gin.Context
// for the controller to read back via FromContext/Org.
func (g *Gate) Middleware(info *schema.Info, v verb) gin.HandlerFunc {
	return func(c *gin.Context) {
		org := c.GetHeader(consts.HeaderOrganization)
		if len(org) == 0 {
			org = c.GetHeader(consts.HeaderRealm)
		}
		if len(org) == 0 {
			org = config.App.Auth.DefaultRealm
		}
		c.Set(consts.CTX_ORG, org)

		if info.AAA == consts.AAAFree {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader(consts.HeaderAuthorization))
		if len(token) == 0 {
			response.ResponseJSON(c, response.CodeUnauthorized.WithMsg("missing bearer token"))
			c.Abort()
			return
		}

		authInfo, err := g.resolve(c.Request.Context(), token)
		if err != nil {
			response.ResponseJSON(c, response.CodeUnauthorized.WithMsg(err.Error()))
			c.Abort()
			return
		}

		c.Set(consts.CTX_AUTHINFO, authInfo)
		c.Set(consts.CTX_USERNAME, authInfo.Username)

		if info.AAA >= consts.AAAAuthorizedACL {
			if !allowed(authInfo, v, info.Sref) {
				response.ResponseJSON(c, response.CodeForbidden.WithMsg("caller lacks permission for "+info.Sref))
				c.Abort()
				return
			}
		}

		// AAAAuthorizedOwner is enforced against a specific row by the
		// controller, once it has read the row and can compare owner —
		// see CheckOwner.

		c.Next()
	}
}

// bearerToken strips a "Bearer " prefix, tolerating a bare token for
// clients that omit the scheme.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return header
}

// FromContext returns the AuthInfo the Middleware resolved for this
// request, or nil for an AAAFree route.
func FromContext(c *gin.Context) *schema.AuthInfo {
	v, ok := c.Get(consts.CTX_AUTHINFO)
	if !ok {
		return nil
	}
	info, _ := v.(*schema.AuthInfo)
	return info
}

// Org returns the resolved tenant key for this request.
func Org(c *gin.Context) string {
	return c.GetString(consts.CTX_ORG)
}

// CheckOwner enforces the AAAAuthorizedOwner level against an already-read
// row's owner field; the controller calls this after the pre-read §4.5
// step 3 requires for AAA-scoped schemas.
func CheckOwner(c *gin.Context, info *schema.Info, owner string) error {
	if info.AAA < consts.AAAAuthorizedOwner {
		return nil
	}
	authInfo := FromContext(c)
	if authInfo == nil {
		return tier.New(tier.Unauthorized, "missing auth context")
	}
	if authInfo.Admin {
		return nil
	}
	if authInfo.Username != owner {
		return tier.New(tier.Forbidden, "caller does not own this resource")
	}
	return nil
}

// ScopeFilter injects an org= (and, at AAAAuthorizedOwner, owner=) AND
// clause ahead of the caller-supplied filter tree, per §4.5 step 4.
func ScopeFilter(c *gin.Context, info *schema.Info, caller *filter.Node) *filter.Node {
	if info.AAA == consts.AAAFree {
		return caller
	}
	scope := filter.NewTerm("org", Org(c))
	if info.AAA >= consts.AAAAuthorizedOwner {
		if authInfo := FromContext(c); authInfo != nil && !authInfo.Admin {
			scope = filter.Conjoin(scope, filter.NewTerm("owner", authInfo.Username))
		}
	}
	return filter.Conjoin(scope, caller)
}

// StampWrite sets org and owner on an entity before the coordinator sees
// it, per §4.5 step 4's write-path half.
func StampWrite(c *gin.Context, e schema.Entity) {
	e.SetOrg(Org(c))
	if authInfo := FromContext(c); authInfo != nil {
		e.SetOwner(authInfo.Username)
	}
}
