// Package ldapidp implements authgate.IdentityProvider for tokens this
// service did not mint itself: the bearer token is the directory
// username an upstream identity broker has already authenticated, and
// Resolve confirms that account still exists and is enabled before
// building a bare AuthInfo for it. Dials a fresh connection per lookup
// rather than pooling one, since directory lookups are rare compared to
// the auth gate's memoized fast path (§4.5) and a stale bind is worse
// than a redial. Grounded on the teacher's provider/minio package for
// the config-driven client-construction shape (cfg.Enable guard,
// New(cfg) factory, zap.S() connect logging); go-ldap/ldap/v3 is the
// pack's only LDAP client library.
package ldapidp

import (
	"context"
	"fmt"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/go-ldap/ldap/v3"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/schema"
)

// Provider resolves a bearer token (a directory username) against an
// LDAP/AD server.
type Provider struct {
	cfg config.Ldap
}

func New(cfg config.Ldap) *Provider {
	return &Provider{cfg: cfg}
}

// Resolve looks the account up by config.Ldap.UserFilter and returns a
// minimal AuthInfo: realm defaults to the service's default realm, no
// allow-sets are populated here — the policy refresher's snapshot loop
// (§4.6) is what grants an LDAP-backed principal any schema permission,
// by naming its username in a Policy row's allow-sets.
func (p *Provider) Resolve(ctx context.Context, token string) (*schema.AuthInfo, error) {
	if !p.cfg.Enable {
		return nil, errors.New("ldap identity provider disabled")
	}
	if len(token) == 0 {
		return nil, errors.New("empty token")
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial ldap server")
	}
	defer conn.Close()

	if len(p.cfg.BindDN) > 0 {
		if err := conn.Bind(p.cfg.BindDN, p.cfg.BindPassword); err != nil {
			return nil, errors.Wrap(err, "failed to bind ldap service account")
		}
	}

	filter := fmt.Sprintf(p.cfg.UserFilter, ldap.EscapeFilter(token))
	req := ldap.NewSearchRequest(
		p.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{"uid", "cn", "mail"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.Wrap(err, "ldap search failed")
	}
	if len(res.Entries) == 0 {
		return nil, errors.Newf("no ldap entry for %q", token)
	}

	entry := res.Entries[0]
	username := entry.GetAttributeValue("uid")
	if len(username) == 0 {
		username = token
	}

	logger.Identity.Infow("resolved external identity via ldap", "username", username)

	return &schema.AuthInfo{
		Realm:    config.App.Auth.DefaultRealm,
		Username: username,
	}, nil
}

func (p *Provider) dial(_ context.Context) (*ldap.Conn, error) {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	return ldap.DialURL("ldap://"+addr, ldap.DialWithDialer(&net.Dialer{Timeout: p.cfg.DialTimeout}))
}
