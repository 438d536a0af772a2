// Package refresolve implements spec.md §4.7, the Reference Resolver:
// dereferencing a Reference{id, sref, uref} into the full entity it
// points at by looking up the owning schema and, if that schema is
// backed by another service, issuing an outbound GET carrying the
// caller's auth headers forward.
package refresolve

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types/consts"
)

// Reference is the wire shape a caller supplies to ask for dereferencing:
// sref names the owning schema, uref is the full REST path of the row.
// id is carried for parity with the data model (spec.md §3) but is not
// itself consulted here — uref is already the complete address.
type Reference struct {
	ID   string `json:"id"`
	Sref string `json:"sref"`
	Uref string `json:"uref"`
}

// Fetcher performs the outbound GET once the target schema's provider
// base URL is known. *client.Client satisfies this; tests substitute a
// fake.
type Fetcher interface {
	Fetch(ctx context.Context, path string, extra http.Header) ([]byte, int, error)
}

// ClientFactory builds (or reuses) a Fetcher for a given provider base
// URL, since each distinct provider needs its own base address.
type ClientFactory func(provider string) (Fetcher, error)

// Resolver resolves References against the global schema registry.
type Resolver struct {
	NewClient ClientFactory
}

func New(factory ClientFactory) *Resolver {
	return &Resolver{NewClient: factory}
}

// Resolve performs §4.7's lookup rule: missing sref is BadRequest;
// missing CRUDRead on the owning schema is MethodNotAllowed; missing
// provider is BadRequest (the schema is local-only and cannot be
// dereferenced this way). authHeaders carries the caller's Authorization
// and Organization headers forward to the provider, per §4.5's "with the
// current auth headers".
func (r *Resolver) Resolve(ctx context.Context, ref Reference, authHeaders http.Header) (json.RawMessage, error) {
	if len(ref.Sref) == 0 {
		return nil, tier.New(tier.BadRequest, "reference missing sref")
	}

	info, ok := schema.Lookup(ref.Sref)
	if !ok {
		return nil, tier.New(tier.BadRequest, "unknown sref: "+ref.Sref)
	}
	if !info.CRUD.Has(consts.CRUDRead) {
		return nil, tier.New(tier.MethodNotAllowed, "schema "+ref.Sref+" does not permit read")
	}
	if len(info.Provider) == 0 {
		return nil, tier.New(tier.BadRequest, "schema "+ref.Sref+" has no provider to dereference against")
	}
	if len(ref.Uref) == 0 {
		return nil, tier.New(tier.BadRequest, "reference missing uref")
	}

	cli, err := r.NewClient(info.Provider)
	if err != nil {
		return nil, tier.Wrap(tier.ServiceUnavailable, err, "failed to build provider client")
	}

	body, status, err := cli.Fetch(ctx, ref.Uref, authHeaders)
	if err != nil {
		logger.Refresolve.Warnw("reference dereference failed", "sref", ref.Sref, "uref", ref.Uref, "status", status, "error", err)
		if status == http.StatusNotFound {
			return nil, tier.Wrap(tier.NotFound, err, "referenced entity not found")
		}
		if status >= 400 && status < 500 {
			return nil, tier.Wrap(tier.BadRequest, err, "provider rejected dereference request")
		}
		return nil, tier.Wrap(tier.ServiceUnavailable, err, "provider dereference request failed")
	}

	return json.RawMessage(body), nil
}

// AuthHeaders extracts the subset of inbound headers §4.7 forwards to
// the provider on an outbound dereference.
func AuthHeaders(inbound http.Header) http.Header {
	out := http.Header{}
	if v := inbound.Get(consts.HeaderAuthorization); len(v) > 0 {
		out.Set(consts.HeaderAuthorization, v)
	}
	if v := inbound.Get(consts.HeaderOrganization); len(v) > 0 {
		out.Set(consts.HeaderOrganization, v)
	}
	if v := inbound.Get(consts.HeaderRealm); len(v) > 0 {
		out.Set(consts.HeaderRealm, v)
	}
	return out
}
