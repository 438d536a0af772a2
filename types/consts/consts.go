// Package consts holds the shared enums and context keys used across the
// schema registry, tier coordinator, auth gate and HTTP layers.
package consts

const FrameworkName = "tierserve"

// LayoutTimeEncoder is the timestamp layout every zap encoder in the
// logger package is configured with.
const LayoutTimeEncoder = "2006-01-02 15:04:05.000"

// Phase identifies which coordinator operation a request is executing.
// It rides on Logger.WithDatabaseContext/WithServiceContext calls so log
// lines carry the operation without needing a separate field.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhaseRead   Phase = "read"
	PhaseSearch Phase = "search"
	PhaseCount  Phase = "count"
	PhaseUpdate Phase = "update"
	PhaseDelete Phase = "delete"
)

// Tier identifies one of the three storage tiers the coordinator consults.
type Tier string

const (
	TierCache    Tier = "cache"
	TierSearch   Tier = "search"
	TierDatabase Tier = "database"
)

// Layer is a bitmask of tiers a schema participates in.
type Layer uint8

const (
	LayerCache Layer = 1 << iota
	LayerSearch
	LayerDatabase
)

func (l Layer) Has(t Layer) bool { return l&t != 0 }

// CRUD is a bitmask of enabled operations for a registered schema.
type CRUD uint8

const (
	CRUDCreate CRUD = 1 << iota
	CRUDRead
	CRUDUpdate
	CRUDDelete
)

func (c CRUD) Has(bit CRUD) bool { return c&bit != 0 }

// AAA is the required authorization level for a registered schema.
type AAA uint8

const (
	// AAAFree requires no authentication.
	AAAFree AAA = iota
	// AAAAuthorized requires a valid token only.
	AAAAuthorized
	// AAAAuthorizedACL additionally requires the caller to hold an
	// allow-set entry for the schema's sref.
	AAAAuthorizedACL
	// AAAAuthorizedOwner additionally requires row ownership.
	AAAAuthorizedOwner
)

// FieldKind classifies a schema field for the backend shape builder.
type FieldKind uint8

const (
	FieldString FieldKind = iota
	FieldKeyword
	FieldInt
	FieldFloat
	FieldBool
	FieldUUID
	FieldDatetime
	FieldNestedObject
	FieldListScalar
	FieldListObject
)

// log field keys, shared by every logger.With* call so the same key
// renders identically across runtime/controller/database/cache logs.
const (
	PHASE = "phase"
	QUERY = "query"
)

// context / gin.Context keys shared by middleware, controller and auth gate.
const (
	PARAMS            = "params"
	CTX_ROUTE         = "ctx_route"
	CTX_USERNAME      = "ctx_username"
	CTX_USER_ID       = "ctx_user_id"
	CTX_SESSION_ID    = "ctx_session_id"
	CTX_REQUIRES_AUTH = "ctx_requires_auth"
	CTX_ORG           = "ctx_org"
	CTX_AUTHINFO      = "ctx_authinfo"
	REQUEST_ID        = "request_id"
	TRACE_ID          = "trace_id"
)

// HTTP header names the auth gate and reference resolver read from.
const (
	HeaderAuthorization = "Authorization"
	HeaderOrganization  = "Organization"
	HeaderRealm         = "Realm"
)

// reserved query parameters, prefixed '$' on the wire.
const (
	QueryFields  = "$f"
	QueryFilter  = "$filter"
	QueryOrderBy = "$orderby"
	QueryOrder   = "$order"
	QuerySize    = "$size"
	QuerySkip    = "$skip"
	QueryArchive = "$archive"
	QueryForce   = "$force"
)
