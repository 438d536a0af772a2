package schema

import (
	"time"

	"github.com/tierforge/tierserve/util"
	"go.uber.org/zap/zapcore"
)

// Entity is the contract every registered model satisfies, normally by
// embedding BaseSchema. It replaces the teacher's model.Model interface:
// instead of a GORM row, an Entity carries the sref/uref/org/owner/deleted
// envelope the tier coordinator and auth gate reason about.
type Entity interface {
	GetID() string
	SetID(id ...string)

	GetSref() string
	SetSref(string)

	GetUref() string
	SetUref(string)

	GetOrg() string
	SetOrg(string)

	GetOwner() string
	SetOwner(string)

	IsDeleted() bool
	SetDeleted(bool)

	GetTstamp() int64
	SetTstamp(int64)

	MarshalLogObject(zapcore.ObjectEncoder) error
}

// BaseSchema is the envelope every user-defined entity embeds. Field tags
// follow the wire names fixed by the schema: id is rendered lowercase-hex,
// org doubles as "realm" in request headers.
type BaseSchema struct {
	ID      string `json:"id"`
	Sref    string `json:"sref"`
	Uref    string `json:"uref"`
	Org     string `json:"org"`
	Owner   string `json:"owner"`
	Deleted bool   `json:"deleted"`
	Tstamp  int64  `json:"tstamp"`
}

func (b *BaseSchema) GetID() string { return b.ID }

// SetID assigns id if given, otherwise generates one. Call sites that
// already hold a UUID pass it through; registration-time creates call it
// bare to mint a fresh one.
func (b *BaseSchema) SetID(id ...string) {
	if len(id) > 0 && len(id[0]) > 0 {
		b.ID = id[0]
		return
	}
	b.ID = util.NewUUID()
}

func (b *BaseSchema) GetSref() string       { return b.Sref }
func (b *BaseSchema) SetSref(sref string)   { b.Sref = sref }
func (b *BaseSchema) GetUref() string       { return b.Uref }
func (b *BaseSchema) SetUref(uref string)   { b.Uref = uref }
func (b *BaseSchema) GetOrg() string        { return b.Org }
func (b *BaseSchema) SetOrg(org string)     { b.Org = org }
func (b *BaseSchema) GetOwner() string      { return b.Owner }
func (b *BaseSchema) SetOwner(owner string) { b.Owner = owner }
func (b *BaseSchema) IsDeleted() bool       { return b.Deleted }
func (b *BaseSchema) SetDeleted(d bool)     { b.Deleted = d }
func (b *BaseSchema) GetTstamp() int64      { return b.Tstamp }
func (b *BaseSchema) SetTstamp(ts int64)    { b.Tstamp = ts }

// Touch stamps tstamp to now, the same stamp the coordinator applies
// through SetTstamp before every primary write.
func (b *BaseSchema) Touch() { b.Tstamp = time.Now().Unix() }

// MarshalLogObject lets BaseSchema ride along zap.Object the way the
// teacher's model.Base does for its audit fields.
func (b *BaseSchema) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", b.ID)
	enc.AddString("sref", b.Sref)
	enc.AddString("org", b.Org)
	enc.AddString("owner", b.Owner)
	enc.AddBool("deleted", b.Deleted)
	enc.AddInt64("tstamp", b.Tstamp)
	return nil
}
