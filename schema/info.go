package schema

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/filter"
	"github.com/tierforge/tierserve/types/consts"
	"github.com/tierforge/tierserve/util"
)

// Field describes one user field for the backend shape builder (§4.4):
// its kind drives the column type, search mapping and dumper/loader
// chosen at registration.
type Field struct {
	Name    string
	Kind    consts.FieldKind
	Nested  []Field // populated for FieldNestedObject / FieldListObject
	Keyword bool    // string field annotated to map as `keyword` instead of `text`
}

// Info is the registry record created once at registration and never
// mutated afterward (SchemaInfo in the data model).
type Info struct {
	Provider string
	Service  string
	Major    int
	Minor    int

	Name   string // bare class name, e.g. "X"
	Module string // dotted module path, e.g. "mod" or "billing.invoices"
	Sref   string // "<module>.<Name>"
	Dref   string // snake_case(sref.major.minor), unique DB/search namespace
	Path   string // HTTP path prefix
	Tags   []string

	CRUD  consts.CRUD
	Layer consts.Layer
	AAA   consts.AAA

	Fields     []Field
	Translator *filter.Translator

	CacheTTL       time.Duration
	SearchTTL      time.Duration
	SearchShards   int
	SearchReplicas int
}

// RegisterOptions is the caller-supplied half of a SchemaInfo: everything
// Register cannot derive from the entity type alone.
type RegisterOptions struct {
	Provider string
	Service  string
	Major    int
	Minor    int
	Module   string

	CRUD  consts.CRUD
	Layer consts.Layer
	AAA   consts.AAA

	Fields []Field

	CacheTTL       time.Duration
	SearchTTL      time.Duration
	SearchShards   int
	SearchReplicas int
}

var (
	mu           sync.RWMutex
	srefToInfo   = make(map[string]*Info)
	pathToSref   = make(map[string]string)
)

// buildInfo performs step 1 of registerModel: assigning the SchemaInfo.
func buildInfo(name string, opts RegisterOptions) *Info {
	sref := opts.Module + "." + name
	if len(opts.Module) == 0 {
		sref = name
	}
	dref := util.SnakeCase(fmt.Sprintf("%s.%d.%d", sref, opts.Major, opts.Minor))
	modulePath := strings.ReplaceAll(opts.Module, ".", "/")
	path := fmt.Sprintf("/%s/v%d", opts.Service, opts.Major)
	if len(modulePath) > 0 {
		path += "/" + strings.ToLower(modulePath)
	}
	path += "/" + util.KebabCase(name)

	tags := []string{util.TitleCase(util.ReverseSegments(opts.Module))}

	fieldKinds := make(map[string]consts.FieldKind, len(opts.Fields))
	for _, f := range opts.Fields {
		fieldKinds[f.Name] = f.Kind
	}

	return &Info{
		Provider: opts.Provider,
		Service:  opts.Service,
		Major:    opts.Major,
		Minor:    opts.Minor,
		Name:     name,
		Module:   opts.Module,
		Sref:     sref,
		Dref:     dref,
		Path:     path,
		Tags:     tags,
		CRUD:     opts.CRUD,
		Layer:    opts.Layer,
		AAA:      opts.AAA,
		Fields:   opts.Fields,
		Translator: &filter.Translator{
			Fields: fieldKinds,
		},
		CacheTTL:       opts.CacheTTL,
		SearchTTL:      opts.SearchTTL,
		SearchShards:   opts.SearchShards,
		SearchReplicas: opts.SearchReplicas,
	}
}

// Register attaches an entity type to the framework. It is the only way
// to materialize a schema: it assigns SchemaInfo, invokes each tier
// driver's RegisterModel for the tiers present in Layer (database, then
// search, then cache — the fixed order of §4.1), then publishes the
// schema in the global sref registry used by reference resolution.
//
// M satisfying Entity at compile time is what stands in for the source
// system's runtime "is this a BaseSchema specialization" check: a type
// that does not embed BaseSchema simply fails to compile here.
func Register[M Entity](
	name string,
	opts RegisterOptions,
	database DatabaseDriver[M],
	search SearchDriver[M],
	cache CacheDriver[M],
) (*Info, error) {
	info := buildInfo(name, opts)

	if err := validateFields(info.Fields); err != nil {
		return nil, errors.Wrapf(err, "schema %s: invalid field mapping", info.Sref)
	}

	if info.Layer.Has(consts.LayerDatabase) {
		if database == nil {
			return nil, errors.Newf("schema %s: layer requires database driver but none supplied", info.Sref)
		}
		if err := database.RegisterModel(info, info.Fields); err != nil {
			return nil, errors.Wrapf(err, "schema %s: database RegisterModel", info.Sref)
		}
	}
	if info.Layer.Has(consts.LayerSearch) {
		if search == nil {
			return nil, errors.Newf("schema %s: layer requires search driver but none supplied", info.Sref)
		}
		if err := search.RegisterModel(info, info.Fields); err != nil {
			return nil, errors.Wrapf(err, "schema %s: search RegisterModel", info.Sref)
		}
	}
	if info.Layer.Has(consts.LayerCache) {
		if cache == nil {
			return nil, errors.Newf("schema %s: layer requires cache driver but none supplied", info.Sref)
		}
		if err := cache.RegisterModel(info, info.Fields); err != nil {
			return nil, errors.Wrapf(err, "schema %s: cache RegisterModel", info.Sref)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := srefToInfo[info.Sref]; exists {
		return nil, errors.Newf("schema %s: already registered", info.Sref)
	}
	srefToInfo[info.Sref] = info
	pathToSref[info.Path] = info.Sref

	return info, nil
}

// validateFields fails registration if any field resolves to no mapping,
// per the shape builder's contract.
func validateFields(fields []Field) error {
	for _, f := range fields {
		switch f.Kind {
		case consts.FieldString, consts.FieldKeyword, consts.FieldInt, consts.FieldFloat,
			consts.FieldBool, consts.FieldUUID, consts.FieldDatetime:
			// scalar kinds always map.
		case consts.FieldNestedObject, consts.FieldListObject:
			if len(f.Nested) == 0 {
				return errors.Newf("field %q: nested kind requires Nested fields", f.Name)
			}
			if err := validateFields(f.Nested); err != nil {
				return err
			}
		case consts.FieldListScalar:
			// maps to a JSON array column / keyword array mapping.
		default:
			return errors.Newf("field %q: unmapped field kind %d", f.Name, f.Kind)
		}
	}
	return nil
}

// Lookup returns the SchemaInfo registered for sref, used by the
// reference resolver.
func Lookup(sref string) (*Info, bool) {
	mu.RLock()
	defer mu.RUnlock()
	info, ok := srefToInfo[sref]
	return info, ok
}

// All returns every registered SchemaInfo. No package in this module
// calls it.
func All() []*Info {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Info, 0, len(srefToInfo))
	for _, info := range srefToInfo {
		out = append(out, info)
	}
	return out
}

// reset clears the global registry; it exists for tests that register
// schemas repeatedly across table-driven cases.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	srefToInfo = make(map[string]*Info)
	pathToSref = make(map[string]string)
}
