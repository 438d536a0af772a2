// Package elastic implements the secondary search tier
// (schema.SearchDriver) on Elasticsearch. The teacher never wires
// go-elasticsearch beyond its config struct; this package is that
// dependency's first exercised consumer, grounded on the shape builder's
// per-schema index convention (one index per Dref) and the filter
// translator's ToSearchQuery output.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/logger"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/types/consts"
)

// expireAtField is the internal retention-job field spec.md §4.4 requires:
// present in every index's mapping, stamped on every Create, excluded from
// every client-visible _source.
const expireAtField = "_expireAt"

// defaultSearchTTL applies when a schema registers with no SearchTTL of
// its own, so _expireAt is always a concrete value for the retention job
// to act on rather than an unbounded document.
const defaultSearchTTL = 24 * time.Hour

// Driver implements schema.SearchDriver[M] against one Elasticsearch
// cluster shared by every schema wired to it; RegisterModel creates that
// schema's own index by Dref.
type Driver[M schema.Entity] struct {
	cfg config.Elasticsearch

	mu  sync.RWMutex
	cli *elasticsearch.Client
}

func New[M schema.Entity](cfg config.Elasticsearch) *Driver[M] {
	return &Driver[M]{cfg: cfg}
}

func (d *Driver[M]) Connect(ctx context.Context) error {
	cli, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: d.cfg.Addresses,
		Username:  d.cfg.Username,
		Password:  d.cfg.Password,
	})
	if err != nil {
		return errors.Wrap(err, "elastic: new client")
	}
	res, err := cli.Ping(cli.Ping.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "elastic: ping")
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.Newf("elastic: ping returned %s", res.Status())
	}

	d.mu.Lock()
	d.cli = cli
	d.mu.Unlock()
	logger.Search.Infow("connected to elasticsearch", "addresses", d.cfg.Addresses)
	return nil
}

// Disconnect is a no-op: the client is a stateless HTTP transport with no
// persistent connection to tear down.
func (d *Driver[M]) Disconnect(context.Context) error { return nil }

func (d *Driver[M]) Health() error {
	cli := d.handle()
	if cli == nil {
		return errors.New("elastic: not connected")
	}
	res, err := cli.Ping()
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.Newf("elastic: health returned %s", res.Status())
	}
	return nil
}

func (d *Driver[M]) handle() *elasticsearch.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cli
}

// RegisterModel creates info.Dref's index if it doesn't already exist.
// Mapping comes from fields; an index that already exists (a restart
// against a live cluster) is left untouched rather than re-mapped.
func (d *Driver[M]) RegisterModel(info *schema.Info, fields []schema.Field) error {
	cli := d.handle()
	if cli == nil {
		return errors.New("elastic: not connected")
	}
	existsRes, err := cli.Indices.Exists([]string{info.Dref})
	if err != nil {
		return errors.Wrap(err, "elastic: check index exists")
	}
	defer existsRes.Body.Close()
	if existsRes.StatusCode == 200 {
		return nil
	}

	body, err := json.Marshal(buildMapping(info, fields))
	if err != nil {
		return err
	}
	createRes, err := cli.Indices.Create(info.Dref, cli.Indices.Create.WithBody(bytes.NewReader(body)))
	if err != nil {
		return errors.Wrap(err, "elastic: create index")
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return errors.Newf("elastic: create index %s returned %s", info.Dref, createRes.Status())
	}
	return nil
}

func buildMapping(info *schema.Info, fields []schema.Field) map[string]any {
	props := fieldProperties(fields)
	props[expireAtField] = map[string]any{"type": "long"}
	m := map[string]any{"mappings": map[string]any{"properties": props}}
	settings := map[string]any{}
	if info.SearchShards > 0 {
		settings["number_of_shards"] = info.SearchShards
	}
	if info.SearchReplicas > 0 {
		settings["number_of_replicas"] = info.SearchReplicas
	}
	if len(settings) > 0 {
		m["settings"] = settings
	}
	return m
}

func fieldProperties(fields []schema.Field) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldMapping(f)
	}
	return props
}

func fieldMapping(f schema.Field) map[string]any {
	switch f.Kind {
	case consts.FieldString:
		if f.Keyword {
			return map[string]any{"type": "keyword"}
		}
		return map[string]any{"type": "text"}
	case consts.FieldKeyword, consts.FieldUUID, consts.FieldListScalar:
		return map[string]any{"type": "keyword"}
	case consts.FieldInt:
		return map[string]any{"type": "long"}
	case consts.FieldFloat:
		return map[string]any{"type": "double"}
	case consts.FieldBool:
		return map[string]any{"type": "boolean"}
	case consts.FieldDatetime:
		return map[string]any{"type": "date"}
	case consts.FieldNestedObject:
		return map[string]any{"type": "object", "properties": fieldProperties(f.Nested)}
	case consts.FieldListObject:
		return map[string]any{"type": "nested", "properties": fieldProperties(f.Nested)}
	default:
		return map[string]any{"type": "text"}
	}
}

func newInstance[M schema.Entity]() M {
	var zero M
	return reflect.New(reflect.TypeOf(zero).Elem()).Interface().(M)
}

// Create indexes each obj by id, synchronously refreshing so an
// immediately following Search sees it — acceptable since Create is
// mostly invoked off the backfill pool, not the request path.
func (d *Driver[M]) Create(ctx context.Context, info *schema.Info, objs ...M) error {
	cli := d.handle()
	if cli == nil {
		return errors.New("elastic: not connected")
	}
	ttl := info.SearchTTL
	if ttl <= 0 {
		ttl = defaultSearchTTL
	}
	for _, obj := range objs {
		raw, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		doc[expireAtField] = time.Now().Add(ttl).Unix()
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		res, err := cli.Index(info.Dref, bytes.NewReader(body),
			cli.Index.WithDocumentID(obj.GetID()),
			cli.Index.WithContext(ctx),
			cli.Index.WithRefresh("true"),
		)
		if err != nil {
			return err
		}
		isErr := res.IsError()
		status := res.Status()
		res.Body.Close()
		if isErr {
			return errors.Newf("elastic: index %s returned %s", obj.GetID(), status)
		}
	}
	return nil
}

// Search translates q.Filter via the schema's search translator. A
// malformed filter (Raw kind, which the search sink never supports) is a
// LookupError so the coordinator routes it to BadRequest without a
// database fallback attempt.
func (d *Driver[M]) Search(ctx context.Context, info *schema.Info, q schema.Query) ([]M, error) {
	cli := d.handle()
	if cli == nil {
		return nil, errors.New("elastic: not connected")
	}
	query, err := info.Translator.ToSearchQuery(q.Filter)
	if err != nil {
		return nil, tier.NewLookupError(err)
	}

	body := map[string]any{"query": query}
	if q.Projected() {
		body["_source"] = q.Fields
	} else {
		body["_source"] = map[string]any{"excludes": []string{expireAtField}}
	}
	if len(q.OrderBy) > 0 {
		order := "asc"
		if strings.EqualFold(q.Order, "desc") {
			order = "desc"
		}
		body["sort"] = []map[string]any{{q.OrderBy: map[string]any{"order": order}}}
	}
	size := q.Size
	if size <= 0 {
		size = 10000
	}
	body["size"] = size
	if q.Skip > 0 {
		body["from"] = q.Skip
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	res, err := cli.Search(
		cli.Search.WithContext(ctx),
		cli.Search.WithIndex(info.Dref),
		cli.Search.WithBody(bytes.NewReader(raw)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.Newf("elastic: search %s returned %s", info.Dref, res.Status())
	}
	return decodeHits[M](res.Body)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeHits[M schema.Entity](r io.Reader) ([]M, error) {
	var parsed searchResponse
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, err
	}
	objs := make([]M, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		source, err := stripExpireAt(hit.Source)
		if err != nil {
			return nil, err
		}
		obj := newInstance[M]()
		if err := json.Unmarshal(source, obj); err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// stripExpireAt removes the internal expireAtField before a hit ever
// reaches client-facing decoding, regardless of whether the query's
// _source exclusion already dropped it at the cluster.
func stripExpireAt(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc[expireAtField]; !ok {
		return raw, nil
	}
	delete(doc, expireAtField)
	return json.Marshal(doc)
}

// Count mirrors Search's filter translation without paging.
func (d *Driver[M]) Count(ctx context.Context, info *schema.Info, q schema.Query) (int64, error) {
	cli := d.handle()
	if cli == nil {
		return 0, errors.New("elastic: not connected")
	}
	query, err := info.Translator.ToSearchQuery(q.Filter)
	if err != nil {
		return 0, tier.NewLookupError(err)
	}
	raw, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return 0, err
	}
	res, err := cli.Count(
		cli.Count.WithContext(ctx),
		cli.Count.WithIndex(info.Dref),
		cli.Count.WithBody(bytes.NewReader(raw)),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, errors.Newf("elastic: count %s returned %s", info.Dref, res.Status())
	}
	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	return parsed.Count, nil
}

// Delete removes the document by id. A 404 is reported as tier.NotFound,
// which the coordinator's isNotFound check keys off directly.
func (d *Driver[M]) Delete(ctx context.Context, info *schema.Info, id string) error {
	cli := d.handle()
	if cli == nil {
		return errors.New("elastic: not connected")
	}
	res, err := cli.Delete(info.Dref, id, cli.Delete.WithContext(ctx), cli.Delete.WithRefresh("true"))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return tier.New(tier.NotFound, "delete target not found: "+id)
	}
	if res.IsError() {
		return errors.Newf("elastic: delete %s returned %s", id, res.Status())
	}
	return nil
}
