package controller

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/tierforge/tierserve/filter"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/types/consts"
)

// reservedQueryParams are the '$'-prefixed parameters the materializer
// interprets itself; everything else on the query string becomes an
// equality filter AND-combined with '$filter', per spec.md §6.
var reservedQueryParams = map[string]bool{
	consts.QueryFields:  true,
	consts.QueryFilter:  true,
	consts.QueryOrderBy: true,
	consts.QueryOrder:   true,
	consts.QuerySize:    true,
	consts.QuerySkip:    true,
	consts.QueryArchive: true,
	consts.QueryForce:   true,
}

// requiredProjectionFields are always included in a field projection,
// regardless of what the caller asked for: the coordinator and backfill
// machinery need id/sref/uref on every row, projected or not.
var requiredProjectionFields = []string{"id", "sref", "uref"}

// parseSearchQuery builds the schema.Query the coordinator's Search/Count
// operations take, from '$f', '$filter', '$orderby', '$order', '$size',
// '$skip' plus any non-reserved equality params.
func parseSearchQuery(c *gin.Context) (schema.Query, error) {
	values := c.Request.URL.Query()

	var q schema.Query
	if fields, ok := values[consts.QueryFields]; ok && len(fields) > 0 {
		q.Fields = withRequiredFields(fields)
	}

	userFilter, err := ParseFilter(c.Query(consts.QueryFilter))
	if err != nil {
		return schema.Query{}, errors.Wrapf(err, "parsing %s", consts.QueryFilter)
	}

	eqFilter, err := equalityFilter(values)
	if err != nil {
		return schema.Query{}, err
	}
	q.Filter = filter.Conjoin(userFilter, eqFilter)

	q.OrderBy = c.Query(consts.QueryOrderBy)
	q.Order = strings.ToLower(c.DefaultQuery(consts.QueryOrder, "asc"))
	if q.Order != "asc" && q.Order != "desc" {
		return schema.Query{}, errors.Newf("%s must be 'asc' or 'desc', got %q", consts.QueryOrder, q.Order)
	}

	if raw := c.Query(consts.QuerySize); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return schema.Query{}, errors.Newf("%s must be a non-negative integer", consts.QuerySize)
		}
		q.Size = size
	}
	if raw := c.Query(consts.QuerySkip); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return schema.Query{}, errors.Newf("%s must be a non-negative integer", consts.QuerySkip)
		}
		q.Skip = skip
	}

	return q, nil
}

func withRequiredFields(fields []string) []string {
	out := slices.Clone(fields)
	for _, req := range requiredProjectionFields {
		if !slices.Contains(out, req) {
			out = append(out, req)
		}
	}
	return out
}

func equalityFilter(values map[string][]string) (*filter.Node, error) {
	var node *filter.Node
	for key, vals := range values {
		if reservedQueryParams[key] {
			continue
		}
		for _, val := range vals {
			node = filter.Conjoin(node, filter.NewTerm(key, val))
		}
	}
	return node, nil
}

// parseTriState parses a reserved '$archive'/'$force'-shaped boolean
// query param where an empty value (the flag present with no '=value')
// means true, matching spec.md §6's "∈{true,false,""} (empty = true)".
func parseTriState(c *gin.Context, key string) (bool, error) {
	raw, present := c.GetQuery(key)
	if !present {
		return false, nil
	}
	if raw == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Newf("%s must be 'true', 'false' or empty", key)
	}
	return b, nil
}
