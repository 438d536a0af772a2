package schema

import (
	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/filter"
)

// ErrNotFoundInResult is returned by a coordinator's id-scoped search probe
// when the search tier answers the query but none of the returned rows
// carry the requested id.
var ErrNotFoundInResult = errors.New("id not present in search result")

// Query is the search/count descriptor handed to the coordinator and, in
// turn, to the search and database drivers. Fields, if non-empty, always
// includes {id, sref, uref} — the materializer enforces that before the
// query ever reaches here.
type Query struct {
	Fields  []string
	Filter  *filter.Node
	OrderBy string
	Order   string // "asc" | "desc"
	Size    int
	Skip    int
}

// Projected reports whether the query carries a field projection. A
// projected query must never backfill cache/search: partial rows would
// poison those tiers.
func (q Query) Projected() bool {
	return len(q.Fields) > 0
}
