package filter

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/types/consts"
	"github.com/tierforge/tierserve/util"
)

// ErrUnsupported is returned by a sink for a node it cannot translate.
// The coordinator maps this to tier.BadRequest.
var ErrUnsupported = errors.New("filter: node not supported by this sink")

// ErrRawNotSupported is returned by the search sink for a Raw node; a raw
// SQL fragment has no structured-query equivalent.
var ErrRawNotSupported = errors.New("filter: raw passthrough not supported by search sink")

// Translator is the per-schema precomputed translator the registry stores
// in SchemaInfo's tier option bags. Fields maps a schema field name (as
// the client supplies it, not yet snake-cased) to its backend kind so
// both sinks know whether to emit a full-text or an exact-match predicate.
type Translator struct {
	Fields map[string]consts.FieldKind
}

func (t *Translator) kindOf(field string) consts.FieldKind {
	if t == nil || t.Fields == nil {
		return consts.FieldString
	}
	// nested-object field names use their outer segment only.
	if idx := strings.IndexByte(field, '.'); idx >= 0 {
		field = field[:idx]
	}
	if k, ok := t.Fields[field]; ok {
		return k
	}
	return consts.FieldString
}

func isTextKind(k consts.FieldKind) bool {
	return k == consts.FieldString
}

// ToSearchQuery produces a search-backend structured query body (an
// Elasticsearch-shaped bool query) for n.
func (t *Translator) ToSearchQuery(n *Node) (map[string]any, error) {
	if n == nil {
		return map[string]any{"match_all": map[string]any{}}, nil
	}
	switch n.Kind {
	case Term, SearchField:
		if isTextKind(t.kindOf(n.Field)) {
			terms := strings.Fields(n.Value)
			if len(terms) <= 1 {
				return map[string]any{"match": map[string]any{n.Field: n.Value}}, nil
			}
			should := make([]map[string]any, 0, len(terms))
			for _, term := range terms {
				should = append(should, map[string]any{"match": map[string]any{n.Field: term}})
			}
			return map[string]any{"bool": map[string]any{"should": should, "minimum_should_match": 1}}, nil
		}
		return map[string]any{"term": map[string]any{n.Field: n.Value}}, nil

	case Range:
		return map[string]any{"range": map[string]any{n.Field: map[string]any{"gte": n.Low, "lte": n.High}}}, nil
	case From:
		return map[string]any{"range": map[string]any{n.Field: map[string]any{"gte": n.Low}}}, nil
	case To:
		return map[string]any{"range": map[string]any{n.Field: map[string]any{"lte": n.High}}}, nil

	case Group, FieldGroup:
		return t.ToSearchQuery(n.Child)

	case Not:
		child, err := t.ToSearchQuery(n.Child)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"must_not": []map[string]any{child}}}, nil

	case And:
		left, err := t.ToSearchQuery(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.ToSearchQuery(n.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"must": []map[string]any{left, right}}}, nil

	case Or:
		left, err := t.ToSearchQuery(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.ToSearchQuery(n.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"should": []map[string]any{left, right}, "minimum_should_match": 1}}, nil

	case Unknown:
		switch strings.ToUpper(n.Op) {
		case "AND", "&":
			return t.ToSearchQuery(&Node{Kind: And, Left: n.Left, Right: n.Right})
		case "OR", "|":
			return t.ToSearchQuery(&Node{Kind: Or, Left: n.Left, Right: n.Right})
		}
		return nil, errors.Wrapf(ErrUnsupported, "unknown operator %q", n.Op)

	case Raw:
		return nil, ErrRawNotSupported

	default:
		return nil, errors.Wrapf(ErrUnsupported, "kind %d", n.Kind)
	}
}

// ToSQLWhere produces a parameterized WHERE fragment for n. Field names
// are snake-cased for the column name; text fields use a tsquery
// full-text predicate, numeric/keyword fields use comparison operators.
func (t *Translator) ToSQLWhere(n *Node) (string, []any, error) {
	if n == nil {
		return "TRUE", nil, nil
	}
	switch n.Kind {
	case Term, SearchField:
		col := util.SnakeCase(n.Field)
		if isTextKind(t.kindOf(n.Field)) {
			return fmt.Sprintf("to_tsvector(%s) @@ plainto_tsquery(?)", col), []any{n.Value}, nil
		}
		return fmt.Sprintf("%s = ?", col), []any{n.Value}, nil

	case Range:
		col := util.SnakeCase(n.Field)
		return fmt.Sprintf("%s >= ? AND %s <= ?", col, col), []any{n.Low, n.High}, nil
	case From:
		col := util.SnakeCase(n.Field)
		return fmt.Sprintf("%s >= ?", col), []any{n.Low}, nil
	case To:
		col := util.SnakeCase(n.Field)
		return fmt.Sprintf("%s <= ?", col), []any{n.High}, nil

	case Group, FieldGroup:
		frag, args, err := t.ToSQLWhere(n.Child)
		if err != nil {
			return "", nil, err
		}
		return "(" + frag + ")", args, nil

	case Not:
		frag, args, err := t.ToSQLWhere(n.Child)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + frag + ")", args, nil

	case And:
		lf, la, err := t.ToSQLWhere(n.Left)
		if err != nil {
			return "", nil, err
		}
		rf, ra, err := t.ToSQLWhere(n.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s AND %s)", lf, rf), append(la, ra...), nil

	case Or:
		lf, la, err := t.ToSQLWhere(n.Left)
		if err != nil {
			return "", nil, err
		}
		rf, ra, err := t.ToSQLWhere(n.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s OR %s)", lf, rf), append(la, ra...), nil

	case Unknown:
		switch strings.ToUpper(n.Op) {
		case "AND", "&":
			return t.ToSQLWhere(&Node{Kind: And, Left: n.Left, Right: n.Right})
		case "OR", "|":
			return t.ToSQLWhere(&Node{Kind: Or, Left: n.Left, Right: n.Right})
		}
		return "", nil, errors.Wrapf(ErrUnsupported, "unknown operator %q", n.Op)

	case Raw:
		return n.Value, nil, nil

	default:
		return "", nil, errors.Wrapf(ErrUnsupported, "kind %d", n.Kind)
	}
}
