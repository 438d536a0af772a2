// Query-language parsing is deliberately outside the filter package's
// boundary (it hands the coordinator a pre-parsed tree); something still
// has to turn the '$filter' wire string into that tree before a request
// reaches the coordinator, and this is its home. Grounded on no single
// teacher file — the teacher's controller binds query params straight to
// GORM scopes instead of an abstract filter AST — so this is a small
// hand-rolled recursive-descent parser over the Lucene-shaped grammar
// spec.md §4.3 names, built with the standard library only: nothing in
// the retrieval pack ships a query-string grammar to ground on.
package controller

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/filter"
)

// ErrMalformedFilter is wrapped around any parse failure so the caller
// can map it to response.CodeBadRequest without inspecting the cause.
var ErrMalformedFilter = errors.New("router: malformed filter expression")

type tokenKind int

const (
	tWord tokenKind = iota
	tColon
	tLParen
	tRParen
	tLBracket
	tRBracket
	tAnd
	tOr
	tNot
	tTo
	tEOF
)

type token struct {
	kind tokenKind
	text string
}

func tokenizeFilter(s string) ([]token, error) {
	var toks []token
	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tRParen, ")"})
			i++
		case c == '[':
			toks = append(toks, token{tLBracket, "["})
			i++
		case c == ']':
			toks = append(toks, token{tRBracket, "]"})
			i++
		case c == ':':
			toks = append(toks, token{tColon, ":"})
			i++
		case c == '"':
			j := i + 1
			for j < n && s[j] != '"' {
				j++
			}
			if j >= n {
				return nil, errors.Wrapf(ErrMalformedFilter, "unterminated quote at offset %d", i)
			}
			toks = append(toks, token{tWord, s[i+1 : j]})
			i = j + 1
		default:
			j := i
			for j < n && !strings.ContainsRune(" \t\r\n()[]:", rune(s[j])) {
				j++
			}
			word := s[i:j]
			i = j
			switch strings.ToUpper(word) {
			case "AND":
				toks = append(toks, token{tAnd, word})
			case "OR":
				toks = append(toks, token{tOr, word})
			case "NOT":
				toks = append(toks, token{tNot, word})
			case "TO":
				toks = append(toks, token{tTo, word})
			default:
				toks = append(toks, token{tWord, word})
			}
		}
	}
	toks = append(toks, token{tEOF, ""})
	return toks, nil
}

type filterParser struct {
	toks []token
	pos  int
}

func (p *filterParser) peek() token { return p.toks[p.pos] }

func (p *filterParser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// ParseFilter turns a '$filter' wire string into a *filter.Node, or nil
// for an empty string. It implements the grammar spec.md §4.3 names:
// Term/SearchField, Range ("field:[low TO high]"), From/To ("field:>v",
// "field:<=v"), Group ("(...)"), FieldGroup ("field:(a OR b)"), And/Or/Not.
func ParseFilter(raw string) (*filter.Node, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	toks, err := tokenizeFilter(raw)
	if err != nil {
		return nil, err
	}
	p := &filterParser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tEOF {
		return nil, errors.Wrapf(ErrMalformedFilter, "unexpected token %q", p.peek().text)
	}
	return node, nil
}

func (p *filterParser) parseOr() (*filter.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &filter.Node{Kind: filter.Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseAnd() (*filter.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &filter.Node{Kind: filter.And, Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseNot() (*filter.Node, error) {
	if p.peek().kind == tNot {
		p.next()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &filter.Node{Kind: filter.Not, Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *filterParser) parsePrimary() (*filter.Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tLParen:
		p.next()
		child, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tRParen {
			return nil, errors.Wrap(ErrMalformedFilter, "expected ')'")
		}
		p.next()
		return &filter.Node{Kind: filter.Group, Child: child}, nil
	case tWord:
		field := tok.text
		p.next()
		if p.peek().kind != tColon {
			// A bare word with no field qualifier becomes a Term with an
			// empty Field. The sinks translate it like any other Term;
			// neither maps an empty Field to a search across all fields.
			return filter.NewTerm("", field), nil
		}
		p.next()
		return p.parseValue(field)
	default:
		return nil, errors.Wrapf(ErrMalformedFilter, "unexpected token %q", tok.text)
	}
}

func (p *filterParser) parseValue(field string) (*filter.Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tLBracket:
		p.next()
		low := p.next().text
		if p.peek().kind != tTo {
			return nil, errors.Wrap(ErrMalformedFilter, "expected TO in range")
		}
		p.next()
		high := p.next().text
		if p.peek().kind != tRBracket {
			return nil, errors.Wrap(ErrMalformedFilter, "expected ']'")
		}
		p.next()
		return &filter.Node{Kind: filter.Range, Field: field, Low: low, High: high}, nil

	case tLParen:
		p.next()
		child, err := p.parseFieldGroupBody(field)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tRParen {
			return nil, errors.Wrap(ErrMalformedFilter, "expected ')'")
		}
		p.next()
		return &filter.Node{Kind: filter.FieldGroup, Field: field, Child: child}, nil

	case tWord:
		val := tok.text
		p.next()
		switch {
		case strings.HasPrefix(val, ">="):
			return &filter.Node{Kind: filter.From, Field: field, Low: val[2:]}, nil
		case strings.HasPrefix(val, "<="):
			return &filter.Node{Kind: filter.To, Field: field, High: val[2:]}, nil
		case strings.HasPrefix(val, ">"):
			return &filter.Node{Kind: filter.From, Field: field, Low: val[1:]}, nil
		case strings.HasPrefix(val, "<"):
			return &filter.Node{Kind: filter.To, Field: field, High: val[1:]}, nil
		default:
			return filter.NewTerm(field, val), nil
		}

	default:
		return nil, errors.Wrapf(ErrMalformedFilter, "unexpected token %q after ':'", tok.text)
	}
}

// parseFieldGroupBody parses the OR/AND-combined value list inside
// "field:(...)", where every leaf is a Term against field.
func (p *filterParser) parseFieldGroupBody(field string) (*filter.Node, error) {
	left, err := p.parseFieldGroupAnd(field)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tOr {
		p.next()
		right, err := p.parseFieldGroupAnd(field)
		if err != nil {
			return nil, err
		}
		left = &filter.Node{Kind: filter.Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseFieldGroupAnd(field string) (*filter.Node, error) {
	left, err := p.parseFieldGroupTerm(field)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tAnd {
		p.next()
		right, err := p.parseFieldGroupTerm(field)
		if err != nil {
			return nil, err
		}
		left = &filter.Node{Kind: filter.And, Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseFieldGroupTerm(field string) (*filter.Node, error) {
	tok := p.peek()
	if tok.kind != tWord {
		return nil, errors.Wrapf(ErrMalformedFilter, "expected value in field group, got %q", tok.text)
	}
	p.next()
	return filter.NewTerm(field, tok.text), nil
}
