// Package query translates the NGSI-style string-encoded filter, projection
// and option parameters into a typed predicate tree and result-shaping rules,
// then lowers the tree into MongoDB filter documents.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

// Clause is one node of the predicate tree. Clauses are combined by a
// top-level AND; Or groups alternatives beneath it.
type Clause interface {
	filter() bson.M
}

// EqualitySet matches documents whose field value is one of Values.
type EqualitySet struct {
	Field  string
	Values []any
}

func (c EqualitySet) filter() bson.M {
	return bson.M{c.Field: bson.M{"$in": c.Values}}
}

// Equals matches documents whose field equals Value exactly.
type Equals struct {
	Field string
	Value any
}

func (c Equals) filter() bson.M {
	return bson.M{c.Field: c.Value}
}

// Regex matches documents whose field matches Pattern.
type Regex struct {
	Field   string
	Pattern string
}

func (c Regex) filter() bson.M {
	return bson.M{c.Field: bson.M{"$regex": c.Pattern}}
}

// CompareOp is a comparison operator from the q mini-language.
type CompareOp string

const (
	OpNotEqual     CompareOp = "$ne"
	OpLess         CompareOp = "$lt"
	OpLessEqual    CompareOp = "$lte"
	OpGreater      CompareOp = "$gt"
	OpGreaterEqual CompareOp = "$gte"
)

// Compare matches documents whose field satisfies Op against Value.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

func (c Compare) filter() bson.M {
	return bson.M{c.Field: bson.M{string(c.Op): c.Value}}
}

// Or matches documents satisfying any of its alternatives.
type Or struct {
	Alternatives []Clause
}

func (c Or) filter() bson.M {
	alts := make([]bson.M, 0, len(c.Alternatives))
	for _, a := range c.Alternatives {
		alts = append(alts, a.filter())
	}
	return bson.M{"$or": alts}
}

// Predicate is the request-scoped conjunction of filter clauses. Built fresh
// per request, never persisted.
type Predicate struct {
	clauses []Clause
}

// Add appends a clause to the conjunction.
func (p *Predicate) Add(c Clause) {
	p.clauses = append(p.clauses, c)
}

// Clauses exposes the tree for backends that evaluate it directly.
func (p *Predicate) Clauses() []Clause {
	return p.clauses
}

// Filter lowers the predicate tree into a single MongoDB filter document.
// Non-Or clauses merge into the top-level document; Or groups collect under
// one $and list, matching how the filters combine on the wire.
func (p *Predicate) Filter() bson.M {
	filter := bson.M{}
	var groups []bson.M
	for _, c := range p.clauses {
		if or, ok := c.(Or); ok {
			groups = append(groups, or.filter())
			continue
		}
		for k, v := range c.filter() {
			filter[k] = v
		}
	}
	if len(groups) > 0 {
		filter["$and"] = groups
	}
	return filter
}

// Build parses the filter parameters (type/id/category selectors, the q and
// mq comparison mini-language, geo clauses and the deprecated values
// synonym) into a predicate tree. Errors carry bad_request or
// not_implemented codes.
func Build(values url.Values) (*Predicate, error) {
	p := &Predicate{}

	addSelector(p, "type", values.Get("type"), values.Get("typePattern"))
	addSelector(p, "id", values.Get("id"), values.Get("idPattern"))
	addSelector(p, "category.value", values.Get("category"), "")

	if err := addStatements(p, values.Get("q"), false); err != nil {
		return nil, err
	}
	if err := addStatements(p, values.Get("mq"), true); err != nil {
		return nil, err
	}
	if err := addValuesPairs(p, values.Get("values")); err != nil {
		return nil, err
	}

	georel, geometry, coords := values.Get("georel"), values.Get("geometry"), values.Get("coords")
	if georel != "" && geometry != "" && coords != "" {
		clause, err := BuildGeo(georel, geometry, coords)
		if err != nil {
			return nil, err
		}
		p.Add(clause)
	}

	return p, nil
}

// addSelector handles the comma-separated plain selectors and their regex
// pattern variants. The plain selector takes precedence when both are given.
func addSelector(p *Predicate, field, plain, pattern string) {
	if plain != "" {
		parts := strings.Split(plain, ",")
		if len(parts) == 1 {
			p.Add(EqualitySet{Field: field, Values: []any{parts[0]}})
			return
		}
		alts := make([]Clause, 0, len(parts))
		for _, v := range parts {
			alts = append(alts, EqualitySet{Field: field, Values: []any{v}})
		}
		p.Add(Or{Alternatives: alts})
		return
	}
	if pattern != "" {
		p.Add(Regex{Field: field, Pattern: pattern})
	}
}

// operators in precedence order: two-character operators are tested before
// their one-character prefixes so >= never parses as > followed by =.
var operators = []string{"==", ":", "!=", ">=", "<=", "<", ">"}

// addStatements parses a semicolon-separated list of field<op>value
// statements. With metadata set, fields address attribute metadata and are
// rewritten to the attribute's metadata document path.
func addStatements(p *Predicate, raw string, metadata bool) error {
	if raw == "" {
		return nil
	}
	for _, stmt := range strings.Split(raw, ";") {
		clause, err := parseStatement(stmt, metadata)
		if err != nil {
			return err
		}
		p.Add(clause)
	}
	return nil
}

func parseStatement(stmt string, metadata bool) (Clause, error) {
	for _, op := range operators {
		idx := strings.Index(stmt, op)
		if idx <= 0 {
			continue
		}
		field := stmt[:idx]
		literal := stmt[idx+len(op):]
		if literal == "" {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, "malformed query statement: "+stmt)
		}
		if metadata {
			var err error
			field, err = metadataPath(field)
			if err != nil {
				return nil, err
			}
		}
		value := coerceLiteral(literal)
		switch op {
		case "==", ":":
			return EqualitySet{Field: field, Values: []any{value}}, nil
		case "!=":
			return Compare{Field: field, Op: OpNotEqual, Value: value}, nil
		case ">=":
			return Compare{Field: field, Op: OpGreaterEqual, Value: value}, nil
		case "<=":
			return Compare{Field: field, Op: OpLessEqual, Value: value}, nil
		case "<":
			return Compare{Field: field, Op: OpLess, Value: value}, nil
		case ">":
			return Compare{Field: field, Op: OpGreater, Value: value}, nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeBadRequest, "malformed query statement: "+stmt)
}

// metadataPath rewrites attr.meta to attr.metadata.meta.value, the document
// path metadata queries address.
func metadataPath(field string) (string, error) {
	attr, meta, ok := strings.Cut(field, ".")
	if !ok || attr == "" || meta == "" {
		return "", domainerrors.New(domainerrors.CodeBadRequest, "metadata query requires attribute.metadata form: "+field)
	}
	return attr + ".metadata." + meta + ".value", nil
}

// addValuesPairs handles the deprecated values parameter: comma-separated
// field|value pairs producing exact-match clauses.
func addValuesPairs(p *Predicate, raw string) error {
	if raw == "" {
		return nil
	}
	for _, pairStr := range strings.Split(raw, ",") {
		field, literal, ok := strings.Cut(pairStr, "|")
		if !ok || field == "" {
			return domainerrors.New(domainerrors.CodeBadRequest, "malformed values pair: "+pairStr)
		}
		p.Add(Equals{Field: field, Value: coerceLiteral(literal)})
	}
	return nil
}

// coerceLiteral applies the q literal coercion: tokens containing a decimal
// point become floats when they parse, all-digit tokens become integers,
// everything else stays a string.
func coerceLiteral(s string) any {
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
	if isDigits(s) {
		n, err := strconv.Atoi(s)
		if err == nil {
			return n
		}
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
