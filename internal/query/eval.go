package query

import (
	"reflect"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Matches evaluates the predicate tree directly against an ordered document.
// The in-memory store uses this; the mongo store lowers to Filter() instead.
// Spatial clauses other than equals never match here: the fake has no
// geospatial index.
func (p *Predicate) Matches(doc bson.D) bool {
	for _, c := range p.clauses {
		if !matches(doc, c) {
			return false
		}
	}
	return true
}

func matches(doc bson.D, c Clause) bool {
	switch c := c.(type) {
	case EqualitySet:
		got, ok := resolvePath(doc, c.Field)
		if !ok {
			return false
		}
		for _, want := range c.Values {
			if looseEqual(got, want) {
				return true
			}
		}
		return false
	case Equals:
		got, ok := resolvePath(doc, c.Field)
		return ok && looseEqual(got, c.Value)
	case Regex:
		got, ok := resolvePath(doc, c.Field)
		if !ok {
			return false
		}
		s, ok := got.(string)
		if !ok {
			return false
		}
		matched, err := regexp.MatchString(c.Pattern, s)
		return err == nil && matched
	case Compare:
		got, ok := resolvePath(doc, c.Field)
		if c.Op == OpNotEqual {
			return !ok || !looseEqual(got, c.Value)
		}
		if !ok {
			return false
		}
		return compareOrdered(got, c.Op, c.Value)
	case Or:
		for _, alt := range c.Alternatives {
			if matches(doc, alt) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// resolvePath walks a dotted field path through nested documents.
func resolvePath(doc any, path string) (any, bool) {
	current := doc
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case bson.D:
			v, ok := lookup(node, part)
			if !ok {
				return nil, false
			}
			current = v
		case bson.M:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// looseEqual compares with numeric widening so int clauses match float64
// document values decoded from JSON.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(got any, op CompareOp, want any) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		switch op {
		case OpLess:
			return gf < wf
		case OpLessEqual:
			return gf <= wf
		case OpGreater:
			return gf > wf
		case OpGreaterEqual:
			return gf >= wf
		}
		return false
	}
	gs, gok2 := got.(string)
	ws, wok2 := want.(string)
	if !gok2 || !wok2 {
		return false
	}
	switch op {
	case OpLess:
		return gs < ws
	case OpLessEqual:
		return gs <= ws
	case OpGreater:
		return gs > ws
	case OpGreaterEqual:
		return gs >= ws
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
