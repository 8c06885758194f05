package query

import (
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// BuiltinAttributes are timestamp fields maintained by the surrounding
// service. They are excluded from output unless explicitly requested.
var BuiltinAttributes = []string{"dateCreated", "dateModified", "dateExpired"}

// Shape is the output representation for a result set. Exactly one shape
// applies per request; the option flags resolve by fixed precedence
// (keyValues > values > unique).
type Shape int

const (
	ShapeDefault Shape = iota
	ShapeKeyValues
	ShapeValues
	ShapeUnique
)

// FieldSelection captures the attrs parameter. A nil Attrs slice means the
// parameter was omitted.
type FieldSelection struct {
	Attrs []string
}

// ParseFields parses the comma-separated attrs parameter.
func ParseFields(attrs string) FieldSelection {
	if attrs == "" {
		return FieldSelection{}
	}
	return FieldSelection{Attrs: strings.Split(attrs, ",")}
}

func (s FieldSelection) has(name string) bool {
	for _, a := range s.Attrs {
		if a == name {
			return true
		}
	}
	return false
}

// Projection builds the MongoDB projection document. With no attrs the
// builtin timestamps are excluded; with a wildcard they are excluded unless
// named; with specific names only those fields are kept, plus the id/type
// identity when includeIDType is set. The list shapes additionally drop the
// type and metadata fields, which their output never carries.
func (s FieldSelection) Projection(includeIDType bool, shape Shape) bson.M {
	fields := bson.M{"_id": 0}
	switch {
	case s.Attrs == nil:
		for _, builtin := range BuiltinAttributes {
			fields[builtin] = 0
		}
		if shape == ShapeKeyValues || shape == ShapeValues {
			fields["type"] = 0
			fields["metadata"] = 0
		}
	case s.has("*"):
		for _, builtin := range BuiltinAttributes {
			if !s.has(builtin) {
				fields[builtin] = 0
			}
		}
		if shape == ShapeKeyValues || shape == ShapeValues {
			fields["type"] = 0
			fields["metadata"] = 0
		}
	default:
		for _, attr := range s.Attrs {
			fields[attr] = 1
		}
		if includeIDType {
			fields["id"] = 1
			fields["type"] = 1
		}
	}
	return fields
}

// ApplyProjection applies a projection document to an ordered document.
// Backends without server-side projection (the in-memory store) use it.
func ApplyProjection(doc bson.D, proj bson.M) bson.D {
	include := false
	for field, v := range proj {
		if field != "_id" && v != 0 {
			include = true
			break
		}
	}
	out := bson.D{}
	for _, elem := range doc {
		if v, ok := proj[elem.Key]; ok {
			if v != 0 {
				out = append(out, elem)
			}
			continue
		}
		if !include {
			out = append(out, elem)
		}
	}
	return out
}

// bareValue collapses a structured attribute to its value field. Documents
// without a value field and bare scalars/arrays pass through unchanged.
func bareValue(v any) any {
	switch attr := v.(type) {
	case bson.D:
		if val, ok := lookup(attr, "value"); ok {
			return val
		}
	case bson.M:
		if val, ok := attr["value"]; ok {
			return val
		}
	case map[string]any:
		if val, ok := attr["value"]; ok {
			return val
		}
	}
	return v
}

// Lookup finds a top-level field in an ordered document.
func Lookup(doc bson.D, key string) (any, bool) {
	return lookup(doc, key)
}

func lookup(doc bson.D, key string) (any, bool) {
	for _, elem := range doc {
		if elem.Key == key {
			return elem.Value, true
		}
	}
	return nil, false
}

// AttributeValue extracts the value field from a structured attribute. The
// second return is false when the attribute is not structured, which the
// value-only endpoints treat as a failure.
func AttributeValue(attr any) (any, bool) {
	switch a := attr.(type) {
	case bson.D:
		return lookup(a, "value")
	case bson.M:
		v, ok := a["value"]
		return v, ok
	case map[string]any:
		v, ok := a["value"]
		return v, ok
	}
	return nil, false
}

// ReduceEntity shapes a single entity document. Default returns the
// document unchanged; keyValues maps each attribute to its bare value;
// values and unique emit the bare values positionally in field order,
// unique de-duplicating while preserving first-seen order.
func ReduceEntity(doc bson.D, shape Shape) any {
	switch shape {
	case ShapeKeyValues:
		out := bson.M{}
		for _, elem := range doc {
			out[elem.Key] = bareValue(elem.Value)
		}
		return out
	case ShapeValues:
		out := make([]any, 0, len(doc))
		for _, elem := range doc {
			out = append(out, bareValue(elem.Value))
		}
		return out
	case ShapeUnique:
		out := make([]any, 0, len(doc))
		for _, elem := range doc {
			out = appendUnique(out, bareValue(elem.Value))
		}
		return out
	default:
		return doc
	}
}

// ReduceEntities shapes a result set. keyValues and values reduce each
// entity independently; unique flattens the whole result set into one
// de-duplicated value list.
func ReduceEntities(docs []bson.D, shape Shape) any {
	switch shape {
	case ShapeKeyValues, ShapeValues:
		out := make([]any, 0, len(docs))
		for _, doc := range docs {
			out = append(out, ReduceEntity(doc, shape))
		}
		return out
	case ShapeUnique:
		out := []any{}
		for _, doc := range docs {
			for _, elem := range doc {
				out = appendUnique(out, bareValue(elem.Value))
			}
		}
		return out
	default:
		return docs
	}
}

func appendUnique(list []any, v any) []any {
	for _, existing := range list {
		if reflect.DeepEqual(existing, v) {
			return list
		}
	}
	return append(list, v)
}
