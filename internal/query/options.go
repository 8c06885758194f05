package query

import (
	"strconv"
	"strings"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

// Options captures the comma-separated options parameter.
type Options struct {
	Shape  Shape
	Count  bool
	Append bool
}

// ParseOptions resolves the option flags into a single shape selection.
// keyValues wins over values, values over unique.
func ParseOptions(raw string) Options {
	var keyValues, values, unique bool
	opts := Options{}
	if raw != "" {
		for _, opt := range strings.Split(raw, ",") {
			switch opt {
			case "keyValues":
				keyValues = true
			case "values":
				values = true
			case "unique":
				unique = true
			case "count":
				opts.Count = true
			case "append":
				opts.Append = true
			}
		}
	}
	switch {
	case keyValues:
		opts.Shape = ShapeKeyValues
	case values:
		opts.Shape = ShapeValues
	case unique:
		opts.Shape = ShapeUnique
	}
	return opts
}

// SortKey is one orderBy component. A ! prefix on the field means
// descending.
type SortKey struct {
	Field string
	Desc  bool
}

// ParseOrderBy parses the comma-separated orderBy parameter.
func ParseOrderBy(raw string) []SortKey {
	if raw == "" {
		return nil
	}
	var keys []SortKey
	for _, field := range strings.Split(raw, ",") {
		if rest, ok := strings.CutPrefix(field, "!"); ok {
			keys = append(keys, SortKey{Field: rest, Desc: true})
			continue
		}
		keys = append(keys, SortKey{Field: field})
	}
	return keys
}

// ParsePaging parses offset and limit. Zero limit means unlimited.
func ParsePaging(offset, limit string) (int64, int64, error) {
	var off, lim int64
	if offset != "" {
		n, err := strconv.ParseInt(offset, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, domainerrors.New(domainerrors.CodeBadRequest, "offset must be a non-negative integer")
		}
		off = n
	}
	if limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, domainerrors.New(domainerrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		lim = n
	}
	return off, lim, nil
}

// Query bundles everything a read needs: the predicate, the projection, the
// output shape and the ordering window.
type Query struct {
	Predicate *Predicate
	Selection FieldSelection
	Shape     Shape
	Sort      []SortKey
	Offset    int64
	Limit     int64
}
