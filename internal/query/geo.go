package query

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

// geoField is the document path spatial queries address: entities store
// their GeoJSON geometry under the location attribute's value.
const geoField = "location.value"

const geometryPoint = "Point"

// geometryPolygon is what the wire protocol actually accepts on the polygon
// paths. The spelling is wrong but deployed clients send it; changing it
// would break them.
const geometryPolygon = "Polygone"

// Near matches documents near a point, optionally constrained by numeric
// modifiers such as minDistance/maxDistance.
type Near struct {
	Coordinates []float64
	Constraints []Constraint
}

// Constraint is one numeric modifier nested under the $near operator.
type Constraint struct {
	Name  string
	Value int
}

func (c Near) filter() bson.M {
	near := bson.M{
		"$geometry": bson.M{
			"type":        geometryPoint,
			"coordinates": c.Coordinates,
		},
	}
	for _, con := range c.Constraints {
		near["$"+con.Name] = con.Value
	}
	return bson.M{geoField: bson.M{"$near": near}}
}

// GeoShape matches documents whose geometry intersects or is covered by the
// given polygon, depending on Operator.
type GeoShape struct {
	Operator     string
	GeometryType string
	Groups       [][]float64
}

func (c GeoShape) filter() bson.M {
	return bson.M{geoField: bson.M{
		c.Operator: bson.M{
			"$geometry": bson.M{
				"type":        c.GeometryType,
				"coordinates": c.Groups,
			},
		},
	}}
}

// BuildGeo translates the georel/geometry/coords triple into a spatial
// clause. The caller only invokes it when all three parameters are present.
func BuildGeo(georel, geometry, coords string) (Clause, error) {
	relTokens := strings.Split(georel, ";")
	coordGroups := strings.Split(coords, ";")
	geometry = capitalize(geometry)

	switch relTokens[0] {
	case "near":
		return buildNear(geometry, relTokens, coordGroups)
	case "intersects":
		return buildShape("$geoIntersects", geometry, coordGroups)
	case "coveredBy":
		return buildShape("$geoWithin", geometry, coordGroups)
	case "equals":
		return buildEquals(coordGroups)
	case "disjoint":
		return nil, domainerrors.New(domainerrors.CodeNotImplemented, "disjoint geospatial queries are not implemented")
	default:
		return nil, errBadGeo()
	}
}

func buildNear(geometry string, relTokens, coordGroups []string) (Clause, error) {
	if geometry != geometryPoint {
		return nil, errBadGeo()
	}
	if len(relTokens) < 2 {
		return nil, errBadGeo()
	}
	if len(coordGroups) > 1 {
		return nil, errBadGeo()
	}
	point, err := parseFloats(coordGroups[0])
	if err != nil {
		return nil, err
	}
	clause := Near{Coordinates: point}
	for _, mod := range relTokens[1:] {
		name, raw, ok := strings.Cut(mod, ":")
		if !ok {
			return nil, errBadGeo()
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errBadGeo()
		}
		clause.Constraints = append(clause.Constraints, Constraint{Name: name, Value: value})
	}
	return clause, nil
}

func buildShape(operator, geometry string, coordGroups []string) (Clause, error) {
	if geometry != geometryPolygon {
		return nil, errBadGeo()
	}
	if len(coordGroups) > 4 {
		return nil, errBadGeo()
	}
	groups := make([][]float64, 0, len(coordGroups))
	for _, group := range coordGroups {
		points, err := parseFloats(group)
		if err != nil {
			return nil, err
		}
		groups = append(groups, points)
	}
	return GeoShape{Operator: operator, GeometryType: geometry, Groups: groups}, nil
}

func buildEquals(coordGroups []string) (Clause, error) {
	alts := make([]Clause, 0, len(coordGroups))
	for _, group := range coordGroups {
		pair, err := parseFloats(group)
		if err != nil {
			return nil, err
		}
		if len(pair) < 2 {
			return nil, errBadGeo()
		}
		alts = append(alts, Equals{
			Field: geoField + ".coordinates",
			Value: bson.A{pair[0], pair[1]},
		})
	}
	return Or{Alternatives: alts}, nil
}

func parseFloats(group string) ([]float64, error) {
	parts := strings.Split(group, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errBadGeo()
		}
		out = append(out, f)
	}
	return out, nil
}

// capitalize upper-cases the first rune and lower-cases the rest, matching
// how geometry values are normalized before comparison.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func errBadGeo() error {
	return domainerrors.New(domainerrors.CodeBadRequest, "malformed geospatial query")
}
