package query

import (
	"net/url"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

func TestBuildSingleSelectors(t *testing.T) {
	p, err := Build(url.Values{
		"type":     {"Device"},
		"id":       {"thermostat-1"},
		"category": {"sensor"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := bson.M{
		"type":           bson.M{"$in": []any{"Device"}},
		"id":             bson.M{"$in": []any{"thermostat-1"}},
		"category.value": bson.M{"$in": []any{"sensor"}},
	}
	if got := p.Filter(); !reflect.DeepEqual(got, want) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestBuildMultiValueSelectorBecomesOr(t *testing.T) {
	p, err := Build(url.Values{"type": {"Device,Robotics"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := bson.M{
		"$and": []bson.M{
			{"$or": []bson.M{
				{"type": bson.M{"$in": []any{"Device"}}},
				{"type": bson.M{"$in": []any{"Robotics"}}},
			}},
		},
	}
	if got := p.Filter(); !reflect.DeepEqual(got, want) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestBuildPatternSelectors(t *testing.T) {
	p, err := Build(url.Values{"idPattern": {"^thermo.*"}, "typePattern": {"Dev.*"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := bson.M{
		"id":   bson.M{"$regex": "^thermo.*"},
		"type": bson.M{"$regex": "Dev.*"},
	}
	if got := p.Filter(); !reflect.DeepEqual(got, want) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestPlainSelectorWinsOverPattern(t *testing.T) {
	p, err := Build(url.Values{"id": {"thermostat-1"}, "idPattern": {"^thermo.*"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.M{"id": bson.M{"$in": []any{"thermostat-1"}}}
	if got := p.Filter(); !reflect.DeepEqual(got, want) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestQueryStatements(t *testing.T) {
	tests := []struct {
		name string
		q    string
		want bson.M
	}{
		{"equality", "status==active", bson.M{"status": bson.M{"$in": []any{"active"}}}},
		{"colon equality", "status:active", bson.M{"status": bson.M{"$in": []any{"active"}}}},
		{"not equal", "status!=retired", bson.M{"status": bson.M{"$ne": "retired"}}},
		{"greater or equal", "temperature.value>=20", bson.M{"temperature.value": bson.M{"$gte": 20}}},
		{"less or equal", "temperature.value<=30", bson.M{"temperature.value": bson.M{"$lte": 30}}},
		{"greater", "temperature.value>20", bson.M{"temperature.value": bson.M{"$gt": 20}}},
		{"less", "temperature.value<30", bson.M{"temperature.value": bson.M{"$lt": 30}}},
		{"float literal", "ratio==0.5", bson.M{"ratio": bson.M{"$in": []any{0.5}}}},
		{"string literal", "room==kitchen", bson.M{"room": bson.M{"$in": []any{"kitchen"}}}},
		{"combined statements", "status==active;count>3", bson.M{
			"status": bson.M{"$in": []any{"active"}},
			"count":  bson.M{"$gt": 3},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Build(url.Values{"q": {tc.q}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := p.Filter(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, tc.want)
			}
		})
	}
}

func TestMetadataStatementsRewritePath(t *testing.T) {
	p, err := Build(url.Values{"mq": {"temperature.accuracy>0.9"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.M{"temperature.metadata.accuracy.value": bson.M{"$gt": 0.9}}
	if got := p.Filter(); !reflect.DeepEqual(got, want) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestMalformedStatements(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"missing field", url.Values{"q": {"==5"}}},
		{"missing literal", url.Values{"q": {"temperature=="}}},
		{"no operator", url.Values{"q": {"temperature"}}},
		{"metadata without attribute path", url.Values{"mq": {"accuracy>0.9"}}},
		{"values pair without separator", url.Values{"values": {"cityberlin"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.params)
			if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
				t.Fatalf("expected bad_request, got %v", err)
			}
		})
	}
}

func TestDeprecatedValuesPairs(t *testing.T) {
	p, err := Build(url.Values{"values": {"city|berlin,count|3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.M{"city": "berlin", "count": 3}
	if got := p.Filter(); !reflect.DeepEqual(got, want) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestCoerceLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", 42},
		{"4.2", 4.2},
		{"4.2.1", "4.2.1"},
		{"v42", "v42"},
		{"active", "active"},
	}
	for _, tc := range tests {
		if got := coerceLiteral(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("coerceLiteral(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}
