package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/internal/platform/config"
	"github.com/leukaemiamedtech/hiascdi/internal/query"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

// Memory is the in-memory entity store used in tests. Field order is not
// preserved by JSON decoding, so documents surface in sorted key order.
type Memory struct {
	mu         sync.RWMutex
	docs       []map[string]any
	knownTypes map[string]bool
}

// NewMemory builds an in-memory store. With no types given the default
// collection map applies.
func NewMemory(entityTypes ...string) *Memory {
	known := make(map[string]bool)
	if len(entityTypes) == 0 {
		for t := range config.DefaultCollections() {
			known[t] = true
		}
	}
	for _, t := range entityTypes {
		known[t] = true
	}
	return &Memory{knownTypes: known}
}

func (s *Memory) Insert(_ context.Context, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := doc["id"].(string)
	entityType, _ := doc["type"].(string)
	for _, existing := range s.docs {
		if existing["id"] == id && existing["type"] == entityType {
			return sentinel.ErrConflict
		}
	}
	s.docs = append(s.docs, copyDoc(doc))
	return nil
}

func (s *Memory) Search(_ context.Context, q *query.Query) ([]bson.D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []map[string]any
	for _, doc := range s.docs {
		if q.Predicate.Matches(ordered(doc)) {
			matched = append(matched, doc)
		}
	}
	for i := len(q.Sort) - 1; i >= 0; i-- {
		key := q.Sort[i]
		sort.SliceStable(matched, func(a, b int) bool {
			less := lessValue(getPath(matched[a], key.Field), getPath(matched[b], key.Field))
			if key.Desc {
				return !less
			}
			return less
		})
	}
	if q.Offset > 0 {
		if q.Offset >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	projection := q.Selection.Projection(true, q.Shape)
	out := make([]bson.D, 0, len(matched))
	for _, doc := range matched {
		out = append(out, query.ApplyProjection(ordered(doc), projection))
	}
	return out, nil
}

func (s *Memory) Count(_ context.Context, p *query.Predicate) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, doc := range s.docs {
		if p.Matches(ordered(doc)) {
			n++
		}
	}
	return n, nil
}

func (s *Memory) FindByID(_ context.Context, id, entityType string, projection bson.M) ([]bson.D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if projection == nil {
		projection = bson.M{"_id": 0}
	}
	var out []bson.D
	for _, doc := range s.docs {
		if doc["id"] != id {
			continue
		}
		if entityType != "" && doc["type"] != entityType {
			continue
		}
		out = append(out, query.ApplyProjection(ordered(doc), projection))
	}
	return out, nil
}

func (s *Memory) SetAttribute(_ context.Context, id, field string, value any, upsert bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc["id"] == id {
			setPath(doc, field, value)
			return 1, nil
		}
	}
	if upsert {
		doc := map[string]any{"id": id}
		setPath(doc, field, value)
		s.docs = append(s.docs, doc)
	}
	return 0, nil
}

func (s *Memory) SetAttributeIfExists(_ context.Context, id, guard, field string, value any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc["id"] != id {
			continue
		}
		if _, ok := doc[guard]; !ok {
			continue
		}
		setPath(doc, field, value)
		return 1, nil
	}
	return 0, nil
}

func (s *Memory) UnsetAttribute(_ context.Context, id, field string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc["id"] == id {
			unsetPath(doc, field)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Memory) Delete(_ context.Context, entityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.knownTypes[entityType] {
		return sentinel.ErrUnknownType
	}
	for i, doc := range s.docs {
		if doc["id"] == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *Memory) KnownType(entityType string) bool {
	return s.knownTypes[entityType]
}

// ordered converts a document to bson.D in sorted key order, the fake's
// stand-in for stored field order.
func ordered(doc map[string]any) bson.D {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: doc[k]})
	}
	return out
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func getPath(doc map[string]any, path string) any {
	var current any = doc
	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[part]
	}
	return current
}

func setPath(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func unsetPath(doc map[string]any, path string) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	}
	return false
}

var _ Store = (*Memory)(nil)
