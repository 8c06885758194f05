package types

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(ctx context.Context, offset, limit int64) ([]bson.D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []bson.D
	for i, doc := range s.docs {
		if int64(i) < offset {
			continue
		}
		if limit > 0 && int64(len(docs)) >= limit {
			break
		}
		docs = append(docs, ordered(doc, nil))
	}
	return docs, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

func (s *MemoryStore) Insert(ctx context.Context, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]any, len(doc))
	for k, v := range doc {
		copied[k] = v
	}
	s.docs = append(s.docs, copied)
	return nil
}

func (s *MemoryStore) FindByName(ctx context.Context, name string) (bson.D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc["type"] == name {
			return ordered(doc, map[string]bool{"type": true}), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, name string, attrs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc["type"] != name {
			continue
		}
		for field, value := range attrs {
			doc[field] = value
		}
		return nil
	}
	return nil
}

// ordered materializes a map as a bson.D with deterministic key order,
// skipping excluded fields.
func ordered(doc map[string]any, exclude map[string]bool) bson.D {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		if exclude[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: doc[k]})
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
