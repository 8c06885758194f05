package subscriptions

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
		docs = append(docs, ordered(doc))
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

func (s *MemoryStore) FindByID(ctx context.Context, id string) (bson.D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc["id"] == id {
			return ordered(doc), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc["id"] != id {
			continue
		}
		for field, value := range fields {
			doc[field] = value
		}
		return nil
	}
	created := map[string]any{"id": id}
	for field, value := range fields {
		created[field] = value
	}
	s.docs = append(s.docs, created)
	return nil
}

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

var _ Store = (*MemoryStore)(nil)
