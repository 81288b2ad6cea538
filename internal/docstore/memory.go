package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests. Transactions are
// serialized behind a single mutex, which over-delivers on the
// first-committer-wins contract but keeps the semantics identical.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]Fields
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]Fields)}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(collection, id)
}

func (m *Memory) Set(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(collection, id, fields, merge)
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(collection, id, fields, false)
	return id, nil
}

func (m *Memory) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{store: m})
}

// Len reports the number of documents in a collection.
func (m *Memory) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[collection])
}

// All returns a copy of every document in a collection, keyed by id.
func (m *Memory) All(collection string) map[string]Fields {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Fields, len(m.data[collection]))
	for id, doc := range m.data[collection] {
		out[id] = copyFields(doc)
	}
	return out
}

func (m *Memory) get(collection, id string) (Fields, error) {
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFields(doc), nil
}

func (m *Memory) set(collection, id string, fields Fields, merge bool) {
	coll := m.data[collection]
	if coll == nil {
		coll = make(map[string]Fields)
		m.data[collection] = coll
	}
	if merge {
		if existing, ok := coll[id]; ok {
			merged := copyFields(existing)
			for k, v := range fields {
				merged[k] = v
			}
			coll[id] = merged
			return
		}
	}
	coll[id] = copyFields(fields)
}

// memTx runs with the store mutex already held.
type memTx struct {
	store *Memory
}

func (t *memTx) Get(collection, id string) (Fields, error) {
	return t.store.get(collection, id)
}

func (t *memTx) Set(collection, id string, fields Fields) error {
	t.store.set(collection, id, fields, true)
	return nil
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
