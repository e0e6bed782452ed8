// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"login-portal/internal/domain/auth"
)

// MemoryStorage keeps every client namespace in process memory. Data is lost
// on restart.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Namespace(clientID string) auth.KeyValueStore {
	return &memoryNamespace{parent: m, id: clientID}
}

func (m *MemoryStorage) Ping(context.Context) error {
	return nil
}

type memoryNamespace struct {
	parent *MemoryStorage
	id     string
}

func (n *memoryNamespace) GetItems(_ context.Context, keys ...string) (map[string]string, error) {
	n.parent.mu.RLock()
	defer n.parent.mu.RUnlock()

	out := make(map[string]string, len(keys))
	ns := n.parent.data[n.id]
	for _, k := range keys {
		if v, ok := ns[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (n *memoryNamespace) SetItems(_ context.Context, items map[string]string) error {
	n.parent.mu.Lock()
	defer n.parent.mu.Unlock()

	ns, ok := n.parent.data[n.id]
	if !ok {
		ns = make(map[string]string, len(items))
		n.parent.data[n.id] = ns
	}
	for k, v := range items {
		ns[k] = v
	}
	return nil
}

func (n *memoryNamespace) RemoveItems(_ context.Context, keys ...string) error {
	n.parent.mu.Lock()
	defer n.parent.mu.Unlock()

	ns := n.parent.data[n.id]
	for _, k := range keys {
		delete(ns, k)
	}
	if len(ns) == 0 {
		delete(n.parent.data, n.id)
	}
	return nil
}
