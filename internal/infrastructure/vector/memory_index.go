package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nymav/drax-tbs/internal/domain/rag"
)

// MemoryIndex 进程内向量索引
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string][]entry
}

// NewMemoryIndex 创建进程内向量索引
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		namespaces: make(map[string][]entry),
	}
}

// Save 追加条目
func (m *MemoryIndex) Save(_ context.Context, namespace string, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.namespaces[namespace]
	entries, err := prepareEntries(namespace, len(existing), records)
	if err != nil {
		return err
	}
	if len(existing) > 0 && len(existing[0].vector) != len(entries[0].vector) {
		return fmt.Errorf("namespace %s has dimension %d, got %d", namespace, len(existing[0].vector), len(entries[0].vector))
	}

	m.namespaces[namespace] = append(existing, entries...)
	return nil
}

// Query 返回最近的 k 个条目
func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, k int) ([]rag.Hit, error) {
	m.mu.Lock()
	entries, ok := m.namespaces[namespace]
	if !ok {
		m.namespaces[namespace] = nil
	}
	m.mu.Unlock()

	return nearest(entries, vector, k), nil
}

// All 按写入顺序返回全部条目
func (m *MemoryIndex) All(_ context.Context, namespace string) ([]rag.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.namespaces[namespace]
	out := make([]rag.Hit, 0, len(entries))
	for _, e := range entries {
		out = append(out, rag.Hit{ID: e.id, Text: e.text, Metadata: copyMeta(e.metadata)})
	}
	return out, nil
}

// DeleteNamespace 删除命名空间
func (m *MemoryIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.namespaces[namespace]; !ok {
		return rag.ErrNamespaceNotFound
	}
	delete(m.namespaces, namespace)
	return nil
}

// HasNamespace 判断命名空间是否存在
func (m *MemoryIndex) HasNamespace(_ context.Context, namespace string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.namespaces[namespace]
	return ok, nil
}

// ListNamespaces 列出命名空间
func (m *MemoryIndex) ListNamespaces(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.namespaces))
	for name := range m.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
