package container

import (
	"sort"
	"sync"
)

// MemTree is an in-memory Tree. It is safe for concurrent use.
type MemTree struct {
	mu    sync.RWMutex
	nodes map[string]Value
}

// NewMemTree creates an empty tree.
func NewMemTree() *MemTree {
	return &MemTree{nodes: make(map[string]Value)}
}

// Set stores v at path, replacing any previous value.
func (m *MemTree) Set(path string, v Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[CleanPath(path)] = v
}

// SetInt, SetFloat, SetString and SetBlob are shorthands for Set.
func (m *MemTree) SetInt(path string, v int64)     { m.Set(path, IntValue(v)) }
func (m *MemTree) SetFloat(path string, v float64) { m.Set(path, FloatValue(v)) }
func (m *MemTree) SetString(path, v string)        { m.Set(path, StringValue(v)) }
func (m *MemTree) SetBlob(path string, v []byte)   { m.Set(path, BlobValue(v)) }

// Delete removes the node at path.
func (m *MemTree) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, CleanPath(path))
}

// Goto implements Tree.
func (m *MemTree) Goto(path string) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[CleanPath(path)], nil
}

// Len returns the number of stored nodes.
func (m *MemTree) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// WalkFunc is called for each node during Walk. Return an error to stop.
type WalkFunc func(path string, v Value) error

// Walk calls fn for every node in lexical path order.
func (m *MemTree) Walk(fn WalkFunc) error {
	m.mu.RLock()
	paths := make([]string, 0, len(m.nodes))
	for p := range m.nodes {
		paths = append(paths, p)
	}
	m.mu.RUnlock()
	sort.Strings(paths)

	for _, p := range paths {
		v, _ := m.Goto(p)
		if err := fn(p, v); err != nil {
			return err
		}
	}
	return nil
}
