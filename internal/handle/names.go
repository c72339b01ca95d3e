package handle

import (
	"sort"
	"sync"
)

// Names maps string keys to handles. A key is bound at most once.
type Names struct {
	mu  sync.RWMutex
	ids map[string]ID
}

// NewNames creates an empty name map.
func NewNames() *Names {
	return &Names{ids: make(map[string]ID)}
}

// Lookup returns the id bound to name, or Null.
func (n *Names) Lookup(name string) ID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ids[name]
}

// Register binds name to id. If name is already bound the existing id is
// returned with false and the map is left untouched.
func (n *Names) Register(name string, id ID) (ID, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.ids[name]; ok {
		return existing, false
	}
	n.ids[name] = id
	return id, true
}

// Has reports whether name is bound.
func (n *Names) Has(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.ids[name]
	return ok
}

// Keys returns the bound names, sorted.
func (n *Names) Keys() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	keys := make([]string, 0, len(n.ids))
	for k := range n.ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of bound names.
func (n *Names) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.ids)
}
