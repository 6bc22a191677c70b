package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AdapterRegistry maps an aggregator key to its adapter entry. It is built
// during startup wiring and read-only afterwards; which implementation gets
// registered for a key (live or stub) is a configuration-time choice.
type AdapterRegistry struct {
	mu      sync.RWMutex
	entries map[string]AdapterEntry
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{entries: make(map[string]AdapterEntry)}
}

func (r *AdapterRegistry) Register(entry AdapterEntry) error {
	if entry.Adapter == nil {
		return fmt.Errorf("core: adapter is nil")
	}
	id := strings.TrimSpace(entry.Adapter.ID())
	if id == "" {
		return fmt.Errorf("core: aggregator key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("core: aggregator already registered: %s", id)
	}
	r.entries[id] = entry
	return nil
}

func (r *AdapterRegistry) Get(aggregator string) (AdapterEntry, bool) {
	id := strings.TrimSpace(aggregator)
	if id == "" {
		return AdapterEntry{}, false
	}
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	return entry, ok
}

func (r *AdapterRegistry) List() []AdapterEntry {
	r.mu.RLock()
	keys := make([]string, 0, len(r.entries))
	for id := range r.entries {
		keys = append(keys, id)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	entries := make([]AdapterEntry, 0, len(keys))
	r.mu.RLock()
	for _, id := range keys {
		entries = append(entries, r.entries[id])
	}
	r.mu.RUnlock()
	return entries
}
