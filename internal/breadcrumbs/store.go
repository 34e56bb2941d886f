// This file implements the read-locked breadcrumb store that swaps whole scopes.
package breadcrumbs

import (
	"sort"
	"sync"
)

// Store maps scope IDs to their latest materialized Scope. Each scope is
// replaced as a whole under the write lock, so readers observe either the
// old or the new scope.
type Store[E any] struct {
	mu     sync.RWMutex
	scopes map[string]*Scope[E]
}

// NewStore returns an empty Store.
func NewStore[E any]() *Store[E] {
	return &Store[E]{scopes: make(map[string]*Scope[E])}
}

// Replace publishes scope under its ID and returns the scope it replaced,
// or nil.
func (s *Store[E]) Replace(scope *Scope[E]) *Scope[E] {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.scopes[scope.id]
	s.scopes[scope.id] = scope
	return prev
}

// Scope returns the published scope for id.
func (s *Store[E]) Scope(id string) (*Scope[E], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scopes[id]
	return scope, ok
}

// ScopeIDs returns the IDs of all published scopes, sorted.
func (s *Store[E]) ScopeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.scopes))
	for id := range s.scopes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
