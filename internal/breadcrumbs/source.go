// This file defines the scope and entity sources the engine reads from.
package breadcrumbs

import "context"

// ScopeSource lists the scope IDs a rebuild walks, in the order they are
// processed. limit bounds the page size; callers pass a large value to mean
// "all scopes".
type ScopeSource interface {
	ListScopes(ctx context.Context, limit int) ([]string, error)
}

// EntitySource returns the flat entity list of one scope.
type EntitySource[E any] interface {
	ListEntities(ctx context.Context, scopeID string) ([]Node[E], error)
}

// ScopeSourceFunc adapts a function to ScopeSource.
type ScopeSourceFunc func(ctx context.Context, limit int) ([]string, error)

func (f ScopeSourceFunc) ListScopes(ctx context.Context, limit int) ([]string, error) {
	return f(ctx, limit)
}

// EntitySourceFunc adapts a function to EntitySource.
type EntitySourceFunc[E any] func(ctx context.Context, scopeID string) ([]Node[E], error)

func (f EntitySourceFunc[E]) ListEntities(ctx context.Context, scopeID string) ([]Node[E], error) {
	return f(ctx, scopeID)
}
