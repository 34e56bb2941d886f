// Package directory binds the breadcrumb engine to the festival tables and
// decides when rebuilds run.
package directory

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// FestivalScopes lists festival IDs from the festivals table. Festivals are
// the scopes both engines partition by.
func FestivalScopes(table types.Table) breadcrumbs.ScopeSource {
	return breadcrumbs.ScopeSourceFunc(func(ctx context.Context, limit int) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entities, err := table.Fetch(types.Filter{"limit": limit})
		if err != nil {
			return nil, errors.Wrap(err, "fetching festivals")
		}
		ids := make([]string, 0, len(entities))
		for _, entity := range entities {
			f, ok := entity.(*types.Festival)
			if !ok {
				return nil, errors.Wrapf(types.ErrInvalidData, "festivals table returned %T", entity)
			}
			ids = append(ids, f.FestivalID)
		}
		return ids, nil
	})
}

// HierarchySource reads the entities of one festival from table, in the
// table's natural order, and wraps them as engine nodes.
func HierarchySource[E types.Hierarchical](table types.Table) breadcrumbs.EntitySource[E] {
	return breadcrumbs.EntitySourceFunc[E](func(ctx context.Context, festivalID string) ([]breadcrumbs.Node[E], error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entities, err := table.Fetch(types.Filter{"festival_id": festivalID})
		if err != nil {
			return nil, errors.Wrapf(err, "fetching entities of festival %s", festivalID)
		}
		nodes := make([]breadcrumbs.Node[E], 0, len(entities))
		for _, entity := range entities {
			e, ok := entity.(E)
			if !ok {
				return nil, errors.Wrapf(types.ErrInvalidData, "unexpected entity type %T", entity)
			}
			nodes = append(nodes, NodeOf(e))
		}
		return nodes, nil
	})
}

// CategorySource reads the categories of one festival.
func CategorySource(table types.Table) breadcrumbs.EntitySource[*types.Category] {
	return HierarchySource[*types.Category](table)
}

// PlaceSource reads the places of one festival.
func PlaceSource(table types.Table) breadcrumbs.EntitySource[*types.Place] {
	return HierarchySource[*types.Place](table)
}

// NodeOf wraps a hierarchical entity for the engine.
func NodeOf[E types.Hierarchical](e E) breadcrumbs.Node[E] {
	n := breadcrumbs.Node[E]{
		ID:            e.EntityID(),
		ParentMissing: e.ParentFieldMissing(),
		Entity:        e,
	}
	if p := e.Parent(); p != nil {
		id := *p
		n.ParentID = &id
	}
	return n
}

// BareRecord is the record shape for an entity the engine has not
// materialized yet: no parents, no children.
func BareRecord[E types.Hierarchical](e E) breadcrumbs.Record[E] {
	return breadcrumbs.Record[E]{
		Node:     NodeOf(e),
		Parents:  []breadcrumbs.Node[E]{},
		Children: []breadcrumbs.Node[E]{},
	}
}
