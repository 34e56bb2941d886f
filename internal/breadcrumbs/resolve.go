// This file implements iterative, cycle-safe ancestor resolution.
package breadcrumbs

import "go.uber.org/zap"

// ResolveAncestors walks parent references from index[startID] towards the
// root and returns the ancestors nearest first, excluding the start node.
//
// The walk stops without error when a parent ID is absent from the index.
// It stops with a warning when startID is unknown, when a node has no parent
// field, or when a node is reached twice.
func ResolveAncestors[E any](index map[string]Node[E], startID string, log *zap.SugaredLogger) []Node[E] {
	log = orNop(log)
	parents := []Node[E]{}

	node, ok := index[startID]
	if !ok {
		log.Warnw("Ancestor walk started at unknown entity", "entity_id", startID)
		return parents
	}

	visited := map[string]struct{}{startID: {}}
	for {
		if node.ParentMissing {
			log.Warnw("Entity has no parent field, truncating ancestor walk",
				"entity_id", node.ID,
				"start_id", startID)
			return parents
		}
		if node.ParentID == nil {
			return parents
		}
		parentID := *node.ParentID
		parent, ok := index[parentID]
		if !ok {
			return parents
		}
		if _, seen := visited[parentID]; seen {
			log.Warnw("Parent cycle detected, truncating ancestor walk",
				"entity_id", node.ID,
				"start_id", startID,
				"cycle_at", parentID)
			return parents
		}
		visited[parentID] = struct{}{}
		parents = append(parents, parent)
		node = parent
	}
}

func orNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
