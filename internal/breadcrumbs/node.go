// This file defines the Node input and the materialized Record.
package breadcrumbs

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Node is one entity of a scope as the engine sees it. Entity is opaque to
// the engine and is never modified.
type Node[E any] struct {
	ID string

	// ParentID is nil for a root.
	ParentID *string

	// ParentMissing marks a source record that had no parent field at all.
	// The ancestor walk stops at such a node with a warning.
	ParentMissing bool

	Entity E
}

// MarshalJSON renders the wrapped entity.
func (n Node[E]) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Entity)
}

// Record is a Node enriched with its ancestor chain and its direct children.
// Parents runs nearest first and ends at the root; it is empty for a root.
// Children holds direct children only, in source order; it is empty for a
// leaf.
type Record[E any] struct {
	Node[E]
	Parents  []Node[E]
	Children []Node[E]
}

// IsRoot reports whether the record has no ancestors.
func (r Record[E]) IsRoot() bool { return len(r.Parents) == 0 }

// IsLeaf reports whether the record has no children.
func (r Record[E]) IsLeaf() bool { return len(r.Children) == 0 }

// clone copies the slices so callers cannot reach into a published scope.
func (r Record[E]) clone() Record[E] {
	out := r
	out.Parents = append(make([]Node[E], 0, len(r.Parents)), r.Parents...)
	out.Children = append(make([]Node[E], 0, len(r.Children)), r.Children...)
	return out
}

// MarshalJSON merges the entity's own fields with "parents" and "children".
// Entities that do not encode to a JSON object are nested under "entity".
func (r Record[E]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Entity)
	if err != nil {
		return nil, errors.Wrapf(err, "marshaling entity %s", r.ID)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		fields = map[string]any{
			"id":     r.ID,
			"entity": json.RawMessage(raw),
		}
	}
	fields["parents"] = r.Parents
	fields["children"] = r.Children
	return json.Marshal(fields)
}
