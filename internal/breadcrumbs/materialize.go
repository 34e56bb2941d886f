// This file implements the scope materializer: one record per entity with its ancestors and children.
package breadcrumbs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// Scope is the materialized, read-only view of one scope. A Scope is never
// modified after Materialize returns it.
type Scope[E any] struct {
	id             string
	order          []string
	records        map[string]Record[E]
	digest         string
	materializedAt time.Time
}

// ID returns the scope ID.
func (s *Scope[E]) ID() string { return s.id }

// Len returns the number of distinct entities in the scope.
func (s *Scope[E]) Len() int { return len(s.order) }

// Digest is a content hash over all records of the scope. Two
// materializations of unchanged data yield the same digest.
func (s *Scope[E]) Digest() string { return s.digest }

// MaterializedAt returns when the scope was built.
func (s *Scope[E]) MaterializedAt() time.Time { return s.materializedAt }

// Get returns the record for id.
func (s *Scope[E]) Get(id string) (Record[E], bool) {
	rec, ok := s.records[id]
	if !ok {
		return Record[E]{}, false
	}
	return rec.clone(), true
}

// Records returns every record in source order.
func (s *Scope[E]) Records() []Record[E] {
	out := make([]Record[E], 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].clone())
	}
	return out
}

// Materialize fetches the entities of scopeID and derives one record per
// entity. A fetch error is returned wrapped, without retry.
func Materialize[E any](ctx context.Context, scopeID string, source EntitySource[E], log *zap.SugaredLogger) (*Scope[E], error) {
	nodes, err := source.ListEntities(ctx, scopeID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing entities of scope %s", scopeID)
	}
	return BuildScope(scopeID, nodes, log), nil
}

// BuildScope derives the records of one scope from its flat node list.
//
// Duplicate IDs are tolerated: the last node with a given ID wins. Children
// are grouped by parent ID in a single pass and keep the source order.
func BuildScope[E any](scopeID string, nodes []Node[E], log *zap.SugaredLogger) *Scope[E] {
	log = orNop(log)

	index := make(map[string]Node[E], len(nodes))
	last := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			log.Debugw("Duplicate entity ID in scope, last one wins",
				"scope", scopeID,
				"entity_id", n.ID)
		}
		index[n.ID] = n
		last[n.ID] = i
	}

	children := make(map[string][]Node[E])
	for i, n := range nodes {
		if n.ParentID != nil && last[n.ID] == i {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}

	scope := &Scope[E]{
		id:             scopeID,
		order:          make([]string, 0, len(index)),
		records:        make(map[string]Record[E], len(index)),
		materializedAt: time.Now(),
	}
	placed := make(map[string]bool, len(index))
	for i, n := range nodes {
		if !placed[n.ID] {
			placed[n.ID] = true
			scope.order = append(scope.order, n.ID)
		}
		if last[n.ID] != i {
			continue
		}
		kids := children[n.ID]
		if kids == nil {
			kids = []Node[E]{}
		}
		scope.records[n.ID] = Record[E]{
			Node:     n,
			Parents:  ResolveAncestors(index, n.ID, log),
			Children: kids,
		}
	}

	digest, err := digestRecords(scope.Records())
	if err != nil {
		log.Debugw("Could not compute scope digest", "scope", scopeID, "error", err)
	}
	scope.digest = digest
	return scope
}

// digestRecords hashes the JSON form of the records with BLAKE3.
func digestRecords[E any](records []Record[E]) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", errors.Wrap(err, "encoding records for digest")
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
