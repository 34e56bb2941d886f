// This file implements the categories and places table accessors for the DynamoDB backend.
package dynamodb

import (
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

// node is a hierarchical entity the backend can validate.
type node interface {
	types.Hierarchical
	Validate() error
}

// nodeKind describes how one hierarchical table is stored.
type nodeKind[E node] struct {
	table   string
	idAttr  string
	decode  func(item) (E, error)
	stamp   func(e E, id string, created, updated time.Time)
	created func(E) time.Time
	name    func(E) string
	less    func(a, b E) bool
}

var categoryKind = nodeKind[*types.Category]{
	table:  types.TableCategories,
	idAttr: "category_id",
	decode: func(it item) (*types.Category, error) {
		var c types.Category
		if err := attributevalue.UnmarshalMap(it, &c); err != nil {
			return nil, errors.Wrap(err, "decoding category")
		}
		c.ParentMissing = !hasAttr(it, "parent_id")
		return &c, nil
	},
	stamp: func(c *types.Category, id string, created, updated time.Time) {
		c.CategoryID, c.CreatedAt, c.UpdatedAt, c.ParentMissing = id, created, updated, false
	},
	created: func(c *types.Category) time.Time { return c.CreatedAt },
	name:    func(c *types.Category) string { return c.Name },
	less: func(a, b *types.Category) bool {
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CategoryID < b.CategoryID
	},
}

var placeKind = nodeKind[*types.Place]{
	table:  types.TablePlaces,
	idAttr: "place_id",
	decode: func(it item) (*types.Place, error) {
		var p types.Place
		if err := attributevalue.UnmarshalMap(it, &p); err != nil {
			return nil, errors.Wrap(err, "decoding place")
		}
		p.ParentMissing = !hasAttr(it, "parent_id")
		return &p, nil
	},
	stamp: func(p *types.Place, id string, created, updated time.Time) {
		p.PlaceID, p.CreatedAt, p.UpdatedAt, p.ParentMissing = id, created, updated, false
	},
	created: func(p *types.Place) time.Time { return p.CreatedAt },
	name:    func(p *types.Place) string { return p.Name },
	less: func(a, b *types.Place) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PlaceID < b.PlaceID
	},
}

// nodeTable serves categories or places.
type nodeTable[E node] struct {
	backend *Backend
	kind    nodeKind[E]
}

func newNodeTable[E node](b *Backend, kind nodeKind[E]) *nodeTable[E] {
	return &nodeTable[E]{backend: b, kind: kind}
}

func (nt *nodeTable[E]) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	c, ctx, cancel, err := nt.backend.op()
	if err != nil {
		return nil, err
	}
	defer cancel()

	it, err := getItem(ctx, c, nt.backend.tableName(nt.kind.table), stringKey(nt.kind.idAttr, id))
	if err != nil {
		return nil, err
	}
	return nt.kind.decode(it)
}

// Set creates or updates an entity after the same checks the SQLite backend
// makes: the festival exists, the parent lives in the same festival and is
// not a descendant, and an entity with children keeps its festival.
func (nt *nodeTable[E]) Set(id string, data any) (string, error) {
	e, ok := data.(E)
	if !ok {
		return "", types.ErrInvalidData
	}
	if id == "" {
		id = e.EntityID()
	}
	now := time.Now().UTC()
	created := now
	// Stamp early so Validate sees the final id.
	nt.kind.stamp(e, id, created, now)
	if err := e.Validate(); err != nil {
		return "", err
	}

	nt.backend.writeMu.Lock()
	defer nt.backend.writeMu.Unlock()
	c, ctx, cancel, err := nt.backend.op()
	if err != nil {
		return "", err
	}
	defer cancel()
	table := nt.backend.tableName(nt.kind.table)

	festivalID := e.Festival()
	_, err = getItem(ctx, c, nt.backend.tableName(types.TableFestivals), stringKey("festival_id", festivalID))
	if errors.Is(err, types.ErrNotFound) {
		return "", errors.Wrapf(types.ErrInvalidFestival, "festival %s does not exist", festivalID)
	}
	if err != nil {
		return "", err
	}

	var existing E
	found := false
	if id == "" {
		uid, err := uuid.NewV7()
		if err != nil {
			return "", errors.Wrap(err, "generating UUID v7")
		}
		id = uid.String()
	} else {
		it, err := getItem(ctx, c, table, stringKey(nt.kind.idAttr, id))
		switch {
		case err == nil:
			if existing, err = nt.kind.decode(it); err != nil {
				return "", err
			}
			found = true
			created = nt.kind.created(existing)
		case !errors.Is(err, types.ErrNotFound):
			return "", err
		}
	}

	siblings, err := nt.festivalNodes(festivalID)
	if err != nil {
		return "", err
	}
	if err := checkParent(siblings, id, e.Parent()); err != nil {
		return "", err
	}
	if found && existing.Festival() != festivalID {
		old, err := nt.festivalNodes(existing.Festival())
		if err != nil {
			return "", err
		}
		if hasChild(old, id) {
			return "", errors.Wrapf(types.ErrHasChildren, "%s %s cannot change festival", nt.kind.table, id)
		}
	}

	nt.kind.stamp(e, id, created, now)
	if err := putItem(ctx, c, table, e); err != nil {
		return "", err
	}
	return id, nil
}

func (nt *nodeTable[E]) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	nt.backend.writeMu.Lock()
	defer nt.backend.writeMu.Unlock()
	c, ctx, cancel, err := nt.backend.op()
	if err != nil {
		return err
	}
	defer cancel()
	table := nt.backend.tableName(nt.kind.table)

	it, err := getItem(ctx, c, table, stringKey(nt.kind.idAttr, id))
	if err != nil {
		return err
	}
	e, err := nt.kind.decode(it)
	if err != nil {
		return err
	}
	siblings, err := nt.festivalNodes(e.Festival())
	if err != nil {
		return err
	}
	if hasChild(siblings, id) {
		return errors.Wrapf(types.ErrHasChildren, "%s %s", nt.kind.table, id)
	}
	return deleteItem(ctx, c, table, stringKey(nt.kind.idAttr, id))
}

// Fetch queries the by_festival index when festival_id is given and scans
// the table otherwise. Supported filters: festival_id, parent_id ("" for
// roots), name, limit, offset.
func (nt *nodeTable[E]) Fetch(filter types.Filter) ([]any, error) {
	festivalID, byFestival, err := filter.FilterString("festival_id")
	if err != nil {
		return nil, err
	}
	parentID, byParent, err := filter.FilterString("parent_id")
	if err != nil {
		return nil, err
	}
	name, byName, err := filter.FilterString("name")
	if err != nil {
		return nil, err
	}

	var nodes []E
	if byFestival {
		nodes, err = nt.festivalNodes(festivalID)
	} else {
		nodes, err = nt.allNodes()
	}
	if err != nil {
		return nil, err
	}

	kept := nodes[:0]
	for _, n := range nodes {
		if byName && nt.kind.name(n) != name {
			continue
		}
		if byParent {
			p := n.Parent()
			if (parentID == "" && p != nil) || (parentID != "" && (p == nil || *p != parentID)) {
				continue
			}
		}
		kept = append(kept, n)
	}
	sort.SliceStable(kept, func(i, j int) bool { return nt.kind.less(kept[i], kept[j]) })

	results := make([]any, len(kept))
	for i, n := range kept {
		results[i] = n
	}
	return paginate(results, filter)
}

func (nt *nodeTable[E]) festivalNodes(festivalID string) ([]E, error) {
	c, ctx, cancel, err := nt.backend.op()
	if err != nil {
		return nil, err
	}
	defer cancel()
	items, err := queryFestival(ctx, c, nt.backend.tableName(nt.kind.table), festivalID)
	if err != nil {
		return nil, err
	}
	return nt.decodeAll(items)
}

func (nt *nodeTable[E]) allNodes() ([]E, error) {
	c, ctx, cancel, err := nt.backend.op()
	if err != nil {
		return nil, err
	}
	defer cancel()
	items, err := scanTable(ctx, c, nt.backend.tableName(nt.kind.table))
	if err != nil {
		return nil, err
	}
	return nt.decodeAll(items)
}

func (nt *nodeTable[E]) decodeAll(items []item) ([]E, error) {
	nodes := make([]E, 0, len(items))
	for _, it := range items {
		n, err := nt.kind.decode(it)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// checkParent validates parentID against the entities of the target
// festival and rejects a parent that would close a loop through id.
func checkParent[E node](siblings []E, id string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return types.ErrInvalidParent
	}
	parents := make(map[string]*string, len(siblings))
	for _, s := range siblings {
		parents[s.EntityID()] = s.Parent()
	}
	if _, ok := parents[*parentID]; !ok {
		return errors.Wrapf(types.ErrParentNotFound, "%s", *parentID)
	}

	seen := map[string]bool{}
	cur := *parentID
	for !seen[cur] {
		seen[cur] = true
		next, ok := parents[cur]
		if !ok || next == nil {
			return nil
		}
		if *next == id {
			return errors.Wrapf(types.ErrInvalidParent, "%s would become its own ancestor", id)
		}
		cur = *next
	}
	return nil
}

func hasChild[E node](nodes []E, id string) bool {
	for _, n := range nodes {
		if p := n.Parent(); p != nil && *p == id {
			return true
		}
	}
	return false
}
