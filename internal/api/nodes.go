// This file implements the category and place routes of the HTTP API.
package api

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
	"github.com/mesh-intelligence/festivals/internal/directory"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// node is a hierarchical entity the API can create inside a festival.
type node interface {
	types.Hierarchical
	SetFestival(festivalID string)
}

// nodeRoutes serves one hierarchical kind. Reads are answered from the
// breadcrumb engine; writes go to the table and then rematerialize the
// festivals they touched.
type nodeRoutes[E node] struct {
	h         *Handler
	table     string
	engine    *breadcrumbs.Engine[E]
	newEntity func() E
}

func (n *nodeRoutes[E]) register(mux *http.ServeMux, base string) {
	item := base + "/{id}"
	mux.HandleFunc("GET "+base, n.list)
	mux.HandleFunc("POST "+base, n.create)
	mux.HandleFunc("GET "+item, n.get)
	mux.HandleFunc("PUT "+item, n.update)
	mux.HandleFunc("DELETE "+item, n.remove)
	mux.HandleFunc("GET "+item+"/breadcrumbs", n.trail)
}

// list returns the festival's entities in table order. Query parameters
// parent_id, name, limit and offset narrow the result; parent_id= selects
// roots.
func (n *nodeRoutes[E]) list(w http.ResponseWriter, r *http.Request) {
	festivalID := r.PathValue("festivalID")
	if !n.festivalExists(w, festivalID) {
		return
	}
	filter, err := listFilter(r, "parent_id", "name")
	if err != nil {
		n.h.fail(w, err)
		return
	}
	filter["festival_id"] = festivalID
	t, ok := n.h.table(w, n.table)
	if !ok {
		return
	}
	entities, err := t.Fetch(filter)
	if err != nil {
		n.h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

// get returns the entity with its parents and children. An entity the
// engine has not materialized yet is returned bare.
func (n *nodeRoutes[E]) get(w http.ResponseWriter, r *http.Request) {
	festivalID := r.PathValue("festivalID")
	e, ok := n.load(w, festivalID, r.PathValue("id"))
	if !ok {
		return
	}
	if rec, found := n.engine.Get(festivalID, e.EntityID()); found {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	writeJSON(w, http.StatusOK, directory.BareRecord(e))
}

// trail returns the materialized record only; 404 when the festival
// has not been materialized or the entity is not part of it.
func (n *nodeRoutes[E]) trail(w http.ResponseWriter, r *http.Request) {
	rec, found := n.engine.Get(r.PathValue("festivalID"), r.PathValue("id"))
	if !found {
		writeError(w, http.StatusNotFound, "breadcrumbs not materialized", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (n *nodeRoutes[E]) create(w http.ResponseWriter, r *http.Request) {
	festivalID := r.PathValue("festivalID")
	e := n.newEntity()
	if err := decodeBody(w, r, e); err != nil {
		n.h.fail(w, err)
		return
	}
	if e.Festival() != "" && e.Festival() != festivalID {
		n.h.fail(w, errors.Wrap(types.ErrInvalidFestival, "body festival_id does not match path"))
		return
	}
	e.SetFestival(festivalID)
	n.save(w, r, "", e, http.StatusCreated, festivalID)
}

// update replaces an entity. A festival_id in the body that differs from
// the path moves the entity; both festivals are rematerialized.
func (n *nodeRoutes[E]) update(w http.ResponseWriter, r *http.Request) {
	festivalID := r.PathValue("festivalID")
	id := r.PathValue("id")
	if _, ok := n.load(w, festivalID, id); !ok {
		return
	}
	e := n.newEntity()
	if err := decodeBody(w, r, e); err != nil {
		n.h.fail(w, err)
		return
	}
	if e.EntityID() != "" && e.EntityID() != id {
		n.h.fail(w, errors.Wrap(types.ErrInvalidID, "body ID does not match path"))
		return
	}
	if e.Festival() == "" {
		e.SetFestival(festivalID)
	}
	n.save(w, r, id, e, http.StatusOK, festivalID)
}

func (n *nodeRoutes[E]) remove(w http.ResponseWriter, r *http.Request) {
	festivalID := r.PathValue("festivalID")
	id := r.PathValue("id")
	if _, ok := n.load(w, festivalID, id); !ok {
		return
	}
	t, ok := n.h.table(w, n.table)
	if !ok {
		return
	}
	if err := t.Delete(id); err != nil {
		n.h.fail(w, err)
		return
	}
	n.h.svc.AfterWrite(r.Context(), n.table, festivalID)
	w.WriteHeader(http.StatusNoContent)
}

func (n *nodeRoutes[E]) save(w http.ResponseWriter, r *http.Request, id string, e E, status int, previousFestival string) {
	t, ok := n.h.table(w, n.table)
	if !ok {
		return
	}
	id, err := t.Set(id, e)
	if err != nil {
		n.h.fail(w, err)
		return
	}
	saved, err := t.Get(id)
	if err != nil {
		n.h.fail(w, err)
		return
	}
	entity, ok := saved.(E)
	if !ok {
		n.h.fail(w, errors.Wrapf(types.ErrInvalidData, "unexpected entity type %T", saved))
		return
	}

	ctx := r.Context()
	n.h.svc.AfterWrite(ctx, n.table, entity.Festival())
	if previousFestival != entity.Festival() {
		n.h.svc.AfterWrite(ctx, n.table, previousFestival)
	}

	if rec, found := n.engine.Get(entity.Festival(), id); found {
		writeJSON(w, status, rec)
		return
	}
	writeJSON(w, status, directory.BareRecord(entity))
}

// load reads an entity and checks it belongs to festivalID. An entity of
// another festival is reported as not found.
func (n *nodeRoutes[E]) load(w http.ResponseWriter, festivalID, id string) (E, bool) {
	var zero E
	t, ok := n.h.table(w, n.table)
	if !ok {
		return zero, false
	}
	got, err := t.Get(id)
	if err != nil {
		n.h.fail(w, err)
		return zero, false
	}
	e, ok := got.(E)
	if !ok {
		n.h.fail(w, errors.Wrapf(types.ErrInvalidData, "unexpected entity type %T", got))
		return zero, false
	}
	if e.Festival() != festivalID {
		n.h.fail(w, errors.Wrapf(types.ErrNotFound, "%s %s is not in festival %s", n.table, id, festivalID))
		return zero, false
	}
	return e, true
}

func (n *nodeRoutes[E]) festivalExists(w http.ResponseWriter, festivalID string) bool {
	t, ok := n.h.table(w, types.TableFestivals)
	if !ok {
		return false
	}
	if _, err := t.Get(festivalID); err != nil {
		n.h.fail(w, err)
		return false
	}
	return true
}
