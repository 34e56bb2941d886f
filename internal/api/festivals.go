// This file implements the festival routes of the HTTP API.
package api

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

// ListFestivals returns festivals in creation order. Query parameters name,
// limit and offset narrow the result.
func (h *Handler) ListFestivals(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r, "name")
	if err != nil {
		h.fail(w, err)
		return
	}
	t, ok := h.table(w, types.TableFestivals)
	if !ok {
		return
	}
	entities, err := t.Fetch(filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

// GetFestival returns one festival.
func (h *Handler) GetFestival(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, types.TableFestivals)
	if !ok {
		return
	}
	f, err := t.Get(r.PathValue("festivalID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// CreateFestival stores a new festival under a generated ID.
func (h *Handler) CreateFestival(w http.ResponseWriter, r *http.Request) {
	var f types.Festival
	if err := decodeBody(w, r, &f); err != nil {
		h.fail(w, err)
		return
	}
	h.saveFestival(w, "", &f, http.StatusCreated)
}

// UpdateFestival replaces an existing festival.
func (h *Handler) UpdateFestival(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("festivalID")
	t, ok := h.table(w, types.TableFestivals)
	if !ok {
		return
	}
	if _, err := t.Get(id); err != nil {
		h.fail(w, err)
		return
	}
	var f types.Festival
	if err := decodeBody(w, r, &f); err != nil {
		h.fail(w, err)
		return
	}
	if f.FestivalID != "" && f.FestivalID != id {
		h.fail(w, errors.Wrap(types.ErrInvalidID, "body festival_id does not match path"))
		return
	}
	h.saveFestival(w, id, &f, http.StatusOK)
}

// DeleteFestival removes a festival that owns no categories or places.
func (h *Handler) DeleteFestival(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, types.TableFestivals)
	if !ok {
		return
	}
	if err := t.Delete(r.PathValue("festivalID")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saveFestival(w http.ResponseWriter, id string, f *types.Festival, status int) {
	t, ok := h.table(w, types.TableFestivals)
	if !ok {
		return
	}
	id, err := t.Set(id, f)
	if err != nil {
		h.fail(w, err)
		return
	}
	saved, err := t.Get(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, status, saved)
}
