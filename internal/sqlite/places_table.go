// This file implements the places table accessor for the SQLite backend.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

var _ types.Table = (*placesTable)(nil)

type placesTable struct {
	backend *Backend
}

const placeColumns = "place_id, festival_id, parent_id, parent_present, name, description, latitude, longitude, created_at, updated_at"

var placeTree = hierarchy{table: "places", idCol: "place_id"}

// Get retrieves a place by ID.
func (pt *placesTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	db, err := pt.backend.conn()
	if err != nil {
		return nil, err
	}
	p, err := hydratePlace(db.QueryRow("SELECT "+placeColumns+" FROM places WHERE place_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting place %s", id)
	}
	return p, nil
}

// Set creates or updates a place. The festival must exist and a non-nil
// parent must be a place of the same festival that is not a descendant
// of this one. A place with children cannot move to another festival.
func (pt *placesTable) Set(id string, data any) (string, error) {
	p, ok := data.(*types.Place)
	if !ok || p == nil {
		return "", types.ErrInvalidData
	}
	if id != "" {
		p.PlaceID = id
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	pt.backend.writeMu.Lock()
	defer pt.backend.writeMu.Unlock()
	db, err := pt.backend.conn()
	if err != nil {
		return "", err
	}

	if ok, err := festivalExists(db, p.FestivalID); err != nil {
		return "", err
	} else if !ok {
		return "", errors.Wrapf(types.ErrInvalidFestival, "festival %s does not exist", p.FestivalID)
	}

	var existing *types.Place
	if id == "" {
		if id, err = generateUUID(); err != nil {
			return "", err
		}
	} else {
		prev, err := hydratePlace(db.QueryRow("SELECT "+placeColumns+" FROM places WHERE place_id = ?", id))
		switch {
		case err == nil:
			existing = prev
		case !errors.Is(err, sql.ErrNoRows):
			return "", errors.Wrapf(err, "loading place %s", id)
		}
	}

	if err := placeTree.checkParent(db, p.FestivalID, id, p.ParentID); err != nil {
		return "", err
	}
	if existing != nil && existing.FestivalID != p.FestivalID {
		has, err := placeTree.hasChildren(db, id)
		if err != nil {
			return "", err
		}
		if has {
			return "", errors.Wrapf(types.ErrHasChildren, "place %s cannot change festival", id)
		}
	}

	now := time.Now().UTC()
	p.PlaceID = id
	p.UpdatedAt = now
	p.CreatedAt = now
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
	}
	p.ParentMissing = false

	_, err = db.Exec(
		"INSERT OR REPLACE INTO places ("+placeColumns+") VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?)",
		id, p.FestivalID, nullString(p.ParentID), p.Name, p.Description,
		nullFloat(p.Latitude), nullFloat(p.Longitude), formatTime(p.CreatedAt), formatTime(now),
	)
	if err != nil {
		return "", errors.Wrap(err, "persisting place")
	}

	if err := pt.persistJSONL(db); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a leaf place.
func (pt *placesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	pt.backend.writeMu.Lock()
	defer pt.backend.writeMu.Unlock()
	db, err := pt.backend.conn()
	if err != nil {
		return err
	}

	ok, err := placeTree.exists(db, id)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	has, err := placeTree.hasChildren(db, id)
	if err != nil {
		return err
	}
	if has {
		return errors.Wrapf(types.ErrHasChildren, "place %s", id)
	}

	if _, err := db.Exec("DELETE FROM places WHERE place_id = ?", id); err != nil {
		return errors.Wrap(err, "deleting place")
	}
	return pt.persistJSONL(db)
}

// Fetch queries places ordered by name. Supported filters: festival_id,
// parent_id ("" for roots), name, limit, offset.
func (pt *placesTable) Fetch(filter types.Filter) ([]any, error) {
	query, args, err := selectQuery(
		"SELECT "+placeColumns+" FROM places",
		filter,
		[]string{"festival_id", "parent_id", "name"},
		"name ASC, place_id ASC",
	)
	if err != nil {
		return nil, err
	}
	db, err := pt.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "fetching places")
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		p, err := hydratePlace(rows)
		if err != nil {
			return nil, errors.Wrap(err, "hydrating place")
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating places")
	}
	return results, nil
}

func (pt *placesTable) persistJSONL(db *sql.DB) error {
	rows, err := db.Query("SELECT " + placeColumns + " FROM places ORDER BY festival_id, name, place_id")
	if err != nil {
		return errors.Wrap(err, "querying places for JSONL")
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		p, err := hydratePlace(rows)
		if err != nil {
			return errors.Wrap(err, "scanning place for JSONL")
		}
		rec, err := marshalRecord(placeRecord(p), p.ParentMissing)
		if err != nil {
			return errors.Wrap(err, "marshaling place for JSONL")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating places for JSONL")
	}
	return writeJSONL(filepath.Join(pt.backend.config.DataDir, placesJSONL), records)
}

func hydratePlace(row scanner) (*types.Place, error) {
	var (
		p                  types.Place
		parentID           sql.NullString
		parentPresent      int
		lat, lng           sql.NullFloat64
		createdAt, updated string
	)
	err := row.Scan(&p.PlaceID, &p.FestivalID, &parentID, &parentPresent, &p.Name, &p.Description, &lat, &lng, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	p.ParentID = stringPtr(parentID)
	p.ParentMissing = parentPresent == 0
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lng)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}
