// This file implements the festivals table accessor for the SQLite backend.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

var _ types.Table = (*festivalsTable)(nil)

type festivalsTable struct {
	backend *Backend
}

const festivalColumns = "festival_id, name, description, starts_at, ends_at, created_at, updated_at"

// Get retrieves a festival by ID.
func (ft *festivalsTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	db, err := ft.backend.conn()
	if err != nil {
		return nil, err
	}
	f, err := hydrateFestival(db.QueryRow("SELECT "+festivalColumns+" FROM festivals WHERE festival_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting festival %s", id)
	}
	return f, nil
}

// Set creates the festival when id is empty or unknown and updates it
// otherwise. CreatedAt survives updates.
func (ft *festivalsTable) Set(id string, data any) (string, error) {
	f, ok := data.(*types.Festival)
	if !ok || f == nil {
		return "", types.ErrInvalidData
	}
	if err := f.Validate(); err != nil {
		return "", err
	}

	ft.backend.writeMu.Lock()
	defer ft.backend.writeMu.Unlock()
	db, err := ft.backend.conn()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	var existing *types.Festival
	if id != "" {
		prev, err := hydrateFestival(db.QueryRow("SELECT "+festivalColumns+" FROM festivals WHERE festival_id = ?", id))
		switch {
		case err == nil:
			existing = prev
		case !errors.Is(err, sql.ErrNoRows):
			return "", errors.Wrapf(err, "loading festival %s", id)
		}
	} else {
		if id, err = generateUUID(); err != nil {
			return "", err
		}
	}

	f.FestivalID = id
	f.UpdatedAt = now
	if existing != nil {
		f.CreatedAt = existing.CreatedAt
		_, err = db.Exec(
			"UPDATE festivals SET name = ?, description = ?, starts_at = ?, ends_at = ?, updated_at = ? WHERE festival_id = ?",
			f.Name, f.Description, nullString(formatTimePtr(f.StartsAt)), nullString(formatTimePtr(f.EndsAt)), formatTime(now), id,
		)
	} else {
		f.CreatedAt = now
		_, err = db.Exec(
			"INSERT INTO festivals ("+festivalColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, f.Name, f.Description, nullString(formatTimePtr(f.StartsAt)), nullString(formatTimePtr(f.EndsAt)),
			formatTime(now), formatTime(now),
		)
	}
	if err != nil {
		return "", errors.Wrap(err, "persisting festival")
	}

	if err := ft.persistJSONL(db); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a festival. A festival that still owns categories or
// places cannot be deleted.
func (ft *festivalsTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	ft.backend.writeMu.Lock()
	defer ft.backend.writeMu.Unlock()
	db, err := ft.backend.conn()
	if err != nil {
		return err
	}

	ok, err := festivalExists(db, id)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}

	var owned int
	err = db.QueryRow(
		"SELECT (SELECT COUNT(*) FROM categories WHERE festival_id = ?) + (SELECT COUNT(*) FROM places WHERE festival_id = ?)",
		id, id,
	).Scan(&owned)
	if err != nil {
		return errors.Wrap(err, "counting festival entities")
	}
	if owned > 0 {
		return errors.Wrapf(types.ErrHasChildren, "festival %s owns %d categories and places", id, owned)
	}

	if _, err := db.Exec("DELETE FROM festivals WHERE festival_id = ?", id); err != nil {
		return errors.Wrap(err, "deleting festival")
	}
	return ft.persistJSONL(db)
}

// Fetch lists festivals ordered by creation time. Supported filters: name,
// limit, offset.
func (ft *festivalsTable) Fetch(filter types.Filter) ([]any, error) {
	query, args, err := selectQuery(
		"SELECT "+festivalColumns+" FROM festivals",
		filter,
		[]string{"name"},
		"created_at ASC, festival_id ASC",
	)
	if err != nil {
		return nil, err
	}
	db, err := ft.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "fetching festivals")
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		f, err := hydrateFestival(rows)
		if err != nil {
			return nil, errors.Wrap(err, "hydrating festival")
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating festivals")
	}
	return results, nil
}

func (ft *festivalsTable) persistJSONL(db *sql.DB) error {
	rows, err := db.Query("SELECT " + festivalColumns + " FROM festivals ORDER BY created_at, festival_id")
	if err != nil {
		return errors.Wrap(err, "querying festivals for JSONL")
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		f, err := hydrateFestival(rows)
		if err != nil {
			return errors.Wrap(err, "scanning festival for JSONL")
		}
		rec, err := marshalRecord(festivalRecord(f), false)
		if err != nil {
			return errors.Wrap(err, "marshaling festival for JSONL")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating festivals for JSONL")
	}
	return writeJSONL(filepath.Join(ft.backend.config.DataDir, festivalsJSONL), records)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateFestival(row scanner) (*types.Festival, error) {
	var (
		f                  types.Festival
		startsAt, endsAt   sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&f.FestivalID, &f.Name, &f.Description, &startsAt, &endsAt, &createdAt, &updated); err != nil {
		return nil, err
	}
	var err error
	if f.StartsAt, err = parseTimePtr(startsAt); err != nil {
		return nil, err
	}
	if f.EndsAt, err = parseTimePtr(endsAt); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &f, nil
}
