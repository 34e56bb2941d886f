// This file implements the categories table accessor for the SQLite backend.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

var _ types.Table = (*categoriesTable)(nil)

type categoriesTable struct {
	backend *Backend
}

const categoryColumns = "category_id, festival_id, parent_id, parent_present, name, ordinal, created_at, updated_at"

var categoryTree = hierarchy{table: "categories", idCol: "category_id"}

// Get retrieves a category by ID.
func (ct *categoriesTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	db, err := ct.backend.conn()
	if err != nil {
		return nil, err
	}
	c, err := hydrateCategory(db.QueryRow("SELECT "+categoryColumns+" FROM categories WHERE category_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting category %s", id)
	}
	return c, nil
}

// Set creates or updates a category. The festival must exist and a non-nil
// parent must be a category of the same festival that is not a descendant
// of this one. A category with children cannot move to another festival.
func (ct *categoriesTable) Set(id string, data any) (string, error) {
	c, ok := data.(*types.Category)
	if !ok || c == nil {
		return "", types.ErrInvalidData
	}
	if id != "" {
		c.CategoryID = id
	}
	if err := c.Validate(); err != nil {
		return "", err
	}

	ct.backend.writeMu.Lock()
	defer ct.backend.writeMu.Unlock()
	db, err := ct.backend.conn()
	if err != nil {
		return "", err
	}

	if ok, err := festivalExists(db, c.FestivalID); err != nil {
		return "", err
	} else if !ok {
		return "", errors.Wrapf(types.ErrInvalidFestival, "festival %s does not exist", c.FestivalID)
	}

	var existing *types.Category
	if id == "" {
		if id, err = generateUUID(); err != nil {
			return "", err
		}
	} else {
		prev, err := hydrateCategory(db.QueryRow("SELECT "+categoryColumns+" FROM categories WHERE category_id = ?", id))
		switch {
		case err == nil:
			existing = prev
		case !errors.Is(err, sql.ErrNoRows):
			return "", errors.Wrapf(err, "loading category %s", id)
		}
	}

	if err := categoryTree.checkParent(db, c.FestivalID, id, c.ParentID); err != nil {
		return "", err
	}
	if existing != nil && existing.FestivalID != c.FestivalID {
		has, err := categoryTree.hasChildren(db, id)
		if err != nil {
			return "", err
		}
		if has {
			return "", errors.Wrapf(types.ErrHasChildren, "category %s cannot change festival", id)
		}
	}

	now := time.Now().UTC()
	c.CategoryID = id
	c.UpdatedAt = now
	c.CreatedAt = now
	if existing != nil {
		c.CreatedAt = existing.CreatedAt
	}
	c.ParentMissing = false

	_, err = db.Exec(
		"INSERT OR REPLACE INTO categories ("+categoryColumns+") VALUES (?, ?, ?, 1, ?, ?, ?, ?)",
		id, c.FestivalID, nullString(c.ParentID), c.Name, c.Ordinal, formatTime(c.CreatedAt), formatTime(now),
	)
	if err != nil {
		return "", errors.Wrap(err, "persisting category")
	}

	if err := ct.persistJSONL(db); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a leaf category.
func (ct *categoriesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	ct.backend.writeMu.Lock()
	defer ct.backend.writeMu.Unlock()
	db, err := ct.backend.conn()
	if err != nil {
		return err
	}

	ok, err := categoryTree.exists(db, id)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	has, err := categoryTree.hasChildren(db, id)
	if err != nil {
		return err
	}
	if has {
		return errors.Wrapf(types.ErrHasChildren, "category %s", id)
	}

	if _, err := db.Exec("DELETE FROM categories WHERE category_id = ?", id); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ct.persistJSONL(db)
}

// Fetch queries categories ordered by ordinal, then name. Supported
// filters: festival_id, parent_id ("" for roots), name, limit, offset.
func (ct *categoriesTable) Fetch(filter types.Filter) ([]any, error) {
	query, args, err := selectQuery(
		"SELECT "+categoryColumns+" FROM categories",
		filter,
		[]string{"festival_id", "parent_id", "name"},
		"ordinal ASC, name ASC, category_id ASC",
	)
	if err != nil {
		return nil, err
	}
	db, err := ct.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "fetching categories")
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		c, err := hydrateCategory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "hydrating category")
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating categories")
	}
	return results, nil
}

func (ct *categoriesTable) persistJSONL(db *sql.DB) error {
	rows, err := db.Query("SELECT " + categoryColumns + " FROM categories ORDER BY festival_id, ordinal, name, category_id")
	if err != nil {
		return errors.Wrap(err, "querying categories for JSONL")
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		c, err := hydrateCategory(rows)
		if err != nil {
			return errors.Wrap(err, "scanning category for JSONL")
		}
		rec, err := marshalRecord(categoryRecord(c), c.ParentMissing)
		if err != nil {
			return errors.Wrap(err, "marshaling category for JSONL")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating categories for JSONL")
	}
	return writeJSONL(filepath.Join(ct.backend.config.DataDir, categoriesJSONL), records)
}

func hydrateCategory(row scanner) (*types.Category, error) {
	var (
		c                  types.Category
		parentID           sql.NullString
		parentPresent      int
		createdAt, updated string
	)
	err := row.Scan(&c.CategoryID, &c.FestivalID, &parentID, &parentPresent, &c.Name, &c.Ordinal, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	c.ParentID = stringPtr(parentID)
	c.ParentMissing = parentPresent == 0
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &c, nil
}
