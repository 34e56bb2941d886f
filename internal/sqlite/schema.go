// This file defines the SQLite schema for the festival directory.
package sqlite

import (
	"database/sql"

	"github.com/cockroachdb/errors"
)

// Schema DDL. parent_present is 0 for records loaded from a JSONL line that
// had no parent_id field at all; such records are kept so the breadcrumb
// engine can report them.
const (
	createFestivals = `CREATE TABLE festivals (
    festival_id TEXT PRIMARY KEY NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    starts_at TEXT,
    ends_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createCategories = `CREATE TABLE categories (
    category_id TEXT PRIMARY KEY NOT NULL,
    festival_id TEXT NOT NULL,
    parent_id TEXT,
    parent_present INTEGER NOT NULL DEFAULT 1,
    name TEXT NOT NULL,
    ordinal INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createPlaces = `CREATE TABLE places (
    place_id TEXT PRIMARY KEY NOT NULL,
    festival_id TEXT NOT NULL,
    parent_id TEXT,
    parent_present INTEGER NOT NULL DEFAULT 1,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    latitude REAL,
    longitude REAL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

const (
	idxFestivalsCreated   = `CREATE INDEX idx_festivals_created ON festivals(created_at);`
	idxCategoriesFestival = `CREATE INDEX idx_categories_festival ON categories(festival_id, ordinal, name);`
	idxCategoriesParent   = `CREATE INDEX idx_categories_parent ON categories(parent_id);`
	idxPlacesFestival     = `CREATE INDEX idx_places_festival ON places(festival_id, name);`
	idxPlacesParent       = `CREATE INDEX idx_places_parent ON places(parent_id);`
)

var schemaDDL = []string{
	createFestivals,
	createCategories,
	createPlaces,
}

var indexDDL = []string{
	idxFestivalsCreated,
	idxCategoriesFestival,
	idxCategoriesParent,
	idxPlacesFestival,
	idxPlacesParent,
}

func createSchema(db *sql.DB) error {
	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "executing %q", stmt)
		}
	}
	return nil
}
