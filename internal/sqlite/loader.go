// This file implements loading JSONL files into SQLite and reloading on change.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// tableMapping ties a JSONL file to its SQLite table. presence maps a flag
// column to the JSON field whose mere presence it records.
type tableMapping struct {
	file     string
	table    string
	columns  []string
	presence map[string]string
}

var jsonlTableMapping = []tableMapping{
	{
		file:    festivalsJSONL,
		table:   "festivals",
		columns: []string{"festival_id", "name", "description", "starts_at", "ends_at", "created_at", "updated_at"},
	},
	{
		file:     categoriesJSONL,
		table:    "categories",
		columns:  []string{"category_id", "festival_id", "parent_id", "parent_present", "name", "ordinal", "created_at", "updated_at"},
		presence: map[string]string{"parent_present": "parent_id"},
	},
	{
		file:     placesJSONL,
		table:    "places",
		columns:  []string{"place_id", "festival_id", "parent_id", "parent_present", "name", "description", "latitude", "longitude", "created_at", "updated_at"},
		presence: map[string]string{"parent_present": "parent_id"},
	},
}

// columnDefaults fill NOT NULL columns that an older or hand-written record may
// lack.
var columnDefaults = map[string]any{
	"description": "",
	"ordinal":     0,
	"created_at":  "",
	"updated_at":  "",
}

// loadAllJSONL replaces the contents of every table with the records of its
// JSONL file. Loading is transactional: on error the previous contents stay.
// Unknown fields are ignored; malformed lines and records that violate a
// constraint are skipped.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning load transaction")
	}
	defer tx.Rollback()

	for _, mapping := range jsonlTableMapping {
		if _, err := tx.Exec("DELETE FROM " + mapping.table); err != nil {
			return errors.Wrapf(err, "clearing %s", mapping.table)
		}
		records, err := readJSONL(filepath.Join(dataDir, mapping.file))
		if err != nil {
			return errors.Wrapf(err, "reading %s", mapping.file)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, mapping, records); err != nil {
			return errors.Wrapf(err, "loading %s into %s", mapping.file, mapping.table)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing load transaction")
	}
	return nil
}

// insertRecords upserts parsed JSONL records. A later line with the same
// primary key replaces an earlier one.
func insertRecords(tx *sql.Tx, mapping tableMapping, records []json.RawMessage) error {
	placeholders := make([]string, len(mapping.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		mapping.table,
		strings.Join(mapping.columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return errors.Wrapf(err, "preparing insert for %s", mapping.table)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(mapping.columns))
		for i, col := range mapping.columns {
			if field, ok := mapping.presence[col]; ok {
				_, present := obj[field]
				args[i] = boolInt(present)
				continue
			}
			val, ok := obj[col]
			if !ok || val == nil {
				args[i] = columnDefaults[col]
				continue
			}
			switch v := val.(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					args[i] = nil
					continue
				}
				args[i] = string(b)
			default:
				args[i] = val
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
