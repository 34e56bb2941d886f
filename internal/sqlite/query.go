// This file implements filtered selects and parent checks for the SQLite backend.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

// selectQuery builds a SELECT over base with WHERE conditions for the
// string filters in columns, then ORDER BY order and the limit/offset
// filters. An empty parent_id filter selects roots.
func selectQuery(base string, filter types.Filter, columns []string, order string) (string, []any, error) {
	var conditions []string
	var args []any

	for _, col := range columns {
		v, ok, err := filter.FilterString(col)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			continue
		}
		if col == "parent_id" && v == "" {
			conditions = append(conditions, "parent_id IS NULL")
			continue
		}
		conditions = append(conditions, col+" = ?")
		args = append(args, v)
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + order

	limit, hasLimit, err := filter.FilterInt("limit")
	if err != nil {
		return "", nil, err
	}
	offset, hasOffset, err := filter.FilterInt("offset")
	if err != nil {
		return "", nil, err
	}
	if hasLimit && limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	} else if hasOffset && offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT.
		query += " LIMIT -1"
	}
	if hasOffset && offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}
	return query, args, nil
}

// hierarchy holds the per-table names used by the parent checks shared by
// categories and places.
type hierarchy struct {
	table string
	idCol string
}

// checkParent verifies that parentID names an entity of the same festival
// and that making it the parent of id would not close a loop.
func (h hierarchy) checkParent(db *sql.DB, festivalID, id string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return types.ErrInvalidParent
	}

	var parentFestival string
	err := db.QueryRow(
		fmt.Sprintf("SELECT festival_id FROM %s WHERE %s = ?", h.table, h.idCol),
		*parentID,
	).Scan(&parentFestival)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && parentFestival != festivalID) {
		return errors.Wrapf(types.ErrParentNotFound, "%s %s", h.table, *parentID)
	}
	if err != nil {
		return errors.Wrapf(err, "checking parent %s", *parentID)
	}

	if id == "" {
		return nil
	}
	seen := map[string]bool{}
	cur := *parentID
	for !seen[cur] {
		seen[cur] = true
		var next sql.NullString
		err := db.QueryRow(
			fmt.Sprintf("SELECT parent_id FROM %s WHERE %s = ?", h.table, h.idCol),
			cur,
		).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !next.Valid) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "walking ancestors of %s", *parentID)
		}
		if next.String == id {
			return errors.Wrapf(types.ErrInvalidParent, "%s would become its own ancestor", id)
		}
		cur = next.String
	}
	return nil
}

func (h hierarchy) hasChildren(db *sql.DB, id string) (bool, error) {
	var n int
	err := db.QueryRow(
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE parent_id = ?", h.table),
		id,
	).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "counting children of %s", id)
	}
	return n > 0, nil
}

func (h hierarchy) exists(db *sql.DB, id string) (bool, error) {
	var one int
	err := db.QueryRow(
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", h.table, h.idCol),
		id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "checking %s existence", h.table)
	}
	return true, nil
}

// festivalExists reports whether festivalID is stored.
func festivalExists(db *sql.DB, festivalID string) (bool, error) {
	return hierarchy{table: "festivals", idCol: "festival_id"}.exists(db, festivalID)
}
