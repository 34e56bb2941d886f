// This file defines the Table interface and filters.
package types

import "github.com/cockroachdb/errors"

// Filter selects entities in Table.Fetch. Recognized keys are festival_id,
// parent_id, name, limit and offset; an empty filter matches everything.
type Filter map[string]any

// Table provides uniform CRUD operations for a single entity type.
// Get and Fetch return any; callers type-assert to the concrete entity struct.
type Table interface {
	// Get retrieves the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Get(id string) (any, error)

	// Set creates or updates an entity. When id is empty a new UUID v7 is
	// generated. Returns the actual ID used (generated or provided).
	Set(id string, data any) (string, error)

	// Delete removes the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Delete(id string) error

	// Fetch returns all entities matching the filter.
	Fetch(filter Filter) ([]any, error)
}

// Table operation errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrInvalidID   = errors.New("invalid entity ID")
	ErrInvalidData = errors.New("invalid entity data")
)

// Entity validation errors.
var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidFestival = errors.New("festival ID must not be empty")
	ErrInvalidParent   = errors.New("entity cannot be its own parent")
	ErrParentNotFound  = errors.New("parent entity not found in festival")
	ErrHasChildren     = errors.New("entity has children")
	ErrInvalidFilter   = errors.New("invalid filter value type")
	ErrInvalidPeriod   = errors.New("festival ends before it starts")
)

// FilterString reads a string filter value. ok is false when the key is
// absent; err is ErrInvalidFilter when the value has another type.
func (f Filter) FilterString(key string) (value string, ok bool, err error) {
	v, present := f[key]
	if !present {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, errors.Wrapf(ErrInvalidFilter, "%s must be a string", key)
	}
	return s, true, nil
}

// FilterInt reads an integer filter value. JSON decoding yields float64, so
// whole floats are accepted too.
func (f Filter) FilterInt(key string) (value int, ok bool, err error) {
	v, present := f[key]
	if !present {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n == float64(int(n)) {
			return int(n), true, nil
		}
	}
	return 0, false, errors.Wrapf(ErrInvalidFilter, "%s must be an integer", key)
}
