// This file defines the Directory interface and its errors.
package types

import "github.com/cockroachdb/errors"

// Directory defines the interface for backend-agnostic storage access.
// Callers attach to a backend, access tables by name, and detach when done.
type Directory interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)

	// Attach connects the Directory to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, GetTable returns ErrDirectoryDetached.
	Detach() error
}

// Directory lifecycle errors.
var (
	ErrDirectoryDetached = errors.New("directory is detached")
	ErrAlreadyAttached   = errors.New("directory is already attached")
	ErrTableNotFound     = errors.New("table not found")
)
