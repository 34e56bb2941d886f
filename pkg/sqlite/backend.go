// Package sqlite exposes the SQLite directory backend to other modules
// while keeping its implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/festivals/internal/sqlite"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// Reloader is implemented by directories that can re-read their source
// files after an external edit.
type Reloader interface {
	Reload() error
}

// NewBackend creates a detached SQLite backend.
//
//	dir := sqlite.NewBackend()
//	err := dir.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".festivals-db",
//	})
//	defer dir.Detach()
func NewBackend() types.Directory {
	return sqlite.NewBackend()
}
