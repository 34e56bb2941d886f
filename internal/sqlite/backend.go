// Package sqlite implements the SQLite storage backend for the festival
// directory. JSONL files in the data directory are the source of truth;
// SQLite is the query engine rebuilt from them on Attach and Reload.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

// DatabaseFile is the SQLite file created inside the data directory.
const DatabaseFile = "directory.db"

// Backend implements types.Directory using SQLite as the query engine and
// JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]types.Table

	// writeMu serializes Set and Delete across tables so that the
	// validation reads and the JSONL rewrite see a consistent table.
	writeMu sync.Mutex
}

var _ types.Directory = (*Backend)(nil)

// NewBackend creates a detached backend. Call Attach to open it.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]types.Table),
	}
}

// GetTable returns the accessor for a standard table.
// Returns ErrDirectoryDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDirectoryDetached
	}

	table, ok := b.tables[name]
	if !ok {
		return nil, errors.Wrapf(types.ErrTableNotFound, "%q", name)
	}
	return table, nil
}

// Attach creates DataDir if needed, opens a fresh directory.db, creates the
// schema and loads every JSONL file into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return errors.Wrapf(types.ErrBackendUnknown, "sqlite backend cannot attach %q", config.Backend)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	config.DataDir = dataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating data dir %s", dataDir)
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, DatabaseFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return errors.Wrap(err, "opening sqlite database")
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return errors.Wrap(err, "loading JSONL")
	}

	b.db = db
	b.config = config
	b.attached = true
	b.tables = map[string]types.Table{
		types.TableFestivals:  &festivalsTable{backend: b},
		types.TableCategories: &categoriesTable{backend: b},
		types.TablePlaces:     &placesTable{backend: b},
	}
	return nil
}

// Detach closes the SQLite connection. After Detach, GetTable returns
// ErrDirectoryDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return errors.Wrap(err, "closing sqlite database")
		}
		b.db = nil
	}
	b.attached = false
	b.tables = make(map[string]types.Table)
	return nil
}

// Reload discards the SQLite contents and loads the JSONL files again. It
// picks up edits made to the files by other processes.
func (b *Backend) Reload() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDirectoryDetached
	}
	return loadAllJSONL(b.db, b.config.DataDir)
}

// DataDir returns the directory holding the JSONL files.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// conn returns the open database, or ErrDirectoryDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDirectoryDetached
	}
	return b.db, nil
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generating UUID v7")
	}
	return id.String(), nil
}
