// Test helpers shared by the SQLite backend tests.
package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

func attachTemp(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	return attachDir(t, dir), dir
}

func attachDir(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func table(t *testing.T, b *Backend, name string) types.Table {
	t.Helper()
	tbl, err := b.GetTable(name)
	require.NoError(t, err)
	return tbl
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func ptr[T any](v T) *T { return &v }

func newFestival(t *testing.T, b *Backend, name string) string {
	t.Helper()
	id, err := table(t, b, types.TableFestivals).Set("", &types.Festival{Name: name})
	require.NoError(t, err)
	return id
}

func newCategory(t *testing.T, b *Backend, festivalID, name string, parentID *string) string {
	t.Helper()
	id, err := table(t, b, types.TableCategories).Set("", &types.Category{
		FestivalID: festivalID,
		Name:       name,
		ParentID:   parentID,
	})
	require.NoError(t, err)
	return id
}
