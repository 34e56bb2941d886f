// Tests for SQLite backend implementation.
package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

func TestBackend_Attach(t *testing.T) {
	b, dir := attachTemp(t)

	_, err := os.Stat(filepath.Join(dir, DatabaseFile))
	assert.NoError(t, err, "database file created")
	for _, name := range JSONLFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Zero(t, info.Size(), "%s starts empty", name)
	}

	err = b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
}

func TestBackend_AttachRejectsConfig(t *testing.T) {
	tests := []struct {
		name   string
		config types.Config
		want   error
	}{
		{"empty backend", types.Config{DataDir: t.TempDir()}, types.ErrBackendEmpty},
		{"unknown backend", types.Config{Backend: "postgres", DataDir: t.TempDir()}, types.ErrBackendUnknown},
		{"other backend", types.Config{Backend: types.BackendDynamoDB, DataDir: t.TempDir()}, types.ErrBackendUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBackend().Attach(tt.config)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b, _ := attachTemp(t)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach is idempotent")

	_, err := b.GetTable(types.TableFestivals)
	assert.ErrorIs(t, err, types.ErrDirectoryDetached)
	assert.ErrorIs(t, b.Reload(), types.ErrDirectoryDetached)
}

func TestBackend_GetTable(t *testing.T) {
	b, _ := attachTemp(t)

	for _, name := range types.StandardTableNames {
		tbl, err := b.GetTable(name)
		require.NoError(t, err, name)
		assert.NotNil(t, tbl)
	}

	_, err := b.GetTable("stages")
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	fid, err := mustTable(b, types.TableFestivals).Set("", &types.Festival{Name: "Sziget"})
	require.NoError(t, err)
	cid, err := mustTable(b, types.TableCategories).Set("", &types.Category{FestivalID: fid, Name: "Music"})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := attachDir(t, dir)
	got, err := table(t, b2, types.TableCategories).Get(cid)
	require.NoError(t, err)
	c := got.(*types.Category)
	assert.Equal(t, "Music", c.Name)
	assert.Equal(t, fid, c.FestivalID)
	assert.Nil(t, c.ParentID)
	assert.False(t, c.ParentMissing)
	assert.False(t, c.CreatedAt.IsZero())
}

func mustTable(b *Backend, name string) types.Table {
	tbl, err := b.GetTable(name)
	if err != nil {
		panic(err)
	}
	return tbl
}
