// Tests for the directory service and its breadcrumb bindings.
package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// memTable is an ordered in-memory types.Table used to drive the bindings.
type memTable struct {
	mu       sync.Mutex
	rows     []any
	fetchErr map[string]error
	fetches  []types.Filter
}

func (m *memTable) Get(string) (any, error)         { return nil, types.ErrNotFound }
func (m *memTable) Set(string, any) (string, error) { return "", types.ErrInvalidData }
func (m *memTable) Delete(string) error             { return types.ErrNotFound }

func (m *memTable) Fetch(filter types.Filter) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, filter)

	festival, _, _ := filter.FilterString("festival_id")
	if err := m.fetchErr[festival]; err != nil {
		return nil, err
	}
	var out []any
	for _, row := range m.rows {
		if h, ok := row.(types.Hierarchical); ok && festival != "" && h.Festival() != festival {
			continue
		}
		out = append(out, row)
	}
	if limit, ok, _ := filter.FilterInt("limit"); ok && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memDirectory struct {
	tables map[string]*memTable
}

func newMemDirectory() *memDirectory {
	return &memDirectory{tables: map[string]*memTable{
		types.TableFestivals:  {fetchErr: map[string]error{}},
		types.TableCategories: {fetchErr: map[string]error{}},
		types.TablePlaces:     {fetchErr: map[string]error{}},
	}}
}

func (d *memDirectory) GetTable(name string) (types.Table, error) {
	t, ok := d.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}
func (d *memDirectory) Attach(types.Config) error { return nil }
func (d *memDirectory) Detach() error             { return nil }

func ptr(s string) *string { return &s }

func seed(d *memDirectory) {
	d.tables[types.TableFestivals].rows = []any{
		&types.Festival{FestivalID: "f1", Name: "Sziget"},
		&types.Festival{FestivalID: "f2", Name: "Exit"},
	}
	d.tables[types.TableCategories].rows = []any{
		&types.Category{CategoryID: "music", FestivalID: "f1", Name: "Music"},
		&types.Category{CategoryID: "rock", FestivalID: "f1", Name: "Rock", ParentID: ptr("music")},
		&types.Category{CategoryID: "stoner", FestivalID: "f1", Name: "Stoner", ParentID: ptr("rock")},
		&types.Category{CategoryID: "jazz", FestivalID: "f1", Name: "Jazz", ParentID: ptr("music")},
		&types.Category{CategoryID: "music", FestivalID: "f2", Name: "Music"},
	}
	d.tables[types.TablePlaces].rows = []any{
		&types.Place{PlaceID: "north", FestivalID: "f1", Name: "North Field"},
		&types.Place{PlaceID: "main", FestivalID: "f1", Name: "Main Stage", ParentID: ptr("north")},
		&types.Place{PlaceID: "legacy", FestivalID: "f2", Name: "Legacy", ParentMissing: true},
		&types.Place{PlaceID: "bar", FestivalID: "f2", Name: "Bar", ParentID: ptr("legacy")},
	}
}

func TestNodeOf(t *testing.T) {
	c := &types.Category{CategoryID: "rock", ParentID: ptr("music")}
	n := NodeOf(c)
	assert.Equal(t, "rock", n.ID)
	require.NotNil(t, n.ParentID)
	assert.Equal(t, "music", *n.ParentID)
	assert.Same(t, c, n.Entity)

	root := NodeOf(&types.Place{PlaceID: "north"})
	assert.Nil(t, root.ParentID)
	assert.False(t, root.ParentMissing)

	rec := BareRecord(c)
	assert.NotNil(t, rec.Parents)
	assert.NotNil(t, rec.Children)
}

func TestFestivalScopes(t *testing.T) {
	d := newMemDirectory()
	seed(d)

	ids, err := FestivalScopes(d.tables[types.TableFestivals]).ListScopes(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, ids)
	assert.Equal(t, 1, d.tables[types.TableFestivals].fetches[0]["limit"])
}

func TestHierarchySource_RejectsForeignTypes(t *testing.T) {
	table := &memTable{rows: []any{&types.Festival{FestivalID: "x"}}}
	_, err := HierarchySource[*types.Category](table).ListEntities(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestService_RebuildAll(t *testing.T) {
	d := newMemDirectory()
	seed(d)
	svc, err := NewService(d, Config{})
	require.NoError(t, err)

	reports := svc.RebuildAll(context.Background())
	require.False(t, reports.Failed())
	require.NoError(t, reports.Err())

	stoner, ok := svc.Categories.Get("f1", "stoner")
	require.True(t, ok)
	assert.Equal(t, "Rock", stoner.Parents[0].Entity.Name)
	assert.Equal(t, "Music", stoner.Parents[1].Entity.Name)

	music, ok := svc.Categories.Get("f1", "music")
	require.True(t, ok)
	require.Len(t, music.Children, 2)
	assert.Equal(t, "rock", music.Children[0].ID)
	assert.Equal(t, "jazz", music.Children[1].ID)

	otherMusic, ok := svc.Categories.Get("f2", "music")
	require.True(t, ok)
	assert.Empty(t, otherMusic.Children, "f2 does not see f1 children")

	bar, ok := svc.Places.Get("f2", "bar")
	require.True(t, ok)
	require.Len(t, bar.Parents, 1, "walk stops at the record without parent field")
	assert.Equal(t, "legacy", bar.Parents[0].ID)
}

func TestService_AbortPolicyAcrossFestivals(t *testing.T) {
	d := newMemDirectory()
	seed(d)
	d.tables[types.TableFestivals].rows = append(d.tables[types.TableFestivals].rows,
		&types.Festival{FestivalID: "f3", Name: "Primavera"})
	d.tables[types.TableCategories].rows = append(d.tables[types.TableCategories].rows,
		&types.Category{CategoryID: "art", FestivalID: "f3", Name: "Art"})
	d.tables[types.TableCategories].fetchErr["f2"] = errors.New("search index down")

	svc, err := NewService(d, Config{OnFailure: breadcrumbs.AbortOnFailure})
	require.NoError(t, err)
	reports := svc.RebuildAll(context.Background())

	assert.True(t, reports.Failed())
	assert.False(t, reports.Places.Failed())
	_, ok := svc.Categories.Get("f1", "music")
	assert.True(t, ok)
	_, ok = svc.Categories.Get("f3", "art")
	assert.False(t, ok)
}

func TestService_AfterWrite(t *testing.T) {
	d := newMemDirectory()
	seed(d)
	svc, err := NewService(d, Config{})
	require.NoError(t, err)

	svc.AfterWrite(context.Background(), types.TableCategories, "f1")
	_, ok := svc.Categories.Get("f1", "rock")
	assert.True(t, ok)
	_, ok = svc.Categories.Get("f2", "music")
	assert.False(t, ok, "only the written festival is rebuilt")
	_, ok = svc.Places.Get("f1", "main")
	assert.False(t, ok)

	svc.AfterWrite(context.Background(), types.TablePlaces, "f1")
	_, ok = svc.Places.Get("f1", "main")
	assert.True(t, ok)

	svc.AfterWrite(context.Background(), types.TableFestivals, "f2")
	assert.Equal(t, []string{"f1"}, svc.Categories.Scopes())
}

func TestService_RunTriggersAndStops(t *testing.T) {
	d := newMemDirectory()
	seed(d)
	svc, err := NewService(d, Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := svc.Categories.Get("f1", "music")
		return ok
	}, time.Second, 10*time.Millisecond)

	d.tables[types.TableCategories].mu.Lock()
	d.tables[types.TableCategories].rows = append(d.tables[types.TableCategories].rows,
		&types.Category{CategoryID: "blues", FestivalID: "f1", Name: "Blues", ParentID: ptr("music")})
	d.tables[types.TableCategories].mu.Unlock()
	svc.Trigger()

	require.Eventually(t, func() bool {
		_, ok := svc.Categories.Get("f1", "blues")
		return ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNewService_MissingTable(t *testing.T) {
	d := newMemDirectory()
	delete(d.tables, types.TablePlaces)
	_, err := NewService(d, Config{})
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}
