// Unit tests for festivals, categories and places table operations.
package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

func TestFestivalsTable(t *testing.T) {
	b, _ := attachTemp(t)
	festivals := table(t, b, types.TableFestivals)

	start := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(6 * 24 * time.Hour)
	f := &types.Festival{Name: "Sziget", StartsAt: &start, EndsAt: &end}
	id, err := festivals.Set("", f)
	require.NoError(t, err)
	assert.Equal(t, id, f.FestivalID)

	got, err := festivals.Get(id)
	require.NoError(t, err)
	stored := got.(*types.Festival)
	assert.Equal(t, "Sziget", stored.Name)
	require.NotNil(t, stored.StartsAt)
	assert.True(t, start.Equal(*stored.StartsAt))
	created := stored.CreatedAt

	stored.Name = "Sziget 2026"
	_, err = festivals.Set(id, stored)
	require.NoError(t, err)
	got, err = festivals.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Sziget 2026", got.(*types.Festival).Name)
	assert.True(t, created.Equal(got.(*types.Festival).CreatedAt), "created_at survives updates")

	_, err = festivals.Set("", &types.Festival{Name: " "})
	assert.ErrorIs(t, err, types.ErrInvalidName)
	_, err = festivals.Set("", &types.Festival{Name: "Backwards", StartsAt: &end, EndsAt: &start})
	assert.ErrorIs(t, err, types.ErrInvalidPeriod)
	_, err = festivals.Set("", &types.Category{Name: "wrong"})
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = festivals.Get("nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = festivals.Get("")
	assert.ErrorIs(t, err, types.ErrInvalidID)

	require.NoError(t, festivals.Delete(id))
	assert.ErrorIs(t, festivals.Delete(id), types.ErrNotFound)
}

func TestFestivalsTable_FetchOrderAndPaging(t *testing.T) {
	b, _ := attachTemp(t)
	festivals := table(t, b, types.TableFestivals)
	for _, name := range []string{"Sziget", "Exit", "Primavera"} {
		newFestival(t, b, name)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := festivals.Fetch(nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Sziget", all[0].(*types.Festival).Name, "ordered by creation")

	page, err := festivals.Fetch(types.Filter{"limit": 1, "offset": 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Exit", page[0].(*types.Festival).Name)

	tail, err := festivals.Fetch(types.Filter{"offset": 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "Primavera", tail[0].(*types.Festival).Name)

	byName, err := festivals.Fetch(types.Filter{"name": "Exit"})
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	_, err = festivals.Fetch(types.Filter{"limit": "ten"})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
	_, err = festivals.Fetch(types.Filter{"name": 7})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}

func TestFestivalsTable_DeleteWithChildren(t *testing.T) {
	b, _ := attachTemp(t)
	fid := newFestival(t, b, "Sziget")
	cid := newCategory(t, b, fid, "Music", nil)

	err := table(t, b, types.TableFestivals).Delete(fid)
	assert.ErrorIs(t, err, types.ErrHasChildren)

	require.NoError(t, table(t, b, types.TableCategories).Delete(cid))
	assert.NoError(t, table(t, b, types.TableFestivals).Delete(fid))
}

func TestCategoriesTable_Validation(t *testing.T) {
	b, _ := attachTemp(t)
	f1 := newFestival(t, b, "Sziget")
	f2 := newFestival(t, b, "Exit")
	music := newCategory(t, b, f1, "Music", nil)
	otherMusic := newCategory(t, b, f2, "Music", nil)
	categories := table(t, b, types.TableCategories)

	tests := []struct {
		name string
		id   string
		cat  *types.Category
		want error
	}{
		{"empty name", "", &types.Category{FestivalID: f1}, types.ErrInvalidName},
		{"no festival", "", &types.Category{Name: "Rock"}, types.ErrInvalidFestival},
		{"unknown festival", "", &types.Category{FestivalID: "ghost", Name: "Rock"}, types.ErrInvalidFestival},
		{"unknown parent", "", &types.Category{FestivalID: f1, Name: "Rock", ParentID: ptr("ghost")}, types.ErrParentNotFound},
		{"parent in another festival", "", &types.Category{FestivalID: f1, Name: "Rock", ParentID: &otherMusic}, types.ErrParentNotFound},
		{"own parent", music, &types.Category{FestivalID: f1, Name: "Music", ParentID: &music}, types.ErrInvalidParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := categories.Set(tt.id, tt.cat)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCategoriesTable_RejectsCycles(t *testing.T) {
	b, _ := attachTemp(t)
	fid := newFestival(t, b, "Sziget")
	music := newCategory(t, b, fid, "Music", nil)
	rock := newCategory(t, b, fid, "Rock", &music)
	stoner := newCategory(t, b, fid, "Stoner", &rock)
	categories := table(t, b, types.TableCategories)

	_, err := categories.Set(music, &types.Category{FestivalID: fid, Name: "Music", ParentID: &stoner})
	assert.ErrorIs(t, err, types.ErrInvalidParent)

	jazz := newCategory(t, b, fid, "Jazz", nil)
	_, err = categories.Set(music, &types.Category{FestivalID: fid, Name: "Music", ParentID: &jazz})
	assert.NoError(t, err, "reparenting under an unrelated category is fine")
}

func TestCategoriesTable_DeleteAndMove(t *testing.T) {
	b, _ := attachTemp(t)
	f1 := newFestival(t, b, "Sziget")
	f2 := newFestival(t, b, "Exit")
	music := newCategory(t, b, f1, "Music", nil)
	rock := newCategory(t, b, f1, "Rock", &music)
	categories := table(t, b, types.TableCategories)

	assert.ErrorIs(t, categories.Delete(music), types.ErrHasChildren)

	_, err := categories.Set(music, &types.Category{FestivalID: f2, Name: "Music"})
	assert.ErrorIs(t, err, types.ErrHasChildren, "a parent cannot leave its festival")

	_, err = categories.Set(rock, &types.Category{FestivalID: f2, Name: "Rock"})
	require.NoError(t, err, "a leaf can move as a root")

	require.NoError(t, categories.Delete(music))
	assert.ErrorIs(t, categories.Delete(music), types.ErrNotFound)
	assert.ErrorIs(t, categories.Delete(""), types.ErrInvalidID)
}

func TestCategoriesTable_Fetch(t *testing.T) {
	b, _ := attachTemp(t)
	f1 := newFestival(t, b, "Sziget")
	f2 := newFestival(t, b, "Exit")
	categories := table(t, b, types.TableCategories)

	music := newCategory(t, b, f1, "Music", nil)
	for i, name := range []string{"Rock", "Jazz", "Blues"} {
		_, err := categories.Set("", &types.Category{FestivalID: f1, Name: name, Ordinal: 3 - i, ParentID: &music})
		require.NoError(t, err)
	}
	newCategory(t, b, f1, "Art", nil)
	newCategory(t, b, f2, "Music", nil)

	all, err := categories.Fetch(types.Filter{"festival_id": f1})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	children, err := categories.Fetch(types.Filter{"festival_id": f1, "parent_id": music})
	require.NoError(t, err)
	var names []string
	for _, c := range children {
		names = append(names, c.(*types.Category).Name)
	}
	assert.Equal(t, []string{"Blues", "Jazz", "Rock"}, names, "ordered by ordinal")

	roots, err := categories.Fetch(types.Filter{"festival_id": f1, "parent_id": ""})
	require.NoError(t, err)
	names = nil
	for _, c := range roots {
		names = append(names, c.(*types.Category).Name)
	}
	assert.Equal(t, []string{"Art", "Music"}, names, "equal ordinals fall back to name")

	none, err := categories.Fetch(types.Filter{"festival_id": "ghost"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	limited, err := categories.Fetch(types.Filter{"festival_id": f1, "limit": float64(2)})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPlacesTable(t *testing.T) {
	b, _ := attachTemp(t)
	fid := newFestival(t, b, "Sziget")
	places := table(t, b, types.TablePlaces)

	north, err := places.Set("", &types.Place{FestivalID: fid, Name: "North Field"})
	require.NoError(t, err)
	stage := &types.Place{
		FestivalID:  fid,
		Name:        "Main Stage",
		Description: "Headliners",
		ParentID:    &north,
		Latitude:    ptr(47.5534),
		Longitude:   ptr(19.0561),
	}
	stageID, err := places.Set("", stage)
	require.NoError(t, err)

	got, err := places.Get(stageID)
	require.NoError(t, err)
	p := got.(*types.Place)
	assert.Equal(t, "Headliners", p.Description)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 47.5534, *p.Latitude, 1e-9)
	require.NotNil(t, p.ParentID)
	assert.Equal(t, north, *p.ParentID)

	_, err = places.Set(north, &types.Place{FestivalID: fid, Name: "North Field", ParentID: &stageID})
	assert.ErrorIs(t, err, types.ErrInvalidParent)

	assert.ErrorIs(t, places.Delete(north), types.ErrHasChildren)

	list, err := places.Fetch(types.Filter{"festival_id": fid})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Main Stage", list[0].(*types.Place).Name, "ordered by name")
}
