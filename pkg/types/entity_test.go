// Tests for entity validation and the Hierarchical interface.
package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		wantErr error
	}{
		{
			name: "root category is valid",
			cat:  Category{FestivalID: "f1", Name: "Music"},
		},
		{
			name: "child category is valid",
			cat:  Category{CategoryID: "c2", FestivalID: "f1", Name: "Rock", ParentID: strPtr("c1")},
		},
		{
			name:    "blank name fails",
			cat:     Category{FestivalID: "f1", Name: "  "},
			wantErr: ErrInvalidName,
		},
		{
			name:    "missing festival fails",
			cat:     Category{Name: "Music"},
			wantErr: ErrInvalidFestival,
		},
		{
			name:    "self parent fails",
			cat:     Category{CategoryID: "c1", FestivalID: "f1", Name: "Loop", ParentID: strPtr("c1")},
			wantErr: ErrInvalidParent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPlaceHierarchical(t *testing.T) {
	p := &Place{PlaceID: "p2", FestivalID: "f1", ParentID: strPtr("p1"), Name: "Main Stage", ParentMissing: true}

	var h Hierarchical = p
	assert.Equal(t, "p2", h.EntityID())
	assert.Equal(t, "f1", h.Festival())
	assert.Equal(t, "p1", *h.Parent())
	assert.True(t, h.ParentFieldMissing())
	assert.NoError(t, p.Validate())
}

func TestFestivalValidate(t *testing.T) {
	start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)

	assert.NoError(t, (&Festival{Name: "Sziget", StartsAt: &start, EndsAt: &end}).Validate())
	assert.ErrorIs(t, (&Festival{Name: ""}).Validate(), ErrInvalidName)
	assert.ErrorIs(t, (&Festival{Name: "Backwards", StartsAt: &end, EndsAt: &start}).Validate(), ErrInvalidPeriod)
}

func TestFilterValues(t *testing.T) {
	f := Filter{"festival_id": "f1", "limit": float64(20), "offset": 1.5, "name": 3}

	s, ok, err := f.FilterString("festival_id")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "f1", s)

	_, ok, err = f.FilterString("parent_id")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = f.FilterString("name")
	assert.ErrorIs(t, err, ErrInvalidFilter)

	n, ok, err := f.FilterInt("limit")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	_, _, err = f.FilterInt("offset")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
