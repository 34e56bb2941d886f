// This file defines the JSON records persisted by the SQLite backend.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

// JSONL record shapes. Timestamps are RFC 3339 strings in UTC.

type festivalJSON struct {
	FestivalID  string  `json:"festival_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartsAt    *string `json:"starts_at"`
	EndsAt      *string `json:"ends_at"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type categoryJSON struct {
	CategoryID string  `json:"category_id"`
	FestivalID string  `json:"festival_id"`
	ParentID   *string `json:"parent_id"`
	Name       string  `json:"name"`
	Ordinal    int     `json:"ordinal"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type placeJSON struct {
	PlaceID     string   `json:"place_id"`
	FestivalID  string   `json:"festival_id"`
	ParentID    *string  `json:"parent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// timeLayout is RFC 3339 with a fixed-width fraction so that stored
// timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseTime accepts an empty string as the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing timestamp %q", s)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func festivalRecord(f *types.Festival) festivalJSON {
	return festivalJSON{
		FestivalID:  f.FestivalID,
		Name:        f.Name,
		Description: f.Description,
		StartsAt:    formatTimePtr(f.StartsAt),
		EndsAt:      formatTimePtr(f.EndsAt),
		CreatedAt:   formatTime(f.CreatedAt),
		UpdatedAt:   formatTime(f.UpdatedAt),
	}
}

func categoryRecord(c *types.Category) categoryJSON {
	return categoryJSON{
		CategoryID: c.CategoryID,
		FestivalID: c.FestivalID,
		ParentID:   c.ParentID,
		Name:       c.Name,
		Ordinal:    c.Ordinal,
		CreatedAt:  formatTime(c.CreatedAt),
		UpdatedAt:  formatTime(c.UpdatedAt),
	}
}

func placeRecord(p *types.Place) placeJSON {
	return placeJSON{
		PlaceID:     p.PlaceID,
		FestivalID:  p.FestivalID,
		ParentID:    p.ParentID,
		Name:        p.Name,
		Description: p.Description,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

// marshalRecord encodes rec as one JSONL line. When parentMissing is set
// the parent_id field is left out entirely so the file round-trips.
func marshalRecord(rec any, parentMissing bool) (json.RawMessage, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if !parentMissing {
		return data, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	delete(fields, "parent_id")
	return json.Marshal(fields)
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
