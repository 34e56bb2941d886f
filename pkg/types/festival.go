// This file defines the Festival entity.
package types

import (
	"strings"
	"time"
)

// Festival is the owner of a category tree and a place tree. Festival IDs
// are the scopes the breadcrumb engine partitions by.
type Festival struct {
	FestivalID  string     `json:"festival_id" dynamodbav:"festival_id"`
	Name        string     `json:"name" dynamodbav:"name"`
	Description string     `json:"description,omitempty" dynamodbav:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty" dynamodbav:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty" dynamodbav:"ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// Validate checks the fields a backend requires before persisting.
func (f *Festival) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrInvalidName
	}
	if f.StartsAt != nil && f.EndsAt != nil && f.EndsAt.Before(*f.StartsAt) {
		return ErrInvalidPeriod
	}
	return nil
}
