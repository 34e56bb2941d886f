// This file defines the Place entity.
package types

import "time"

// Place is a location inside a festival site. Places nest the same way
// categories do: "North Field" -> "Main Stage" -> "Backstage".
type Place struct {
	PlaceID     string    `json:"place_id" dynamodbav:"place_id"`
	FestivalID  string    `json:"festival_id" dynamodbav:"festival_id"`
	ParentID    *string   `json:"parent_id" dynamodbav:"parent_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`

	// ParentMissing is set by a backend when the stored record carried no
	// parent_id field. It is never persisted.
	ParentMissing bool `json:"-" dynamodbav:"-"`
}

var _ Hierarchical = (*Place)(nil)

func (p *Place) EntityID() string         { return p.PlaceID }
func (p *Place) Festival() string         { return p.FestivalID }
func (p *Place) Parent() *string          { return p.ParentID }
func (p *Place) ParentFieldMissing() bool { return p.ParentMissing }

// SetFestival moves the entity into festivalID.
func (p *Place) SetFestival(festivalID string) { p.FestivalID = festivalID }

// Validate checks the fields a backend requires before persisting.
func (p *Place) Validate() error {
	return validateNode(p.Name, p.FestivalID, p.PlaceID, p.ParentID)
}
