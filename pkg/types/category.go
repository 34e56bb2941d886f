// This file defines the Category entity and the Hierarchical interface.
package types

import (
	"strings"
	"time"
)

// Hierarchical is implemented by entities that form a single-parent tree
// inside one festival. The breadcrumb bindings read entities through it.
type Hierarchical interface {
	// EntityID returns the entity's own ID.
	EntityID() string

	// Festival returns the ID of the owning festival.
	Festival() string

	// Parent returns the parent ID, or nil for a root.
	Parent() *string

	// ParentFieldMissing reports whether the stored record had no parent
	// field at all, as opposed to an explicit null.
	ParentFieldMissing() bool
}

// Category classifies festival content. Categories nest: "Music" -> "Rock"
// -> "Stoner Rock".
type Category struct {
	CategoryID string    `json:"category_id" dynamodbav:"category_id"`
	FestivalID string    `json:"festival_id" dynamodbav:"festival_id"`
	ParentID   *string   `json:"parent_id" dynamodbav:"parent_id"`
	Name       string    `json:"name" dynamodbav:"name"`
	Ordinal    int       `json:"ordinal" dynamodbav:"ordinal"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" dynamodbav:"updated_at"`

	// ParentMissing is set by a backend when the stored record carried no
	// parent_id field. It is never persisted.
	ParentMissing bool `json:"-" dynamodbav:"-"`
}

var _ Hierarchical = (*Category)(nil)

func (c *Category) EntityID() string         { return c.CategoryID }
func (c *Category) Festival() string         { return c.FestivalID }
func (c *Category) Parent() *string          { return c.ParentID }
func (c *Category) ParentFieldMissing() bool { return c.ParentMissing }

// SetFestival moves the entity into festivalID.
func (c *Category) SetFestival(festivalID string) { c.FestivalID = festivalID }

// Validate checks the fields a backend requires before persisting. Parent
// existence is checked by the backend, which can see the other rows.
func (c *Category) Validate() error {
	return validateNode(c.Name, c.FestivalID, c.CategoryID, c.ParentID)
}

func validateNode(name, festivalID, id string, parentID *string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if festivalID == "" {
		return ErrInvalidFestival
	}
	if parentID != nil && id != "" && *parentID == id {
		return ErrInvalidParent
	}
	return nil
}
