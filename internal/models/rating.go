package models

import "github.com/google/uuid"

// EntityType distinguishes the two rating pools
type EntityType string

const (
	EntityDriver EntityType = "driver"
	EntityTeam   EntityType = "team"
)

// BaseRating is the rating assigned to an entity before its first race
const BaseRating = 1500.0

// RatingRecord represents the skill rating of a driver or team as of
// a given race. Ratings are derived only from races strictly before
// AsOfRaceID.
type RatingRecord struct {
	EntityType EntityType `db:"entity_type" json:"entity_type" validate:"required,oneof=driver team"`
	EntityID   string     `db:"entity_id" json:"entity_id" validate:"required"`
	Rating     float64    `db:"rating" json:"rating"`
	AsOfRaceID uuid.UUID  `db:"as_of_race_id" json:"as_of_race_id"`
}
