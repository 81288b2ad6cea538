package db

import "time"

// ActivationRollup stores pre-aggregated daily counts over the events
// collection for the admin stats endpoint. Filled by the rollup worker;
// the event documents themselves are never mutated or deleted.
type ActivationRollup struct {
	ID uint `gorm:"primaryKey"`

	// DayStart is midnight UTC of the day this row covers.
	DayStart time.Time `gorm:"uniqueIndex;not null"`

	EventCount      int64 `gorm:"not null"` // all events that day
	SaveCount       int64 `gorm:"not null"` // lab entry saves
	ActivationCount int64 `gorm:"not null"` // activation_reached events
}
