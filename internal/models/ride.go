package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Destination values. Rides only run between the campus and the airport.
const (
	DestinationAirport = "airport"
	DestinationCampus  = "campus"
)

// Ride status values.
const (
	StatusOpen    = "open"
	StatusFull    = "full"
	StatusExpired = "expired"
)

// Ride represents a shared cab trip with a fixed capacity of four seats.
// The creator is always the first participant. Status is stored rather than
// derived so listings can filter on an indexed column; every membership
// transition keeps it consistent with the participant count.
type Ride struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	Creator       string         `gorm:"type:text;not null;index" json:"creator"`
	Destination   string         `gorm:"type:text;not null;index" json:"destination"`
	DepartureTime time.Time      `gorm:"not null;index" json:"departureTime"`
	Participants  pq.StringArray `gorm:"type:text[];not null" json:"participants"`
	Status        string         `gorm:"type:text;not null;default:open;index" json:"status"`
	IsLocked      bool           `gorm:"not null;default:false" json:"isLocked"`
	LockedAt      *time.Time     `json:"lockedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// BeforeCreate generates a UUID for the ride if the ID is not set.
func (r *Ride) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// IsParticipant reports whether the given user currently holds a seat.
func (r *Ride) IsParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// SeatsLeft returns the number of free seats, never below zero.
func (r *Ride) SeatsLeft(capacity int) int {
	left := capacity - len(r.Participants)
	if left < 0 {
		return 0
	}
	return left
}

// IsExpiredAt reports whether the ride should be considered expired at the
// given instant, either by its stored status or by a passed departure time.
func (r *Ride) IsExpiredAt(now time.Time) bool {
	return r.Status == StatusExpired || !r.DepartureTime.After(now)
}

// ValidDestination reports whether d is one of the two served endpoints.
func ValidDestination(d string) bool {
	return d == DestinationAirport || d == DestinationCampus
}
