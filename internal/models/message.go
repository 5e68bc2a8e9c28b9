package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message type values. System messages are generated by the engine itself
// (joins, kicks) and carry no sender.
const (
	MessageTypeUser   = "user"
	MessageTypeSystem = "system"
)

// Message is a single chat entry in a ride's thread. Messages belong to the
// ride, not to any participant: they are purged together when the ride
// expires or is deleted.
type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	RideID    string    `gorm:"type:text;not null;index" json:"rideId"`
	Sender    *string   `gorm:"type:text" json:"sender,omitempty"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Type      string    `gorm:"type:text;not null;default:user" json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate generates a UUID for the message if the ID is not set.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// SystemMessage builds an engine-generated message for a ride thread.
func SystemMessage(rideID, text string) *Message {
	return &Message{
		RideID: rideID,
		Text:   text,
		Type:   MessageTypeSystem,
	}
}
