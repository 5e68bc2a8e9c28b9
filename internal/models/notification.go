package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification type values.
const (
	NotificationTypeRide   = "ride"
	NotificationTypeAdmin  = "admin"
	NotificationTypeSystem = "system"
)

// Notification is a persisted per-user notice (kick, expiry). Delivery over
// a live connection is best effort; the stored row is what the user sees on
// their next fetch.
type Notification struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"type:text;not null;index" json:"userId"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Type      string     `gorm:"type:text;not null;default:system" json:"type"`
	Meta      string     `gorm:"type:text" json:"meta,omitempty"`
	Read      bool       `gorm:"not null;default:false" json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// BeforeCreate generates a UUID for the notification if the ID is not set.
func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
