package models

import "time"

// Ride transition event names, published globally so open dashboards can
// refresh their listings.
const (
	EventRideCreated  = "ride.created"
	EventRideJoined   = "ride.joined"
	EventRideLeft     = "ride.left"
	EventRideKicked   = "ride.kicked"
	EventRideLocked   = "ride.locked"
	EventRideUnlocked = "ride.unlocked"
	EventRideExpired  = "ride.expired"
	EventRideDeleted  = "ride.deleted"
)

// Ride-scoped and user-scoped event names.
const (
	EventMessageNew        = "message.new"
	EventRideEnded         = "ride.ended"
	EventParticipantKicked = "participant.kicked"
	EventNotificationNew   = "notification.new"
	EventError             = "error"
)

// Envelope is the single wire frame pushed to live connections and carried
// over the Redis pub/sub bridge between instances. Only the fields relevant
// to the event are set. For ride transition events Ride holds the snapshot
// at the moment of the transition, or nil for delete/expire.
type Envelope struct {
	Event        string        `json:"event"`
	RideID       string        `json:"rideId,omitempty"`
	Ride         *Ride         `json:"ride,omitempty"`
	Message      *ChatMessage  `json:"message,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	TargetID     string        `json:"targetId,omitempty"`
	Text         string        `json:"text,omitempty"`
}

// ChatMessage is the realtime projection of a persisted Message.
type ChatMessage struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Frame is a client-to-server websocket command.
type Frame struct {
	Action  string `json:"action"` // "join-ride" | "send-message"
	RideID  string `json:"rideId"`
	Content string `json:"content,omitempty"`
}
