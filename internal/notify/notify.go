// Package notify delivers per-user notices. Delivery is advisory: a failed
// notification never fails the operation that produced it.
package notify

import (
	"log"

	"cabshare/backend/internal/models"
	"cabshare/backend/internal/ridehub"
	"cabshare/backend/internal/storage"
)

// Notifier is the external-collaborator surface the ride engine calls.
type Notifier interface {
	Notify(userID string, n *models.Notification)
}

// HubNotifier persists the notification and pushes it over the user's live
// connection if one exists.
type HubNotifier struct {
	Storage   storage.Storage
	Publisher ridehub.Publisher
}

func NewHubNotifier(s storage.Storage, p ridehub.Publisher) *HubNotifier {
	return &HubNotifier{Storage: s, Publisher: p}
}

func (h *HubNotifier) Notify(userID string, n *models.Notification) {
	n.UserID = userID
	if err := h.Storage.SaveNotification(n); err != nil {
		log.Printf("WARNING: Failed to persist notification for %s: %v", userID, err)
		// Still attempt live delivery.
	}
	h.Publisher.ToUser(userID, models.Envelope{
		Event:        models.EventNotificationNew,
		Notification: n,
	})
}
