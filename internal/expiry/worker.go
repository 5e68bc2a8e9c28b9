// Package expiry retires rides at their departure time: a one-shot deferred
// action per ride, duplicate-safe by construction, backed up by periodic
// sweeps for anything a crash or missed schedule left behind.
package expiry

import (
	"encoding/json"
	"errors"
	"log"

	"cabshare/backend/internal/cache"
	"cabshare/backend/internal/models"
	"cabshare/backend/internal/notify"
	"cabshare/backend/internal/ridehub"
	"cabshare/backend/internal/storage"
)

// Worker applies the expiry transition and its cascade. Shared by the
// scheduled deferred action and the overdue sweep, so both paths behave
// identically and either may fire first.
type Worker struct {
	Storage   storage.Storage
	Cache     cache.Cache
	Publisher ridehub.Publisher
	Notifier  notify.Notifier
}

func NewWorker(s storage.Storage, c cache.Cache, p ridehub.Publisher, n notify.Notifier) *Worker {
	return &Worker{Storage: s, Cache: c, Publisher: p, Notifier: n}
}

// ExpireRide transitions the ride to expired exactly once. The conditional
// update is the idempotence guard: when the ride is already expired, or was
// deleted while this action was in flight, the update matches nothing and
// the whole cascade is skipped.
func (w *Worker) ExpireRide(rideID string) {
	ride, err := w.Storage.MarkExpired(rideID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return
	}
	if err != nil {
		// The overdue sweep retries; nothing else to do here.
		log.Printf("ERROR: Failed to expire ride %s: %v", rideID, err)
		return
	}

	if err := w.Storage.DeleteMessagesForRide(rideID); err != nil {
		log.Printf("ERROR: Failed to purge messages for expired ride %s: %v", rideID, err)
	}

	w.Cache.InvalidateRide(rideID)

	w.Publisher.ToRide(rideID, models.Envelope{
		Event:  models.EventRideEnded,
		RideID: rideID,
		Text:   "Ride expired automatically",
	})
	w.Publisher.Broadcast(models.Envelope{
		Event:  models.EventRideExpired,
		RideID: rideID,
	})

	meta, _ := json.Marshal(map[string]string{
		"rideId":      rideID,
		"destination": ride.Destination,
	})
	for _, userID := range ride.Participants {
		w.Notifier.Notify(userID, &models.Notification{
			Message: "Ride to " + ride.Destination + " expired automatically.",
			Type:    models.NotificationTypeRide,
			Meta:    string(meta),
		})
	}

	log.Printf("Ride %s expired", rideID)
}
