// Package rides is the capacity and membership engine: every ride mutation
// goes through here as a conditional transition over the store, followed by
// cache invalidation and event fan-out. The store alone enforces the
// capacity invariant; cache and events are advisory mirrors.
package rides

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"cabshare/backend/internal/cache"
	"cabshare/backend/internal/config"
	"cabshare/backend/internal/expiry"
	"cabshare/backend/internal/models"
	"cabshare/backend/internal/notify"
	"cabshare/backend/internal/ridehub"
	"cabshare/backend/internal/storage"

	"github.com/lib/pq"
)

type Service struct {
	Storage   storage.Storage
	Cache     cache.Cache
	Publisher ridehub.Publisher
	Scheduler expiry.JobScheduler
	Notifier  notify.Notifier
}

func NewService(s storage.Storage, c cache.Cache, p ridehub.Publisher, sched expiry.JobScheduler, n notify.Notifier) *Service {
	return &Service{
		Storage:   s,
		Cache:     c,
		Publisher: p,
		Scheduler: sched,
		Notifier:  n,
	}
}

// Create validates input, applies the active-ride limits and inserts the
// ride with the creator holding the first seat. Expiry scheduling failures
// never block creation; the overdue sweep covers them.
func (s *Service) Create(userID, destination string, departureTime time.Time) (*models.Ride, error) {
	if !models.ValidDestination(destination) {
		return nil, ErrInvalidDestination
	}
	now := time.Now()
	if !departureTime.After(now) {
		return nil, ErrPastDeparture
	}
	if departureTime.After(now.Add(config.DepartureHorizon)) {
		return nil, ErrHorizonExceeded
	}

	banned, err := s.Storage.IsUserBanned(userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, ErrBanned
	}

	// Best-effort limits, checked at the engine boundary rather than inside
	// the atomic insert.
	count, err := s.Storage.CountActiveCreatedRides(userID)
	if err != nil {
		return nil, err
	}
	if count >= config.MaxActiveCreated {
		return nil, ErrTooManyActiveRides
	}
	existing, err := s.Storage.GetActiveRideForUser(userID, destination)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflictingRide
	}

	ride := &models.Ride{
		Creator:       userID,
		Destination:   destination,
		DepartureTime: departureTime,
		Participants:  pq.StringArray{userID},
		Status:        models.StatusOpen,
	}
	if err := s.Storage.CreateRide(ride); err != nil {
		return nil, err
	}

	s.Scheduler.Schedule(ride.ID, ride.DepartureTime)
	s.Cache.InvalidateRide(ride.ID)
	s.Publisher.Broadcast(models.Envelope{
		Event:  models.EventRideCreated,
		RideID: ride.ID,
		Ride:   ride,
	})

	return ride, nil
}

// Join takes a seat. The decisive check happens inside the store's atomic
// append: whatever clause fails there, the caller sees the same generic
// rejection, and no retry makes sense because the predicate ran against the
// freshest state.
func (s *Service) Join(userID, rideID string) (*models.Ride, error) {
	current, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Storage.GetActiveRideForUser(userID, current.Destination)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != rideID {
		if existing.Creator == userID {
			return nil, ErrActiveCreatedRideExists
		}
		return nil, ErrConflictingRide
	}

	ride, err := s.Storage.AppendParticipant(rideID, userID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, ErrUnjoinable
	}
	if err != nil {
		return nil, err
	}

	s.afterMembershipChange(ride, models.EventRideJoined)
	s.postSystemMessage(rideID, "A new participant joined the ride")
	return ride, nil
}

// Leave gives up a seat. The creator cannot leave; deleting the ride is the
// only way out for them.
func (s *Service) Leave(userID, rideID string) (*models.Ride, error) {
	current, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}
	if current.Creator == userID {
		return nil, ErrCreatorCannotLeave
	}

	ride, err := s.Storage.RemoveParticipant(rideID, userID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}

	s.afterMembershipChange(ride, models.EventRideLeft)
	s.postSystemMessage(rideID, "A participant left the ride")
	return ride, nil
}

// Kick removes a participant on the creator's behalf. The removed user gets
// a system message in the thread, a direct notification, and their live
// connection is evicted from the ride's subscriber group.
func (s *Service) Kick(creatorID, rideID, targetID string) (*models.Ride, error) {
	current, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}
	if current.Creator != creatorID {
		return nil, ErrForbidden
	}
	if targetID == creatorID {
		return nil, ErrSelfKick
	}
	if !current.IsParticipant(targetID) {
		return nil, ErrNotInRide
	}

	ride, err := s.Storage.RemoveParticipant(rideID, targetID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, ErrNotInRide
	}
	if err != nil {
		return nil, err
	}

	s.Cache.InvalidateRide(rideID)
	s.postSystemMessage(rideID, "A participant was removed by the ride creator")
	s.Publisher.ToRide(rideID, models.Envelope{
		Event:    models.EventParticipantKicked,
		RideID:   rideID,
		Ride:     ride,
		TargetID: targetID,
	})
	s.Publisher.Broadcast(models.Envelope{
		Event:  models.EventRideKicked,
		RideID: rideID,
		Ride:   ride,
	})

	meta, _ := json.Marshal(map[string]string{"rideId": rideID, "destination": ride.Destination})
	s.Notifier.Notify(targetID, &models.Notification{
		Message: "You were removed from the ride to " + ride.Destination + ".",
		Type:    models.NotificationTypeRide,
		Meta:    string(meta),
	})

	return ride, nil
}

// Lock closes the join gate. Requires at least two participants; existing
// members can still leave or be kicked while locked.
func (s *Service) Lock(creatorID, rideID string) (*models.Ride, error) {
	current, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}
	if current.Creator != creatorID {
		return nil, ErrForbidden
	}

	ride, err := s.Storage.SetLocked(rideID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	s.afterMembershipChange(ride, models.EventRideLocked)
	return ride, nil
}

func (s *Service) Unlock(creatorID, rideID string) (*models.Ride, error) {
	current, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}
	if current.Creator != creatorID {
		return nil, ErrForbidden
	}

	ride, err := s.Storage.SetUnlocked(rideID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	s.afterMembershipChange(ride, models.EventRideUnlocked)
	return ride, nil
}

// Delete tears the ride down: pending expiry job canceled, messages purged,
// cache evicted and the terminal event published before the row is removed.
func (s *Service) Delete(creatorID, rideID string) error {
	current, err := s.getExisting(rideID)
	if err != nil {
		return err
	}
	if current.Creator != creatorID {
		return ErrForbidden
	}

	s.Scheduler.Cancel(rideID)

	if err := s.Storage.DeleteMessagesForRide(rideID); err != nil {
		log.Printf("ERROR: Failed to purge messages for deleted ride %s: %v", rideID, err)
	}
	s.Cache.InvalidateRide(rideID)

	s.Publisher.ToRide(rideID, models.Envelope{
		Event:  models.EventRideEnded,
		RideID: rideID,
		Text:   "Ride was deleted by its creator",
	})
	s.Publisher.Broadcast(models.Envelope{
		Event:  models.EventRideDeleted,
		RideID: rideID,
	})

	return s.Storage.DeleteRide(rideID)
}

// Get returns a single ride, served from cache when fresh.
func (s *Service) Get(rideID string) (*models.Ride, error) {
	var cached models.Ride
	if s.Cache.GetJSON(cache.RideKey(rideID), &cached) {
		return &cached, nil
	}

	ride, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}
	s.Cache.SetJSON(cache.RideKey(rideID), ride, config.RideDetailTTL)
	return ride, nil
}

// ListOpen returns all open and full rides, served from cache when fresh.
func (s *Service) ListOpen() ([]models.Ride, error) {
	var cached []models.Ride
	if s.Cache.GetJSON(cache.OpenRidesKey, &cached) {
		return cached, nil
	}

	rides, err := s.Storage.GetActiveRides()
	if err != nil {
		return nil, err
	}
	s.Cache.SetJSON(cache.OpenRidesKey, rides, config.RideListTTL)
	return rides, nil
}

// PostMessage appends a chat message after re-validating, at send time, that
// the sender is still a participant, not banned, and the ride is alive.
func (s *Service) PostMessage(userID, rideID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > config.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	banned, err := s.Storage.IsUserBanned(userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, ErrBanned
	}

	ride, err := s.Storage.GetRideByID(rideID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRideEnded
	}
	if err != nil {
		return nil, err
	}
	if ride.IsExpiredAt(time.Now()) {
		return nil, ErrRideEnded
	}
	if !ride.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	msg := &models.Message{
		RideID: rideID,
		Sender: &userID,
		Text:   text,
		Type:   models.MessageTypeUser,
	}
	if err := s.Storage.SaveMessage(msg); err != nil {
		return nil, err
	}

	s.Cache.InvalidateMessages(rideID)
	s.Publisher.ToRide(rideID, models.Envelope{
		Event:   models.EventMessageNew,
		RideID:  rideID,
		Message: chatProjection(msg),
	})

	return msg, nil
}

// MessagesFor returns the ride's thread to a participant, cached.
func (s *Service) MessagesFor(userID, rideID string) ([]models.Message, error) {
	ride, err := s.getExisting(rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	var cached []models.Message
	if s.Cache.GetJSON(cache.MessagesKey(rideID), &cached) {
		return cached, nil
	}

	messages, err := s.Storage.GetMessagesForRide(rideID)
	if err != nil {
		return nil, err
	}
	s.Cache.SetJSON(cache.MessagesKey(rideID), messages, config.MessagesTTL)
	return messages, nil
}

func (s *Service) NotificationsFor(userID string) ([]models.Notification, error) {
	return s.Storage.GetNotificationsForUser(userID)
}

func (s *Service) MarkNotificationRead(notificationID, userID string) error {
	return s.Storage.MarkNotificationRead(notificationID, userID)
}

func (s *Service) getExisting(rideID string) (*models.Ride, error) {
	ride, err := s.Storage.GetRideByID(rideID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// afterMembershipChange runs the shared post-mutation cascade: evict the
// ride's cache entries and the listing, then fan the fresh snapshot out
// globally and to the ride's subscriber group.
func (s *Service) afterMembershipChange(ride *models.Ride, event string) {
	s.Cache.InvalidateRide(ride.ID)

	env := models.Envelope{
		Event:  event,
		RideID: ride.ID,
		Ride:   ride,
	}
	s.Publisher.Broadcast(env)
	s.Publisher.ToRide(ride.ID, env)
}

// postSystemMessage appends an engine-generated entry to the ride's thread.
// Failures are logged only; a missing system message never fails the
// mutation that produced it.
func (s *Service) postSystemMessage(rideID, text string) {
	msg := models.SystemMessage(rideID, text)
	if err := s.Storage.SaveMessage(msg); err != nil {
		log.Printf("WARNING: Failed to save system message for ride %s: %v", rideID, err)
		return
	}
	s.Cache.InvalidateMessages(rideID)
	s.Publisher.ToRide(rideID, models.Envelope{
		Event:   models.EventMessageNew,
		RideID:  rideID,
		Message: chatProjection(msg),
	})
}

func chatProjection(msg *models.Message) *models.ChatMessage {
	sender := "system"
	if msg.Sender != nil {
		sender = *msg.Sender
	}
	return &models.ChatMessage{
		ID:        msg.ID,
		RideID:    msg.RideID,
		Sender:    sender,
		Text:      msg.Text,
		Type:      msg.Type,
		CreatedAt: msg.CreatedAt,
	}
}
