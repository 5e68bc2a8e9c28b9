package storage

import (
	"context"
	"errors"
	"time"

	"cabshare/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrConditionFailed is returned by conditional ride transitions when the
// predicate did not hold at the moment the update executed: the row was
// missing, the seat was taken, the ride was locked, expired, or the user was
// already (or not) a participant. Callers treat it as a definitively lost
// race, never as something to retry.
var ErrConditionFailed = errors.New("conditional update matched no rows")

// ErrNotFound is returned when a ride id is unknown or already deleted.
var ErrNotFound = errors.New("ride not found")

type Storage interface {
	// Rides
	CreateRide(ride *models.Ride) error
	GetRideByID(rideID string) (*models.Ride, error)
	GetActiveRides() ([]models.Ride, error)
	GetRidesInWindow(destination string, from, to time.Time) ([]models.Ride, error)
	GetActiveRideForUser(userID, destination string) (*models.Ride, error)
	CountActiveCreatedRides(userID string) (int64, error)

	// Conditional transitions. Each is a single UPDATE whose WHERE clause
	// carries the full transition predicate; zero affected rows means the
	// caller lost the race and gets ErrConditionFailed.
	AppendParticipant(rideID, userID string) (*models.Ride, error)
	RemoveParticipant(rideID, userID string) (*models.Ride, error)
	SetLocked(rideID string) (*models.Ride, error)
	SetUnlocked(rideID string) (*models.Ride, error)
	MarkExpired(rideID string) (*models.Ride, error)

	DeleteRide(rideID string) error
	ListOverdueRideIDs(now time.Time) ([]string, error)
	PurgeExpiredBefore(cutoff time.Time) (int64, error)

	// Messages
	SaveMessage(msg *models.Message) error
	GetMessagesForRide(rideID string) ([]models.Message, error)
	DeleteMessagesForRide(rideID string) error

	// Notifications
	SaveNotification(n *models.Notification) error
	GetNotificationsForUser(userID string) ([]models.Notification, error)
	MarkNotificationRead(notificationID, userID string) error

	// Users
	GetUserByID(userID string) (*models.User, error)
	IsUserBanned(userID string) (bool, error)
}

// Service is the authoritative store: rides, messages and notifications in
// PostgreSQL, ban flags in Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// IsUserBanned checks the ban flag in Redis. Ban policy is managed by an
// external moderation service; this only reads the resulting flag.
func (s *Service) IsUserBanned(userID string) (bool, error) {
	key := "ban:" + userID
	status, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// GetUserByID returns the user record, or nil without error when the user
// has no local row (identity is owned by the external auth service).
func (s *Service) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
