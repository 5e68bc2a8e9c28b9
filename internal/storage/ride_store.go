package storage

import (
	"errors"
	"log"
	"time"

	"cabshare/backend/internal/config"
	"cabshare/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateRide(ride *models.Ride) error {
	return s.DB.Create(ride).Error
}

func (s *Service) GetRideByID(rideID string) (*models.Ride, error) {
	var ride models.Ride
	err := s.DB.First(&ride, "id = ?", rideID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get ride %s: %v", rideID, err)
		return nil, err
	}
	return &ride, nil
}

// GetActiveRides returns all open and full rides, soonest departure first.
func (s *Service) GetActiveRides() ([]models.Ride, error) {
	var rides []models.Ride
	err := s.DB.
		Where("status IN ?", []string{models.StatusOpen, models.StatusFull}).
		Order("departure_time asc").
		Find(&rides).Error
	if err != nil {
		log.Printf("ERROR: Failed to list active rides: %v", err)
		return nil, err
	}
	return rides, nil
}

// GetRidesInWindow returns open, unlocked rides to the destination departing
// inside [from, to]. Candidate set for the suggestion engine.
func (s *Service) GetRidesInWindow(destination string, from, to time.Time) ([]models.Ride, error) {
	var rides []models.Ride
	err := s.DB.
		Where("destination = ? AND status = ? AND is_locked = false", destination, models.StatusOpen).
		Where("departure_time BETWEEN ? AND ?", from, to).
		Order("departure_time asc").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}
	return rides, nil
}

// GetActiveRideForUser finds the open or full ride to the destination in
// which the user is the creator or a participant, or nil if there is none.
func (s *Service) GetActiveRideForUser(userID, destination string) (*models.Ride, error) {
	var ride models.Ride
	err := s.DB.
		Where("destination = ? AND status IN ?", destination, []string{models.StatusOpen, models.StatusFull}).
		Where("creator = ? OR ? = ANY(participants)", userID, userID).
		First(&ride).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (s *Service) CountActiveCreatedRides(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Ride{}).
		Where("creator = ? AND status IN ?", userID, []string{models.StatusOpen, models.StatusFull}).
		Count(&count).Error
	return count, err
}

// AppendParticipant atomically takes a seat. The predicate — open, unlocked,
// not yet a member, below capacity — is evaluated inside the UPDATE, so two
// users racing for the last seat cannot both win: the loser's update matches
// no rows. A second conditional step advances status to full when the
// appended participant took the last seat.
func (s *Service) AppendParticipant(rideID, userID string) (*models.Ride, error) {
	res := s.DB.Model(&models.Ride{}).
		Where("id = ? AND status = ? AND is_locked = false", rideID, models.StatusOpen).
		Where("NOT (? = ANY(participants))", userID).
		Where("cardinality(participants) < ?", config.MaxParticipants).
		Update("participants", gorm.Expr("array_append(participants, ?)", userID))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConditionFailed
	}

	if err := s.promoteFullIfNeeded(rideID); err != nil {
		log.Printf("ERROR: Failed to promote ride %s to full: %v", rideID, err)
	}
	return s.GetRideByID(rideID)
}

func (s *Service) promoteFullIfNeeded(rideID string) error {
	return s.DB.Model(&models.Ride{}).
		Where("id = ? AND status = ?", rideID, models.StatusOpen).
		Where("cardinality(participants) >= ?", config.MaxParticipants).
		Update("status", models.StatusFull).Error
}

// RemoveParticipant atomically gives up a seat. A full ride dropping below
// capacity reverts to open in a follow-up conditional step.
func (s *Service) RemoveParticipant(rideID, userID string) (*models.Ride, error) {
	res := s.DB.Model(&models.Ride{}).
		Where("id = ? AND status <> ?", rideID, models.StatusExpired).
		Where("? = ANY(participants)", userID).
		Update("participants", gorm.Expr("array_remove(participants, ?)", userID))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConditionFailed
	}

	err := s.DB.Model(&models.Ride{}).
		Where("id = ? AND status = ?", rideID, models.StatusFull).
		Where("cardinality(participants) < ?", config.MaxParticipants).
		Update("status", models.StatusOpen).Error
	if err != nil {
		log.Printf("ERROR: Failed to reopen ride %s: %v", rideID, err)
	}
	return s.GetRideByID(rideID)
}

// SetLocked closes the join gate. Requires at least two participants and an
// unlocked, open ride.
func (s *Service) SetLocked(rideID string) (*models.Ride, error) {
	res := s.DB.Model(&models.Ride{}).
		Where("id = ? AND status <> ? AND is_locked = false", rideID, models.StatusExpired).
		Where("cardinality(participants) >= ?", config.MinLockParticipants).
		Updates(map[string]interface{}{
			"is_locked": true,
			"locked_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConditionFailed
	}
	return s.GetRideByID(rideID)
}

func (s *Service) SetUnlocked(rideID string) (*models.Ride, error) {
	res := s.DB.Model(&models.Ride{}).
		Where("id = ? AND status <> ? AND is_locked = true", rideID, models.StatusExpired).
		Updates(map[string]interface{}{
			"is_locked": false,
			"locked_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConditionFailed
	}
	return s.GetRideByID(rideID)
}

// MarkExpired applies the terminal transition exactly once. Firing it again,
// or against a ride deleted in the meantime, matches no rows and returns
// ErrConditionFailed, which expiry treats as a no-op.
func (s *Service) MarkExpired(rideID string) (*models.Ride, error) {
	res := s.DB.Model(&models.Ride{}).
		Where("id = ? AND status <> ?", rideID, models.StatusExpired).
		Update("status", models.StatusExpired)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConditionFailed
	}
	return s.GetRideByID(rideID)
}

func (s *Service) DeleteRide(rideID string) error {
	return s.DB.Delete(&models.Ride{}, "id = ?", rideID).Error
}

// ListOverdueRideIDs returns rides whose departure time has passed but whose
// status never reached expired. Safety net for lost deferred actions.
func (s *Service) ListOverdueRideIDs(now time.Time) ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.Ride{}).
		Where("departure_time < ? AND status <> ?", now, models.StatusExpired).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PurgeExpiredBefore removes rides that have sat in expired state since
// before the cutoff, messages first. Returns the number of rides removed.
func (s *Service) PurgeExpiredBefore(cutoff time.Time) (int64, error) {
	sub := s.DB.Model(&models.Ride{}).
		Select("id").
		Where("status = ? AND updated_at < ?", models.StatusExpired, cutoff)

	if err := s.DB.Where("ride_id IN (?)", sub).Delete(&models.Message{}).Error; err != nil {
		return 0, err
	}

	res := s.DB.
		Where("status = ? AND updated_at < ?", models.StatusExpired, cutoff).
		Delete(&models.Ride{})
	return res.RowsAffected, res.Error
}
