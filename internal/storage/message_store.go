package storage

import (
	"errors"
	"log"

	"cabshare/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for ride %s: %v", msg.RideID, err)
		return err
	}
	return nil
}

// GetMessagesForRide returns the ride's thread in chronological order.
func (s *Service) GetMessagesForRide(rideID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.
		Where("ride_id = ?", rideID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		log.Printf("ERROR: Failed to get messages for ride %s: %v", rideID, err)
		return nil, err
	}
	return messages, nil
}

// DeleteMessagesForRide purges the whole thread. Messages belong to the
// ride's lifetime, so this runs on every delete and expiry.
func (s *Service) DeleteMessagesForRide(rideID string) error {
	return s.DB.Delete(&models.Message{}, "ride_id = ?", rideID).Error
}

func (s *Service) SaveNotification(n *models.Notification) error {
	if err := s.DB.Create(n).Error; err != nil {
		log.Printf("ERROR: Failed to save notification for user %s: %v", n.UserID, err)
		return err
	}
	return nil
}

func (s *Service) GetNotificationsForUser(userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *Service) MarkNotificationRead(notificationID, userID string) error {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read = false", notificationID, userID).
		Updates(map[string]interface{}{
			"read":    true,
			"read_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("notification not found or already read")
	}
	return nil
}
