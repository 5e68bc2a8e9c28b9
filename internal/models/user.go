package models

// User holds the minimal identity record the engine itself needs. Account
// management, OTP verification and ban policy live in an external service;
// the only locally useful fields are the ID referenced by rides and an
// optional Telegram chat link for out-of-band notification delivery.
type User struct {
	ID             string `gorm:"primaryKey" json:"id"`
	TelegramChatID int64  `gorm:"index" json:"-"`
}
