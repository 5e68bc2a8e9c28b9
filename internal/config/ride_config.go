package config

import "time"

const (
	// Capacity
	MaxParticipants      = 4
	MinLockParticipants  = 2
	MaxActiveCreated     = 2
	DepartureHorizon     = 40 * 24 * time.Hour

	// Suggestions
	DefaultSuggestWindow = 15 * time.Minute
	MinSuggestWindow     = 5 * time.Minute
	MaxSuggestWindow     = 60 * time.Minute
	MaxSuggestions       = 10

	// Chat
	MaxMessageLength = 500

	// Cache TTLs
	RideDetailTTL  = 60 * time.Second
	RideListTTL    = 30 * time.Second
	SuggestionsTTL = 15 * time.Second
	MessagesTTL    = 60 * time.Second

	// Background sweeps
	ExpireSweepInterval = 5 * time.Minute
	PurgeSweepInterval  = 30 * time.Minute
	ExpiredRetention    = 24 * time.Hour

	// Rate limiting
	APIRateWindow = 15 * time.Minute
	APIRateLimit  = 100
)
