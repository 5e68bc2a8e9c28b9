package rides

import (
	"sort"
	"time"

	"cabshare/backend/internal/cache"
	"cabshare/backend/internal/config"
	"cabshare/backend/internal/models"
)

// ReasonAlreadyInOpenRide explains a disabled suggestion response: the
// requester already holds an open ride to the requested destination.
const ReasonAlreadyInOpenRide = "already_in_open_ride"

// Suggestions is the ranked result of a suggestion query.
type Suggestions struct {
	Disabled bool          `json:"disabled"`
	Reason   string        `json:"reason,omitempty"`
	Rides    []models.Ride `json:"rides"`
}

// Suggest ranks open, unlocked rides to the destination departing within
// the window around the target time, closest departure first, more free
// seats breaking ties. Suppressed entirely when the requester already holds
// an open ride to that destination.
func (s *Service) Suggest(userID, destination string, target time.Time, windowMinutes int) (*Suggestions, error) {
	if !models.ValidDestination(destination) {
		return nil, ErrInvalidDestination
	}

	window := clampWindow(windowMinutes)

	own, err := s.Storage.GetActiveRideForUser(userID, destination)
	if err != nil {
		return nil, err
	}
	if own != nil && own.Status == models.StatusOpen {
		return &Suggestions{Disabled: true, Reason: ReasonAlreadyInOpenRide, Rides: []models.Ride{}}, nil
	}

	key := cache.SuggestKey(userID, destination, target, window)
	var cached Suggestions
	if s.Cache.GetJSON(key, &cached) {
		return &cached, nil
	}

	candidates, err := s.Storage.GetRidesInWindow(destination, target.Add(-window), target.Add(window))
	if err != nil {
		return nil, err
	}

	ranked := make([]models.Ride, 0, len(candidates))
	for _, ride := range candidates {
		if ride.Creator == userID || ride.IsParticipant(userID) {
			continue
		}
		ranked = append(ranked, ride)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di := absDuration(ranked[i].DepartureTime.Sub(target))
		dj := absDuration(ranked[j].DepartureTime.Sub(target))
		if di != dj {
			return di < dj
		}
		return ranked[i].SeatsLeft(config.MaxParticipants) > ranked[j].SeatsLeft(config.MaxParticipants)
	})

	if len(ranked) > config.MaxSuggestions {
		ranked = ranked[:config.MaxSuggestions]
	}

	result := &Suggestions{Rides: ranked}
	s.Cache.SetJSON(key, result, config.SuggestionsTTL)
	return result, nil
}

func clampWindow(minutes int) time.Duration {
	if minutes <= 0 {
		return config.DefaultSuggestWindow
	}
	window := time.Duration(minutes) * time.Minute
	if window < config.MinSuggestWindow {
		return config.MinSuggestWindow
	}
	if window > config.MaxSuggestWindow {
		return config.MaxSuggestWindow
	}
	return window
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
