package cache

import (
	"fmt"
	"time"
)

// OpenRidesKey caches the global open/full ride listing.
const OpenRidesKey = "rides:open"

// SuggestPattern matches every suggestion key for namespace sweeps.
const SuggestPattern = "suggest:*"

func RideKey(rideID string) string {
	return "ride:" + rideID
}

func MessagesKey(rideID string) string {
	return "ride:" + rideID + ":messages"
}

// SuggestKey fingerprints a suggestion query. The key is deterministic in
// the query parameters so identical lookups share an entry.
func SuggestKey(userID, destination string, target time.Time, window time.Duration) string {
	return fmt.Sprintf("suggest:%s:%s:%d:%d", userID, destination, target.Unix(), int(window.Minutes()))
}
