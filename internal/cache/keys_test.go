package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRideKeys(t *testing.T) {
	assert.Equal(t, "ride:abc", RideKey("abc"))
	assert.Equal(t, "ride:abc:messages", MessagesKey("abc"))
}

func TestSuggestKey_DeterministicFingerprint(t *testing.T) {
	target := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	a := SuggestKey("alice", "airport", target, 15*time.Minute)
	b := SuggestKey("alice", "airport", target, 15*time.Minute)
	assert.Equal(t, a, b, "identical queries must share a cache entry")

	// The fingerprint covers the full sweep namespace.
	assert.True(t, strings.HasPrefix(a, "suggest:"))

	// Any parameter change produces a distinct key.
	assert.NotEqual(t, a, SuggestKey("bob", "airport", target, 15*time.Minute))
	assert.NotEqual(t, a, SuggestKey("alice", "campus", target, 15*time.Minute))
	assert.NotEqual(t, a, SuggestKey("alice", "airport", target.Add(time.Minute), 15*time.Minute))
	assert.NotEqual(t, a, SuggestKey("alice", "airport", target, 30*time.Minute))
}

func TestSuggestKey_TimezoneIndependent(t *testing.T) {
	utc := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	shifted := utc.In(time.FixedZone("UTC+3", 3*60*60))

	assert.Equal(t,
		SuggestKey("alice", "airport", utc, 15*time.Minute),
		SuggestKey("alice", "airport", shifted, 15*time.Minute))
}
