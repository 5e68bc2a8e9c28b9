// Package cache is the read side-channel for listings, ride detail and
// suggestion queries. It is advisory only: every failure is logged and
// treated as a miss, so an unavailable Redis can never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// opTimeout bounds every cache call so a slow Redis cannot stall the
// request path it is supposed to accelerate.
const opTimeout = 2 * time.Second

type Cache interface {
	// GetJSON reports whether the key was present and decoded into dest.
	// Errors and corrupt entries count as misses.
	GetJSON(key string, dest interface{}) bool
	SetJSON(key string, value interface{}, ttl time.Duration)
	InvalidateRide(rideID string)
	InvalidateMessages(rideID string)
}

type Service struct {
	Redis *redis.Client
	Ctx   context.Context
}

func NewService(rdb *redis.Client) *Service {
	return &Service{
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (s *Service) GetJSON(key string, dest interface{}) bool {
	ctx, cancel := context.WithTimeout(s.Ctx, opTimeout)
	defer cancel()

	payload, err := s.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("WARNING: Cache read failed for %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		log.Printf("WARNING: Corrupt cache entry for %s, treating as miss: %v", key, err)
		return false
	}
	return true
}

func (s *Service) SetJSON(key string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("WARNING: Cache encode failed for %s: %v", key, err)
		return
	}

	ctx, cancel := context.WithTimeout(s.Ctx, opTimeout)
	defer cancel()

	if err := s.Redis.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Printf("WARNING: Cache write failed for %s: %v", key, err)
	}
}

// InvalidateRide evicts everything a ride mutation can make stale: the
// ride's detail and message keys, the global listing, and the whole
// suggestion namespace (suggestion keys are parameterized per requester, so
// they are swept by pattern rather than enumerated).
func (s *Service) InvalidateRide(rideID string) {
	ctx, cancel := context.WithTimeout(s.Ctx, opTimeout)
	defer cancel()

	keys := []string{OpenRidesKey}
	if rideID != "" {
		keys = append(keys, RideKey(rideID), MessagesKey(rideID))
	}
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("WARNING: Cache invalidate failed for ride %s: %v", rideID, err)
	}

	s.delByPattern(SuggestPattern)
}

func (s *Service) InvalidateMessages(rideID string) {
	ctx, cancel := context.WithTimeout(s.Ctx, opTimeout)
	defer cancel()

	if err := s.Redis.Del(ctx, MessagesKey(rideID)).Err(); err != nil {
		log.Printf("WARNING: Message cache invalidate failed for ride %s: %v", rideID, err)
	}
}

func (s *Service) delByPattern(pattern string) {
	ctx, cancel := context.WithTimeout(s.Ctx, opTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := s.Redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Printf("WARNING: Cache scan failed for %s: %v", pattern, err)
			return
		}
		if len(keys) > 0 {
			if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
				log.Printf("WARNING: Cache sweep delete failed for %s: %v", pattern, err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
