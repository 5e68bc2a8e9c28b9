package ridehub

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"cabshare/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Redis channels carrying envelopes between instances. The hub of every
// instance subscribes to the whole namespace and routes locally.
const (
	BroadcastChannel = "events:broadcast"
	channelPattern   = "events:*"
	publishTimeout   = 2 * time.Second
)

func RideChannel(rideID string) string {
	return "events:ride:" + rideID
}

func UserChannel(userID string) string {
	return "events:user:" + userID
}

// Publisher is the event fan-out surface handed to every component that
// emits ride transitions. It is constructed once at process start and
// injected; nothing reaches it through package state. Delivery is best
// effort: a publish failure is logged and the mutation that triggered it
// still succeeds.
type Publisher interface {
	// Broadcast fans the envelope out to every live connection.
	Broadcast(env models.Envelope)
	// ToRide fans the envelope out to the ride's subscriber group.
	ToRide(rideID string, env models.Envelope)
	// ToUser delivers the envelope to a single user's connection.
	ToUser(userID string, env models.Envelope)
}

// RedisPublisher implements Publisher over Redis pub/sub so fan-out works
// across multiple instances of the service.
type RedisPublisher struct {
	Redis *redis.Client
	Ctx   context.Context
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (p *RedisPublisher) Broadcast(env models.Envelope) {
	p.publish(BroadcastChannel, env)
}

func (p *RedisPublisher) ToRide(rideID string, env models.Envelope) {
	p.publish(RideChannel(rideID), env)
}

func (p *RedisPublisher) ToUser(userID string, env models.Envelope) {
	p.publish(UserChannel(userID), env)
}

func (p *RedisPublisher) publish(channel string, env models.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("ERROR: Failed to encode envelope for %s: %v", channel, err)
		return
	}

	ctx, cancel := context.WithTimeout(p.Ctx, publishTimeout)
	defer cancel()

	if err := p.Redis.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("WARNING: Event publish failed on %s: %v", channel, err)
	}
}
