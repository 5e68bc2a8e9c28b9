package ridehub

import (
	"context"
	"encoding/json"
	"log"

	"cabshare/backend/internal/models"
)

// startPubSubListener subscribes to the event channel namespace and feeds
// received envelopes into the hub's routing loop. Every instance of the
// service sees every published envelope; each routes only to the
// connections it holds.
func (m *Manager) startPubSubListener() {
	if m.Redis == nil {
		// Tests drive PubSubCh directly.
		return
	}

	go func() {
		ctx := context.Background()
		pubsub := m.Redis.PSubscribe(ctx, channelPattern)
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var env models.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("ERROR: Failed to decode pub/sub envelope on %s: %v", msg.Channel, err)
				continue
			}
			m.PubSubCh <- RoutedEnvelope{Channel: msg.Channel, Envelope: env}
		}
	}()
}
