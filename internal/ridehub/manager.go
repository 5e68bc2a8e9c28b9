package ridehub

import (
	"log"
	"strings"
	"time"

	"cabshare/backend/internal/models"
	"cabshare/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

// ChatService is the slice of the ride engine the hub needs for inbound
// chat frames. Wired after construction because the engine itself is built
// with the hub's publisher.
type ChatService interface {
	PostMessage(userID, rideID, text string) (*models.Message, error)
}

// Inbound is a decoded client frame together with its origin connection.
type Inbound struct {
	Client Client
	Frame  models.Frame
}

// RoutedEnvelope is an envelope received from the pub/sub bridge together
// with the channel it arrived on.
type RoutedEnvelope struct {
	Channel  string
	Envelope models.Envelope
}

// Manager owns all live connections and the per-ride subscriber groups.
// All state is confined to the Run goroutine; the rest of the process talks
// to it through channels or through the Publisher (which loops back via
// Redis pub/sub, so fan-out behaves identically with one instance or many).
type Manager struct {
	Clients map[string]Client
	Rooms   map[string]map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound
	PubSubCh     chan RoutedEnvelope

	Storage storage.Storage
	Redis   *redis.Client
	Chat    ChatService
}

func NewManager(s storage.Storage, rdb *redis.Client) *Manager {
	return &Manager{
		Clients:      make(map[string]Client),
		Rooms:        make(map[string]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound),
		PubSubCh:     make(chan RoutedEnvelope, 64),
		Storage:      s,
		Redis:        rdb,
	}
}

func (m *Manager) SetChatService(chat ChatService) {
	m.Chat = chat
}

// Run is the hub's main loop. Start it once, as a goroutine.
func (m *Manager) Run() {
	m.startPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)

		case in := <-m.IncomingCh:
			m.handleFrame(in)

		case routed := <-m.PubSubCh:
			m.route(routed)
		}
	}
}

func (m *Manager) register(client Client) {
	userID := client.GetUserID()
	if old, ok := m.Clients[userID]; ok && old != client {
		// A reconnect replaces the previous connection.
		m.dropFromRooms(old)
		old.Close()
	}
	m.Clients[userID] = client
	log.Printf("Client connected: %s", userID)
}

func (m *Manager) unregister(client Client) {
	userID := client.GetUserID()
	if current, ok := m.Clients[userID]; ok && current == client {
		delete(m.Clients, userID)
		m.dropFromRooms(client)
		client.Close()
		log.Printf("Client disconnected: %s", userID)
	}
}

func (m *Manager) dropFromRooms(client Client) {
	userID := client.GetUserID()
	for rideID, room := range m.Rooms {
		if room[userID] == client {
			delete(room, userID)
			if len(room) == 0 {
				delete(m.Rooms, rideID)
			}
		}
	}
}

// handleFrame processes a client command. The enter-ride handshake
// re-validates that the user is still a participant and the ride is alive;
// subscription state from a previous membership never grants access.
func (m *Manager) handleFrame(in Inbound) {
	userID := in.Client.GetUserID()

	// A frame can sit queued across a reconnect or disconnect. Its origin
	// connection is already closed: it must not rejoin rooms and its send
	// channel must never be written again.
	if current, ok := m.Clients[userID]; !ok || current != in.Client {
		return
	}

	switch in.Frame.Action {
	case "join-ride":
		ride, err := m.Storage.GetRideByID(in.Frame.RideID)
		if err != nil {
			m.sendError(in.Client, "Ride not found")
			return
		}
		if ride.IsExpiredAt(time.Now()) {
			m.sendError(in.Client, "Ride has expired")
			return
		}
		if !ride.IsParticipant(userID) {
			m.sendError(in.Client, "Access denied to this ride chat")
			return
		}
		room, ok := m.Rooms[ride.ID]
		if !ok {
			room = make(map[string]Client)
			m.Rooms[ride.ID] = room
		}
		room[userID] = in.Client
		log.Printf("User %s subscribed to ride %s", userID, ride.ID)

	case "send-message":
		if m.Chat == nil {
			m.sendError(in.Client, "Chat is unavailable")
			return
		}
		if _, err := m.Chat.PostMessage(userID, in.Frame.RideID, in.Frame.Content); err != nil {
			m.sendError(in.Client, err.Error())
		}
		// Delivery happens via the published message.new envelope.

	default:
		m.sendError(in.Client, "Unknown action")
	}
}

// route fans a bridged envelope out to its audience. Kick and terminal
// envelopes double as group-membership commands: the affected connections
// are evicted after delivery.
func (m *Manager) route(routed RoutedEnvelope) {
	env := routed.Envelope

	switch {
	case routed.Channel == BroadcastChannel:
		for _, client := range m.Clients {
			m.deliver(client, env)
		}

	case strings.HasPrefix(routed.Channel, "events:ride:"):
		rideID := strings.TrimPrefix(routed.Channel, "events:ride:")
		room := m.Rooms[rideID]
		for _, client := range room {
			m.deliver(client, env)
		}
		switch env.Event {
		case models.EventParticipantKicked:
			if room != nil {
				delete(room, env.TargetID)
				if len(room) == 0 {
					delete(m.Rooms, rideID)
				}
			}
		case models.EventRideEnded:
			delete(m.Rooms, rideID)
		}

	case strings.HasPrefix(routed.Channel, "events:user:"):
		userID := strings.TrimPrefix(routed.Channel, "events:user:")
		if client, ok := m.Clients[userID]; ok {
			m.deliver(client, env)
		}
	}
}

// deliver is non-blocking: a connection whose send buffer is full misses
// the envelope rather than stalling the hub. Clients reconcile by
// refetching, so a dropped push only costs freshness.
func (m *Manager) deliver(client Client, env models.Envelope) {
	select {
	case client.GetSendChannel() <- env:
	default:
		log.Printf("WARNING: Dropping envelope for slow client %s", client.GetUserID())
	}
}

func (m *Manager) sendError(client Client, text string) {
	m.deliver(client, models.Envelope{Event: models.EventError, Text: text})
}
