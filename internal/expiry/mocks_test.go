package expiry_test

import (
	"sync"
	"time"

	"cabshare/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateRide(ride *models.Ride) error {
	args := m.Called(ride)
	return args.Error(0)
}

func (m *MockStorage) GetRideByID(rideID string) (*models.Ride, error) {
	args := m.Called(rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) GetActiveRides() ([]models.Ride, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ride), args.Error(1)
}

func (m *MockStorage) GetRidesInWindow(destination string, from, to time.Time) ([]models.Ride, error) {
	args := m.Called(destination, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ride), args.Error(1)
}

func (m *MockStorage) GetActiveRideForUser(userID, destination string) (*models.Ride, error) {
	args := m.Called(userID, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) CountActiveCreatedRides(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) AppendParticipant(rideID, userID string) (*models.Ride, error) {
	args := m.Called(rideID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) RemoveParticipant(rideID, userID string) (*models.Ride, error) {
	args := m.Called(rideID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) SetLocked(rideID string) (*models.Ride, error) {
	args := m.Called(rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) SetUnlocked(rideID string) (*models.Ride, error) {
	args := m.Called(rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) MarkExpired(rideID string) (*models.Ride, error) {
	args := m.Called(rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockStorage) DeleteRide(rideID string) error {
	args := m.Called(rideID)
	return args.Error(0)
}

func (m *MockStorage) ListOverdueRideIDs(now time.Time) ([]string, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) PurgeExpiredBefore(cutoff time.Time) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessagesForRide(rideID string) ([]models.Message, error) {
	args := m.Called(rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) DeleteMessagesForRide(rideID string) error {
	args := m.Called(rideID)
	return args.Error(0)
}

func (m *MockStorage) SaveNotification(n *models.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockStorage) GetNotificationsForUser(userID string) ([]models.Notification, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockStorage) MarkNotificationRead(notificationID, userID string) error {
	args := m.Called(notificationID, userID)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) IsUserBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

// noopCache records invalidated ride ids and drops everything else.
type noopCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *noopCache) GetJSON(key string, dest interface{}) bool { return false }

func (c *noopCache) SetJSON(key string, value interface{}, ttl time.Duration) {}

func (c *noopCache) InvalidateRide(rideID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, rideID)
}

func (c *noopCache) InvalidateMessages(rideID string) {}

// recordingPublisher captures published envelopes per audience.
type recordingPublisher struct {
	mu        sync.Mutex
	broadcast []models.Envelope
	toRide    map[string][]models.Envelope
	toUser    map[string][]models.Envelope
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{
		toRide: make(map[string][]models.Envelope),
		toUser: make(map[string][]models.Envelope),
	}
}

func (p *recordingPublisher) Broadcast(env models.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, env)
}

func (p *recordingPublisher) ToRide(rideID string, env models.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toRide[rideID] = append(p.toRide[rideID], env)
}

func (p *recordingPublisher) ToUser(userID string, env models.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toUser[userID] = append(p.toUser[userID], env)
}

func (p *recordingPublisher) broadcastEvents() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]string, 0, len(p.broadcast))
	for _, env := range p.broadcast {
		events = append(events, env.Event)
	}
	return events
}

func (p *recordingPublisher) rideEvents(rideID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]string, 0, len(p.toRide[rideID]))
	for _, env := range p.toRide[rideID] {
		events = append(events, env.Event)
	}
	return events
}

// recordingNotifier captures notifications per user.
type recordingNotifier struct {
	mu       sync.Mutex
	received map[string][]*models.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{received: make(map[string][]*models.Notification)}
}

func (n *recordingNotifier) Notify(userID string, notification *models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received[userID] = append(n.received[userID], notification)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, list := range n.received {
		total += len(list)
	}
	return total
}
