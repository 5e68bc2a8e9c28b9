package rides_test

import (
	"encoding/json"
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

// fakeCache is an in-memory cache.Cache that records invalidations, so
// tests can assert the write path evicts exactly what it should.
type fakeCache struct {
	mu               sync.Mutex
	entries          map[string][]byte
	invalidatedRides []string
	invalidatedMsgs  []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(key string, dest interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(payload, dest) == nil
}

func (f *fakeCache) SetJSON(key string, value interface{}, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	f.entries[key] = payload
}

func (f *fakeCache) InvalidateRide(rideID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, "rides:open")
	delete(f.entries, "ride:"+rideID)
	delete(f.entries, "ride:"+rideID+":messages")
	for key := range f.entries {
		if len(key) > 8 && key[:8] == "suggest:" {
			delete(f.entries, key)
		}
	}
	f.invalidatedRides = append(f.invalidatedRides, rideID)
}

func (f *fakeCache) InvalidateMessages(rideID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, "ride:"+rideID+":messages")
	f.invalidatedMsgs = append(f.invalidatedMsgs, rideID)
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

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

// recordingScheduler captures expiry job scheduling.
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	canceled  []string
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: make(map[string]time.Time)}
}

func (s *recordingScheduler) Schedule(rideID string, departure time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[rideID] = departure
}

func (s *recordingScheduler) Cancel(rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = append(s.canceled, rideID)
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
