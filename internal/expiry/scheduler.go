package expiry

import (
	"sync"
	"time"
)

const jobPrefix = "ride-expire-"

// JobID derives the deferred-action identity from the ride id alone. One
// ride therefore maps to exactly one possible pending job, no matter how
// many times scheduling is attempted.
func JobID(rideID string) string {
	return jobPrefix + rideID
}

// JobScheduler is the slice of the scheduler the ride engine depends on.
type JobScheduler interface {
	Schedule(rideID string, departure time.Time)
	Cancel(rideID string)
}

// Scheduler holds one pending timer per ride, keyed by JobID. Scheduling an
// already-pending ride is a no-op; canceling stops the timer if it has not
// fired. A timer that fires concurrently with deletion runs the worker's
// idempotent action against an already-deleted ride, which does nothing.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	worker *Worker
}

func NewScheduler(w *Worker) *Scheduler {
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		worker: w,
	}
}

func (s *Scheduler) Schedule(rideID string, departure time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := JobID(rideID)
	if _, pending := s.timers[id]; pending {
		return
	}

	delay := time.Until(departure)
	if delay < 0 {
		delay = 0
	}

	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		s.worker.ExpireRide(rideID)
	})
}

func (s *Scheduler) Cancel(rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := JobID(rideID)
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Pending reports whether a deferred action is armed for the ride.
func (s *Scheduler) Pending(rideID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.timers[JobID(rideID)]
	return ok
}

// Stop cancels every pending timer. Used during shutdown; the overdue sweep
// picks up anything canceled here on the next boot.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
