package expiry

import (
	"log"
	"time"

	"cabshare/backend/internal/config"
	"cabshare/backend/internal/storage"
)

// Sweeper runs the two safety-net scans: expiring rides whose departure
// time passed without their deferred action firing, and purging rides that
// have sat in expired state past the retention window. Sweep failures are
// logged and retried on the next tick, never propagated.
type Sweeper struct {
	Storage storage.Storage
	Worker  *Worker
	stop    chan struct{}
}

func NewSweeper(s storage.Storage, w *Worker) *Sweeper {
	return &Sweeper{
		Storage: s,
		Worker:  w,
		stop:    make(chan struct{}),
	}
}

// Run blocks until Stop is called. Start it as a goroutine.
func (s *Sweeper) Run() {
	expireTicker := time.NewTicker(config.ExpireSweepInterval)
	purgeTicker := time.NewTicker(config.PurgeSweepInterval)
	defer expireTicker.Stop()
	defer purgeTicker.Stop()

	log.Println("Expiry sweeper started")

	for {
		select {
		case <-expireTicker.C:
			s.SweepOverdue()
		case <-purgeTicker.C:
			s.PurgeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stop)
}

// SweepOverdue expires every ride whose departure time has passed. Rides
// whose deferred action already fired are skipped by the worker's
// idempotence guard.
func (s *Sweeper) SweepOverdue() {
	ids, err := s.Storage.ListOverdueRideIDs(time.Now())
	if err != nil {
		log.Printf("ERROR: Overdue sweep query failed: %v", err)
		return
	}
	for _, id := range ids {
		s.Worker.ExpireRide(id)
	}
	if len(ids) > 0 {
		log.Printf("Overdue sweep expired %d ride(s)", len(ids))
	}
}

// PurgeExpired deletes rides expired for longer than the retention window,
// together with their message threads.
func (s *Sweeper) PurgeExpired() {
	cutoff := time.Now().Add(-config.ExpiredRetention)
	removed, err := s.Storage.PurgeExpiredBefore(cutoff)
	if err != nil {
		log.Printf("ERROR: Purge sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Purge sweep removed %d expired ride(s)", removed)
	}
}
