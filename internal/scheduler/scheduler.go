package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/forecast-cache/internal/weather"
)

// DefaultInterval is used when no positive interval is configured.
const DefaultInterval = 3 * time.Hour

// Syncer runs one sync cycle.
type Syncer interface {
	Sync(ctx context.Context) (weather.SyncResult, error)
}

// Scheduler periodically syncs the forecast cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	syncer    Syncer
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. Each run is bounded by timeout.
func New(syncer Syncer, interval, timeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		syncer:    syncer,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the sync job, runs it once right away, and starts the scheduler.
// A run that is still going when the next one is due makes the next one skip.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: syncing every %s", s.interval)
	return nil
}

func (s *Scheduler) run() {
	log.Println("DEBUG: scheduler: running forecast sync job")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.syncer.Sync(ctx)
	if err != nil {
		log.Printf("ERROR: scheduler: sync %s failed: %v", res.CycleID, err)
		return
	}
	log.Printf("INFO: scheduler: sync %s completed: %d written, %d rejected", res.CycleID, res.Written, res.Rejected)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
