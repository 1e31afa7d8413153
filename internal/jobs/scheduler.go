package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Job is a named unit of background work
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron schedules. Backed by gocron with
// UTC wall-clock semantics.
type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	jobs      map[string]Job
	started   bool
}

// NewScheduler creates a job scheduler
func NewScheduler() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: scheduler,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]Job),
	}, nil
}

// Register schedules a job on a standard 5-field cron expression. The
// expression is validated up front so a bad config fails at startup, not at
// first fire time.
func (s *Scheduler) Register(name, cronExpr string, job Job) error {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, name, err)
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			s.runJob(name, job)
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = job
	s.mu.Unlock()

	log.Printf("📅 [SCHEDULER] Registered job %s (cron: %s)", name, cronExpr)
	return nil
}

func (s *Scheduler) runJob(name string, job Job) {
	log.Printf("▶️  [SCHEDULER] Running job: %s", name)
	start := time.Now()

	if err := job.Run(s.ctx); err != nil {
		log.Printf("❌ [SCHEDULER] Job %s failed: %v", name, err)
		return
	}

	log.Printf("✅ [SCHEDULER] Job %s completed in %v", name, time.Since(start))
}

// Start begins firing registered jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Started with %d jobs", len(s.jobs))
}

// Stop shuts the scheduler down and cancels running jobs
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.scheduler.Shutdown()
}

// RunNow runs a registered job immediately, outside its schedule
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}
	return job.Run(s.ctx)
}
