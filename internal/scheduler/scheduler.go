package scheduler

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PodcastStudio-admin/internal/config"
)

const (
	publishTimeout  = 2 * time.Minute
	sweepTimeout    = 30 * time.Minute
	stopWaitTimeout = 10 * time.Second
)

// Scheduler drives the background publisher and the optional moderation sweep.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	started bool
	entries int
}

// NewScheduler registers the jobs whose cron specs are set. Specs use the seconds field.
// A nil moderator disables the sweep regardless of its cron expression.
func NewScheduler(cfg config.SchedulerConfig, publisher Publisher, moderator PendingModerator) (*Scheduler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("Scheduler: Publisher must not be nil")
	}
	logger := cron.PrintfLogger(log.New(os.Stderr, "cron: ", log.LstdFlags))
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s := &Scheduler{cron: c}

	if cfg.PublishCronSpec != "" {
		if _, err := c.AddJob(cfg.PublishCronSpec, NewPublishJob(publisher, publishTimeout)); err != nil {
			return nil, fmt.Errorf("registering publish job (spec %q): %w", cfg.PublishCronSpec, err)
		}
		s.entries++
		log.Printf("INFO: [Scheduler] publish job registered, schedule: %s\n", cfg.PublishCronSpec)
	} else {
		log.Println("WARN: [Scheduler] no publish cron spec configured, due posts will not be published automatically.")
	}

	if cfg.ModerationCronSpec != "" && moderator != nil {
		if _, err := c.AddJob(cfg.ModerationCronSpec, NewModerationSweepJob(moderator, sweepTimeout)); err != nil {
			return nil, fmt.Errorf("registering moderation sweep (spec %q): %w", cfg.ModerationCronSpec, err)
		}
		s.entries++
		log.Printf("INFO: [Scheduler] moderation sweep registered, schedule: %s\n", cfg.ModerationCronSpec)
	}
	return s, nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return s.entries
}

// Start is non-blocking and idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	log.Printf("INFO: [Scheduler] started with %d job(s).\n", s.entries)
}

// Stop waits for running jobs, up to stopWaitTimeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	log.Println("INFO: [Scheduler] stopping...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("INFO: [Scheduler] stopped, all running jobs finished.")
	case <-time.After(stopWaitTimeout):
		log.Println("WARN: [Scheduler] stop timed out, a job may still be running.")
	}
}
