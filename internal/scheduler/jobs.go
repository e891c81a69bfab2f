package scheduler

import (
	"context"
	"log"
	"time"

	"PodcastStudio-admin/internal/services"
)

// Publisher promotes due scheduled posts.
type Publisher interface {
	PublishDueItems(ctx context.Context, now time.Time) ([]string, error)
}

// PendingModerator scores every pending piece.
type PendingModerator interface {
	ModerateAllPending(ctx context.Context) (*services.ModerationSummary, error)
}

// PublishJob runs one publish cycle per tick.
type PublishJob struct {
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

func NewPublishJob(p Publisher, timeout time.Duration) *PublishJob {
	return &PublishJob{publisher: p, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

// Run implements cron.Job.
func (j *PublishJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	published, err := j.publisher.PublishDueItems(ctx, j.now())
	if err != nil {
		log.Printf("ERROR: [Scheduler] publish cycle failed: %v\n", err)
		return
	}
	log.Printf("INFO: [Scheduler] publish cycle done, %d post(s) published.\n", len(published))
}

// ModerationSweepJob moderates everything still pending.
type ModerationSweepJob struct {
	moderator PendingModerator
	timeout   time.Duration
}

func NewModerationSweepJob(m PendingModerator, timeout time.Duration) *ModerationSweepJob {
	return &ModerationSweepJob{moderator: m, timeout: timeout}
}

// Run implements cron.Job.
func (j *ModerationSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	summary, err := j.moderator.ModerateAllPending(ctx)
	if err != nil {
		log.Printf("ERROR: [Scheduler] moderation sweep failed: %v\n", err)
		return
	}
	log.Printf("INFO: [Scheduler] moderation sweep done: %d moderated, %d approved, %d flagged.\n",
		summary.Total, summary.Approved, summary.Flagged)
}
