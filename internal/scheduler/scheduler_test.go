package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/services"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakePublisher) PublishDueItems(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	if f.err != nil {
		return nil, f.err
	}
	return []string{"post-1"}, nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeModerator struct {
	calls int
}

func (f *fakeModerator) ModerateAllPending(context.Context) (*services.ModerationSummary, error) {
	f.calls++
	return &services.ModerationSummary{Total: 2, Approved: 1, Flagged: 1}, nil
}

func TestNewScheduler(t *testing.T) {
	t.Run("requires publisher", func(t *testing.T) {
		_, err := NewScheduler(config.SchedulerConfig{PublishCronSpec: "* * * * * *"}, nil, nil)
		require.Error(t, err)
	})

	t.Run("rejects bad cron expression", func(t *testing.T) {
		_, err := NewScheduler(config.SchedulerConfig{PublishCronSpec: "every five minutes"}, &fakePublisher{}, nil)
		require.Error(t, err)
	})

	t.Run("registers configured jobs only", func(t *testing.T) {
		tests := []struct {
			name      string
			cfg       config.SchedulerConfig
			moderator PendingModerator
			want      int
		}{
			{"publish only", config.SchedulerConfig{PublishCronSpec: "0 */5 * * * *"}, &fakeModerator{}, 1},
			{"both", config.SchedulerConfig{PublishCronSpec: "0 */5 * * * *", ModerationCronSpec: "0 0 * * * *"}, &fakeModerator{}, 2},
			{"sweep without moderator", config.SchedulerConfig{PublishCronSpec: "0 */5 * * * *", ModerationCronSpec: "0 0 * * * *"}, nil, 1},
			{"nothing", config.SchedulerConfig{}, nil, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, err := NewScheduler(tt.cfg, &fakePublisher{}, tt.moderator)
				require.NoError(t, err)
				assert.Equal(t, tt.want, s.Entries())
			})
		}
	})
}

func TestSchedulerRunsPublishJob(t *testing.T) {
	pub := &fakePublisher{}
	s, err := NewScheduler(config.SchedulerConfig{PublishCronSpec: "* * * * * *"}, pub, nil)
	require.NoError(t, err)

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return pub.count() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestJobsSurviveErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("db down")}
	NewPublishJob(pub, time.Second).Run()
	assert.Equal(t, 1, pub.count())

	mod := &fakeModerator{}
	NewModerationSweepJob(mod, time.Second).Run()
	assert.Equal(t, 1, mod.calls)
}
