package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/models"
)

func addApproved(t *testing.T, f *fixture, episodeID string, ct models.ContentType, platform string) *models.ContentPiece {
	t.Helper()
	p := models.NewGeneratedPiece(episodeID, "", ct)
	p.Title = string(ct) + " piece"
	p.Body = "body"
	p.Platform = models.NewNullString(platform)
	p.ModerationStatus = models.ModerationApproved
	p.PipelineStage = models.StageReviewReady
	require.NoError(t, f.store.CreatePiece(context.Background(), p))
	return p
}

func TestParseScheduleTime(t *testing.T) {
	want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	for _, in := range []string{"2026-03-02T09:30:00Z", "2026-03-02T09:30:00", "2026-03-02 09:30:00", "2026-03-02T09:30", " 2026-03-02 09:30 "} {
		got, ok := ParseScheduleTime(in, nil)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), in)
	}
	got, ok := ParseScheduleTime("2026-03-02T09:30:00+02:00", time.UTC)
	require.True(t, ok)
	assert.Equal(t, 7, got.Hour())

	for _, in := range []string{"", "tomorrow morning", "02/03/2026 09:30"} {
		_, ok := ParseScheduleTime(in, time.UTC)
		assert.False(t, ok, in)
	}
}

func TestSuggestSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	ep := f.episode("Shipping Go", "transcript")
	blog := addApproved(t, f, ep.ID, models.ContentBlog, "")
	clip := addApproved(t, f, ep.ID, models.ContentClip, "tiktok")
	pending := addPiece(t, f, ep.ID, models.ContentSocial, "not yet")
	already := addApproved(t, f, ep.ID, models.ContentNewsletter, "email")
	already.PipelineStage = models.StageScheduled
	already.Status = models.PublicationScheduled
	require.NoError(t, f.store.UpdatePiece(ctx, already))

	f.llm.on(markSchedule, fmt.Sprintf(`[
		{"content_piece_id": %q, "platform": "website", "scheduled_datetime": "2026-03-02T10:00:00", "reason": "blog first"},
		{"content_piece_id": %q, "content_type": "clip", "platform": "tiktok", "scheduled_datetime": "2026-03-03T19:00:00", "reason": "evening slot"},
		{"content_piece_id": "invented-id", "platform": "x", "scheduled_datetime": "2026-03-04T09:00:00"},
		{"content_piece_id": %q, "platform": "x", "scheduled_datetime": "2026-03-04T10:00:00"}
	]`, blog.ID, clip.ID, pending.ID))

	plan, err := f.schedule.SuggestSchedule(ctx, ep.ID, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "blog", plan[0].ContentType)
	assert.False(t, plan[0].NeedsVideoEdit)
	assert.True(t, plan[1].NeedsVideoEdit)

	require.Len(t, f.llm.prompts, 1)
	prompt := f.llm.prompts[0]
	assert.Contains(t, prompt, "Monday 2026-03-02")
	assert.Contains(t, prompt, blog.ID)
	assert.NotContains(t, prompt, pending.ID)
	assert.NotContains(t, prompt, already.ID)
}

func TestSuggestSchedule_EmptyPlans(t *testing.T) {
	ctx := context.Background()

	t.Run("no approved pieces", func(t *testing.T) {
		f := newFixture(t, PipelineOptions{})
		ep := f.episode("Shipping Go", "transcript")
		addPiece(t, f, ep.ID, models.ContentBlog, "pending")
		plan, err := f.schedule.SuggestSchedule(ctx, ep.ID, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, plan)
		assert.Zero(t, f.llm.promptCount())
	})

	t.Run("unparseable plan", func(t *testing.T) {
		f := newFixture(t, PipelineOptions{})
		f.llm.on(markSchedule, "Post the blog on Monday and the rest later in the week.")
		ep := f.episode("Shipping Go", "transcript")
		addApproved(t, f, ep.ID, models.ContentBlog, "")
		plan, err := f.schedule.SuggestSchedule(ctx, ep.ID, time.Time{})
		require.NoError(t, err)
		assert.NotNil(t, plan)
		assert.Empty(t, plan)
	})

	t.Run("provider error", func(t *testing.T) {
		f := newFixture(t, PipelineOptions{})
		f.llm.fail(markSchedule, errors.New("quota exceeded"))
		ep := f.episode("Shipping Go", "transcript")
		addApproved(t, f, ep.ID, models.ContentBlog, "")
		plan, err := f.schedule.SuggestSchedule(ctx, ep.ID, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, plan)
	})
}

func TestConfirmSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	ep := f.episode("Shipping Go", "transcript")
	first := addApproved(t, f, ep.ID, models.ContentSocial, "x")
	second := addApproved(t, f, ep.ID, models.ContentSocial, "x")
	clip := addApproved(t, f, ep.ID, models.ContentClip, "")
	newsletter := addApproved(t, f, ep.ID, models.ContentNewsletter, "")

	plan := []models.ScheduleProposal{
		{ContentPieceID: first.ID, Platform: "Twitter", ScheduledDatetime: "2026-03-02T09:00:00", Reason: "morning"},
		// same platform and day is accepted as proposed
		{ContentPieceID: second.ID, Platform: "x", ScheduledDatetime: "2026-03-02T15:00:00"},
		{ContentPieceID: clip.ID, ScheduledDatetime: "2026-03-03T19:00"},
		{ContentPieceID: newsletter.ID, ScheduledDatetime: "next tuesday"},
		{ContentPieceID: "missing", ScheduledDatetime: "2026-03-04T09:00:00"},
		{ScheduledDatetime: "2026-03-04T09:00:00"},
	}
	created, err := f.schedule.ConfirmSchedule(ctx, plan)
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.Equal(t, "x", created[0].Platform)
	assert.Equal(t, "morning", created[0].AIReason)
	assert.Equal(t, models.PostScheduled, created[0].Status)
	assert.Equal(t, ep.ID, created[0].EpisodeID)
	assert.Equal(t, "x", created[1].Platform)
	assert.Equal(t, "tiktok", created[2].Platform)
	assert.True(t, created[2].NeedsVideoEdit)
	assert.False(t, created[0].NeedsVideoEdit)

	scheduled, err := f.store.GetPiece(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageScheduled, scheduled.PipelineStage)
	assert.Equal(t, models.PublicationScheduled, scheduled.Status)
	assert.True(t, scheduled.ScheduledAt.Valid)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), scheduled.ScheduledAt.Time)

	skipped, err := f.store.GetPiece(ctx, newsletter.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageReviewReady, skipped.PipelineStage)

	posts, err := f.store.ListScheduledPosts(ctx, models.PostFilter{EpisodeID: ep.ID})
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestConfirmSchedule_SkipsUnschedulablePieces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	ep := f.episode("Shipping Go", "transcript")

	flagged := addApproved(t, f, ep.ID, models.ContentBlog, "")
	flagged.ModerationStatus = models.ModerationFlagged
	flagged.PipelineStage = models.StageModerating
	require.NoError(t, f.store.UpdatePiece(ctx, flagged))
	pending := addPiece(t, f, ep.ID, models.ContentSocial, "unscored")

	created, err := f.schedule.ConfirmSchedule(ctx, []models.ScheduleProposal{
		{ContentPieceID: flagged.ID, ScheduledDatetime: "2026-03-02T10:00:00"},
		{ContentPieceID: pending.ID, Platform: "x", ScheduledDatetime: "2026-03-02T11:00:00"},
	})
	require.NoError(t, err)
	assert.Empty(t, created)

	got, err := f.store.GetPiece(ctx, flagged.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PublicationDraft, got.Status)

	t.Run("published piece stays published", func(t *testing.T) {
		blog := addApproved(t, f, ep.ID, models.ContentBlog, "")
		entry := models.ScheduleProposal{ContentPieceID: blog.ID, ScheduledDatetime: "2026-03-02T10:00:00"}
		first, err := f.schedule.ConfirmSchedule(ctx, []models.ScheduleProposal{entry})
		require.NoError(t, err)
		require.Len(t, first, 1)

		// a second confirm while scheduled is ignored
		dup, err := f.schedule.ConfirmSchedule(ctx, []models.ScheduleProposal{entry})
		require.NoError(t, err)
		assert.Empty(t, dup)

		_, err = f.schedule.PublishDueItems(ctx, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		entry.ScheduledDatetime = "2026-03-05T10:00:00"
		again, err := f.schedule.ConfirmSchedule(ctx, []models.ScheduleProposal{entry})
		require.NoError(t, err)
		assert.Empty(t, again)

		piece, err := f.store.GetPiece(ctx, blog.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StagePublished, piece.PipelineStage)
		assert.Equal(t, models.PublicationPublished, piece.Status)

		posts, err := f.store.ListScheduledPosts(ctx, models.PostFilter{EpisodeID: ep.ID})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, models.PostPublished, posts[0].Status)
	})
}

func TestPublishDueItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	ep := f.episode("Shipping Go", "transcript")
	blog := addApproved(t, f, ep.ID, models.ContentBlog, "")
	social := addApproved(t, f, ep.ID, models.ContentSocial, "linkedin")
	clip := addApproved(t, f, ep.ID, models.ContentClip, "tiktok")

	_, err := f.schedule.ConfirmSchedule(ctx, []models.ScheduleProposal{
		{ContentPieceID: blog.ID, ScheduledDatetime: "2026-03-02T10:00:00"},
		{ContentPieceID: social.ID, ScheduledDatetime: "2026-03-09T08:00:00"},
		{ContentPieceID: clip.ID, ScheduledDatetime: "2026-03-01T12:00:00"},
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	published, err := f.schedule.PublishDueItems(ctx, now)
	require.NoError(t, err)
	require.Len(t, published, 1)

	post, err := f.store.GetScheduledPost(ctx, published[0])
	require.NoError(t, err)
	assert.Equal(t, blog.ID, post.ContentPieceID)
	assert.Equal(t, models.PostPublished, post.Status)
	assert.Equal(t, now, post.PublishedAt.Time)

	piece, err := f.store.GetPiece(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PublicationPublished, piece.Status)
	assert.Equal(t, models.StagePublished, piece.PipelineStage)
	assert.Equal(t, now, piece.PublishedAt.Time)

	held, err := f.store.GetPiece(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PublicationScheduled, held.Status)

	again, err := f.schedule.PublishDueItems(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)
}
