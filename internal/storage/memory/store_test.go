package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/models"
)

func TestStore_EpisodeRoundTripIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ep := s.AddEpisode(models.Episode{Title: "Pilot", ExtractedKeywords: []string{"go"}})
	assert.Equal(t, models.TranscriptIdle, ep.TranscriptStatus)
	assert.Equal(t, models.ProcessingIdle, ep.ProcessingStatus)

	got, err := s.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	got.ExtractedKeywords[0] = "mutated"

	again, err := s.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, again.ExtractedKeywords)

	_, err = s.GetEpisode(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEpisode(ctx, &models.Episode{ID: "missing"}), models.ErrNotFound)
}

func TestStore_EpisodeWithTranscriptIsReady(t *testing.T) {
	s := NewStore()
	ep := s.AddEpisode(models.Episode{Transcript: models.NewNullString("hello")})
	assert.Equal(t, models.TranscriptReady, ep.TranscriptStatus)
}

func TestStore_OpenAndLatestJob(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first := &models.ContentGenerationJob{EpisodeID: "ep", Status: models.JobComplete}
	require.NoError(t, s.CreateJob(ctx, first))
	_, err := s.FindOpenJobForEpisode(ctx, "ep")
	assert.ErrorIs(t, err, models.ErrNotFound)

	second := &models.ContentGenerationJob{EpisodeID: "ep", Status: models.JobModerating}
	require.NoError(t, s.CreateJob(ctx, second))
	third := &models.ContentGenerationJob{EpisodeID: "ep", Status: models.JobFailed}
	require.NoError(t, s.CreateJob(ctx, third))

	open, err := s.FindOpenJobForEpisode(ctx, "ep")
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)

	latest, err := s.LatestJobForEpisode(ctx, "ep")
	require.NoError(t, err)
	assert.Equal(t, third.ID, latest.ID)
}

func TestStore_ListPiecesFiltersInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	var ids []string
	for _, ct := range []models.ContentType{models.ContentArticle, models.ContentSocial, models.ContentSocial} {
		p := models.NewGeneratedPiece("ep", "job", ct)
		require.NoError(t, s.CreatePiece(ctx, p))
		ids = append(ids, p.ID)
	}
	other := models.NewGeneratedPiece("other", "job", models.ContentSocial)
	require.NoError(t, s.CreatePiece(ctx, other))

	social, err := s.ListPieces(ctx, models.PieceFilter{EpisodeID: "ep", Type: models.ContentSocial})
	require.NoError(t, err)
	require.Len(t, social, 2)
	assert.Equal(t, ids[1], social[0].ID)
	assert.Equal(t, ids[2], social[1].ID)

	pending, err := s.ListPieces(ctx, models.PieceFilter{ModerationStatus: models.ModerationPending})
	require.NoError(t, err)
	assert.Len(t, pending, 4)
}

func TestStore_DuePostsSkipVideoEditAndFuture(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

	due := &models.ScheduledPost{ContentPieceID: "a", Status: models.PostScheduled, ScheduledAt: now.Add(-time.Hour)}
	dueLater := &models.ScheduledPost{ContentPieceID: "b", Status: models.PostScheduled, ScheduledAt: now}
	future := &models.ScheduledPost{ContentPieceID: "c", Status: models.PostScheduled, ScheduledAt: now.Add(time.Minute)}
	clip := &models.ScheduledPost{ContentPieceID: "d", Status: models.PostScheduled, ScheduledAt: now.Add(-time.Hour), NeedsVideoEdit: true}
	published := &models.ScheduledPost{ContentPieceID: "e", Status: models.PostPublished, ScheduledAt: now.Add(-time.Hour)}
	for _, p := range []*models.ScheduledPost{dueLater, future, clip, published, due} {
		require.NoError(t, s.CreateScheduledPost(ctx, p))
	}

	got, err := s.ListDueScheduledPosts(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, due.ID, got[0].ID)
	assert.Equal(t, dueLater.ID, got[1].ID)

	all, err := s.ListScheduledPosts(ctx, models.PostFilter{Status: models.PostScheduled})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
