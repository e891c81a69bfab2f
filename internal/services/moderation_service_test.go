package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/models"
)

func addPiece(t *testing.T, f *fixture, episodeID string, ct models.ContentType, body string) *models.ContentPiece {
	t.Helper()
	p := models.NewGeneratedPiece(episodeID, "", ct)
	p.Title = "Piece " + body
	p.Body = body
	require.NoError(t, f.store.CreatePiece(context.Background(), p))
	return p
}

func TestModeratePiece_Decisions(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantScore   int
		wantStatus  models.ModerationStatus
		wantStage   models.PipelineStage
		wantRewrite string
		wantNotes   string
		wantParsed  bool
	}{
		{
			name:        "low score is flagged with rewrite",
			response:    `{"score": 40, "improvements": ["tighten the hook", "cut filler"], "rewrite": "  Better version  "}`,
			wantScore:   40,
			wantStatus:  models.ModerationFlagged,
			wantStage:   models.StageModerating,
			wantRewrite: "Better version",
			wantNotes:   "tighten the hook\ncut filler",
			wantParsed:  true,
		},
		{
			name:       "high score is approved",
			response:   "```json\n{\"score\": 90.4, \"improvements\": [], \"rewrite\": null}\n```",
			wantScore:  90,
			wantStatus: models.ModerationApproved,
			wantStage:  models.StageReviewReady,
			wantParsed: true,
		},
		{
			name:       "threshold score is approved",
			response:   `{"score": 75}`,
			wantScore:  75,
			wantStatus: models.ModerationApproved,
			wantStage:  models.StageReviewReady,
			wantParsed: true,
		},
		{
			name:       "out of range score is clamped",
			response:   `{"score": 180}`,
			wantScore:  100,
			wantStatus: models.ModerationApproved,
			wantStage:  models.StageReviewReady,
			wantParsed: true,
		},
		{
			name:       "unparseable response falls back to neutral score",
			response:   "Looks decent overall, maybe a 7/10.",
			wantScore:  70,
			wantStatus: models.ModerationFlagged,
			wantStage:  models.StageModerating,
			wantNotes:  "Looks decent overall, maybe a 7/10.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, PipelineOptions{})
			f.llm.on("Score this", tt.response)
			ep := f.episode("Shipping Go", "transcript")
			piece := addPiece(t, f, ep.ID, models.ContentArticle, "draft body")

			result, err := f.moderation.ModeratePiece(ctx, piece.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantParsed, result.Parsed)

			stored, err := f.store.GetPiece(ctx, piece.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.AIQualityScore)
			assert.Equal(t, tt.wantScore, *stored.AIQualityScore)
			assert.Equal(t, tt.wantStatus, stored.ModerationStatus)
			assert.Equal(t, tt.wantStage, stored.PipelineStage)
			assert.Equal(t, tt.wantRewrite, stored.AIRewriteSuggestion.String)
			assert.Equal(t, tt.wantRewrite != "", stored.AIRewriteSuggestion.Valid)
			assert.Equal(t, tt.wantNotes, stored.AIQualityNotes)
			assert.Equal(t, models.PublicationDraft, stored.Status)
		})
	}
}

func TestModeratePiece_AlreadyModerated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.on("Score this", `{"score": 88}`)
	ep := f.episode("Shipping Go", "transcript")
	piece := addPiece(t, f, ep.ID, models.ContentBlog, "body")

	_, err := f.moderation.ModeratePiece(ctx, piece.ID)
	require.NoError(t, err)
	calls := f.llm.promptCount()

	_, err = f.moderation.ModeratePiece(ctx, piece.ID)
	assert.ErrorIs(t, err, ErrAlreadyModerated)
	assert.Equal(t, calls, f.llm.promptCount())

	_, err = f.moderation.ModeratePiece(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestModerateEpisode_SummaryAndJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.
		on("GOOD-BODY", `{"score": 91}`).
		on("MEH-BODY", `{"score": 60}`).
		fail("BROKEN-BODY", errors.New("provider timeout"))
	ep := f.episode("Shipping Go", "transcript")
	other := f.episode("Other episode", "transcript")
	good := addPiece(t, f, ep.ID, models.ContentArticle, "GOOD-BODY")
	addPiece(t, f, ep.ID, models.ContentSocial, "MEH-BODY")
	broken := addPiece(t, f, ep.ID, models.ContentClip, "BROKEN-BODY")
	untouched := addPiece(t, f, other.ID, models.ContentBlog, "GOOD-BODY")

	job := &models.ContentGenerationJob{EpisodeID: ep.ID, Status: models.JobModerating, Progress: 100, Errors: []string{}}
	require.NoError(t, f.store.CreateJob(ctx, job))

	summary, err := f.moderation.ModerateEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 2, summary.Flagged)
	// (91 + 60 + 0) / 3
	assert.Equal(t, 50.3, summary.AverageScore)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, good.ID, summary.Results[0].PieceID)
	failed := summary.Results[2]
	assert.Equal(t, broken.ID, failed.PieceID)
	assert.Equal(t, 0, failed.Score)
	assert.Equal(t, models.ModerationFlagged, failed.Status)
	assert.Contains(t, failed.Error, "provider timeout")

	// a provider failure leaves the piece pending for a later sweep
	stored, err := f.store.GetPiece(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationPending, stored.ModerationStatus)

	otherPiece, err := f.store.GetPiece(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationPending, otherPiece.ModerationStatus)

	done, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobComplete, done.Status)
	assert.True(t, done.CompletedAt.Valid)
}

func TestModerateEpisode_LeavesGeneratingJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.on("Score this", `{"score": 88}`)
	ep := f.episode("Shipping Go", "transcript")
	piece := addPiece(t, f, ep.ID, models.ContentArticle, "early piece")

	job := &models.ContentGenerationJob{EpisodeID: ep.ID, Status: models.JobGenerating, Progress: 30, Errors: []string{}}
	require.NoError(t, f.store.CreateJob(ctx, job))

	summary, err := f.moderation.ModerateEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Approved)

	scored, err := f.store.GetPiece(ctx, piece.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, scored.ModerationStatus)

	running, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobGenerating, running.Status)
	assert.Equal(t, 30, running.Progress)
	assert.False(t, running.CompletedAt.Valid)
}

func TestModerateAllPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.on("Score this", `{"score": 80}`)
	a := f.episode("A", "transcript")
	b := f.episode("B", "transcript")
	addPiece(t, f, a.ID, models.ContentArticle, "one")
	addPiece(t, f, b.ID, models.ContentSEO, "two")

	summary, err := f.moderation.ModerateAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Approved)
	assert.Equal(t, 80.0, summary.AverageScore)

	again, err := f.moderation.ModerateAllPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Total)
}

func TestRubricFor(t *testing.T) {
	assert.Contains(t, rubricFor(models.ContentNewsletter), "senior editor")
	assert.Contains(t, rubricFor(models.ContentSocial), "social media lead")
	assert.Contains(t, rubricFor(models.ContentClip), "short-form video producer")
	assert.Contains(t, rubricFor(models.ContentSEO), "SEO strategist")

	p := models.NewGeneratedPiece("ep", "job", models.ContentSocial)
	p.Platform = models.NewNullString("linkedin")
	p.Body = "post body"
	prompt := buildRubricPrompt(p)
	assert.Contains(t, prompt, "Platform: linkedin")
	assert.Contains(t, prompt, "Content:\npost body")
}
