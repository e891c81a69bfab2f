package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/models"
)

const socialJSON = `[{"platform": "x", "text": "New episode out"}, {"platform": "linkedin", "text": "Lessons from shipping Go"}]`

func TestPipelineRun_FullWithAutoModeration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{AutoModerate: true, PromptVersion: "v3"})
	f.llm.
		on(markKeywords, keywordJSON).
		on(markArticle, articleJSON).
		on(markSocial, socialJSON).
		on("Score this", `{"score": 82, "improvements": ["add a call to action"]}`)
	ep := f.episode("Shipping Go", "We talked about shipping Go services.")

	job, err := f.pipeline.Run(ctx, RunRequest{EpisodeID: ep.ID, ContentTypes: []models.ContentType{models.ContentArticle, models.ContentSocial}})
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.JobComplete, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 3, job.OutputsGenerated)
	assert.Empty(t, job.Errors)
	assert.Equal(t, "Shipping Go", job.EpisodeTitle)
	assert.Equal(t, "The Build Show", job.ShowTitle)
	assert.Equal(t, "v3", job.PromptVersion)
	assert.Equal(t, "We talked about shipping Go services.", job.TranscriptSnapshot)
	assert.True(t, job.StartedAt.Valid)
	assert.True(t, job.CompletedAt.Valid)

	episode, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingComplete, episode.ProcessingStatus)
	assert.Equal(t, []string{"golang", "microservices"}, episode.ExtractedKeywords)

	pieces, err := f.store.ListPieces(ctx, models.PieceFilter{EpisodeID: ep.ID})
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.Equal(t, models.ModerationApproved, p.ModerationStatus, p.Title)
		assert.Equal(t, models.StageReviewReady, p.PipelineStage)
	}

	var generationPrompt string
	for _, p := range f.llm.prompts {
		if strings.Contains(p, markArticle) {
			generationPrompt = p
		}
	}
	assert.Contains(t, generationPrompt, "golang")
	assert.False(t, f.pipeline.IsRunning(ep.ID))
}

func TestPipelineRun_WithoutAutoModerationStopsAtModerating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{DefaultContentTypes: []models.ContentType{models.ContentArticle}})
	f.llm.on(markKeywords, keywordJSON).on(markArticle, articleJSON)
	ep := f.episode("Shipping Go", "transcript")

	job, err := f.pipeline.Run(ctx, RunRequest{EpisodeID: ep.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobModerating, job.Status)
	assert.Equal(t, []models.ContentType{models.ContentArticle}, job.ContentTypes)
	assert.Equal(t, 1, job.OutputsGenerated)

	pieces, err := f.store.ListPieces(ctx, models.PieceFilter{EpisodeID: ep.ID})
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, models.ModerationPending, pieces[0].ModerationStatus)
}

func TestPipelineRun_KeywordFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.fail(markKeywords, errors.New("keyword model offline")).on(markArticle, articleJSON)
	ep := f.episode("Shipping Go", "transcript")

	job, err := f.pipeline.Run(ctx, RunRequest{EpisodeID: ep.ID, ContentTypes: []models.ContentType{models.ContentArticle}})
	require.NoError(t, err)
	require.Len(t, job.Errors, 1)
	assert.True(t, strings.HasPrefix(job.Errors[0], "keywords: "), job.Errors[0])
	assert.Equal(t, 1, job.OutputsGenerated)
	assert.Equal(t, models.JobModerating, job.Status)
}

func TestPipelineRun_TranscribesWhenMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.on(markKeywords, keywordJSON).on(markNewsletter, `{"title": "New episode", "body": "Listen now."}`)
	ep := f.episode("Shipping Go", "")

	job, err := f.pipeline.Run(ctx, RunRequest{EpisodeID: ep.ID, ContentTypes: []models.ContentType{models.ContentNewsletter}})
	require.NoError(t, err)
	assert.Equal(t, "part-1\n\npart-2\n\npart-3", job.TranscriptSnapshot)
	assert.Equal(t, 3, f.transcriber.calls)

	episode, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranscriptReady, episode.TranscriptStatus)
}

func TestPipelineRun_CatastrophicFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing episode", func(t *testing.T) {
		f := newFixture(t, PipelineOptions{})
		job, err := f.pipeline.Run(ctx, RunRequest{EpisodeID: "missing"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEpisodeNotFound)
		assert.ErrorIs(t, err, models.ErrNotFound)
		require.NotNil(t, job)
		assert.Equal(t, models.JobFailed, job.Status)
		assert.True(t, job.ErrorMessage.Valid)

		stored, err := f.store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobFailed, stored.Status)
		assert.True(t, stored.CompletedAt.Valid)
	})

	t.Run("transcription failure", func(t *testing.T) {
		f := newFixture(t, PipelineOptions{})
		f.transcriber.failAt = 2
		ep := f.episode("Shipping Go", "")
		job, err := f.pipeline.Run(ctx, RunRequest{EpisodeID: ep.ID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transcription")
		assert.Equal(t, models.JobFailed, job.Status)
		assert.Zero(t, job.OutputsGenerated)

		episode, err := f.store.GetEpisode(ctx, ep.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProcessingFailed, episode.ProcessingStatus)
		assert.Zero(t, f.llm.promptCount())
	})

	t.Run("empty episode id", func(t *testing.T) {
		f := newFixture(t, PipelineOptions{})
		job, err := f.pipeline.Run(ctx, RunRequest{})
		assert.Error(t, err)
		assert.Nil(t, job)
	})
}

func TestPipelineRun_ConcurrentCallersShareJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.transcriber.gate = make(chan struct{})
	f.llm.on(markKeywords, keywordJSON).on(markArticle, articleJSON)
	ep := f.episode("Shipping Go", "")

	req := RunRequest{EpisodeID: ep.ID, ContentTypes: []models.ContentType{models.ContentArticle}}
	jobs := make([]*models.ContentGenerationJob, 2)
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := f.pipeline.Run(ctx, req)
			assert.NoError(t, err)
			jobs[i] = job
		}(i)
		if i == 0 {
			require.Eventually(t, func() bool { return f.pipeline.IsRunning(ep.ID) }, time.Second, 5*time.Millisecond)
		}
	}
	// give the second caller time to join the in-flight run
	time.Sleep(50 * time.Millisecond)
	close(f.transcriber.gate)
	wg.Wait()

	require.NotNil(t, jobs[0])
	require.NotNil(t, jobs[1])
	assert.Equal(t, jobs[0].ID, jobs[1].ID)
	assert.Equal(t, 3, f.transcriber.calls)
	assert.False(t, f.pipeline.IsRunning(ep.ID))
}

func TestPipelineRun_StandaloneStageWaitsForRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.transcriber.gate = make(chan struct{})
	f.llm.on(markKeywords, keywordJSON).on(markArticle, articleJSON)
	ep := f.episode("Shipping Go", "")

	var (
		wg      sync.WaitGroup
		job     *models.ContentGenerationJob
		episode *models.Episode
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		job, err = f.pipeline.Run(ctx, RunRequest{EpisodeID: ep.ID, ContentTypes: []models.ContentType{models.ContentArticle}})
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return f.pipeline.IsRunning(ep.ID) }, time.Second, 5*time.Millisecond)
	go func() {
		defer wg.Done()
		var err error
		episode, err = f.pipeline.TranscribeEpisode(ctx, ep.ID)
		assert.NoError(t, err)
	}()
	time.Sleep(50 * time.Millisecond)
	close(f.transcriber.gate)
	wg.Wait()

	assert.Equal(t, 1, f.transcriber.peak)
	assert.Equal(t, 6, f.transcriber.calls)
	require.NotNil(t, job)
	require.NotNil(t, episode)
	assert.Equal(t, "part-1\n\npart-2\n\npart-3", job.TranscriptSnapshot)
	assert.Equal(t, "part-4\n\npart-5\n\npart-6", episode.Transcript.String)
	assert.False(t, f.pipeline.IsRunning(ep.ID))
}

func TestPipelineStages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PipelineOptions{})
	f.llm.on(markKeywords, keywordJSON)
	ep := f.episode("Shipping Go", "")

	episode, err := f.pipeline.TranscribeEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.True(t, episode.HasTranscript())

	analysis, err := f.pipeline.AnalyzeKeywords(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "microservices"}, analysis.Keywords(0))
	assert.False(t, f.pipeline.IsRunning(ep.ID))
}
