package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/services"
)

// fakePipeline blocks every stage on release (when set) and records what it was asked to do.
type fakePipeline struct {
	mu      sync.Mutex
	release chan struct{}
	runs    []services.RunRequest
	stages  []string
	busy    map[string]bool
	err     error
}

func (f *fakePipeline) record(stage string) {
	f.mu.Lock()
	f.stages = append(f.stages, stage)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
}

func (f *fakePipeline) Run(_ context.Context, req services.RunRequest) (*models.ContentGenerationJob, error) {
	f.mu.Lock()
	f.runs = append(f.runs, req)
	f.mu.Unlock()
	f.record("pipeline")
	if f.err != nil {
		return nil, f.err
	}
	return &models.ContentGenerationJob{ID: "job-1", EpisodeID: req.EpisodeID, Status: models.JobComplete}, nil
}

func (f *fakePipeline) TranscribeEpisode(_ context.Context, episodeID string) (*models.Episode, error) {
	f.record("transcribe")
	return &models.Episode{ID: episodeID}, f.err
}

func (f *fakePipeline) AnalyzeKeywords(_ context.Context, episodeID string) (*models.KeywordAnalysis, error) {
	f.record("keywords")
	return &models.KeywordAnalysis{}, f.err
}

func (f *fakePipeline) IsRunning(episodeID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy[episodeID]
}

func (f *fakePipeline) stageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stages)
}

// fakeModerator returns err when set, otherwise a fixed result.
type fakeModerator struct {
	err error
}

func (f *fakeModerator) ModeratePiece(_ context.Context, pieceID string) (*services.ModerationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ModerationResult{PieceID: pieceID, Score: 88, Status: models.ModerationApproved, Parsed: true}, nil
}

func (f *fakeModerator) ModerateEpisode(context.Context, string) (*services.ModerationSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ModerationSummary{Total: 2, Approved: 1, Flagged: 1, AverageScore: 61.5}, nil
}

func (f *fakeModerator) ModerateAllPending(context.Context) (*services.ModerationSummary, error) {
	return &services.ModerationSummary{Results: []services.ModerationResult{}}, f.err
}

// fakePlanner records its inputs and replays canned answers.
type fakePlanner struct {
	plan      []models.ScheduleProposal
	posts     []*models.ScheduledPost
	published []string

	gotStart  time.Time
	confirmed []models.ScheduleProposal
	filter    models.PostFilter
}

func (f *fakePlanner) SuggestSchedule(_ context.Context, _ string, start time.Time) ([]models.ScheduleProposal, error) {
	f.gotStart = start
	return f.plan, nil
}

func (f *fakePlanner) ConfirmSchedule(_ context.Context, plan []models.ScheduleProposal) ([]*models.ScheduledPost, error) {
	f.confirmed = plan
	created := make([]*models.ScheduledPost, 0, len(plan))
	for _, p := range plan {
		if p.ContentPieceID == "missing" {
			continue
		}
		created = append(created, &models.ScheduledPost{ID: "post-" + p.ContentPieceID, ContentPieceID: p.ContentPieceID})
	}
	return created, nil
}

func (f *fakePlanner) PublishDueItems(context.Context, time.Time) ([]string, error) {
	return f.published, nil
}

func (f *fakePlanner) Calendar(_ context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error) {
	f.filter = filter
	return f.posts, nil
}

// serve routes one request through a mux so path values are populated.
func serve(t *testing.T, pattern string, h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}
