package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/models"
)

const defaultGenerationChars = 30000

// RunRequest triggers one pipeline run. Empty ContentTypes means the configured defaults.
type RunRequest struct {
	EpisodeID    string
	ContentTypes []models.ContentType
}

// PipelineOptions are the run-wide settings taken from configuration.
type PipelineOptions struct {
	DefaultContentTypes []models.ContentType
	MaxTranscriptChars  int
	AutoModerate        bool
	BrandVoice          string
	PromptVersion       string
}

// PipelineOptionsFromConfig builds PipelineOptions from the loaded configuration.
func PipelineOptionsFromConfig(cfg *config.Config) (PipelineOptions, error) {
	types, err := cfg.Generation.ContentTypes()
	if err != nil {
		return PipelineOptions{}, err
	}
	voice, version := cfg.BrandVoice()
	return PipelineOptions{
		DefaultContentTypes: types,
		MaxTranscriptChars:  cfg.Generation.MaxTranscriptChars,
		AutoModerate:        cfg.Pipeline.AutoModerate,
		BrandVoice:          voice,
		PromptVersion:       version,
	}, nil
}

// PipelineService runs transcription, keyword analysis, the generation waterfall and
// optional auto-moderation for one episode. Concurrent runs for the same episode share
// one in-flight job, and standalone stages wait for it to finish.
type PipelineService struct {
	opts          PipelineOptions
	store         Store
	transcription *TranscriptionService
	keywords      *KeywordService
	generation    *GenerationService
	moderation    *ModerationService

	group   singleflight.Group
	mu      sync.Mutex
	running map[string]int
	locks   map[string]*episodeLock
	now     func() time.Time
}

type episodeLock struct {
	mu   sync.Mutex
	refs int
}

func NewPipelineService(opts PipelineOptions, store Store, transcription *TranscriptionService, keywords *KeywordService,
	generation *GenerationService, moderation *ModerationService) (*PipelineService, error) {
	if store == nil {
		return nil, fmt.Errorf("PipelineService: Store must not be nil")
	}
	if transcription == nil || keywords == nil || generation == nil || moderation == nil {
		return nil, fmt.Errorf("PipelineService: all stage services are required")
	}
	if len(opts.DefaultContentTypes) == 0 {
		opts.DefaultContentTypes = models.AllContentTypes
	}
	if opts.MaxTranscriptChars <= 0 {
		opts.MaxTranscriptChars = defaultGenerationChars
	}
	log.Printf("INFO: [Pipeline] initialised (default types %v, auto-moderate %t, prompt version %s)\n",
		opts.DefaultContentTypes, opts.AutoModerate, opts.PromptVersion)
	return &PipelineService{
		opts:          opts,
		store:         store,
		transcription: transcription,
		keywords:      keywords,
		generation:    generation,
		moderation:    moderation,
		running:       make(map[string]int),
		locks:         make(map[string]*episodeLock),
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// IsRunning reports whether a run for episodeID is in flight.
func (p *PipelineService) IsRunning(episodeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running[episodeID] > 0
}

// lockEpisode marks the episode in flight and blocks until no other stage holds it.
func (p *PipelineService) lockEpisode(episodeID string) (unlock func()) {
	p.mu.Lock()
	l, ok := p.locks[episodeID]
	if !ok {
		l = &episodeLock{}
		p.locks[episodeID] = l
	}
	l.refs++
	p.running[episodeID]++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		defer p.mu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(p.locks, episodeID)
		}
		if p.running[episodeID]--; p.running[episodeID] <= 0 {
			delete(p.running, episodeID)
		}
	}
}

// Run executes the pipeline and returns the job. A catastrophic failure returns the failed
// job together with the error. A caller arriving while a run for the same episode is in
// flight waits for it and receives the same job.
func (p *PipelineService) Run(ctx context.Context, req RunRequest) (*models.ContentGenerationJob, error) {
	if req.EpisodeID == "" {
		return nil, fmt.Errorf("episode id is required")
	}
	v, err, shared := p.group.Do(req.EpisodeID, func() (any, error) {
		unlock := p.lockEpisode(req.EpisodeID)
		defer unlock()
		return p.run(ctx, req)
	})
	if shared {
		log.Printf("INFO: [Pipeline] episode %s: joined in-flight run\n", req.EpisodeID)
	}
	job, _ := v.(*models.ContentGenerationJob)
	return job, err
}

func (p *PipelineService) run(ctx context.Context, req RunRequest) (*models.ContentGenerationJob, error) {
	types := req.ContentTypes
	if len(types) == 0 {
		types = p.opts.DefaultContentTypes
	}

	job := &models.ContentGenerationJob{
		EpisodeID:     req.EpisodeID,
		Status:        models.JobPending,
		ContentTypes:  types,
		Errors:        []string{},
		PromptVersion: p.opts.PromptVersion,
	}
	if err := p.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job for episode %s: %w", req.EpisodeID, err)
	}
	log.Printf("INFO: [Pipeline] job %s created for episode %s (%v)\n", job.ID, req.EpisodeID, types)

	job.Status = models.JobGenerating
	job.StartedAt = models.NullTimeOf(p.now())
	p.saveJob(ctx, job)

	episode, err := p.store.GetEpisode(ctx, req.EpisodeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrEpisodeNotFound, req.EpisodeID)
		}
		return p.fail(ctx, job, nil, err)
	}
	job.EpisodeTitle = episode.Title
	if episode.PodcastID != "" {
		if show, err := p.store.GetPodcast(ctx, episode.PodcastID); err == nil {
			job.ShowTitle = show.Title
		} else {
			log.Printf("WARN: [Pipeline] podcast %s for episode %s: %v\n", episode.PodcastID, episode.ID, err)
		}
	}
	p.saveJob(ctx, job)

	if !episode.HasTranscript() {
		log.Printf("INFO: [Pipeline] job %s: episode has no transcript, transcribing\n", job.ID)
		episode, err = p.transcription.TranscribeEpisode(ctx, episode.ID)
		if err != nil {
			return p.fail(ctx, job, nil, fmt.Errorf("transcription: %w", err))
		}
	}
	if !episode.HasTranscript() {
		return p.fail(ctx, job, episode, ErrNoTranscript)
	}

	keywords := episode.ExtractedKeywords
	if analysis, err := p.keywords.AnalyzeEpisode(ctx, episode.ID); err != nil {
		msg := "keywords: " + err.Error()
		log.Printf("WARN: [Pipeline] job %s: %s (continuing without keyword context)\n", job.ID, msg)
		job.Errors = append(job.Errors, msg)
		p.saveJob(ctx, job)
	} else {
		keywords = analysis.Keywords(10)
	}

	// keyword analysis writes the episode; reload before touching it again
	if fresh, err := p.store.GetEpisode(ctx, episode.ID); err == nil {
		episode = fresh
	}
	job.TranscriptSnapshot = episode.Transcript.String
	episode.SetProcessing(models.ProcessingGenerating, 0, fmt.Sprintf("Generating %d content type(s)", len(types)))
	p.saveEpisode(ctx, episode)

	in := GenerationInput{
		EpisodeID:    episode.ID,
		Transcript:   truncateRunes(episode.Transcript.String, p.opts.MaxTranscriptChars),
		EpisodeTitle: episode.Title,
		PodcastTitle: job.ShowTitle,
		Keywords:     keywords,
		BrandVoice:   p.opts.BrandVoice,
	}
	result, err := p.generation.RunWaterfall(ctx, job, in, types)
	if err != nil {
		return p.fail(ctx, job, episode, fmt.Errorf("generation: %w", err))
	}

	job.Progress = 100
	job.Status = models.JobModerating
	p.saveJob(ctx, job)
	episode.SetProcessing(models.ProcessingComplete, 100, fmt.Sprintf("Generated %d output(s)", result.OutputsGenerated))
	p.saveEpisode(ctx, episode)
	log.Printf("INFO: [Pipeline] job %s: generation done, %d outputs, %d errors\n", job.ID, job.OutputsGenerated, len(job.Errors))

	if p.opts.AutoModerate {
		if _, err := p.moderation.ModerateEpisode(ctx, episode.ID); err != nil {
			log.Printf("WARN: [Pipeline] job %s: auto-moderation failed: %v\n", job.ID, err)
		}
		if fresh, err := p.store.GetJob(ctx, job.ID); err == nil {
			job = fresh
		}
	}
	return job, nil
}

func (p *PipelineService) fail(ctx context.Context, job *models.ContentGenerationJob, episode *models.Episode, cause error) (*models.ContentGenerationJob, error) {
	log.Printf("ERROR: [Pipeline] job %s failed: %v\n", job.ID, cause)
	job.Status = models.JobFailed
	job.ErrorMessage = models.NewNullString(cause.Error())
	job.CompletedAt = models.NullTimeOf(p.now())
	p.saveJob(ctx, job)

	if episode == nil {
		fresh, err := p.store.GetEpisode(ctx, job.EpisodeID)
		if err != nil {
			return job, cause
		}
		episode = fresh
	}
	episode.SetProcessing(models.ProcessingFailed, episode.ProcessingProgress, cause.Error())
	p.saveEpisode(ctx, episode)
	return job, cause
}

func (p *PipelineService) saveJob(ctx context.Context, job *models.ContentGenerationJob) {
	if err := p.store.UpdateJob(ctx, job); err != nil {
		log.Printf("WARN: [Pipeline] saving job %s: %v\n", job.ID, err)
	}
}

func (p *PipelineService) saveEpisode(ctx context.Context, episode *models.Episode) {
	if err := p.store.UpdateEpisode(ctx, episode); err != nil {
		log.Printf("WARN: [Pipeline] saving episode %s: %v\n", episode.ID, err)
	}
}

// TranscribeEpisode runs only the transcription stage. It counts as in flight for IsRunning
// and waits for any other run on the same episode.
func (p *PipelineService) TranscribeEpisode(ctx context.Context, episodeID string) (*models.Episode, error) {
	v, err, _ := p.group.Do("transcribe:"+episodeID, func() (any, error) {
		unlock := p.lockEpisode(episodeID)
		defer unlock()
		return p.transcription.TranscribeEpisode(ctx, episodeID)
	})
	episode, _ := v.(*models.Episode)
	return episode, err
}

// AnalyzeKeywords runs only the keyword stage against the stored transcript.
func (p *PipelineService) AnalyzeKeywords(ctx context.Context, episodeID string) (*models.KeywordAnalysis, error) {
	v, err, _ := p.group.Do("keywords:"+episodeID, func() (any, error) {
		unlock := p.lockEpisode(episodeID)
		defer unlock()
		return p.keywords.AnalyzeEpisode(ctx, episodeID)
	})
	analysis, _ := v.(*models.KeywordAnalysis)
	return analysis, err
}
