package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/storage/memory"
)

// scriptedLLM answers with the first rule whose marker occurs in the prompt.
type scriptedLLM struct {
	mu       sync.Mutex
	rules    []llmRule
	fallback string
	prompts  []string
}

type llmRule struct {
	marker string
	resp   string
	err    error
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{}
}

func (f *scriptedLLM) on(marker, resp string) *scriptedLLM {
	f.rules = append(f.rules, llmRule{marker: marker, resp: resp})
	return f
}

func (f *scriptedLLM) fail(marker string, err error) *scriptedLLM {
	f.rules = append(f.rules, llmRule{marker: marker, err: err})
	return f
}

func (f *scriptedLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.GenerateJSON(ctx, prompt)
}

func (f *scriptedLLM) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	for _, r := range f.rules {
		if strings.Contains(prompt, r.marker) {
			return r.resp, r.err
		}
	}
	if f.fallback != "" {
		return f.fallback, nil
	}
	return "", fmt.Errorf("no scripted response for prompt %q", firstNChars(prompt, 60))
}

func (f *scriptedLLM) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// chunkTranscriber returns "part-N" for the N-th chunk and can fail on one call.
// A non-nil gate holds every call until it is closed; peak counts calls waiting at once.
type chunkTranscriber struct {
	mu     sync.Mutex
	active int
	peak   int
	calls  int
	sizes  []int
	mimes  []string
	failAt int
	gate   chan struct{}
}

func (c *chunkTranscriber) Transcribe(_ context.Context, audio []byte, mimeType string) (string, error) {
	c.mu.Lock()
	c.active++
	c.peak = max(c.peak, c.active)
	c.mu.Unlock()
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active--
	c.calls++
	c.sizes = append(c.sizes, len(audio))
	c.mimes = append(c.mimes, mimeType)
	if c.failAt > 0 && c.calls == c.failAt {
		return "", fmt.Errorf("provider rejected chunk %d", c.calls)
	}
	return fmt.Sprintf("part-%d", c.calls), nil
}

// staticMedia serves the same payload for every locator.
type staticMedia struct {
	data []byte
	mime string
	err  error
}

func (s *staticMedia) FetchMedia(_ context.Context, locator string) (*Media, error) {
	if s.err != nil {
		return nil, s.err
	}
	mime := s.mime
	if mime == "" {
		mime = "audio/mpeg"
	}
	return &Media{Data: s.data, MIMEType: mime, Source: locator}, nil
}

// fixture bundles a memory store with every service wired to the same fakes.
type fixture struct {
	store         *memory.Store
	llm           *scriptedLLM
	transcriber   *chunkTranscriber
	media         *staticMedia
	transcription *TranscriptionService
	keywords      *KeywordService
	generation    *GenerationService
	moderation    *ModerationService
	schedule      *ScheduleService
	pipeline      *PipelineService
}

func newFixture(t *testing.T, opts PipelineOptions) *fixture {
	t.Helper()
	f := &fixture{
		store:       memory.NewStore(),
		llm:         newScriptedLLM(),
		transcriber: &chunkTranscriber{},
		media:       &staticMedia{data: []byte("0123456789")},
	}
	var err error
	f.transcription, err = NewTranscriptionService(config.TranscriptionConfig{ChunkBytes: 4}, f.store, f.media, f.transcriber)
	require.NoError(t, err)
	f.keywords, err = NewKeywordService(config.KeywordsConfig{}, f.store, f.llm)
	require.NoError(t, err)
	f.generation, err = NewGenerationService(f.store, f.store, f.store, DefaultGenerators(f.llm))
	require.NoError(t, err)
	f.moderation, err = NewModerationService(config.ModerationConfig{ApproveThreshold: 75}, f.store, f.store, f.llm)
	require.NoError(t, err)
	f.schedule, err = NewScheduleService(f.store, f.store, f.llm)
	require.NoError(t, err)
	f.pipeline, err = NewPipelineService(opts, f.store, f.transcription, f.keywords, f.generation, f.moderation)
	require.NoError(t, err)
	return f
}

func (f *fixture) episode(title, transcript string) models.Episode {
	show := f.store.AddPodcast(models.Podcast{Title: "The Build Show"})
	e := models.Episode{PodcastID: show.ID, Title: title, MediaURL: "https://cdn.example.com/ep.mp3"}
	if transcript != "" {
		e.Transcript = models.NewNullString(transcript)
	}
	return f.store.AddEpisode(e)
}

// Prompt markers, one per brief.
const (
	markArticle    = "long-form editorial article"
	markBlog       = "conversational blog post"
	markNewsletter = "newsletter blurb"
	markSocial     = "platform-native social posts"
	markClip       = "short-form video clips"
	markSEO        = "SEO asset package"
	markKeywords   = "top_keywords"
	markSchedule   = "publication calendar"
)

const articleJSON = `{"title": "Shipping Go at scale", "description": "What we learned", "body": "# Lessons\nShip small.",
"seo_title": "Shipping Go", "seo_description": "Lessons from production", "seo_keywords": ["go", "shipping"]}`

const keywordJSON = `{"top_keywords": [
 {"keyword": "golang", "relevance": 140, "trending_score": 0, "search_intent": "informational"},
 {"keyword": "  ", "relevance": 50},
 {"keyword": "microservices", "relevance": 80, "trending_score": 60}
], "long_tail_phrases": ["how to ship go services"], "optimization_tips": ["lead with the guest"]}`
