package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"PodcastStudio-admin/internal/completion"
	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/models"
)

const defaultKeywordChars = 12000

// KeywordService extracts ranked keywords and topics from a transcript.
type KeywordService struct {
	store    EpisodeStore
	llm      TextGenerator
	maxChars int
}

func NewKeywordService(cfg config.KeywordsConfig, store EpisodeStore, llm TextGenerator) (*KeywordService, error) {
	if store == nil {
		return nil, fmt.Errorf("KeywordService: EpisodeStore must not be nil")
	}
	if llm == nil {
		return nil, fmt.Errorf("KeywordService: TextGenerator must not be nil")
	}
	maxChars := cfg.MaxTranscriptChars
	if maxChars <= 0 {
		maxChars = defaultKeywordChars
	}
	return &KeywordService{store: store, llm: llm, maxChars: maxChars}, nil
}

// Analyze sends the truncated transcript to the model and decodes the analysis.
func (s *KeywordService) Analyze(ctx context.Context, transcript, episodeTitle, podcastTitle string) (*models.KeywordAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrNoTranscript
	}
	prompt := buildKeywordPrompt(episodeTitle, podcastTitle, truncateRunes(transcript, s.maxChars))
	raw, err := s.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("keyword completion failed: %w", err)
	}
	out := completion.DecodeWithSchema[models.KeywordAnalysis](raw, completion.KeywordSchema)
	if !out.Parsed {
		return nil, fmt.Errorf("keyword response unparseable (%s): %w", firstNChars(raw, 80), out.Err)
	}
	analysis := out.Value
	kept := analysis.TopKeywords[:0]
	for _, kw := range analysis.TopKeywords {
		kw.Keyword = strings.TrimSpace(kw.Keyword)
		if kw.Keyword == "" {
			continue
		}
		kw.Relevance = clampInt(kw.Relevance, 1, 100)
		kw.TrendingScore = clampInt(kw.TrendingScore, 1, 100)
		kept = append(kept, kw)
	}
	analysis.TopKeywords = kept
	return &analysis, nil
}

// AnalyzeEpisode runs Analyze for a stored episode and persists keywords and the payload on it.
func (s *KeywordService) AnalyzeEpisode(ctx context.Context, episodeID string) (*models.KeywordAnalysis, error) {
	episode, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEpisodeNotFound, episodeID)
		}
		return nil, err
	}
	if !episode.HasTranscript() {
		return nil, ErrNoTranscript
	}

	podcastTitle := ""
	if episode.PodcastID != "" {
		if p, err := s.store.GetPodcast(ctx, episode.PodcastID); err == nil {
			podcastTitle = p.Title
		}
	}

	episode.SetProcessing(models.ProcessingAnalyzing, episode.ProcessingProgress, "Analyzing keywords")
	if err := s.store.UpdateEpisode(ctx, episode); err != nil {
		log.Printf("WARN: [Keywords] progress update for episode %s failed: %v\n", episodeID, err)
	}

	analysis, err := s.Analyze(ctx, episode.Transcript.String, episode.Title, podcastTitle)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encoding keyword analysis: %w", err)
	}
	episode.ExtractedKeywords = analysis.Keywords(0)
	episode.KeywordAnalysis = payload
	if err := s.store.UpdateEpisode(ctx, episode); err != nil {
		return nil, fmt.Errorf("saving keyword analysis for episode %s: %w", episodeID, err)
	}
	log.Printf("INFO: [Keywords] episode %s: %d keywords extracted\n", episodeID, len(episode.ExtractedKeywords))
	return analysis, nil
}
