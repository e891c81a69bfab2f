package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"PodcastStudio-admin/internal/completion"
	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/models"
)

const (
	DefaultApproveThreshold = 75
	// neutralScore is used when the rubric response cannot be parsed.
	neutralScore = 70
)

// ModerationResult is the outcome for one piece.
type ModerationResult struct {
	PieceID      string                  `json:"piece_id"`
	Type         models.ContentType      `json:"type"`
	Score        int                     `json:"score"`
	Status       models.ModerationStatus `json:"status"`
	Improvements []string                `json:"improvements,omitempty"`
	Rewrite      string                  `json:"rewrite,omitempty"`
	Parsed       bool                    `json:"parsed"`
	Error        string                  `json:"error,omitempty"`
}

// ModerationSummary aggregates a batch.
type ModerationSummary struct {
	Total        int                `json:"total"`
	Approved     int                `json:"approved"`
	Flagged      int                `json:"flagged"`
	AverageScore float64            `json:"average_score"`
	Results      []ModerationResult `json:"results"`
	scoreSum     int
}

func (m *ModerationSummary) add(r ModerationResult) {
	m.Results = append(m.Results, r)
	m.Total++
	if r.Status == models.ModerationApproved {
		m.Approved++
	} else {
		m.Flagged++
	}
	m.scoreSum += r.Score
	m.AverageScore = math.Round(float64(m.scoreSum)/float64(m.Total)*10) / 10
}

type rubricResponse struct {
	Score        float64  `json:"score"`
	Improvements []string `json:"improvements"`
	Rewrite      *string  `json:"rewrite"`
}

// ModerationService scores pending pieces against a type-specific rubric.
type ModerationService struct {
	pieces    PieceStore
	jobs      JobStore
	llm       TextGenerator
	threshold int
	now       func() time.Time
}

func NewModerationService(cfg config.ModerationConfig, pieces PieceStore, jobs JobStore, llm TextGenerator) (*ModerationService, error) {
	if pieces == nil || jobs == nil {
		return nil, fmt.Errorf("ModerationService: stores must not be nil")
	}
	if llm == nil {
		return nil, fmt.Errorf("ModerationService: TextGenerator must not be nil")
	}
	threshold := cfg.ApproveThreshold
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultApproveThreshold
	}
	return &ModerationService{pieces: pieces, jobs: jobs, llm: llm, threshold: threshold, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Decide applies the approve/flag threshold.
func (s *ModerationService) Decide(score int) models.ModerationStatus {
	if score >= s.threshold {
		return models.ModerationApproved
	}
	return models.ModerationFlagged
}

// ModeratePiece scores one pending piece and persists the decision.
// Pieces that were already scored return ErrAlreadyModerated.
func (s *ModerationService) ModeratePiece(ctx context.Context, pieceID string) (*ModerationResult, error) {
	piece, err := s.pieces.GetPiece(ctx, pieceID)
	if err != nil {
		return nil, err
	}
	return s.moderate(ctx, piece)
}

func (s *ModerationService) moderate(ctx context.Context, piece *models.ContentPiece) (*ModerationResult, error) {
	if piece.ModerationStatus != models.ModerationPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyModerated, piece.ID, piece.ModerationStatus)
	}

	raw, err := s.llm.GenerateJSON(ctx, buildRubricPrompt(piece))
	if err != nil {
		return nil, fmt.Errorf("moderation completion for piece %s failed: %w", piece.ID, err)
	}
	out := completion.DecodeWithSchema[rubricResponse](raw, completion.ModerationSchema)
	result := &ModerationResult{PieceID: piece.ID, Type: piece.Type, Parsed: out.Parsed}

	var notes string
	if out.Parsed {
		result.Score = clampInt(int(math.Round(out.Value.Score)), 0, 100)
		result.Improvements = out.Value.Improvements
		if out.Value.Rewrite != nil {
			result.Rewrite = strings.TrimSpace(*out.Value.Rewrite)
		}
		notes = strings.Join(result.Improvements, "\n")
	} else {
		log.Printf("WARN: [Moderation] piece %s: unparseable rubric response, using neutral score: %v\n", piece.ID, out.Err)
		result.Score = neutralScore
		notes = strings.TrimSpace(raw)
	}
	result.Status = s.Decide(result.Score)

	score := result.Score
	piece.AIQualityScore = &score
	piece.AIQualityNotes = notes
	piece.AIRewriteSuggestion = models.NewNullString(result.Rewrite)
	piece.ModerationStatus = result.Status
	if result.Status == models.ModerationApproved {
		piece.PipelineStage = models.StageReviewReady
	}
	if err := s.pieces.UpdatePiece(ctx, piece); err != nil {
		return nil, fmt.Errorf("saving moderation result for piece %s: %w", piece.ID, err)
	}
	log.Printf("INFO: [Moderation] piece %s (%s): score %d -> %s\n", piece.ID, piece.Type, result.Score, result.Status)
	return result, nil
}

// ModerateEpisode scores every pending piece of an episode and completes its job once
// generation has handed it over for moderation.
func (s *ModerationService) ModerateEpisode(ctx context.Context, episodeID string) (*ModerationSummary, error) {
	pieces, err := s.pieces.ListPieces(ctx, models.PieceFilter{EpisodeID: episodeID, ModerationStatus: models.ModerationPending})
	if err != nil {
		return nil, fmt.Errorf("listing pending pieces for episode %s: %w", episodeID, err)
	}
	summary := s.moderateBatch(ctx, pieces)

	job, err := s.jobs.FindOpenJobForEpisode(ctx, episodeID)
	switch {
	case err == nil && job.Status != models.JobModerating:
		log.Printf("INFO: [Moderation] job %s is %s, leaving it to the pipeline\n", job.ID, job.Status)
	case err == nil:
		job.Status = models.JobComplete
		job.Progress = 100
		job.CompletedAt = models.NullTimeOf(s.now())
		if err := s.jobs.UpdateJob(ctx, job); err != nil {
			log.Printf("WARN: [Moderation] completing job %s failed: %v\n", job.ID, err)
		}
	case !errors.Is(err, models.ErrNotFound):
		log.Printf("WARN: [Moderation] looking up open job for episode %s failed: %v\n", episodeID, err)
	}
	log.Printf("INFO: [Moderation] episode %s: %d moderated (%d approved, %d flagged, avg %.1f)\n",
		episodeID, summary.Total, summary.Approved, summary.Flagged, summary.AverageScore)
	return summary, nil
}

// ModerateAllPending scores every pending piece system-wide.
func (s *ModerationService) ModerateAllPending(ctx context.Context) (*ModerationSummary, error) {
	pieces, err := s.pieces.ListPieces(ctx, models.PieceFilter{ModerationStatus: models.ModerationPending})
	if err != nil {
		return nil, fmt.Errorf("listing pending pieces: %w", err)
	}
	summary := s.moderateBatch(ctx, pieces)
	log.Printf("INFO: [Moderation] sweep: %d moderated (%d approved, %d flagged, avg %.1f)\n",
		summary.Total, summary.Approved, summary.Flagged, summary.AverageScore)
	return summary, nil
}

// moderateBatch never aborts: a failed item is reported as flagged with score 0.
func (s *ModerationService) moderateBatch(ctx context.Context, pieces []*models.ContentPiece) *ModerationSummary {
	summary := &ModerationSummary{Results: make([]ModerationResult, 0, len(pieces))}
	for _, piece := range pieces {
		result, err := s.moderate(ctx, piece)
		if err != nil {
			log.Printf("ERROR: [Moderation] piece %s: %v\n", piece.ID, err)
			summary.add(ModerationResult{PieceID: piece.ID, Type: piece.Type, Score: 0, Status: models.ModerationFlagged, Error: err.Error()})
			continue
		}
		summary.add(*result)
	}
	return summary
}

func buildRubricPrompt(piece *models.ContentPiece) string {
	var sb strings.Builder
	sb.WriteString(rubricFor(piece.Type))
	sb.WriteString("\n\nReturn ONLY JSON: {\"score\": 0-100, \"improvements\": [\"\"], \"rewrite\": \"full improved text or null\"}\n\n")
	if piece.Platform.Valid {
		fmt.Fprintf(&sb, "Platform: %s\n", piece.Platform.String)
	}
	if piece.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", piece.Title)
	}
	sb.WriteString("Content:\n")
	sb.WriteString(piece.Body)
	return sb.String()
}

func rubricFor(ct models.ContentType) string {
	switch {
	case ct.IsLongForm():
		return `You are a senior editor. Score this long-form piece on accuracy to the source episode, structure,
clarity, originality of insight, headline strength and brand-safe tone. Deduct heavily for filler or hallucinated facts.`
	case ct == models.ContentSocial:
		return `You are a social media lead. Score this post on whether it feels native to its platform: length, tone,
hook in the first line, hashtag use and a clear reason to listen. Deduct for generic marketing copy.`
	case ct == models.ContentClip:
		return `You are a short-form video producer. Score this clip suggestion on hook strength in the first three seconds,
standalone clarity, emotional or controversial pull and shareability. Flag anything that risks being taken out of context.`
	case ct == models.ContentSEO:
		return `You are an SEO strategist. Score this asset package on keyword fit, search intent match, realism of the
backlink targets and the strength of each outreach angle.`
	}
	return `You are an editor. Score this content on quality, accuracy and fit for publication.`
}
