package models

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the lifecycle of a ContentGenerationJob.
// pending -> generating -> moderating -> complete, with failed reachable from generating.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobGenerating JobStatus = "generating"
	JobModerating JobStatus = "moderating"
	JobComplete   JobStatus = "complete"
	JobFailed     JobStatus = "failed"
)

// ContentGenerationJob tracks one waterfall run against an episode.
type ContentGenerationJob struct {
	ID                 string         `json:"id"`
	EpisodeID          string         `json:"episode_id"`
	ShowTitle          string         `json:"show_title"`
	EpisodeTitle       string         `json:"episode_title"`
	TranscriptSnapshot string         `json:"transcript_snapshot,omitempty"`
	Status             JobStatus      `json:"status"`
	Progress           int            `json:"progress"`
	OutputsGenerated   int            `json:"outputs_generated"`
	ContentTypes       []ContentType  `json:"content_types"`
	Errors             []string       `json:"errors"`
	ErrorMessage       JsonNullString `json:"error_message"`
	PromptVersion      string         `json:"prompt_version"`
	StartedAt          JsonNullTime   `json:"started_at"`
	CompletedAt        JsonNullTime   `json:"completed_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the job reached complete or failed.
func (j *ContentGenerationJob) IsTerminal() bool {
	return j.Status == JobComplete || j.Status == JobFailed
}

// ContentType is the kind of derivative asset.
type ContentType string

const (
	ContentArticle    ContentType = "article"
	ContentBlog       ContentType = "blog"
	ContentSocial     ContentType = "social"
	ContentNewsletter ContentType = "newsletter"
	ContentClip       ContentType = "clip"
	ContentSEO        ContentType = "seo"
)

// AllContentTypes lists every generator in default waterfall order.
var AllContentTypes = []ContentType{ContentArticle, ContentBlog, ContentSocial, ContentNewsletter, ContentClip, ContentSEO}

// ParseContentType accepts the canonical names plus a few plural aliases ("clips", "socials").
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "article":
		return ContentArticle, nil
	case "blog":
		return ContentBlog, nil
	case "social", "socials":
		return ContentSocial, nil
	case "newsletter":
		return ContentNewsletter, nil
	case "clip", "clips":
		return ContentClip, nil
	case "seo":
		return ContentSEO, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// ParseContentTypes parses a list, dropping duplicates while keeping order.
func ParseContentTypes(values []string) ([]ContentType, error) {
	seen := make(map[ContentType]bool, len(values))
	out := make([]ContentType, 0, len(values))
	for _, v := range values {
		ct, err := ParseContentType(v)
		if err != nil {
			return nil, err
		}
		if seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	return out, nil
}

// IsLongForm reports whether the type is judged with the editorial rubric.
func (c ContentType) IsLongForm() bool {
	return c == ContentArticle || c == ContentBlog || c == ContentNewsletter
}

// ModerationStatus transitions only pending -> approved|flagged.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationFlagged  ModerationStatus = "flagged"
)

// PipelineStage is where a piece sits between moderation and publication.
type PipelineStage string

const (
	StageModerating  PipelineStage = "moderating"
	StageReviewReady PipelineStage = "review_ready"
	StageScheduled   PipelineStage = "scheduled"
	StagePublished   PipelineStage = "published"
)

// PublicationStatus is the top-level CMS status of a piece.
type PublicationStatus string

const (
	PublicationDraft     PublicationStatus = "draft"
	PublicationScheduled PublicationStatus = "scheduled"
	PublicationPublished PublicationStatus = "published"
)

// ContentPiece is one derivative asset generated from an episode.
type ContentPiece struct {
	ID                  string            `json:"id"`
	EpisodeID           string            `json:"episode_id"`
	JobID               string            `json:"job_id"`
	Type                ContentType       `json:"type"`
	Platform            JsonNullString    `json:"platform"`
	Title               string            `json:"title"`
	Body                string            `json:"body"`
	Description         string            `json:"description"`
	SEOTitle            string            `json:"seo_title"`
	SEODescription      string            `json:"seo_description"`
	SEOKeywords         []string          `json:"seo_keywords"`
	AIGenerated         bool              `json:"ai_generated"`
	ModerationStatus    ModerationStatus  `json:"moderation_status"`
	AIQualityScore      *int              `json:"ai_quality_score"`
	AIQualityNotes      string            `json:"ai_quality_notes"`
	AIRewriteSuggestion JsonNullString    `json:"ai_rewrite_suggestion"`
	PipelineStage       PipelineStage     `json:"pipeline_stage"`
	Status              PublicationStatus `json:"status"`
	ScheduledAt         JsonNullTime      `json:"scheduled_at"`
	PublishedAt         JsonNullTime      `json:"published_at"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NewGeneratedPiece returns a piece in the state every generator must create it in.
func NewGeneratedPiece(episodeID, jobID string, ct ContentType) *ContentPiece {
	return &ContentPiece{
		EpisodeID:        episodeID,
		JobID:            jobID,
		Type:             ct,
		AIGenerated:      true,
		ModerationStatus: ModerationPending,
		PipelineStage:    StageModerating,
		Status:           PublicationDraft,
	}
}

// PieceFilter narrows ListPieces. Zero fields match everything.
type PieceFilter struct {
	EpisodeID        string
	ModerationStatus ModerationStatus
	Type             ContentType
}

// Matches reports whether p passes the filter.
func (f PieceFilter) Matches(p *ContentPiece) bool {
	if f.EpisodeID != "" && p.EpisodeID != f.EpisodeID {
		return false
	}
	if f.ModerationStatus != "" && p.ModerationStatus != f.ModerationStatus {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	return true
}

// ClipStatus tracks a short-form clip suggestion through the editing queue.
type ClipStatus string

const (
	ClipSuggested     ClipStatus = "suggested"
	ClipQueuedForEdit ClipStatus = "queued_for_edit"
	ClipPublished     ClipStatus = "published"
)

// ClipAsset is a short-form video suggestion cut from the episode.
type ClipAsset struct {
	ID                string     `json:"id"`
	EpisodeID         string     `json:"episode_id"`
	ContentPieceID    string     `json:"content_piece_id"`
	StartSeconds      float64    `json:"start_seconds"`
	EndSeconds        float64    `json:"end_seconds"`
	HookText          string     `json:"hook_text"`
	TranscriptExcerpt string     `json:"transcript_excerpt"`
	ViralScore        int        `json:"viral_score"`
	Status            ClipStatus `json:"status"`
	TargetPlatform    string     `json:"target_platform"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
