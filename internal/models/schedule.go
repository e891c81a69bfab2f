package models

import "time"

// PostStatus transitions only scheduled -> published, once.
type PostStatus string

const (
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
)

// ScheduledPost is a publication commitment for one content piece.
type ScheduledPost struct {
	ID             string       `json:"id"`
	ContentPieceID string       `json:"content_piece_id"`
	EpisodeID      string       `json:"episode_id"`
	Platform       string       `json:"platform"`
	ScheduledAt    time.Time    `json:"scheduled_at"`
	Status         PostStatus   `json:"status"`
	PublishedAt    JsonNullTime `json:"published_at"`
	AIReason       string       `json:"ai_reason"`
	NeedsVideoEdit bool         `json:"needs_video_edit"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsDue reports whether the background publisher may promote the post at now.
// Clip posts wait in the video-editing queue and are never auto-published.
func (p *ScheduledPost) IsDue(now time.Time) bool {
	return p.Status == PostScheduled && !p.NeedsVideoEdit && !p.ScheduledAt.After(now)
}

// ScheduleProposal is one entry of an advisory publication plan.
type ScheduleProposal struct {
	ContentPieceID    string `json:"content_piece_id"`
	ContentType       string `json:"content_type"`
	Platform          string `json:"platform"`
	ScheduledDatetime string `json:"scheduled_datetime"`
	Reason            string `json:"reason"`
	NeedsVideoEdit    bool   `json:"needs_video_edit"`
}

// PostFilter narrows ListScheduledPosts. Zero fields match everything.
type PostFilter struct {
	EpisodeID string
	Status    PostStatus
	From      time.Time
	To        time.Time
}

// Matches reports whether p passes the filter.
func (f PostFilter) Matches(p *ScheduledPost) bool {
	if f.EpisodeID != "" && p.EpisodeID != f.EpisodeID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && p.ScheduledAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.ScheduledAt.After(f.To) {
		return false
	}
	return true
}
