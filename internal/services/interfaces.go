package services

import (
	"context"
	"time"

	"PodcastStudio-admin/internal/models"
)

// MediaStorage is the object-storage collaborator behind nas:// locators.
type MediaStorage interface {
	ReadMedia(relativePath string) ([]byte, error)
	SaveMedia(episodeID string, fileName string, data []byte) (string, error)
}

// TextGenerator is the language-model completion collaborator.
// GenerateJSON only requests JSON; the result may still be free text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns one audio chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// EpisodeStore reads and updates episodes and their shows.
type EpisodeStore interface {
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	UpdateEpisode(ctx context.Context, episode *models.Episode) error
	GetPodcast(ctx context.Context, id string) (*models.Podcast, error)
}

// JobStore persists ContentGenerationJobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.ContentGenerationJob) error
	GetJob(ctx context.Context, id string) (*models.ContentGenerationJob, error)
	UpdateJob(ctx context.Context, job *models.ContentGenerationJob) error
	// FindOpenJobForEpisode returns the newest non-terminal job, or models.ErrNotFound.
	FindOpenJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error)
	LatestJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error)
}

// PieceStore persists ContentPieces.
type PieceStore interface {
	CreatePiece(ctx context.Context, piece *models.ContentPiece) error
	GetPiece(ctx context.Context, id string) (*models.ContentPiece, error)
	UpdatePiece(ctx context.Context, piece *models.ContentPiece) error
	ListPieces(ctx context.Context, filter models.PieceFilter) ([]*models.ContentPiece, error)
}

// ClipStore persists ClipAssets.
type ClipStore interface {
	CreateClip(ctx context.Context, clip *models.ClipAsset) error
	GetClip(ctx context.Context, id string) (*models.ClipAsset, error)
	UpdateClip(ctx context.Context, clip *models.ClipAsset) error
	ListClips(ctx context.Context, episodeID string) ([]*models.ClipAsset, error)
}

// ScheduleStore persists ScheduledPosts.
type ScheduleStore interface {
	CreateScheduledPost(ctx context.Context, post *models.ScheduledPost) error
	GetScheduledPost(ctx context.Context, id string) (*models.ScheduledPost, error)
	UpdateScheduledPost(ctx context.Context, post *models.ScheduledPost) error
	// ListDueScheduledPosts returns scheduled, non-video-edit posts with ScheduledAt <= now, oldest first.
	ListDueScheduledPosts(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	ListScheduledPosts(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error)
}

// Store is the full persistence collaborator the pipeline needs.
type Store interface {
	EpisodeStore
	JobStore
	PieceStore
	ClipStore
	ScheduleStore
}
