// Package memory is an in-process Store used by the "memory" database driver and by tests.
// Records are copied on every read and write so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"PodcastStudio-admin/internal/models"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	podcasts map[string]models.Podcast
	episodes map[string]models.Episode
	jobs     map[string]models.ContentGenerationJob
	pieces   map[string]models.ContentPiece
	clips    map[string]models.ClipAsset
	posts    map[string]models.ScheduledPost
	// insertion sequence per record id; keeps creation order stable within one clock tick
	seq   int64
	order map[string]int64
}

func NewStore() *Store {
	log.Println("INFO: [MemoryStore] in-process store initialised; data is lost on exit.")
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		podcasts: make(map[string]models.Podcast),
		episodes: make(map[string]models.Episode),
		jobs:     make(map[string]models.ContentGenerationJob),
		pieces:   make(map[string]models.ContentPiece),
		clips:    make(map[string]models.ClipAsset),
		posts:    make(map[string]models.ScheduledPost),
		order:    make(map[string]int64),
	}
}

func (s *Store) Close() error { return nil }

// AddPodcast seeds a podcast. Ingestion lives outside the pipeline.
func (s *Store) AddPodcast(p models.Podcast) models.Podcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.podcasts[p.ID] = p
	return p
}

// AddEpisode seeds an episode, filling id, statuses and timestamps when empty.
func (s *Store) AddEpisode(e models.Episode) models.Episode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.TranscriptStatus == "" {
		e.TranscriptStatus = models.TranscriptIdle
		if e.HasTranscript() {
			e.TranscriptStatus = models.TranscriptReady
		}
	}
	if e.ProcessingStatus == "" {
		e.ProcessingStatus = models.ProcessingIdle
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	e = copyEpisode(e)
	s.episodes[e.ID] = e
	return copyEpisode(e)
}

// CreatePodcast stores p, assigning an id when empty.
func (s *Store) CreatePodcast(_ context.Context, p *models.Podcast) error {
	*p = s.AddPodcast(*p)
	return nil
}

// CreateEpisode stores e, filling defaults the same way AddEpisode does.
func (s *Store) CreateEpisode(_ context.Context, e *models.Episode) error {
	*e = s.AddEpisode(*e)
	return nil
}

func (s *Store) GetPodcast(_ context.Context, id string) (*models.Podcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.podcasts[id]
	if !ok {
		return nil, fmt.Errorf("podcast %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetEpisode(_ context.Context, id string) (*models.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, models.ErrNotFound)
	}
	e = copyEpisode(e)
	return &e, nil
}

func (s *Store) UpdateEpisode(_ context.Context, episode *models.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.episodes[episode.ID]; !ok {
		return fmt.Errorf("episode %s: %w", episode.ID, models.ErrNotFound)
	}
	episode.UpdatedAt = s.now()
	s.episodes[episode.ID] = copyEpisode(*episode)
	return nil
}

func (s *Store) CreateJob(_ context.Context, job *models.ContentGenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := s.now()
	job.CreatedAt, job.UpdatedAt = now, now
	s.track(job.ID)
	s.jobs[job.ID] = copyJob(*job)
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*models.ContentGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	j = copyJob(j)
	return &j, nil
}

func (s *Store) UpdateJob(_ context.Context, job *models.ContentGenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, models.ErrNotFound)
	}
	job.UpdatedAt = s.now()
	s.jobs[job.ID] = copyJob(*job)
	return nil
}

func (s *Store) FindOpenJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error) {
	return s.newestJob(episodeID, true)
}

func (s *Store) LatestJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error) {
	return s.newestJob(episodeID, false)
}

func (s *Store) newestJob(episodeID string, openOnly bool) (*models.ContentGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.ContentGenerationJob
	for _, j := range s.jobs {
		if j.EpisodeID != episodeID || (openOnly && j.IsTerminal()) {
			continue
		}
		if found == nil || s.order[j.ID] > s.order[found.ID] {
			c := copyJob(j)
			found = &c
		}
	}
	if found == nil {
		return nil, fmt.Errorf("job for episode %s: %w", episodeID, models.ErrNotFound)
	}
	return found, nil
}

func (s *Store) CreatePiece(_ context.Context, piece *models.ContentPiece) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if piece.ID == "" {
		piece.ID = uuid.NewString()
	}
	now := s.now()
	piece.CreatedAt, piece.UpdatedAt = now, now
	s.track(piece.ID)
	s.pieces[piece.ID] = copyPiece(*piece)
	return nil
}

func (s *Store) GetPiece(_ context.Context, id string) (*models.ContentPiece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pieces[id]
	if !ok {
		return nil, fmt.Errorf("content piece %s: %w", id, models.ErrNotFound)
	}
	p = copyPiece(p)
	return &p, nil
}

func (s *Store) UpdatePiece(_ context.Context, piece *models.ContentPiece) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pieces[piece.ID]; !ok {
		return fmt.Errorf("content piece %s: %w", piece.ID, models.ErrNotFound)
	}
	piece.UpdatedAt = s.now()
	s.pieces[piece.ID] = copyPiece(*piece)
	return nil
}

// ListPieces returns matching pieces in creation order.
func (s *Store) ListPieces(_ context.Context, filter models.PieceFilter) ([]*models.ContentPiece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ContentPiece, 0)
	for _, p := range s.pieces {
		if !filter.Matches(&p) {
			continue
		}
		c := copyPiece(p)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func (s *Store) CreateClip(_ context.Context, clip *models.ClipAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	now := s.now()
	clip.CreatedAt, clip.UpdatedAt = now, now
	s.clips[clip.ID] = *clip
	return nil
}

func (s *Store) GetClip(_ context.Context, id string) (*models.ClipAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clips[id]
	if !ok {
		return nil, fmt.Errorf("clip %s: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) UpdateClip(_ context.Context, clip *models.ClipAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clips[clip.ID]; !ok {
		return fmt.Errorf("clip %s: %w", clip.ID, models.ErrNotFound)
	}
	clip.UpdatedAt = s.now()
	s.clips[clip.ID] = *clip
	return nil
}

func (s *Store) ListClips(_ context.Context, episodeID string) ([]*models.ClipAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ClipAsset, 0)
	for _, c := range s.clips {
		if c.EpisodeID != episodeID {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ViralScore == out[j].ViralScore {
			return out[i].StartSeconds < out[j].StartSeconds
		}
		return out[i].ViralScore > out[j].ViralScore
	})
	return out, nil
}

func (s *Store) CreateScheduledPost(_ context.Context, post *models.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := s.now()
	post.CreatedAt, post.UpdatedAt = now, now
	s.posts[post.ID] = *post
	return nil
}

func (s *Store) GetScheduledPost(_ context.Context, id string) (*models.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("scheduled post %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) UpdateScheduledPost(_ context.Context, post *models.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return fmt.Errorf("scheduled post %s: %w", post.ID, models.ErrNotFound)
	}
	post.UpdatedAt = s.now()
	s.posts[post.ID] = *post
	return nil
}

func (s *Store) ListDueScheduledPosts(_ context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ScheduledPost, 0)
	for _, p := range s.posts {
		if !p.IsDue(now) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sortPosts(out)
	return out, nil
}

func (s *Store) ListScheduledPosts(_ context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ScheduledPost, 0)
	for _, p := range s.posts {
		if !filter.Matches(&p) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sortPosts(out)
	return out, nil
}

func (s *Store) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

func sortPosts(posts []*models.ScheduledPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].ScheduledAt.Equal(posts[j].ScheduledAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].ScheduledAt.Before(posts[j].ScheduledAt)
	})
}

func copyEpisode(e models.Episode) models.Episode {
	e.ExtractedKeywords = append([]string(nil), e.ExtractedKeywords...)
	if e.KeywordAnalysis != nil {
		e.KeywordAnalysis = append([]byte(nil), e.KeywordAnalysis...)
	}
	return e
}

func copyJob(j models.ContentGenerationJob) models.ContentGenerationJob {
	j.ContentTypes = append([]models.ContentType(nil), j.ContentTypes...)
	j.Errors = append([]string(nil), j.Errors...)
	return j
}

func copyPiece(p models.ContentPiece) models.ContentPiece {
	p.SEOKeywords = append([]string(nil), p.SEOKeywords...)
	if p.AIQualityScore != nil {
		score := *p.AIQualityScore
		p.AIQualityScore = &score
	}
	return p
}
