package services

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"PodcastStudio-admin/internal/models"
)

// CatalogStore registers shows and episodes.
type CatalogStore interface {
	CreatePodcast(ctx context.Context, p *models.Podcast) error
	CreateEpisode(ctx context.Context, e *models.Episode) error
	UpdateEpisode(ctx context.Context, e *models.Episode) error
	GetPodcast(ctx context.Context, id string) (*models.Podcast, error)
}

// IngestRequest describes one episode to register. Audio, when set, is archived to media
// storage and the episode points at the resulting nas:// locator instead of MediaURL.
type IngestRequest struct {
	PodcastID    string
	PodcastTitle string
	Title        string
	MediaURL     string
	FileName     string
	Audio        []byte
	Transcript   string
}

// IngestService registers episodes and archives their audio.
type IngestService struct {
	catalog CatalogStore
	storage MediaStorage
}

func NewIngestService(catalog CatalogStore, storage MediaStorage) (*IngestService, error) {
	if catalog == nil {
		return nil, fmt.Errorf("IngestService: CatalogStore must not be nil")
	}
	if storage == nil {
		return nil, fmt.Errorf("IngestService: MediaStorage must not be nil")
	}
	log.Println("INFO: [Ingest] IngestService initialised.")
	return &IngestService{catalog: catalog, storage: storage}, nil
}

// Ingest creates the episode (and its podcast when only a title is given).
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*models.Episode, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("episode title is required")
	}
	if req.MediaURL == "" && len(req.Audio) == 0 && strings.TrimSpace(req.Transcript) == "" {
		return nil, fmt.Errorf("episode %q needs a media URL, an audio file or a transcript", req.Title)
	}

	podcastID, err := s.podcastFor(ctx, req)
	if err != nil {
		return nil, err
	}

	episode := &models.Episode{PodcastID: podcastID, Title: req.Title, MediaURL: strings.TrimSpace(req.MediaURL)}
	if t := strings.TrimSpace(req.Transcript); t != "" {
		episode.Transcript = models.NewNullString(t)
	}
	if err := s.catalog.CreateEpisode(ctx, episode); err != nil {
		return nil, fmt.Errorf("creating episode %q: %w", req.Title, err)
	}

	if len(req.Audio) > 0 {
		name := req.FileName
		if name == "" {
			name = "audio.mp3"
		}
		locator, err := s.storage.SaveMedia(episode.ID, name, req.Audio)
		if err != nil {
			return nil, fmt.Errorf("archiving audio for episode %s: %w", episode.ID, err)
		}
		episode.MediaURL = locator
		if err := s.catalog.UpdateEpisode(ctx, episode); err != nil {
			return nil, fmt.Errorf("recording media locator for episode %s: %w", episode.ID, err)
		}
	}
	log.Printf("INFO: [Ingest] episode %s registered (%s, media %q)\n", episode.ID, episode.Title, episode.MediaURL)
	return episode, nil
}

func (s *IngestService) podcastFor(ctx context.Context, req IngestRequest) (string, error) {
	if req.PodcastID != "" {
		if _, err := s.catalog.GetPodcast(ctx, req.PodcastID); err != nil {
			return "", fmt.Errorf("podcast %s: %w", req.PodcastID, err)
		}
		return req.PodcastID, nil
	}
	title := strings.TrimSpace(req.PodcastTitle)
	if title == "" {
		return "", nil
	}
	p := &models.Podcast{Title: title}
	if err := s.catalog.CreatePodcast(ctx, p); err != nil {
		return "", fmt.Errorf("creating podcast %q: %w", title, err)
	}
	return p.ID, nil
}

// ImportDirectory registers every audio file under dir. A sibling .txt file with the same base
// name is used as the transcript. Files that fail are logged and skipped.
func (s *IngestService) ImportDirectory(ctx context.Context, dir string, podcastID string) ([]*models.Episode, error) {
	var audioFiles []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			audioFiles = append(audioFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(audioFiles)
	log.Printf("INFO: [Ingest] found %d audio file(s) under %s\n", len(audioFiles), dir)

	episodes := make([]*models.Episode, 0, len(audioFiles))
	for _, path := range audioFiles {
		if err := ctx.Err(); err != nil {
			return episodes, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARN: [Ingest] skipping %s: %v\n", path, err)
			continue
		}
		req := IngestRequest{
			PodcastID: podcastID,
			Title:     titleFromFileName(path),
			FileName:  filepath.Base(path),
			Audio:     data,
		}
		sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
		if text, err := os.ReadFile(sidecar); err == nil {
			req.Transcript = string(text)
		}
		episode, err := s.Ingest(ctx, req)
		if err != nil {
			log.Printf("WARN: [Ingest] skipping %s: %v\n", path, err)
			continue
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}

// titleFromFileName turns "ep12_the-big_interview.mp3" into "ep12 the big interview".
func titleFromFileName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(base)), " ")
}
