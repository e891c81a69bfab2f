package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/models"
)

// DefaultChunkBytes leaves headroom under config.MaxInlineAudioBytes for the prompt.
const DefaultChunkBytes = 15 << 20

// frame-based streams that stay decodable when cut at arbitrary byte offsets
var splittableMIMETypes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp3":  true,
	"audio/aac":  true,
}

// TranscriptionService fetches an episode's audio and transcribes it chunk by chunk.
type TranscriptionService struct {
	episodes    EpisodeStore
	media       MediaFetcher
	transcriber Transcriber
	chunkBytes  int
}

func NewTranscriptionService(cfg config.TranscriptionConfig, episodes EpisodeStore, media MediaFetcher, transcriber Transcriber) (*TranscriptionService, error) {
	if episodes == nil {
		return nil, fmt.Errorf("TranscriptionService: EpisodeStore must not be nil")
	}
	if media == nil {
		return nil, fmt.Errorf("TranscriptionService: MediaFetcher must not be nil")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("TranscriptionService: Transcriber must not be nil")
	}
	chunkBytes := cfg.ChunkBytes
	if chunkBytes <= 0 || chunkBytes >= config.MaxInlineAudioBytes {
		if chunkBytes > 0 {
			log.Printf("WARN: [Transcription] chunk size %d exceeds the provider limit, using %d\n", chunkBytes, DefaultChunkBytes)
		}
		chunkBytes = DefaultChunkBytes
	}
	return &TranscriptionService{episodes: episodes, media: media, transcriber: transcriber, chunkBytes: chunkBytes}, nil
}

// SplitChunks cuts data into consecutive slices of at most size bytes.
func SplitChunks(data []byte, size int) [][]byte {
	if len(data) == 0 || size <= 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}

// TranscribeEpisode resolves the episode media, transcribes every chunk in order and stores the
// transcript. Any failure marks the transcript failed and discards partial text.
func (s *TranscriptionService) TranscribeEpisode(ctx context.Context, episodeID string) (*models.Episode, error) {
	episode, err := s.episodes.GetEpisode(ctx, episodeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEpisodeNotFound, episodeID)
		}
		return nil, fmt.Errorf("loading episode %s: %w", episodeID, err)
	}

	episode.TranscriptStatus = models.TranscriptProcessing
	episode.SetProcessing(models.ProcessingTranscribing, 0, "Fetching audio")
	if err := s.episodes.UpdateEpisode(ctx, episode); err != nil {
		return nil, fmt.Errorf("marking episode %s as transcribing: %w", episodeID, err)
	}

	transcript, err := s.transcribe(ctx, episode)
	if err != nil {
		log.Printf("ERROR: [Transcription] episode %s: %v\n", episodeID, err)
		episode.TranscriptStatus = models.TranscriptFailed
		episode.SetProcessing(models.ProcessingFailed, episode.ProcessingProgress, "Transcription failed: "+err.Error())
		if updErr := s.episodes.UpdateEpisode(ctx, episode); updErr != nil {
			log.Printf("ERROR: [Transcription] recording failure for episode %s: %v\n", episodeID, updErr)
		}
		return nil, err
	}

	episode.Transcript = models.NewNullString(transcript)
	episode.TranscriptStatus = models.TranscriptReady
	episode.SetProcessing(models.ProcessingTranscribing, 100, "Transcription complete")
	if err := s.episodes.UpdateEpisode(ctx, episode); err != nil {
		return nil, fmt.Errorf("saving transcript for episode %s: %w", episodeID, err)
	}
	log.Printf("INFO: [Transcription] episode %s transcribed (%d chars)\n", episodeID, len(transcript))
	return episode, nil
}

func (s *TranscriptionService) transcribe(ctx context.Context, episode *models.Episode) (string, error) {
	media, err := s.media.FetchMedia(ctx, episode.MediaURL)
	if err != nil {
		return "", err
	}
	chunks := SplitChunks(media.Data, s.chunkBytes)
	if len(chunks) == 0 {
		return "", &ResolutionError{Locator: episode.MediaURL, Message: "no audio data"}
	}
	if len(chunks) > 1 && !splittableMIMETypes[media.MIMEType] {
		return "", &ResolutionError{
			Locator: episode.MediaURL,
			Message: fmt.Sprintf("%s audio of %d bytes exceeds one %d-byte chunk and cannot be split without re-encoding", media.MIMEType, len(media.Data), s.chunkBytes),
		}
	}
	log.Printf("INFO: [Transcription] episode %s: %d bytes in %d chunk(s) (%s)\n", episode.ID, len(media.Data), len(chunks), media.MIMEType)

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		text, err := s.transcriber.Transcribe(ctx, chunk, media.MIMEType)
		if err != nil {
			return "", fmt.Errorf("transcribing chunk %d of %d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, strings.TrimSpace(text))

		episode.SetProcessing(models.ProcessingTranscribing, (i+1)*100/len(chunks), fmt.Sprintf("Transcribed chunk %d of %d", i+1, len(chunks)))
		if err := s.episodes.UpdateEpisode(ctx, episode); err != nil {
			log.Printf("WARN: [Transcription] progress update for episode %s failed: %v\n", episode.ID, err)
		}
	}

	transcript := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if transcript == "" {
		return "", fmt.Errorf("%w: transcription returned no text", ErrNoTranscript)
	}
	return transcript, nil
}
