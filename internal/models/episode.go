package models

import (
	"encoding/json"
	"strings"
	"time"
)

// TranscriptStatus tracks transcription of an episode's media.
type TranscriptStatus string

const (
	TranscriptIdle       TranscriptStatus = "idle"
	TranscriptProcessing TranscriptStatus = "processing"
	TranscriptReady      TranscriptStatus = "ready"
	TranscriptFailed     TranscriptStatus = "failed"
)

// ProcessingStatus is the coarse pipeline stage an episode is in, for polling clients.
type ProcessingStatus string

const (
	ProcessingIdle         ProcessingStatus = "idle"
	ProcessingTranscribing ProcessingStatus = "transcribing"
	ProcessingAnalyzing    ProcessingStatus = "analyzing"
	ProcessingGenerating   ProcessingStatus = "generating"
	ProcessingComplete     ProcessingStatus = "complete"
	ProcessingFailed       ProcessingStatus = "failed"
)

// Podcast is the show an episode belongs to. Only the title is read by the pipeline.
type Podcast struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Episode identifies a source recording.
type Episode struct {
	ID                 string           `json:"id"`
	PodcastID          string           `json:"podcast_id"`
	Title              string           `json:"title"`
	MediaURL           string           `json:"media_url"`
	Transcript         JsonNullString   `json:"transcript"`
	TranscriptStatus   TranscriptStatus `json:"transcript_status"`
	ProcessingStatus   ProcessingStatus `json:"processing_status"`
	ProcessingProgress int              `json:"processing_progress"`
	ProcessingStep     string           `json:"processing_step"`
	ExtractedKeywords  []string         `json:"extracted_keywords"`
	KeywordAnalysis    json.RawMessage  `json:"keyword_analysis"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// HasTranscript reports whether a usable transcript is stored on the episode.
func (e *Episode) HasTranscript() bool {
	return e.Transcript.Valid && strings.TrimSpace(e.Transcript.String) != ""
}

// SetProcessing updates the polling fields in one place.
func (e *Episode) SetProcessing(status ProcessingStatus, progress int, step string) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	e.ProcessingStatus = status
	e.ProcessingProgress = progress
	e.ProcessingStep = step
}
