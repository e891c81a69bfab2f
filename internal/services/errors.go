package services

import (
	"errors"
	"fmt"

	"PodcastStudio-admin/internal/models"
)

var (
	// ErrEpisodeNotFound also matches models.ErrNotFound.
	ErrEpisodeNotFound    = fmt.Errorf("episode %w", models.ErrNotFound)
	ErrNoTranscript       = errors.New("no transcript available")
	ErrAlreadyModerated   = errors.New("content piece already moderated")
	ErrUnknownContentType = errors.New("unknown content type")
)

// ResolutionError means a media locator could not be turned into playable audio.
type ResolutionError struct {
	Locator string
	Message string
	Cause   error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("media resolution failed for %s: %s: %v", e.Locator, e.Message, e.Cause)
	}
	return fmt.Sprintf("media resolution failed for %s: %s", e.Locator, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// FetchError is a transport or HTTP status failure while downloading media.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
