package handlers

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"
)

// MediaLocator maps a relative media path to an existing file under the storage root.
type MediaLocator interface {
	AbsolutePath(relativePath string) (string, error)
}

// MediaHandler serves stored episode media. Mount it behind http.StripPrefix("/media/", ...).
type MediaHandler struct {
	storage MediaLocator
}

func NewMediaHandler(storage MediaLocator) *MediaHandler {
	if storage == nil {
		log.Panicln("MediaHandler: MediaLocator must not be nil")
	}
	return &MediaHandler{storage: storage}
}

// ServeHTTP expects the path relative to the media root, e.g. 2025/01/06/<episode>/audio.mp3.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	relativePath := strings.TrimPrefix(r.URL.Path, "/")
	if relativePath == "" || strings.HasSuffix(relativePath, "/") {
		http.Error(w, "invalid media path", http.StatusBadRequest)
		return
	}

	fullPath, err := h.storage.AbsolutePath(relativePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("WARN: [MediaHandler] requested media does not exist: %s", relativePath)
		http.NotFound(w, r)
		return
	case err != nil:
		log.Printf("WARN: [MediaHandler] rejected media path '%s': %v", relativePath, err)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	log.Printf("INFO: [MediaHandler] serving %s", fullPath)
	// ServeFile handles Range requests so players can seek
	http.ServeFile(w, r, fullPath)
}
