package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/services"
)

const backgroundTimeout = 30 * time.Minute

// pipelineRequest is the optional body of POST /episodes/{id}/pipeline.
type pipelineRequest struct {
	ContentTypes []string `json:"content_types" validate:"omitempty,max=6,dive,oneof=article blog social socials newsletter clip clips seo"`
}

// TriggerHandler starts pipeline stages in the background and answers 202 Accepted,
// or 409 Conflict while the episode already has work in flight.
type TriggerHandler struct {
	pipeline PipelineRunner
	store    ReadStore

	mu       sync.Mutex
	inFlight map[string]string
	wg       sync.WaitGroup
}

func NewTriggerHandler(pipeline PipelineRunner, store ReadStore) *TriggerHandler {
	if pipeline == nil {
		log.Panicln("TriggerHandler: PipelineRunner must not be nil")
	}
	if store == nil {
		log.Panicln("TriggerHandler: ReadStore must not be nil")
	}
	return &TriggerHandler{pipeline: pipeline, store: store, inFlight: make(map[string]string)}
}

// Wait blocks until every background task started by this handler has returned.
func (h *TriggerHandler) Wait() {
	h.wg.Wait()
}

// Pipeline handles POST /episodes/{id}/pipeline.
func (h *TriggerHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	types, err := models.ParseContentTypes(req.ContentTypes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.start(w, r, "pipeline", func(ctx context.Context, episodeID string) error {
		job, err := h.pipeline.Run(ctx, services.RunRequest{EpisodeID: episodeID, ContentTypes: types})
		if err == nil && job != nil {
			log.Printf("INFO: [TriggerHandler] job %s for episode %s ended as %s\n", job.ID, episodeID, job.Status)
		}
		return err
	})
}

// Transcribe handles POST /episodes/{id}/transcribe.
func (h *TriggerHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, "transcription", func(ctx context.Context, episodeID string) error {
		_, err := h.pipeline.TranscribeEpisode(ctx, episodeID)
		return err
	})
}

// Keywords handles POST /episodes/{id}/keywords.
func (h *TriggerHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, "keyword analysis", func(ctx context.Context, episodeID string) error {
		_, err := h.pipeline.AnalyzeKeywords(ctx, episodeID)
		return err
	})
}

func (h *TriggerHandler) start(w http.ResponseWriter, r *http.Request, task string, run func(ctx context.Context, episodeID string) error) {
	episodeID := r.PathValue("id")
	log.Printf("INFO: [TriggerHandler] %s requested for episode %s from %s\n", task, episodeID, r.RemoteAddr)

	if _, err := h.store.GetEpisode(r.Context(), episodeID); err != nil {
		writeServiceError(w, "TriggerHandler", err)
		return
	}

	h.mu.Lock()
	if current, busy := h.inFlight[episodeID]; busy || h.pipeline.IsRunning(episodeID) {
		h.mu.Unlock()
		if current == "" {
			current = "pipeline"
		}
		log.Printf("WARN: [TriggerHandler] episode %s already has %s in progress, rejecting %s.\n", episodeID, current, task)
		writeError(w, http.StatusConflict, fmt.Sprintf("episode %s already has %s in progress", episodeID, current))
		return
	}
	h.inFlight[episodeID] = task
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.inFlight, episodeID)
			h.mu.Unlock()
			h.wg.Done()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		log.Printf("INFO: [TriggerHandler] %s for episode %s started.\n", task, episodeID)
		if err := run(ctx, episodeID); err != nil {
			log.Printf("ERROR: [TriggerHandler] %s for episode %s failed: %v\n", task, episodeID, err)
			return
		}
		log.Printf("INFO: [TriggerHandler] %s for episode %s finished.\n", task, episodeID)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message":    fmt.Sprintf("%s started in the background", task),
		"episode_id": episodeID,
		"status_url": "/episodes/" + episodeID + "/overview",
	})
}
