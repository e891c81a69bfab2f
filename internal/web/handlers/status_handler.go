package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"PodcastStudio-admin/internal/models"
)

// EpisodeOverview is what polling clients read while the pipeline runs.
type EpisodeOverview struct {
	Episode  *models.Episode              `json:"episode"`
	Keywords json.RawMessage              `json:"keyword_analysis,omitempty"`
	Job      *models.ContentGenerationJob `json:"latest_job"`
	Running  bool                         `json:"running"`
	Pieces   []*models.ContentPiece       `json:"pieces"`
	Clips    []*models.ClipAsset          `json:"clips"`
}

// StatusHandler serves read-only episode and job state.
type StatusHandler struct {
	store    ReadStore
	pipeline PipelineRunner
}

func NewStatusHandler(store ReadStore, pipeline PipelineRunner) *StatusHandler {
	if store == nil {
		log.Panicln("StatusHandler: ReadStore must not be nil")
	}
	return &StatusHandler{store: store, pipeline: pipeline}
}

// Overview handles GET /episodes/{id}/overview.
func (h *StatusHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	episodeID := r.PathValue("id")

	episode, err := h.store.GetEpisode(ctx, episodeID)
	if err != nil {
		writeServiceError(w, "StatusHandler", err)
		return
	}
	out := EpisodeOverview{Episode: episode, Pieces: []*models.ContentPiece{}, Clips: []*models.ClipAsset{}}
	if len(episode.KeywordAnalysis) > 0 {
		out.Keywords = episode.KeywordAnalysis
	}
	if h.pipeline != nil {
		out.Running = h.pipeline.IsRunning(episodeID)
	}

	job, err := h.store.LatestJobForEpisode(ctx, episodeID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		writeServiceError(w, "StatusHandler", err)
		return
	}
	out.Job = job

	pieces, err := h.store.ListPieces(ctx, models.PieceFilter{EpisodeID: episodeID})
	if err != nil {
		writeServiceError(w, "StatusHandler", err)
		return
	}
	if pieces != nil {
		out.Pieces = pieces
	}
	clips, err := h.store.ListClips(ctx, episodeID)
	if err != nil {
		writeServiceError(w, "StatusHandler", err)
		return
	}
	if clips != nil {
		out.Clips = clips
	}
	writeJSON(w, http.StatusOK, out)
}

// Job handles GET /jobs/{id}.
func (h *StatusHandler) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "StatusHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
