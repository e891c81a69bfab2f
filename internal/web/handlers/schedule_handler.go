package handlers

import (
	"log"
	"net/http"
	"time"

	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/services"
)

type suggestRequest struct {
	Start string `json:"start" validate:"omitempty,max=40"`
}

type confirmEntry struct {
	ContentPieceID    string `json:"content_piece_id" validate:"required"`
	ContentType       string `json:"content_type" validate:"omitempty,max=32"`
	Platform          string `json:"platform" validate:"omitempty,max=32"`
	ScheduledDatetime string `json:"scheduled_datetime" validate:"required"`
	Reason            string `json:"reason" validate:"max=2000"`
	NeedsVideoEdit    bool   `json:"needs_video_edit"`
}

type confirmRequest struct {
	Entries []confirmEntry `json:"entries" validate:"required,min=1,max=200,dive"`
}

// ScheduleHandler exposes the calendar planner.
type ScheduleHandler struct {
	planner Planner
}

func NewScheduleHandler(p Planner) *ScheduleHandler {
	if p == nil {
		log.Panicln("ScheduleHandler: Planner must not be nil")
	}
	return &ScheduleHandler{planner: p}
}

// Suggest handles POST /episodes/{id}/schedule/suggest. The plan is advisory and not stored.
func (h *ScheduleHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	var start time.Time
	if req.Start != "" {
		t, ok := services.ParseScheduleTime(req.Start, time.UTC)
		if !ok {
			writeError(w, http.StatusBadRequest, "start must be an ISO-8601 datetime")
			return
		}
		start = t
	}
	plan, err := h.planner.SuggestSchedule(r.Context(), r.PathValue("id"), start)
	if err != nil {
		writeServiceError(w, "ScheduleHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": plan})
}

// Confirm handles POST /schedule/confirm.
func (h *ScheduleHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	plan := make([]models.ScheduleProposal, 0, len(req.Entries))
	for _, e := range req.Entries {
		plan = append(plan, models.ScheduleProposal{
			ContentPieceID:    e.ContentPieceID,
			ContentType:       e.ContentType,
			Platform:          e.Platform,
			ScheduledDatetime: e.ScheduledDatetime,
			Reason:            e.Reason,
			NeedsVideoEdit:    e.NeedsVideoEdit,
		})
	}
	posts, err := h.planner.ConfirmSchedule(r.Context(), plan)
	if err != nil {
		writeServiceError(w, "ScheduleHandler", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"created": posts,
		"skipped": len(plan) - len(posts),
	})
}

// PublishDue handles POST /schedule/publish-due.
func (h *ScheduleHandler) PublishDue(w http.ResponseWriter, r *http.Request) {
	published, err := h.planner.PublishDueItems(r.Context(), time.Now().UTC())
	if err != nil {
		writeServiceError(w, "ScheduleHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"published": published, "count": len(published)})
}
