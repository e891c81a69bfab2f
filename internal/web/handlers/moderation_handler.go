package handlers

import (
	"log"
	"net/http"
)

// ModerationHandler runs moderation synchronously and returns the scores.
type ModerationHandler struct {
	moderator Moderator
}

func NewModerationHandler(m Moderator) *ModerationHandler {
	if m == nil {
		log.Panicln("ModerationHandler: Moderator must not be nil")
	}
	return &ModerationHandler{moderator: m}
}

// Piece handles POST /moderation/pieces/{id}.
func (h *ModerationHandler) Piece(w http.ResponseWriter, r *http.Request) {
	result, err := h.moderator.ModeratePiece(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "ModerationHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Episode handles POST /moderation/episodes/{id}.
func (h *ModerationHandler) Episode(w http.ResponseWriter, r *http.Request) {
	summary, err := h.moderator.ModerateEpisode(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "ModerationHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Pending handles POST /moderation/pending.
func (h *ModerationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	log.Printf("INFO: [ModerationHandler] system-wide moderation requested from %s\n", r.RemoteAddr)
	summary, err := h.moderator.ModerateAllPending(r.Context())
	if err != nil {
		writeServiceError(w, "ModerationHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
