package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"PodcastStudio-admin/internal/models"
)

const dateLayout = "2006-01-02"

var calendarHeaders = []string{
	"post_id",
	"scheduled_at",
	"platform",
	"status",
	"needs_video_edit",
	"episode_id",
	"content_piece_id",
	"content_type",
	"title",
	"published_at",
	"ai_reason",
}

// ExportHandler writes the publication calendar as CSV.
type ExportHandler struct {
	planner Planner
	store   ReadStore
}

func NewExportHandler(planner Planner, store ReadStore) *ExportHandler {
	if planner == nil || store == nil {
		log.Panicln("ExportHandler: Planner and ReadStore must not be nil")
	}
	return &ExportHandler{planner: planner, store: store}
}

// ParsePostFilter reads episode_id, status, from and to (YYYY-MM-DD, inclusive) from the query.
func ParsePostFilter(r *http.Request) (models.PostFilter, error) {
	q := r.URL.Query()
	filter := models.PostFilter{EpisodeID: q.Get("episode_id")}
	switch status := models.PostStatus(q.Get("status")); status {
	case "", models.PostScheduled, models.PostPublished:
		filter.Status = status
	default:
		return filter, fmt.Errorf("unknown status %q", status)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return filter, fmt.Errorf("from must be YYYY-MM-DD")
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return filter, fmt.Errorf("to must be YYYY-MM-DD")
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}

// ServeHTTP handles GET /export/schedule.csv.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("INFO: [ExportHandler] request: %s %s from %s\n", r.Method, r.URL.Path, r.RemoteAddr)

	filter, err := ParsePostFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := h.planner.Calendar(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: [ExportHandler] loading calendar: %v", err)
		http.Error(w, "could not load the calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=publication_calendar_%s.csv", time.Now().Format(dateLayout)))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(calendarHeaders); err != nil {
		log.Printf("ERROR: [ExportHandler] writing CSV header: %v", err)
		return
	}
	for _, post := range posts {
		row := make([]string, len(calendarHeaders))
		row[0] = post.ID
		row[1] = post.ScheduledAt.UTC().Format(time.RFC3339)
		row[2] = post.Platform
		row[3] = string(post.Status)
		row[4] = strconv.FormatBool(post.NeedsVideoEdit)
		row[5] = post.EpisodeID
		row[6] = post.ContentPieceID
		if piece, err := h.store.GetPiece(r.Context(), post.ContentPieceID); err == nil {
			row[7] = string(piece.Type)
			row[8] = piece.Title
		} else {
			log.Printf("WARN: [ExportHandler] post %s: piece %s: %v", post.ID, post.ContentPieceID, err)
		}
		if post.PublishedAt.Valid {
			row[9] = post.PublishedAt.Time.UTC().Format(time.RFC3339)
		}
		row[10] = post.AIReason
		if err := writer.Write(row); err != nil {
			log.Printf("ERROR: [ExportHandler] writing CSV row: %v", err)
			return
		}
	}
	log.Printf("INFO: [ExportHandler] exported %d scheduled post(s)\n", len(posts))
}
