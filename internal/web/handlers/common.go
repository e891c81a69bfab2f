package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/services"
)

// PipelineRunner is the orchestration surface the trigger endpoints drive.
type PipelineRunner interface {
	Run(ctx context.Context, req services.RunRequest) (*models.ContentGenerationJob, error)
	TranscribeEpisode(ctx context.Context, episodeID string) (*models.Episode, error)
	AnalyzeKeywords(ctx context.Context, episodeID string) (*models.KeywordAnalysis, error)
	IsRunning(episodeID string) bool
}

// ReadStore is the read side used by status and export endpoints.
type ReadStore interface {
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	GetJob(ctx context.Context, id string) (*models.ContentGenerationJob, error)
	LatestJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error)
	GetPiece(ctx context.Context, id string) (*models.ContentPiece, error)
	ListPieces(ctx context.Context, filter models.PieceFilter) ([]*models.ContentPiece, error)
	ListClips(ctx context.Context, episodeID string) ([]*models.ClipAsset, error)
}

// Moderator scores pending content.
type Moderator interface {
	ModeratePiece(ctx context.Context, pieceID string) (*services.ModerationResult, error)
	ModerateEpisode(ctx context.Context, episodeID string) (*services.ModerationSummary, error)
	ModerateAllPending(ctx context.Context) (*services.ModerationSummary, error)
}

// Planner proposes, confirms and publishes the calendar.
type Planner interface {
	SuggestSchedule(ctx context.Context, episodeID string, start time.Time) ([]models.ScheduleProposal, error)
	ConfirmSchedule(ctx context.Context, plan []models.ScheduleProposal) ([]*models.ScheduledPost, error)
	PublishDueItems(ctx context.Context, now time.Time) ([]string, error)
	Calendar(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error)
}

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errorResponse is the JSON body of every non-2xx answer.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: [HTTP] encoding response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var resolution *services.ResolutionError
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyModerated):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoTranscript), errors.Is(err, services.ErrUnknownContentType):
		return http.StatusUnprocessableEntity
	case errors.As(err, &resolution):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, component string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: [%s] %v\n", component, err)
	} else {
		log.Printf("WARN: [%s] %v\n", component, err)
	}
	writeError(w, status, err.Error())
}

// decodeBody decodes an optional JSON body into dst and validates it.
// An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return validate.Struct(dst)
}

// writeBadRequest renders decodeBody failures, listing each failed field.
func writeBadRequest(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fmt.Sprintf("%s: failed '%s'", fe.Field(), fe.Tag()))
		}
		writeError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
