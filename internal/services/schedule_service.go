package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"PodcastStudio-admin/internal/completion"
	"PodcastStudio-admin/internal/models"
)

// datetime layouts accepted from the planner, most specific first
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseScheduleTime parses a planner datetime. Zone-less values are read in loc.
func ParseScheduleTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ScheduleService proposes, confirms and publishes the publication calendar.
type ScheduleService struct {
	pieces PieceStore
	posts  ScheduleStore
	llm    TextGenerator
	loc    *time.Location
	now    func() time.Time
}

func NewScheduleService(pieces PieceStore, posts ScheduleStore, llm TextGenerator) (*ScheduleService, error) {
	if pieces == nil || posts == nil {
		return nil, fmt.Errorf("ScheduleService: stores must not be nil")
	}
	if llm == nil {
		return nil, fmt.Errorf("ScheduleService: TextGenerator must not be nil")
	}
	return &ScheduleService{pieces: pieces, posts: posts, llm: llm, loc: time.UTC, now: func() time.Time { return time.Now().UTC() }}, nil
}

const scheduleBriefTemplate = `You are a publishing coordinator for a podcast network. Plan a 7-day publication calendar
starting %s (timezone UTC) for the approved content below. Rules:
- The blog publishes first, on day 1, for SEO and backlink value.
- The newsletter sends on day 2 in the morning (08:00-10:00).
- Stagger social posts so the same platform never posts twice on one calendar day.
- TikTok / short-form video: only at 12:00 or 19:00.
- LinkedIn: weekdays only, 07:30-10:00.
- X and Threads: 09:00-17:00. Instagram: 11:00-13:00 or 19:00-21:00.
- Clip suggestions are scheduled like other posts but will be held for human video editing.
Return ONLY a JSON array: [{"content_piece_id": "", "content_type": "", "platform": "", "scheduled_datetime": "YYYY-MM-DDTHH:MM:SS", "reason": ""}]

Approved content:
%s`

// SuggestSchedule asks the planner for a 7-day plan over the episode's approved pieces.
// An unparseable plan yields an empty slice, never an error.
func (s *ScheduleService) SuggestSchedule(ctx context.Context, episodeID string, start time.Time) ([]models.ScheduleProposal, error) {
	pieces, err := s.pieces.ListPieces(ctx, models.PieceFilter{EpisodeID: episodeID, ModerationStatus: models.ModerationApproved})
	if err != nil {
		return nil, fmt.Errorf("listing approved pieces for episode %s: %w", episodeID, err)
	}
	pieces = slices.DeleteFunc(pieces, func(p *models.ContentPiece) bool { return !schedulable(p) })
	if len(pieces) == 0 {
		log.Printf("INFO: [Schedule] episode %s has no approved pieces to schedule\n", episodeID)
		return []models.ScheduleProposal{}, nil
	}
	if start.IsZero() {
		start = s.now().Add(24 * time.Hour)
	}

	var listing strings.Builder
	byID := make(map[string]*models.ContentPiece, len(pieces))
	for _, p := range pieces {
		byID[p.ID] = p
		platform := "n/a"
		if p.Platform.Valid {
			platform = p.Platform.String
		}
		fmt.Fprintf(&listing, "- id=%s type=%s platform=%s title=%q\n", p.ID, p.Type, platform, firstNChars(p.Title, 80))
	}
	prompt := fmt.Sprintf(scheduleBriefTemplate, start.In(s.loc).Format("Monday 2006-01-02"), listing.String())

	raw, err := s.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Printf("WARN: [Schedule] planner call for episode %s failed: %v\n", episodeID, err)
		return []models.ScheduleProposal{}, nil
	}
	out := completion.DecodeWithSchema[[]models.ScheduleProposal](raw, completion.ScheduleSchema)
	if !out.Parsed {
		log.Printf("WARN: [Schedule] planner response for episode %s unparseable, returning empty plan: %v\n", episodeID, out.Err)
		return []models.ScheduleProposal{}, nil
	}

	plan := make([]models.ScheduleProposal, 0, len(out.Value))
	for _, entry := range out.Value {
		piece, ok := byID[entry.ContentPieceID]
		if !ok {
			log.Printf("WARN: [Schedule] dropping planner entry for unknown piece %q\n", entry.ContentPieceID)
			continue
		}
		if entry.ContentType == "" {
			entry.ContentType = string(piece.Type)
		}
		if piece.Type == models.ContentClip {
			entry.NeedsVideoEdit = true
		}
		if strings.EqualFold(entry.ContentType, string(models.ContentClip)) {
			entry.NeedsVideoEdit = true
		}
		plan = append(plan, entry)
	}
	log.Printf("INFO: [Schedule] episode %s: %d entries proposed\n", episodeID, len(plan))
	return plan, nil
}

// ConfirmSchedule persists plan entries as scheduled posts. Entries with an unparseable
// datetime, an unknown piece, or a piece that is not approved or was already scheduled
// are skipped. Platform staggering is not re-checked here.
func (s *ScheduleService) ConfirmSchedule(ctx context.Context, plan []models.ScheduleProposal) ([]*models.ScheduledPost, error) {
	created := make([]*models.ScheduledPost, 0, len(plan))
	for _, entry := range plan {
		at, ok := ParseScheduleTime(entry.ScheduledDatetime, s.loc)
		if !ok {
			log.Printf("WARN: [Schedule] skipping entry for piece %s: bad datetime %q\n", entry.ContentPieceID, entry.ScheduledDatetime)
			continue
		}
		if entry.ContentPieceID == "" {
			continue
		}
		piece, err := s.pieces.GetPiece(ctx, entry.ContentPieceID)
		if err != nil {
			log.Printf("WARN: [Schedule] skipping entry for piece %s: %v\n", entry.ContentPieceID, err)
			continue
		}
		if !schedulable(piece) {
			log.Printf("WARN: [Schedule] skipping entry for piece %s: moderation %s, stage %s\n", piece.ID, piece.ModerationStatus, piece.PipelineStage)
			continue
		}

		platform := normalizePlatform(entry.Platform)
		if platform == "" && piece.Platform.Valid {
			platform = piece.Platform.String
		}
		if platform == "" {
			platform = defaultPlatformFor(piece.Type)
		}
		needsEdit := entry.NeedsVideoEdit || piece.Type == models.ContentClip

		post := &models.ScheduledPost{
			ContentPieceID: piece.ID,
			EpisodeID:      piece.EpisodeID,
			Platform:       platform,
			ScheduledAt:    at,
			Status:         models.PostScheduled,
			AIReason:       entry.Reason,
			NeedsVideoEdit: needsEdit,
		}
		if err := s.posts.CreateScheduledPost(ctx, post); err != nil {
			return created, fmt.Errorf("creating scheduled post for piece %s: %w", piece.ID, err)
		}

		piece.PipelineStage = models.StageScheduled
		piece.Status = models.PublicationScheduled
		piece.ScheduledAt = models.NullTimeOf(at)
		piece.Platform = models.NewNullString(platform)
		if err := s.pieces.UpdatePiece(ctx, piece); err != nil {
			return created, fmt.Errorf("marking piece %s scheduled: %w", piece.ID, err)
		}
		created = append(created, post)
	}
	log.Printf("INFO: [Schedule] confirmed %d of %d plan entries\n", len(created), len(plan))
	return created, nil
}

// schedulable reports whether a piece passed moderation and has not been scheduled or published yet.
func schedulable(p *models.ContentPiece) bool {
	if p.ModerationStatus != models.ModerationApproved {
		return false
	}
	switch p.PipelineStage {
	case models.StageScheduled, models.StagePublished:
		return false
	}
	return p.Status != models.PublicationScheduled && p.Status != models.PublicationPublished
}

func defaultPlatformFor(ct models.ContentType) string {
	switch ct {
	case models.ContentNewsletter:
		return "email"
	case models.ContentClip:
		return "tiktok"
	case models.ContentSocial:
		return "x"
	}
	return "website"
}

// PublishDueItems promotes every due post. The piece is written first so a post is never
// published while its piece is not; a failed piece write leaves the post for the next cycle.
func (s *ScheduleService) PublishDueItems(ctx context.Context, now time.Time) ([]string, error) {
	if now.IsZero() {
		now = s.now()
	}
	due, err := s.posts.ListDueScheduledPosts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("listing due posts: %w", err)
	}
	published := make([]string, 0, len(due))
	for _, post := range due {
		if !post.IsDue(now) {
			continue
		}
		publishedAt := models.NullTimeOf(now.UTC())

		piece, err := s.pieces.GetPiece(ctx, post.ContentPieceID)
		if err != nil {
			log.Printf("ERROR: [Publisher] post %s: loading piece %s: %v\n", post.ID, post.ContentPieceID, err)
			continue
		}
		piece.PipelineStage = models.StagePublished
		piece.Status = models.PublicationPublished
		piece.PublishedAt = publishedAt
		if err := s.pieces.UpdatePiece(ctx, piece); err != nil {
			log.Printf("ERROR: [Publisher] post %s: publishing piece %s: %v\n", post.ID, piece.ID, err)
			continue
		}

		post.Status = models.PostPublished
		post.PublishedAt = publishedAt
		if err := s.posts.UpdateScheduledPost(ctx, post); err != nil {
			log.Printf("ERROR: [Publisher] post %s: marking published: %v\n", post.ID, err)
			continue
		}
		published = append(published, post.ID)
	}
	if len(published) > 0 {
		log.Printf("INFO: [Publisher] published %d due post(s)\n", len(published))
	}
	return published, nil
}

// Calendar lists scheduled posts in a window, for exports.
func (s *ScheduleService) Calendar(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error) {
	return s.posts.ListScheduledPosts(ctx, filter)
}
