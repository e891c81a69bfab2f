package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"PodcastStudio-admin/internal/models"
)

const jobColumns = `id, episode_id, show_title, episode_title, IFNULL(transcript_snapshot, ''), status, progress,
	outputs_generated, content_types, errors, error_message, prompt_version, started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.ContentGenerationJob, error) {
	var j models.ContentGenerationJob
	var typesJSON, errorsJSON []byte
	err := row.Scan(&j.ID, &j.EpisodeID, &j.ShowTitle, &j.EpisodeTitle, &j.TranscriptSnapshot, &j.Status, &j.Progress,
		&j.OutputsGenerated, &typesJSON, &errorsJSON, &j.ErrorMessage.NullString, &j.PromptVersion,
		&j.StartedAt.NullTime, &j.CompletedAt.NullTime, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if j.ContentTypes, err = unmarshalList[models.ContentType](typesJSON); err != nil {
		return nil, fmt.Errorf("decoding content types of job %s: %w", j.ID, err)
	}
	if j.Errors, err = unmarshalList[string](errorsJSON); err != nil {
		return nil, fmt.Errorf("decoding errors of job %s: %w", j.ID, err)
	}
	return &j, nil
}

func (s *MySQLStore) CreateJob(ctx context.Context, j *models.ContentGenerationJob) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	typesJSON, err := marshalList(j.ContentTypes)
	if err != nil {
		return fmt.Errorf("encoding content types of job %s: %w", j.ID, err)
	}
	errorsJSON, err := marshalList(j.Errors)
	if err != nil {
		return fmt.Errorf("encoding errors of job %s: %w", j.ID, err)
	}
	now := s.now()
	j.CreatedAt, j.UpdatedAt = now, now
	query := `INSERT INTO content_generation_jobs (id, episode_id, show_title, episode_title, transcript_snapshot, status, progress,
		outputs_generated, content_types, errors, error_message, prompt_version, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, j.ID, j.EpisodeID, j.ShowTitle, j.EpisodeTitle, j.TranscriptSnapshot, j.Status, j.Progress,
		j.OutputsGenerated, typesJSON, errorsJSON, j.ErrorMessage.NullString, j.PromptVersion, j.StartedAt.NullTime,
		j.CompletedAt.NullTime, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", j.ID, err)
	}
	return nil
}

func (s *MySQLStore) GetJob(ctx context.Context, id string) (*models.ContentGenerationJob, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM content_generation_jobs WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "job", id)
	}
	return j, nil
}

func (s *MySQLStore) UpdateJob(ctx context.Context, j *models.ContentGenerationJob) error {
	typesJSON, err := marshalList(j.ContentTypes)
	if err != nil {
		return fmt.Errorf("encoding content types of job %s: %w", j.ID, err)
	}
	errorsJSON, err := marshalList(j.Errors)
	if err != nil {
		return fmt.Errorf("encoding errors of job %s: %w", j.ID, err)
	}
	j.UpdatedAt = s.now()
	query := `UPDATE content_generation_jobs SET show_title = ?, episode_title = ?, transcript_snapshot = ?, status = ?, progress = ?,
		outputs_generated = ?, content_types = ?, errors = ?, error_message = ?, prompt_version = ?, started_at = ?, completed_at = ?,
		updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, j.ShowTitle, j.EpisodeTitle, j.TranscriptSnapshot, j.Status, j.Progress,
		j.OutputsGenerated, typesJSON, errorsJSON, j.ErrorMessage.NullString, j.PromptVersion, j.StartedAt.NullTime,
		j.CompletedAt.NullTime, j.UpdatedAt, j.ID)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", j.ID, err)
	}
	return s.afterUpdate(ctx, res, "content_generation_jobs", "job", j.ID)
}

func (s *MySQLStore) FindOpenJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error) {
	query := "SELECT " + jobColumns + " FROM content_generation_jobs WHERE episode_id = ? AND status NOT IN (?, ?) ORDER BY seq DESC LIMIT 1"
	j, err := scanJob(s.db.QueryRowContext(ctx, query, episodeID, models.JobComplete, models.JobFailed))
	if err != nil {
		return nil, notFound(err, "open job for episode", episodeID)
	}
	return j, nil
}

func (s *MySQLStore) LatestJobForEpisode(ctx context.Context, episodeID string) (*models.ContentGenerationJob, error) {
	query := "SELECT " + jobColumns + " FROM content_generation_jobs WHERE episode_id = ? ORDER BY seq DESC LIMIT 1"
	j, err := scanJob(s.db.QueryRowContext(ctx, query, episodeID))
	if err != nil {
		return nil, notFound(err, "job for episode", episodeID)
	}
	return j, nil
}

const pieceColumns = `id, episode_id, job_id, type, platform, title, body, description, seo_title, seo_description, seo_keywords,
	ai_generated, moderation_status, ai_quality_score, ai_quality_notes, ai_rewrite_suggestion, pipeline_stage, status,
	scheduled_at, published_at, created_at, updated_at`

func scanPiece(row rowScanner) (*models.ContentPiece, error) {
	var p models.ContentPiece
	var keywordsJSON []byte
	var score sql.NullInt64
	err := row.Scan(&p.ID, &p.EpisodeID, &p.JobID, &p.Type, &p.Platform.NullString, &p.Title, &p.Body, &p.Description,
		&p.SEOTitle, &p.SEODescription, &keywordsJSON, &p.AIGenerated, &p.ModerationStatus, &score, &p.AIQualityNotes,
		&p.AIRewriteSuggestion.NullString, &p.PipelineStage, &p.Status, &p.ScheduledAt.NullTime, &p.PublishedAt.NullTime,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		p.AIQualityScore = &v
	}
	if p.SEOKeywords, err = unmarshalList[string](keywordsJSON); err != nil {
		return nil, fmt.Errorf("decoding seo keywords of piece %s: %w", p.ID, err)
	}
	return &p, nil
}

func scoreArg(score *int) sql.NullInt64 {
	if score == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*score), Valid: true}
}

func (s *MySQLStore) CreatePiece(ctx context.Context, p *models.ContentPiece) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	keywordsJSON, err := marshalList(p.SEOKeywords)
	if err != nil {
		return fmt.Errorf("encoding seo keywords of piece %s: %w", p.ID, err)
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	query := `INSERT INTO content_pieces (id, episode_id, job_id, type, platform, title, body, description, seo_title, seo_description,
		seo_keywords, ai_generated, moderation_status, ai_quality_score, ai_quality_notes, ai_rewrite_suggestion, pipeline_stage, status,
		scheduled_at, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, p.ID, p.EpisodeID, p.JobID, p.Type, p.Platform.NullString, p.Title, p.Body, p.Description,
		p.SEOTitle, p.SEODescription, keywordsJSON, p.AIGenerated, p.ModerationStatus, scoreArg(p.AIQualityScore), p.AIQualityNotes,
		p.AIRewriteSuggestion.NullString, p.PipelineStage, p.Status, p.ScheduledAt.NullTime, p.PublishedAt.NullTime, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting content piece %s: %w", p.ID, err)
	}
	return nil
}

func (s *MySQLStore) GetPiece(ctx context.Context, id string) (*models.ContentPiece, error) {
	p, err := scanPiece(s.db.QueryRowContext(ctx, "SELECT "+pieceColumns+" FROM content_pieces WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "content piece", id)
	}
	return p, nil
}

func (s *MySQLStore) UpdatePiece(ctx context.Context, p *models.ContentPiece) error {
	keywordsJSON, err := marshalList(p.SEOKeywords)
	if err != nil {
		return fmt.Errorf("encoding seo keywords of piece %s: %w", p.ID, err)
	}
	p.UpdatedAt = s.now()
	query := `UPDATE content_pieces SET platform = ?, title = ?, body = ?, description = ?, seo_title = ?, seo_description = ?,
		seo_keywords = ?, ai_generated = ?, moderation_status = ?, ai_quality_score = ?, ai_quality_notes = ?, ai_rewrite_suggestion = ?,
		pipeline_stage = ?, status = ?, scheduled_at = ?, published_at = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, p.Platform.NullString, p.Title, p.Body, p.Description, p.SEOTitle, p.SEODescription,
		keywordsJSON, p.AIGenerated, p.ModerationStatus, scoreArg(p.AIQualityScore), p.AIQualityNotes, p.AIRewriteSuggestion.NullString,
		p.PipelineStage, p.Status, p.ScheduledAt.NullTime, p.PublishedAt.NullTime, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("updating content piece %s: %w", p.ID, err)
	}
	return s.afterUpdate(ctx, res, "content_pieces", "content piece", p.ID)
}

// ListPieces returns matching pieces in creation order.
func (s *MySQLStore) ListPieces(ctx context.Context, filter models.PieceFilter) ([]*models.ContentPiece, error) {
	var where []string
	var args []any
	if filter.EpisodeID != "" {
		where = append(where, "episode_id = ?")
		args = append(args, filter.EpisodeID)
	}
	if filter.ModerationStatus != "" {
		where = append(where, "moderation_status = ?")
		args = append(args, filter.ModerationStatus)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	query := "SELECT " + pieceColumns + " FROM content_pieces"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing content pieces: %w", err)
	}
	defer rows.Close()
	pieces := make([]*models.ContentPiece, 0)
	for rows.Next() {
		p, err := scanPiece(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning content piece row: %w", err)
		}
		pieces = append(pieces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content pieces: %w", err)
	}
	return pieces, nil
}

const clipColumns = `id, episode_id, content_piece_id, start_seconds, end_seconds, hook_text, transcript_excerpt, viral_score,
	status, target_platform, created_at, updated_at`

func scanClip(row rowScanner) (*models.ClipAsset, error) {
	var c models.ClipAsset
	err := row.Scan(&c.ID, &c.EpisodeID, &c.ContentPieceID, &c.StartSeconds, &c.EndSeconds, &c.HookText, &c.TranscriptExcerpt,
		&c.ViralScore, &c.Status, &c.TargetPlatform, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MySQLStore) CreateClip(ctx context.Context, c *models.ClipAsset) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	query := `INSERT INTO clip_assets (id, episode_id, content_piece_id, start_seconds, end_seconds, hook_text, transcript_excerpt,
		viral_score, status, target_platform, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.EpisodeID, c.ContentPieceID, c.StartSeconds, c.EndSeconds, c.HookText,
		c.TranscriptExcerpt, c.ViralScore, c.Status, c.TargetPlatform, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting clip %s: %w", c.ID, err)
	}
	return nil
}

func (s *MySQLStore) GetClip(ctx context.Context, id string) (*models.ClipAsset, error) {
	c, err := scanClip(s.db.QueryRowContext(ctx, "SELECT "+clipColumns+" FROM clip_assets WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "clip", id)
	}
	return c, nil
}

func (s *MySQLStore) UpdateClip(ctx context.Context, c *models.ClipAsset) error {
	c.UpdatedAt = s.now()
	query := `UPDATE clip_assets SET content_piece_id = ?, start_seconds = ?, end_seconds = ?, hook_text = ?, transcript_excerpt = ?,
		viral_score = ?, status = ?, target_platform = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, c.ContentPieceID, c.StartSeconds, c.EndSeconds, c.HookText, c.TranscriptExcerpt,
		c.ViralScore, c.Status, c.TargetPlatform, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("updating clip %s: %w", c.ID, err)
	}
	return s.afterUpdate(ctx, res, "clip_assets", "clip", c.ID)
}

// ListClips returns an episode's clips, most viral first.
func (s *MySQLStore) ListClips(ctx context.Context, episodeID string) ([]*models.ClipAsset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+clipColumns+" FROM clip_assets WHERE episode_id = ? ORDER BY viral_score DESC, start_seconds ASC", episodeID)
	if err != nil {
		return nil, fmt.Errorf("listing clips for episode %s: %w", episodeID, err)
	}
	defer rows.Close()
	clips := make([]*models.ClipAsset, 0)
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning clip row: %w", err)
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
