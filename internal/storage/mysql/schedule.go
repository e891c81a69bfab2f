package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"PodcastStudio-admin/internal/models"
)

const postColumns = `id, content_piece_id, episode_id, platform, scheduled_at, status, published_at, ai_reason, needs_video_edit,
	created_at, updated_at`

func scanPost(row rowScanner) (*models.ScheduledPost, error) {
	var p models.ScheduledPost
	err := row.Scan(&p.ID, &p.ContentPieceID, &p.EpisodeID, &p.Platform, &p.ScheduledAt, &p.Status, &p.PublishedAt.NullTime,
		&p.AIReason, &p.NeedsVideoEdit, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MySQLStore) CreateScheduledPost(ctx context.Context, p *models.ScheduledPost) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	query := `INSERT INTO scheduled_posts (id, content_piece_id, episode_id, platform, scheduled_at, status, published_at, ai_reason,
		needs_video_edit, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.ContentPieceID, p.EpisodeID, p.Platform, p.ScheduledAt.UTC(), p.Status,
		p.PublishedAt.NullTime, p.AIReason, p.NeedsVideoEdit, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting scheduled post %s: %w", p.ID, err)
	}
	return nil
}

func (s *MySQLStore) GetScheduledPost(ctx context.Context, id string) (*models.ScheduledPost, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM scheduled_posts WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "scheduled post", id)
	}
	return p, nil
}

func (s *MySQLStore) UpdateScheduledPost(ctx context.Context, p *models.ScheduledPost) error {
	p.UpdatedAt = s.now()
	query := `UPDATE scheduled_posts SET platform = ?, scheduled_at = ?, status = ?, published_at = ?, ai_reason = ?,
		needs_video_edit = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, p.Platform, p.ScheduledAt.UTC(), p.Status, p.PublishedAt.NullTime, p.AIReason,
		p.NeedsVideoEdit, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("updating scheduled post %s: %w", p.ID, err)
	}
	return s.afterUpdate(ctx, res, "scheduled_posts", "scheduled post", p.ID)
}

func (s *MySQLStore) ListDueScheduledPosts(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := "SELECT " + postColumns + ` FROM scheduled_posts
		WHERE status = ? AND needs_video_edit = FALSE AND scheduled_at <= ? ORDER BY scheduled_at ASC, id ASC`
	return s.queryPosts(ctx, query, models.PostScheduled, now.UTC())
}

func (s *MySQLStore) ListScheduledPosts(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error) {
	var where []string
	var args []any
	if filter.EpisodeID != "" {
		where = append(where, "episode_id = ?")
		args = append(args, filter.EpisodeID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		where = append(where, "scheduled_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "scheduled_at <= ?")
		args = append(args, filter.To.UTC())
	}
	query := "SELECT " + postColumns + " FROM scheduled_posts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_at ASC, id ASC"
	return s.queryPosts(ctx, query, args...)
}

func (s *MySQLStore) queryPosts(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled posts: %w", err)
	}
	defer rows.Close()
	posts := make([]*models.ScheduledPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scheduled post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled posts: %w", err)
	}
	return posts, nil
}
