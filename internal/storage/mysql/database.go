package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/models"
)

// MySQLStore implements the pipeline's persistence collaborator on MySQL.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewMySQLStore opens and pings the database described by dbCfg.
func NewMySQLStore(dbCfg config.DatabaseConfig) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("INFO: [MySQLStore] connected to MySQL.")
	return NewMySQLStoreFromDB(db), nil
}

// NewMySQLStoreFromDB wraps an already opened handle. The DSN must use parseTime=true.
func NewMySQLStoreFromDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		log.Println("INFO: [MySQLStore] closing MySQL connection...")
		return s.db.Close()
	}
	return nil
}

// RunMigrations applies every pending migration from dbCfg.MigrationsPath.
func RunMigrations(dbCfg config.DatabaseConfig) error {
	log.Printf("INFO: [Migrate] applying migrations from %s to database %s", dbCfg.MigrationsPath, dbCfg.DBName)
	m, err := migrate.New(dbCfg.MigrationsPath, dbCfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	defer m.Close()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at version %d", currentVersion)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("INFO: [Migrate] schema already up to date.")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}
	newVersion, _, _ := m.Version()
	log.Printf("INFO: [Migrate] migrated from version %d to %d.", currentVersion, newVersion)
	return nil
}

func marshalList[T any](values []T) ([]byte, error) {
	if values == nil {
		values = []T{}
	}
	return json.Marshal(values)
}

func unmarshalList[T any](raw []byte) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return fmt.Errorf("querying %s %s: %w", what, id, err)
}

func checkAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows for %s %s: %w", what, id, err)
	}
	if n == 0 {
		// MySQL reports 0 when the row exists but nothing changed; confirm existence separately.
		return errNoRowsChanged
	}
	return nil
}

var errNoRowsChanged = errors.New("no rows changed")

func (s *MySQLStore) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// afterUpdate turns a zero-row update into ErrNotFound when the row is really missing.
func (s *MySQLStore) afterUpdate(ctx context.Context, res sql.Result, table, what, id string) error {
	err := checkAffected(res, what, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNoRowsChanged) {
		return err
	}
	ok, err := s.exists(ctx, table, id)
	if err != nil {
		return fmt.Errorf("checking %s %s: %w", what, id, err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return nil
}

// CreatePodcast inserts a podcast. Used by ingestion tooling and tests.
func (s *MySQLStore) CreatePodcast(ctx context.Context, p *models.Podcast) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO podcasts (id, title, created_at) VALUES (?, ?, ?)", p.ID, p.Title, s.now())
	if err != nil {
		return fmt.Errorf("inserting podcast %s: %w", p.ID, err)
	}
	return nil
}

func (s *MySQLStore) GetPodcast(ctx context.Context, id string) (*models.Podcast, error) {
	var p models.Podcast
	err := s.db.QueryRowContext(ctx, "SELECT id, title FROM podcasts WHERE id = ?", id).Scan(&p.ID, &p.Title)
	if err != nil {
		return nil, notFound(err, "podcast", id)
	}
	return &p, nil
}

const episodeColumns = `id, IFNULL(podcast_id, ''), title, media_url, transcript, transcript_status, processing_status,
	processing_progress, processing_step, extracted_keywords, keyword_analysis, created_at, updated_at`

// CreateEpisode inserts an episode. Used by ingestion tooling and tests.
func (s *MySQLStore) CreateEpisode(ctx context.Context, e *models.Episode) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.TranscriptStatus == "" {
		e.TranscriptStatus = models.TranscriptIdle
		if e.HasTranscript() {
			e.TranscriptStatus = models.TranscriptReady
		}
	}
	if e.ProcessingStatus == "" {
		e.ProcessingStatus = models.ProcessingIdle
	}
	keywords, err := marshalList(e.ExtractedKeywords)
	if err != nil {
		return fmt.Errorf("encoding keywords for episode %s: %w", e.ID, err)
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	var podcastID sql.NullString
	if e.PodcastID != "" {
		podcastID = sql.NullString{String: e.PodcastID, Valid: true}
	}
	query := `INSERT INTO episodes (id, podcast_id, title, media_url, transcript, transcript_status, processing_status,
		processing_progress, processing_step, extracted_keywords, keyword_analysis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, e.ID, podcastID, e.Title, e.MediaURL, e.Transcript.NullString, e.TranscriptStatus,
		e.ProcessingStatus, e.ProcessingProgress, e.ProcessingStep, keywords, nullableJSON(e.KeywordAnalysis), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting episode %s: %w", e.ID, err)
	}
	log.Printf("INFO: [MySQLStore] episode %s created (%s)\n", e.ID, e.Title)
	return nil
}

func (s *MySQLStore) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+episodeColumns+" FROM episodes WHERE id = ?", id)
	var e models.Episode
	var keywordsJSON, analysisJSON []byte
	err := row.Scan(&e.ID, &e.PodcastID, &e.Title, &e.MediaURL, &e.Transcript.NullString, &e.TranscriptStatus, &e.ProcessingStatus,
		&e.ProcessingProgress, &e.ProcessingStep, &keywordsJSON, &analysisJSON, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "episode", id)
	}
	if e.ExtractedKeywords, err = unmarshalList[string](keywordsJSON); err != nil {
		return nil, fmt.Errorf("decoding keywords for episode %s: %w", id, err)
	}
	e.KeywordAnalysis = copyBytes(analysisJSON)
	return &e, nil
}

func (s *MySQLStore) UpdateEpisode(ctx context.Context, e *models.Episode) error {
	keywords, err := marshalList(e.ExtractedKeywords)
	if err != nil {
		return fmt.Errorf("encoding keywords for episode %s: %w", e.ID, err)
	}
	e.UpdatedAt = s.now()
	query := `UPDATE episodes SET title = ?, media_url = ?, transcript = ?, transcript_status = ?, processing_status = ?,
		processing_progress = ?, processing_step = ?, extracted_keywords = ?, keyword_analysis = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, e.Title, e.MediaURL, e.Transcript.NullString, e.TranscriptStatus, e.ProcessingStatus,
		e.ProcessingProgress, e.ProcessingStep, keywords, nullableJSON(e.KeywordAnalysis), e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("updating episode %s: %w", e.ID, err)
	}
	return s.afterUpdate(ctx, res, "episodes", "episode", e.ID)
}
