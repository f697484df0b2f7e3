package meetingcache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"plenum/internal/api"
	"plenum/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; a mismatched database must be deleted and rebuilt from the API.
const schemaVersion = 1

// ErrNotFound indicates the requested meeting is not in the cache.
var ErrNotFound = errors.New("meeting not cached")

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages meeting metadata persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database. The cache directory
// is created when missing.
func Open(cfg *config.Config) (*Store, error) {
	if cfg.Cache.Dir == "" {
		return nil, errors.New("cache directory not configured")
	}
	if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dbPath := filepath.Join(cfg.Cache.Dir, "meetings.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the cache database path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if tableExists == 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	} else {
		var version int
		if err := tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version != schemaVersion {
			return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
				ErrSchemaMismatch, version, schemaVersion, s.path)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// UpsertMeetings writes every meeting in the batch, replacing any cached
// row with the same id.
func (s *Store) UpsertMeetings(ctx context.Context, meetings []api.Meeting) error {
	if s == nil || len(meetings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO meetings (
            id, title, committee, channel_code, status, video_url,
            started_at, ended_at, created_at, cached_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            committee = excluded.committee,
            channel_code = excluded.channel_code,
            status = excluded.status,
            video_url = excluded.video_url,
            started_at = excluded.started_at,
            ended_at = excluded.ended_at,
            created_at = excluded.created_at,
            cached_at = excluded.cached_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	cachedAt := time.Now().UTC().Format(time.RFC3339Nano)
	for _, meeting := range meetings {
		_, err := stmt.ExecContext(ctx,
			meeting.ID,
			meeting.Title,
			nullableString(meeting.Committee),
			nullableString(meeting.ChannelCode),
			meeting.Status,
			nullableString(meeting.VideoURL),
			nullableTime(meeting.StartedAt),
			nullableTime(meeting.EndedAt),
			meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
			cachedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert meeting %d: %w", meeting.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Meetings returns cached meetings newest first.
func (s *Store) Meetings(ctx context.Context, limit, offset int) ([]api.Meeting, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, committee, channel_code, status, video_url,
            started_at, ended_at, created_at
         FROM meetings ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []api.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meetings: %w", err)
	}
	return meetings, nil
}

// Meeting returns one cached meeting by id.
func (s *Store) Meeting(ctx context.Context, id int64) (*api.Meeting, error) {
	if s == nil {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, committee, channel_code, status, video_url,
            started_at, ended_at, created_at
         FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// Count returns the number of cached meetings.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil {
		return 0, nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM meetings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count meetings: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (api.Meeting, error) {
	var (
		meeting     api.Meeting
		committee   sql.NullString
		channelCode sql.NullString
		videoURL    sql.NullString
		startedAt   sql.NullString
		endedAt     sql.NullString
		createdAt   string
	)
	err := row.Scan(
		&meeting.ID,
		&meeting.Title,
		&committee,
		&channelCode,
		&meeting.Status,
		&videoURL,
		&startedAt,
		&endedAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Meeting{}, err
		}
		return api.Meeting{}, fmt.Errorf("scan meeting: %w", err)
	}

	meeting.Committee = committee.String
	meeting.ChannelCode = channelCode.String
	meeting.VideoURL = videoURL.String
	if meeting.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return api.Meeting{}, err
	}
	if startedAt.Valid {
		parsed, err := parseTimestamp(startedAt.String)
		if err != nil {
			return api.Meeting{}, err
		}
		meeting.StartedAt = &parsed
	}
	if endedAt.Valid {
		parsed, err := parseTimestamp(endedAt.String)
		if err != nil {
			return api.Meeting{}, err
		}
		meeting.EndedAt = &parsed
	}
	return meeting, nil
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
