package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"rss_sentinel/internal/model"
	"rss_sentinel/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateFeed inserts a new feed and populates its ID and CreatedAt.
func (s *SQLite) CreateFeed(ctx context.Context, feed *model.Feed) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (url, title, description, is_active, error_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		feed.URL, feed.Title, feed.Description, boolToInt(feed.IsActive), feed.ErrorCount, now,
	)
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	feed.ID = id
	feed.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetFeed returns a single feed by its ID.
func (s *SQLite) GetFeed(ctx context.Context, id int64) (*model.Feed, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, description, is_active, error_count, last_fetch_at, created_at
		 FROM feeds WHERE id = ?`, id,
	)
	return scanFeed(row)
}

// GetFeedByURL returns a single feed by its unique URL.
func (s *SQLite) GetFeedByURL(ctx context.Context, url string) (*model.Feed, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, description, is_active, error_count, last_fetch_at, created_at
		 FROM feeds WHERE url = ?`, url,
	)
	return scanFeed(row)
}

// ListFeeds returns all feeds.
func (s *SQLite) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, description, is_active, error_count, last_fetch_at, created_at
		 FROM feeds ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFeeds(rows)
}

// ListActiveFeeds returns all feeds eligible for checking.
func (s *SQLite) ListActiveFeeds(ctx context.Context) ([]model.Feed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, description, is_active, error_count, last_fetch_at, created_at
		 FROM feeds WHERE is_active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFeeds(rows)
}

// UpdateFeed applies a partial update; nil patch fields are left unchanged.
func (s *SQLite) UpdateFeed(ctx context.Context, id int64, patch model.FeedPatch) error {
	var sets []string
	var args []any

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.LastFetchAt != nil {
		sets = append(sets, "last_fetch_at = ?")
		args = append(args, patch.LastFetchAt.UTC().Format(timeLayout))
	}
	if patch.ErrorCount != nil {
		sets = append(sets, "error_count = ?")
		args = append(args, *patch.ErrorCount)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*patch.IsActive))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	return nil
}

// IncrementFeedError bumps the feed's error count and disables the feed
// once the threshold is reached, in a single atomic statement.
func (s *SQLite) IncrementFeedError(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds
		 SET error_count = error_count + 1,
		     is_active = CASE WHEN error_count + 1 >= ? THEN 0 ELSE is_active END
		 WHERE id = ?`,
		model.ErrorThreshold, id,
	)
	if err != nil {
		return fmt.Errorf("increment feed error: %w", err)
	}
	return nil
}

// SetFeedActive toggles a feed's active flag.
func (s *SQLite) SetFeedActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET is_active = ? WHERE id = ?`, boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set feed active: %w", err)
	}
	return nil
}

// DeleteFeed removes a feed together with its keywords and sent items.
func (s *SQLite) DeleteFeed(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sent_items WHERE feed_id = ?`, id); err != nil {
		return fmt.Errorf("delete sent_items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE feed_id = ?`, id); err != nil {
		return fmt.Errorf("delete keywords: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	return tx.Commit()
}

// CreateKeyword inserts a new keyword and populates its ID and CreatedAt.
func (s *SQLite) CreateKeyword(ctx context.Context, kw *model.Keyword) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keywords (feed_id, pattern, kind, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		kw.FeedID, kw.Pattern, string(kw.Kind), boolToInt(kw.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert keyword: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	kw.ID = id
	kw.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetKeyword returns a single keyword by its ID.
func (s *SQLite) GetKeyword(ctx context.Context, id int64) (*model.Keyword, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, feed_id, pattern, kind, is_active, created_at FROM keywords WHERE id = ?`, id,
	)
	kw, err := scanKeyword(row)
	if err != nil {
		return nil, err
	}
	return &kw, nil
}

// ListGlobalKeywords returns keywords that apply to every feed.
func (s *SQLite) ListGlobalKeywords(ctx context.Context) ([]model.Keyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, feed_id, pattern, kind, is_active, created_at
		 FROM keywords WHERE feed_id IS NULL ORDER BY id`)
}

// ListFeedKeywords returns the keywords owned by one feed.
func (s *SQLite) ListFeedKeywords(ctx context.Context, feedID int64) ([]model.Keyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, feed_id, pattern, kind, is_active, created_at
		 FROM keywords WHERE feed_id = ? ORDER BY id`, feedID)
}

// ListKeywords returns all keywords, global ones first.
func (s *SQLite) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, feed_id, pattern, kind, is_active, created_at
		 FROM keywords ORDER BY feed_id IS NOT NULL, id`)
}

// DeleteKeyword removes a keyword by its ID.
func (s *SQLite) DeleteKeyword(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	return nil
}

func (s *SQLite) queryKeywords(ctx context.Context, query string, args ...any) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []model.Keyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// MarkSent records an item as notified. Marking the same item twice is a
// no-op, leaving exactly one record per fingerprint.
func (s *SQLite) MarkSent(ctx context.Context, feedID int64, title, url string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_items (fingerprint, feed_id, title, url, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		Fingerprint(feedID, url), feedID, title, url, now,
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// IsSent checks whether an item fingerprint has already been notified.
func (s *SQLite) IsSent(ctx context.Context, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_items WHERE fingerprint = ?`, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent: %w", err)
	}
	return count > 0, nil
}

// PurgeSentBefore removes dedup records older than the cutoff and returns
// the number of rows deleted.
func (s *SQLite) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sent_items WHERE sent_at < ?`, cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("purge sent items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// GetUserSettings returns the settings for a user, creating a default row
// on first access.
func (s *SQLite) GetUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	settings, err := s.readUserSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan user settings: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_settings (user_id, digest_mode, notify_with_image, created_at, updated_at)
		 VALUES (?, 0, 1, ?, ?)`,
		userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user settings: %w", err)
	}

	settings, err = s.readUserSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("scan user settings: %w", err)
	}
	return settings, nil
}

// UpdateUserSettings persists a user's notification preferences.
func (s *SQLite) UpdateUserSettings(ctx context.Context, settings *model.UserSettings) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_settings SET digest_mode = ?, notify_with_image = ?, updated_at = ?
		 WHERE user_id = ?`,
		boolToInt(settings.DigestMode), boolToInt(settings.NotifyWithImage), now, settings.UserID,
	)
	if err != nil {
		return fmt.Errorf("update user settings: %w", err)
	}
	return nil
}

func (s *SQLite) readUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, digest_mode, notify_with_image, created_at, updated_at
		 FROM user_settings WHERE user_id = ?`, userID,
	)
	var u model.UserSettings
	var digest, withImage int
	var created, updated string
	if err := row.Scan(&u.ID, &u.UserID, &digest, &withImage, &created, &updated); err != nil {
		return nil, err
	}
	u.DigestMode = digest == 1
	u.NotifyWithImage = withImage == 1
	u.CreatedAt, _ = time.Parse(timeLayout, created)
	u.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFeed(row scannable) (*model.Feed, error) {
	var f model.Feed
	var isActive int
	var lastFetch, created sql.NullString
	err := row.Scan(&f.ID, &f.URL, &f.Title, &f.Description, &isActive, &f.ErrorCount, &lastFetch, &created)
	if err != nil {
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	f.IsActive = isActive == 1
	if lastFetch.Valid {
		t, _ := time.Parse(timeLayout, lastFetch.String)
		f.LastFetchAt = &t
	}
	if created.Valid {
		f.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &f, nil
}

func scanFeeds(rows *sql.Rows) ([]model.Feed, error) {
	var feeds []model.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *f)
	}
	return feeds, rows.Err()
}

func scanKeyword(row scannable) (model.Keyword, error) {
	var kw model.Keyword
	var feedID sql.NullInt64
	var kindStr, createdStr string
	var isActive int
	err := row.Scan(&kw.ID, &feedID, &kw.Pattern, &kindStr, &isActive, &createdStr)
	if err != nil {
		return kw, fmt.Errorf("scan keyword: %w", err)
	}
	if feedID.Valid {
		kw.FeedID = &feedID.Int64
	}
	kw.Kind = model.KeywordKind(kindStr)
	kw.IsActive = isActive == 1
	kw.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return kw, nil
}
