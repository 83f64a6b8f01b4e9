// Package store persists coach feedback sessions and the player's
// long-term progress in an embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kezlabs/taboo-live/pkg/coach"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback_sessions (
	id               TEXT PRIMARY KEY,
	word             TEXT NOT NULL,
	difficulty       TEXT NOT NULL,
	user_description TEXT NOT NULL,
	feedback         TEXT NOT NULL,
	categories       TEXT NOT NULL,
	improvements     TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback_sessions(created_at);

CREATE TABLE IF NOT EXISTS user_progress (
	id                INTEGER PRIMARY KEY CHECK (id = 1),
	total_sessions    INTEGER NOT NULL DEFAULT 0,
	total_words       INTEGER NOT NULL DEFAULT 0,
	current_streak    INTEGER NOT NULL DEFAULT 0,
	last_session_date TEXT NOT NULL DEFAULT '',
	progress_score    INTEGER NOT NULL DEFAULT 0
);
`

// UserProgress is the player's cumulative practice record.
type UserProgress struct {
	TotalSessions   int
	TotalWords      int
	CurrentStreak   int
	LastSessionDate string
	ProgressScore   int
}

// WeeklyAnalysis summarizes the last seven days of practice.
type WeeklyAnalysis struct {
	SessionCount   int
	WordsPracticed []string
	TopCategories  []string
	Improvements   []string
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The driver is file-backed; a single writer avoids lock contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreFeedbackSession inserts a feedback record and folds it into the
// player's progress.
func (s *Store) StoreFeedbackSession(ctx context.Context, fs coach.FeedbackSession) error {
	categories, err := json.Marshal(fs.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	improvements, err := json.Marshal(fs.Improvements)
	if err != nil {
		return fmt.Errorf("encode improvements: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback_sessions
			(id, word, difficulty, user_description, feedback, categories, improvements, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fs.ID, fs.Word, fs.Difficulty, fs.UserDescription, fs.Feedback,
		string(categories), string(improvements), fs.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	if err := s.updateProgressTx(ctx, tx, fs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("feedback session stored",
		zap.String("word", fs.Word),
		zap.String("difficulty", fs.Difficulty))
	return nil
}

func (s *Store) updateProgressTx(ctx context.Context, tx *sql.Tx, fs coach.FeedbackSession) error {
	progress, err := progressTx(ctx, tx)
	if err != nil {
		return err
	}

	today := s.now().UTC().Format("2006-01-02")
	yesterday := s.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	switch progress.LastSessionDate {
	case today:
		// Several rounds on the same day keep the streak.
	case yesterday:
		progress.CurrentStreak++
	default:
		progress.CurrentStreak = 1
	}
	progress.LastSessionDate = today
	progress.TotalSessions++

	var distinctWords int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT word) FROM feedback_sessions`).Scan(&distinctWords); err != nil {
		return fmt.Errorf("count words: %w", err)
	}
	progress.TotalWords = distinctWords
	progress.ProgressScore = progressScore(progress.CurrentStreak, distinctWords, progress.TotalSessions)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_progress (id, total_sessions, total_words, current_streak, last_session_date, progress_score)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_sessions = excluded.total_sessions,
			total_words = excluded.total_words,
			current_streak = excluded.current_streak,
			last_session_date = excluded.last_session_date,
			progress_score = excluded.progress_score`,
		progress.TotalSessions, progress.TotalWords, progress.CurrentStreak,
		progress.LastSessionDate, progress.ProgressScore)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// progressScore blends practice consistency, word variety, and sheer
// volume into a 0-100 score.
func progressScore(streak, distinctWords, totalSessions int) int {
	consistency := streak * 10
	if consistency > 50 {
		consistency = 50
	}
	variety := distinctWords * 3
	if variety > 30 {
		variety = 30
	}
	quality := totalSessions * 2
	if quality > 20 {
		quality = 20
	}
	score := consistency + variety + quality
	if score > 100 {
		score = 100
	}
	return score
}

// GetUserProgress returns the cumulative progress record.
func (s *Store) GetUserProgress(ctx context.Context) (UserProgress, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return UserProgress{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	return progressTx(ctx, tx)
}

func progressTx(ctx context.Context, tx *sql.Tx) (UserProgress, error) {
	var p UserProgress
	err := tx.QueryRowContext(ctx, `
		SELECT total_sessions, total_words, current_streak, last_session_date, progress_score
		FROM user_progress WHERE id = 1`).
		Scan(&p.TotalSessions, &p.TotalWords, &p.CurrentStreak, &p.LastSessionDate, &p.ProgressScore)
	if err == sql.ErrNoRows {
		return UserProgress{}, nil
	}
	if err != nil {
		return UserProgress{}, fmt.Errorf("read progress: %w", err)
	}
	return p, nil
}

// RecentSessions returns the newest feedback sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]coach.FeedbackSession, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, word, difficulty, user_description, feedback, categories, improvements, created_at
		FROM feedback_sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []coach.FeedbackSession
	for rows.Next() {
		fs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// GenerateWeeklyAnalysis summarizes the sessions of the past seven
// days.
func (s *Store) GenerateWeeklyAnalysis(ctx context.Context) (WeeklyAnalysis, error) {
	since := s.now().UTC().AddDate(0, 0, -7)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, word, difficulty, user_description, feedback, categories, improvements, created_at
		FROM feedback_sessions WHERE created_at >= ? ORDER BY created_at`, since)
	if err != nil {
		return WeeklyAnalysis{}, fmt.Errorf("query week: %w", err)
	}
	defer rows.Close()

	var analysis WeeklyAnalysis
	wordsSeen := map[string]bool{}
	categoryCounts := map[string]int{}
	for rows.Next() {
		fs, err := scanSession(rows)
		if err != nil {
			return WeeklyAnalysis{}, err
		}
		analysis.SessionCount++
		key := strings.ToLower(fs.Word)
		if !wordsSeen[key] {
			wordsSeen[key] = true
			analysis.WordsPracticed = append(analysis.WordsPracticed, fs.Word)
		}
		for _, cat := range fs.Categories {
			categoryCounts[cat]++
		}
		analysis.Improvements = append(analysis.Improvements, fs.Improvements...)
	}
	if err := rows.Err(); err != nil {
		return WeeklyAnalysis{}, err
	}

	analysis.TopCategories = topCategories(categoryCounts, 3)
	return analysis, nil
}

func topCategories(counts map[string]int, n int) []string {
	type kv struct {
		cat   string
		count int
	}
	var all []kv
	for cat, count := range counts {
		all = append(all, kv{cat, count})
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].count > all[i].count ||
				(all[j].count == all[i].count && all[j].cat < all[i].cat) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	var out []string
	for i := 0; i < len(all) && i < n; i++ {
		out = append(out, all[i].cat)
	}
	return out
}

func scanSession(rows *sql.Rows) (coach.FeedbackSession, error) {
	var fs coach.FeedbackSession
	var categories, improvements string
	if err := rows.Scan(&fs.ID, &fs.Word, &fs.Difficulty, &fs.UserDescription,
		&fs.Feedback, &categories, &improvements, &fs.CreatedAt); err != nil {
		return coach.FeedbackSession{}, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &fs.Categories); err != nil {
		return coach.FeedbackSession{}, fmt.Errorf("decode categories: %w", err)
	}
	if err := json.Unmarshal([]byte(improvements), &fs.Improvements); err != nil {
		return coach.FeedbackSession{}, fmt.Errorf("decode improvements: %w", err)
	}
	return fs, nil
}
