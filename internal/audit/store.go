// Package audit persists completed analyses to SQLite so operators can
// review past verdicts and the status command can report recent activity.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sentrybot/internal/domain"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed audit log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id            TEXT PRIMARY KEY,
		channel       TEXT,
		content_type  TEXT NOT NULL,
		risk_tier     TEXT NOT NULL,
		risk_score    REAL NOT NULL,
		confidence    REAL NOT NULL,
		summary       TEXT,
		signals       TEXT,
		raw_input     TEXT,
		language      TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_time ON analyses(created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_tier ON analyses(risk_tier, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Entry is one persisted analysis row.
type Entry struct {
	ID          string
	Channel     string
	ContentType string
	RiskTier    string
	RiskScore   float64
	Confidence  float64
	Summary     string
	Language    string
	CreatedAt   time.Time
}

// Record persists a completed analysis. Signals are stored as JSON for later
// inspection; a marshal failure degrades to an empty signal column rather
// than losing the row.
func (s *Store) Record(ctx context.Context, channel string, result *domain.AnalysisResult) error {
	signals, err := json.Marshal(result.Signals)
	if err != nil {
		s.logger.Warn("cannot marshal signals for audit", "error", err)
		signals = nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, channel, content_type, risk_tier, risk_score, confidence, summary, signals, raw_input, language, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, channel, string(result.ContentType), string(result.RiskTier),
		result.RiskScore, result.Confidence, result.Summary, string(signals),
		result.RawInput, result.Language, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	return nil
}

// Recent returns the newest analyses, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, content_type, risk_tier, risk_score, confidence, summary, language, created_at
		 FROM analyses ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var channel, summary, language sql.NullString
		if err := rows.Scan(&e.ID, &channel, &e.ContentType, &e.RiskTier,
			&e.RiskScore, &e.Confidence, &summary, &language, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Channel = channel.String
		e.Summary = summary.String
		e.Language = language.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByTier returns analysis counts per risk tier since the cutoff.
func (s *Store) CountByTier(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT risk_tier, COUNT(*) FROM analyses WHERE created_at >= ? GROUP BY risk_tier`, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[tier] = n
	}
	return counts, rows.Err()
}

// Purge deletes rows older than the retention window and returns how many
// were removed.
func (s *Store) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		s.logger.Info("purged old audit entries", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
