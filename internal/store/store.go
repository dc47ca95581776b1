// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/bfhl/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored times order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for the submission log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			url TEXT NOT NULL,
			mode TEXT NOT NULL,
			item_count INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			status INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL,
			response TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_ended_at ON submissions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSubmission stores a finished submission.
func (s *Store) InsertSubmission(ctx context.Context, sub model.Submission) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (started_at, ended_at, url, mode, item_count, file_name, status, outcome, error, response, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.StartedAt.UTC().Format(timeLayout),
		sub.EndedAt.UTC().Format(timeLayout),
		sub.URL,
		sub.Mode,
		sub.ItemCount,
		sub.FileName,
		sub.Status,
		sub.Outcome,
		sub.Error,
		sub.Response,
		sub.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSubmissions returns submissions oldest first, filtered by f. Last keeps
// only the most recent N.
func (s *Store) ListSubmissions(ctx context.Context, f model.HistoryFilter) ([]model.SubmissionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	limit := ""
	if f.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, f.Last)
	}
	query := fmt.Sprintf(`SELECT * FROM (
		SELECT id, started_at, ended_at, url, mode, item_count, file_name, status, outcome, error, response, duration_ms
		FROM submissions
		WHERE %s
		ORDER BY ended_at DESC, id DESC
		%s
	) ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "), limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.SubmissionRecord
	for rows.Next() {
		var rec model.SubmissionRecord
		var startedAt, endedAt string
		if err := rows.Scan(&rec.ID, &startedAt, &endedAt, &rec.URL, &rec.Mode, &rec.ItemCount, &rec.FileName,
			&rec.Status, &rec.Outcome, &rec.Error, &rec.Response, &rec.DurationMs); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
