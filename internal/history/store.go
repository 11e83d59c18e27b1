// Package history records doctest runs in a SQLite database
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/accudoc/internal/filelock"
	"github.com/harrison/accudoc/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded run
type Run struct {
	ID          string
	DocsRoot    string
	StartedAt   time.Time
	Duration    time.Duration
	TotalTests  int
	TotalPassed int
	TotalFailed int
	TotalFiles  int
}

// SnippetRecord is the stored result of a single snippet
type SnippetRecord struct {
	FilePath     string
	SourceLine   int
	Language     string
	Success      bool
	ErrorMessage string
	Duration     time.Duration
}

// Store manages the run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens the database at dbPath, creating it and its schema if needed.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		return openAndInit(ctx, dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	var store *Store
	err := filelock.WithLock(ctx, dbPath, func() error {
		var err error
		store, err = openAndInit(ctx, dbPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openAndInit(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores summary and every snippet result in one transaction.
// It returns the new run ID.
func (s *Store) RecordRun(ctx context.Context, docsRoot string, summary *models.RunSummary) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, docs_root, started_at, duration_ms, total_tests, total_passed, total_failed, total_files)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		docsRoot,
		summary.StartedAt.UTC(),
		summary.Duration.Milliseconds(),
		summary.TotalTests,
		summary.TotalPassed,
		summary.TotalFailed,
		len(summary.Files),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snippet_results
		(run_id, file_path, source_line, language, success, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare snippet insert: %w", err)
	}
	defer stmt.Close()

	for _, file := range summary.Files {
		for _, r := range file.Results {
			var errMsg sql.NullString
			if !r.Result.Success {
				errMsg = sql.NullString{String: r.Result.ErrorMessage, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				id,
				file.FilePath,
				r.Snippet.SourceLine,
				r.Snippet.Language,
				r.Result.Success,
				errMsg,
				r.Result.Duration.Milliseconds(),
			); err != nil {
				return "", fmt.Errorf("insert snippet result: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, docs_root, started_at, duration_ms, total_tests, total_passed, total_failed, total_files
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.DocsRoot, &run.StartedAt, &durationMs,
			&run.TotalTests, &run.TotalPassed, &run.TotalFailed, &run.TotalFiles); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunResults returns the snippet results of a run in recorded order
func (s *Store) RunResults(ctx context.Context, runID string) ([]SnippetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, source_line, language, success, error_message, duration_ms
		FROM snippet_results
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snippet results: %w", err)
	}
	defer rows.Close()

	var records []SnippetRecord
	for rows.Next() {
		var rec SnippetRecord
		var errMsg sql.NullString
		var durationMs int64
		if err := rows.Scan(&rec.FilePath, &rec.SourceLine, &rec.Language, &rec.Success, &errMsg, &durationMs); err != nil {
			return nil, fmt.Errorf("scan snippet result: %w", err)
		}
		rec.ErrorMessage = errMsg.String
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippet results: %w", err)
	}
	return records, nil
}
