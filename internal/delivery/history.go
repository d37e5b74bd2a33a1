package delivery

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // database/sql driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Status values for the deliveries table.
const (
	historyStatusSent   = "sent"
	historyStatusFailed = "failed"
)

// HistoryEntry is one row of the delivery ledger.
type HistoryEntry struct {
	ID         int64
	Filename   string
	Recipients string // comma-separated
	Status     string // sent | failed
	Stage      string // send | relocate, empty on success
	Detail     string // error text, empty on success
	SentAt     time.Time
}

// History is an append-only ledger of per-file delivery outcomes backed by
// SQLite. It exists for the operator ("did book X actually go out last
// Tuesday?"), not for the orchestrator — recording is best-effort and a
// ledger failure never fails a run.
type History struct {
	db         *sql.DB
	recipients string
	logger     *slog.Logger
}

// OpenHistory opens (creating if necessary) the history database at path
// and applies pending schema migrations.
func OpenHistory(ctx context.Context, path string, recipients []string, logger *slog.Logger) (*History, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("delivery: creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("delivery: opening history db: %w", err)
	}

	// Sole writer; avoids SQLITE_BUSY from connection pool churn.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &History{
		db:         db,
		recipients: strings.Join(recipients, ","),
		logger:     logger,
	}, nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// Record appends one file outcome to the ledger.
func (h *History) Record(ctx context.Context, res FileResult) error {
	status := historyStatusSent
	stage := ""
	detail := ""

	if res.Err != nil {
		status = historyStatusFailed
		stage = string(res.Stage)
		detail = res.Err.Error()
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO deliveries (filename, recipients, status, stage, detail, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		filepath.Base(res.Path), h.recipients, status, stage, detail,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("delivery: recording history: %w", err)
	}

	return nil
}

// Recent returns up to limit ledger entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, filename, recipients, status, stage, detail, sent_at
		 FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("delivery: querying history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry

	for rows.Next() {
		var (
			e      HistoryEntry
			sentAt string
		)

		if err := rows.Scan(&e.ID, &e.Filename, &e.Recipients, &e.Status, &e.Stage, &e.Detail, &sentAt); err != nil {
			return nil, fmt.Errorf("delivery: scanning history row: %w", err)
		}

		if t, parseErr := time.Parse(time.RFC3339, sentAt); parseErr == nil {
			e.SentAt = t
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delivery: reading history rows: %w", err)
	}

	return entries, nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the FS root.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("delivery: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("delivery: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("delivery: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}
