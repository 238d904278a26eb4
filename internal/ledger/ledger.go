// Package ledger records completed hash runs in a SQLite database.
//
// The ledger is an append-only audit trail: one row per run with the batch
// identity and its provenance hash. It lets an operator answer "what did
// this collection hash to last time" without trusting the overwritable
// artifact files.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded batch execution.
type Run struct {
	// ID is a UUIDv7, assigned by Record when empty.
	ID string

	// Alias labels the collection (e.g. "tokenMetadata").
	Alias string

	// Extension is the item file extension, empty for none.
	Extension string

	// ItemCount is the number of items hashed.
	ItemCount int

	// ConcatLength is the length of the concatenated digest string.
	ConcatLength int

	// ProvenanceHash is the hash of the concatenated digests.
	ProvenanceHash string

	// CreatedAt is assigned by the database on insert (UTC, RFC 3339).
	CreatedAt string
}

// ErrNoRuns is returned by LastRun when no run matches.
var ErrNoRuns = errors.New("no recorded runs for this collection")

// Ledger provides durable storage for run records.
// Uses SQLite with WAL mode for concurrent read access.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens a SQLite ledger at the given path.
// Applies required pragmas and the schema automatically; idempotent.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record inserts a run record. Assigns a UUIDv7 id when the run has none.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same run
// twice is silently ignored. Returns the run id.
func (l *Ledger) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.Must(uuid.NewV7()).String()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, alias, extension, item_count, concat_length, provenance_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Alias,
		run.Extension,
		run.ItemCount,
		run.ConcatLength,
		run.ProvenanceHash,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	return run.ID, nil
}

// LastRun returns the most recent run recorded for an alias/extension pair.
// Returns ErrNoRuns when the ledger holds no matching run.
func (l *Ledger) LastRun(ctx context.Context, alias, extension string) (Run, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, alias, extension, item_count, concat_length, provenance_hash, created_at
		FROM runs
		WHERE alias = ? AND extension = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, alias, extension)

	var run Run
	err := row.Scan(
		&run.ID,
		&run.Alias,
		&run.Extension,
		&run.ItemCount,
		&run.ConcatLength,
		&run.ProvenanceHash,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, fmt.Errorf("read last run: %w", err)
	}

	return run, nil
}

// Runs returns all recorded runs for an alias/extension pair, newest first.
func (l *Ledger) Runs(ctx context.Context, alias, extension string) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, alias, extension, item_count, concat_length, provenance_hash, created_at
		FROM runs
		WHERE alias = ? AND extension = ?
		ORDER BY created_at DESC, id DESC
	`, alias, extension)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.Alias,
			&run.Extension,
			&run.ItemCount,
			&run.ConcatLength,
			&run.ProvenanceHash,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}

	return runs, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
