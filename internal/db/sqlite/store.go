// Package sqlite provides an embedded SQLite record store for single-node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonathan/hiring-engine/internal/db/sqlite/migrations"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Store is a store.Store backed by a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore opens (creating if needed) hiring.db in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("sqlite data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "hiring.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes write transactions inside the process.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_records.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Get returns a record or a *types.NotFoundError.
func (s *Store) Get(ctx context.Context, kind string, id uuid.UUID) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, data, version, created_at, updated_at
		 FROM records WHERE kind = ? AND id = ?`,
		kind, id.String(),
	)
	rec, err := scanRecord(kind, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &types.NotFoundError{Kind: kind, ID: id.String()}
		}
		return nil, fmt.Errorf("getting %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// Query lists records of a kind, optionally restricted to one job.
func (s *Store) Query(ctx context.Context, kind string, filter store.Filter) ([]*store.Record, error) {
	query := `SELECT id, job_id, data, version, created_at, updated_at FROM records WHERE kind = ?`
	args := []any{kind}
	if filter.JobID != uuid.Nil {
		query += ` AND job_id = ?`
		args = append(args, filter.JobID.String())
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s records: %w", kind, err)
	}
	defer rows.Close()

	var out []*store.Record
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s records: %w", kind, err)
	}
	store.SortRecords(out)
	return out, nil
}

// Commit applies the batch inside one transaction.
func (s *Store) Commit(ctx context.Context, writes ...store.Write) error {
	if err := store.CheckBatch(writes); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UnixNano()
	for _, w := range writes {
		if err := commitOne(ctx, tx, w, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func commitOne(ctx context.Context, tx *sql.Tx, w store.Write, now int64) error {
	rec := w.Record
	var (
		res sql.Result
		err error
	)
	if w.ExpectedVersion == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO records (kind, id, job_id, data, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)
			 ON CONFLICT (kind, id) DO NOTHING`,
			rec.Kind, rec.ID.String(), rec.JobID.String(), string(rec.Data), now, now,
		)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE records
			 SET job_id = ?, data = ?, version = version + 1, updated_at = ?
			 WHERE kind = ? AND id = ? AND version = ?`,
			rec.JobID.String(), string(rec.Data), now, rec.Kind, rec.ID.String(), w.ExpectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("writing %s %s: %w", rec.Kind, rec.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking write of %s %s: %w", rec.Kind, rec.ID, err)
	}
	if affected == 1 {
		return nil
	}

	var actual int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM records WHERE kind = ? AND id = ?`,
		rec.Kind, rec.ID.String(),
	).Scan(&actual)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading version of %s %s: %w", rec.Kind, rec.ID, err)
	}
	return store.Conflict(w, actual)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(kind string, row scanner) (*store.Record, error) {
	var (
		id, jobID, data      string
		version              int64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &jobID, &data, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec := &store.Record{
		Kind:      kind,
		Data:      []byte(data),
		Version:   version,
		CreatedAt: time.Unix(0, createdAt).UTC(),
		UpdatedAt: time.Unix(0, updatedAt).UTC(),
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}
	if rec.JobID, err = uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("parsing job id: %w", err)
	}
	return rec, nil
}
