// Package db provides the PostgreSQL implementation of the record store.
package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/hiring-engine/internal/db/migrations"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "hiring-engine"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate applies every embedded migration newer than the recorded schema version
func (db *DB) Migrate(ctx context.Context) (int, error) {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	files, err := upMigrations(migrations.FS)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range files {
		if m.version <= current {
			continue
		}
		content, err := fs.ReadFile(migrations.FS, m.name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", m.name, err)
		}
		err = pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		applied++
	}
	return applied, nil
}

type migration struct {
	version int
	name    string
}

// upMigrations lists NNN_name.up.sql files in version order.
func upMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	var out []migration
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(e.Name(), "%d_", &v); err != nil {
			continue
		}
		out = append(out, migration{version: v, name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// ----------------------------------------------------------------------------
// Record Store Methods
// ----------------------------------------------------------------------------

// Get retrieves a record by kind and ID
func (db *DB) Get(ctx context.Context, kind string, id uuid.UUID) (*store.Record, error) {
	rec := &store.Record{Kind: kind, ID: id}
	err := db.pool.QueryRow(ctx,
		`SELECT job_id, data, version, created_at, updated_at
		 FROM records WHERE kind = $1 AND id = $2`,
		kind, id,
	).Scan(&rec.JobID, &rec.Data, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.NotFoundError{Kind: kind, ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// Query lists records of a kind, optionally restricted to one job
func (db *DB) Query(ctx context.Context, kind string, filter store.Filter) ([]*store.Record, error) {
	query := `SELECT id, job_id, data, version, created_at, updated_at
		 FROM records WHERE kind = $1`
	args := []any{kind}
	if filter.JobID != uuid.Nil {
		query += ` AND job_id = $2`
		args = append(args, filter.JobID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", kind, err)
	}
	defer rows.Close()

	var out []*store.Record
	for rows.Next() {
		rec := &store.Record{Kind: kind}
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.Data, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", kind, err)
	}
	store.SortRecords(out)
	return out, nil
}

// Commit applies a batch of conditional writes in a single transaction
func (db *DB) Commit(ctx context.Context, writes ...store.Write) error {
	if err := store.CheckBatch(writes); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		for _, w := range writes {
			if err := commitOne(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func commitOne(ctx context.Context, tx pgx.Tx, w store.Write) error {
	rec := w.Record
	var (
		affected int64
		err      error
	)
	if w.ExpectedVersion == 0 {
		tag, execErr := tx.Exec(ctx,
			`INSERT INTO records (kind, id, job_id, data, version)
			 VALUES ($1, $2, $3, $4, 1)
			 ON CONFLICT (kind, id) DO NOTHING`,
			rec.Kind, rec.ID, rec.JobID, []byte(rec.Data),
		)
		affected, err = tag.RowsAffected(), execErr
	} else {
		tag, execErr := tx.Exec(ctx,
			`UPDATE records
			 SET job_id = $3, data = $4, version = version + 1, updated_at = NOW()
			 WHERE kind = $1 AND id = $2 AND version = $5`,
			rec.Kind, rec.ID, rec.JobID, []byte(rec.Data), w.ExpectedVersion,
		)
		affected, err = tag.RowsAffected(), execErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", rec.Kind, rec.ID, err)
	}
	if affected == 1 {
		return nil
	}

	var actual int64
	err = tx.QueryRow(ctx,
		`SELECT version FROM records WHERE kind = $1 AND id = $2`,
		rec.Kind, rec.ID,
	).Scan(&actual)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to read version of %s %s: %w", rec.Kind, rec.ID, err)
	}
	return store.Conflict(w, actual)
}

// Truncate removes every record. Used by integration tests.
func (db *DB) Truncate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `TRUNCATE records`); err != nil {
		return fmt.Errorf("failed to truncate records: %w", err)
	}
	return nil
}
