package queue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const queryTimeout = 3 * time.Second

var _ Backend = (*SQLiteBackend)(nil)

// SQLiteBackend stores the queue in a single SQLite file.
//
// The file is opened in exclusive locking mode: one agent process owns a
// queue file, and a second process fails at open instead of racing the first.
type SQLiteBackend struct {
	db *sql.DB
}

var sqlTables = map[string]string{
	TablePendingStatus:    "pending_status",
	TablePendingPhotos:    "pending_photos",
	TablePendingLocations: "pending_locations",
	TableRejected:         "rejected_items",
}

// OpenSQLite opens (or creates) the queue database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	q.Set("_locking_mode", "EXCLUSIVE")
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + q.Encode()

	d, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// The exclusive lock belongs to a connection; keep exactly one.
	d.SetMaxOpenConns(1)
	d.SetMaxIdleConns(1)
	d.SetConnMaxLifetime(0)

	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}

	// Take the write lock now so a second owner fails here.
	if _, err := d.ExecContext(ctx, `BEGIN IMMEDIATE; COMMIT;`); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("queue file %s is in use by another process: %w", path, err)
	}

	if err := applyMigrations(ctx, d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return &SQLiteBackend{db: d}, nil
}

func (s *SQLiteBackend) sqlTable(table string) (string, error) {
	t, ok := sqlTables[table]
	if !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	return t, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, table string, rec Record) error {
	t, err := s.sqlTable(table)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `INSERT INTO `+t+` (id, created_at, meta, blob) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET created_at = excluded.created_at, meta = excluded.meta, blob = excluded.blob`,
		rec.ID, rec.CreatedAt.UnixNano(), rec.Meta, rec.Blob)
	return err
}

func (s *SQLiteBackend) GetAll(ctx context.Context, table string) ([]Record, error) {
	t, err := s.sqlTable(table)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, meta, blob FROM `+t+` ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			ts  int64
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Meta, &rec.Blob); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteBackend) Delete(ctx context.Context, table string, id string) error {
	t, err := s.sqlTable(table)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `DELETE FROM `+t+` WHERE id = ?`, id)
	return err
}

func (s *SQLiteBackend) Count(ctx context.Context, table string) (int, error) {
	t, err := s.sqlTable(table)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n)
	return n, err
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

// applyMigrations runs every embedded NNNN_name.up.sql not yet recorded in
// schema_migrations, in version order, each in its own transaction.
func applyMigrations(ctx context.Context, d *sql.DB) error {
	if _, err := d.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
	)`); err != nil {
		return err
	}

	applied := map[int]bool{}
	rows, err := d.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	list, err := stdfs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	files := map[int]string{}
	var versions []int
	for _, de := range list {
		m := migFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		v, _ := strconv.Atoi(m[1])
		files[v] = "migrations/" + de.Name()
		versions = append(versions, v)
	}
	sort.Ints(versions)

	for _, v := range versions {
		if applied[v] {
			continue
		}
		text, err := migrationsFS.ReadFile(files[v])
		if err != nil {
			return err
		}
		tx, err := d.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(text)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %04d failed: %w", v, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(?)`, v); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
