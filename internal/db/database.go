package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNoRecord is returned when no live row matches
var ErrNoRecord = errors.New("record not found")

// Config selects and tunes the SQL backend
type Config struct {
	Driver  string
	DSN     string
	Retries int
	Timeout time.Duration
}

// Row is a stored game record
type Row struct {
	Kind      string
	ID        string
	Doc       []byte
	Version   int64
	ExpiresAt time.Time
}

type Database struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	logger  *slog.Logger
}

const createRecordsTableSQLite = `
	CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		doc TEXT NOT NULL,  -- JSON game state
		version INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,  -- unix milliseconds
		PRIMARY KEY (kind, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_expires_at ON records(expires_at)`

const createRecordsTablePostgres = `
	CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		doc JSONB NOT NULL,
		version BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		PRIMARY KEY (kind, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_expires_at ON records(expires_at)`

// NewDatabase opens the configured backend, waits for it to answer and
// creates the records table.
func NewDatabase(ctx context.Context, cfg Config, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}

	var driverName, schema string
	switch cfg.Driver {
	case DriverSQLite:
		driverName, schema = "sqlite3", createRecordsTableSQLite
		if dir := filepath.Dir(cfg.DSN); cfg.DSN != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("error creating database directory: %w", err)
			}
		}
	case DriverPostgres:
		driverName, schema = "postgres", createRecordsTablePostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// one writer keeps sqlite out of SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	d := &Database{db: db, driver: cfg.Driver, timeout: cfg.Timeout, logger: logger}

	if err := d.ping(ctx, cfg.Retries); err != nil {
		db.Close()
		return nil, err
	}

	if err := d.initTables(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Database) ping(ctx context.Context, retries int) error {
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err = d.db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		d.logger.Warn("database not reachable", "driver", d.driver, "attempt", attempt, "error", err)

		if attempt < retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return fmt.Errorf("error connecting to the database: %w", err)
}

func (d *Database) initTables(ctx context.Context, schema string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating records table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Driver returns the configured backend name
func (d *Database) Driver() string {
	return d.driver
}

// InsertRecord stores a new row. It reports false when the key is taken by a
// live row. An expired row with the same key is replaced.
func (d *Database) InsertRecord(ctx context.Context, row Row) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, doc, version, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, id) DO UPDATE
		SET doc = excluded.doc, version = excluded.version, expires_at = excluded.expires_at
		WHERE records.expires_at <= $6
	`, row.Kind, row.ID, string(row.Doc), row.Version, row.ExpiresAt.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetRecord returns the live row for a key
func (d *Database) GetRecord(ctx context.Context, kind, id string) (*Row, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		doc       string
		expiresAt int64
	)
	row := Row{Kind: kind, ID: id}

	err := d.db.QueryRowContext(ctx, `
		SELECT doc, version, expires_at FROM records
		WHERE kind = $1 AND id = $2 AND expires_at > $3
	`, kind, id, time.Now().UnixMilli()).Scan(&doc, &row.Version, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, err
	}

	row.Doc = []byte(doc)
	row.ExpiresAt = time.UnixMilli(expiresAt)
	return &row, nil
}

// UpdateRecord replaces a row's document only if its version still equals
// version. It reports false when no live row matched.
func (d *Database) UpdateRecord(ctx context.Context, kind, id string, version int64, doc []byte, expiresAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		UPDATE records SET doc = $1, version = $2, expires_at = $3
		WHERE kind = $4 AND id = $5 AND version = $6 AND expires_at > $7
	`, string(doc), version+1, expiresAt.UnixMilli(), kind, id, version, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteRecord removes a live row. It reports false when none existed.
func (d *Database) DeleteRecord(ctx context.Context, kind, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		DELETE FROM records WHERE kind = $1 AND id = $2 AND expires_at > $3
	`, kind, id, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PurgeExpired deletes every row that expired at or before now
func (d *Database) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `DELETE FROM records WHERE expires_at <= $1`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
