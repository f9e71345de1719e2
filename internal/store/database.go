package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinwijaya/card-games-api/internal/db"
)

// DatabaseStore is a SQL implementation of record storage
type DatabaseStore struct {
	db *db.Database
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.Database) *DatabaseStore {
	return &DatabaseStore{
		db: database,
	}
}

// Get retrieves a record by kind and id
func (s *DatabaseStore) Get(ctx context.Context, kind Kind, id string) (*Record, error) {
	row, err := s.db.GetRecord(ctx, string(kind), id)
	if errors.Is(err, db.ErrNoRecord) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s record: %w", kind, err)
	}

	return &Record{
		Kind:      kind,
		ID:        row.ID,
		Doc:       row.Doc,
		Version:   row.Version,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// Create saves a new record
func (s *DatabaseStore) Create(ctx context.Context, rec *Record) error {
	ok, err := s.db.InsertRecord(ctx, db.Row{
		Kind:      string(rec.Kind),
		ID:        rec.ID,
		Doc:       rec.Doc,
		Version:   1,
		ExpiresAt: rec.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("error creating %s record: %w", rec.Kind, err)
	}
	if !ok {
		return ErrExists
	}

	rec.Version = 1
	return nil
}

// Update reads the record, applies the patch and writes it back guarded by
// the version column.
func (s *DatabaseStore) Update(ctx context.Context, kind Kind, id string, version int64, patch Patch, expiresAt time.Time) (*Record, error) {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if rec.Version != version {
		return nil, ErrVersionConflict
	}

	doc, err := patch.Apply(rec.Doc)
	if err != nil {
		return nil, err
	}

	ok, err := s.db.UpdateRecord(ctx, string(kind), id, version, doc, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("error updating %s record: %w", kind, err)
	}
	if !ok {
		// changed or expired between the read and the write
		return nil, ErrVersionConflict
	}

	rec.Doc = doc
	rec.Version = version + 1
	rec.ExpiresAt = expiresAt

	return rec, nil
}

// Delete removes a record from the database
func (s *DatabaseStore) Delete(ctx context.Context, kind Kind, id string) error {
	ok, err := s.db.DeleteRecord(ctx, string(kind), id)
	if err != nil {
		return fmt.Errorf("error deleting %s record: %w", kind, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired removes every expired record
func (s *DatabaseStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := s.db.PurgeExpired(ctx, now)
	return int(n), err
}

// Close closes the underlying database
func (s *DatabaseStore) Close() error {
	return s.db.Close()
}
