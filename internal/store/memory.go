package store

import (
	"context"
	"sync"
	"time"
)

type recordKey struct {
	kind Kind
	id   string
}

// MemoryStore is an in-memory implementation of record storage
type MemoryStore struct {
	records map[recordKey]Record
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]Record),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for expiry checks
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) live(key recordKey) (Record, bool) {
	rec, ok := s.records[key]
	if !ok || !rec.ExpiresAt.After(s.now()) {
		return Record{}, false
	}
	return rec, true
}

// Get retrieves a record by kind and id
func (s *MemoryStore) Get(ctx context.Context, kind Kind, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.live(recordKey{kind, id})
	if !ok {
		return nil, ErrNotFound
	}

	return copyRecord(rec), nil
}

// Create saves a new record
func (s *MemoryStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{rec.Kind, rec.ID}
	if _, ok := s.live(key); ok {
		return ErrExists
	}

	rec.Version = 1
	s.records[key] = *copyRecord(*rec)

	return nil
}

// Update applies a patch under a version check
func (s *MemoryStore) Update(ctx context.Context, kind Kind, id string, version int64, patch Patch, expiresAt time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{kind, id}
	rec, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Version != version {
		return nil, ErrVersionConflict
	}

	doc, err := patch.Apply(rec.Doc)
	if err != nil {
		return nil, err
	}

	rec.Doc = doc
	rec.Version++
	rec.ExpiresAt = expiresAt
	s.records[key] = rec

	return copyRecord(rec), nil
}

// Delete removes a record from the store
func (s *MemoryStore) Delete(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{kind, id}
	if _, ok := s.live(key); !ok {
		return ErrNotFound
	}

	delete(s.records, key)

	return nil
}

// PurgeExpired removes every expired record
func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for key, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, key)
			purged++
		}
	}

	return purged, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func copyRecord(rec Record) *Record {
	doc := make([]byte, len(rec.Doc))
	copy(doc, rec.Doc)
	rec.Doc = doc
	return &rec
}
