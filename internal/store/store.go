package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_store

// Kind namespaces records by game type
type Kind string

const (
	KindPoker     Kind = "poker"
	KindBlackjack Kind = "blackjack"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrExists          = errors.New("record already exists")
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrInvalidPatch    = errors.New("invalid patch")
)

// Record is one stored game document
type Record struct {
	Kind      Kind
	ID        string
	Doc       json.RawMessage
	Version   int64
	ExpiresAt time.Time
}

// Store defines the interface for game record storage
type Store interface {
	// Get returns the live record. Expired records are ErrNotFound.
	Get(ctx context.Context, kind Kind, id string) (*Record, error)

	// Create inserts a record at version 1, failing with ErrExists
	Create(ctx context.Context, rec *Record) error

	// Update applies patch if the stored version still equals version and
	// refreshes the expiry. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, kind Kind, id string, version int64, patch Patch, expiresAt time.Time) (*Record, error)

	// Delete removes a record
	Delete(ctx context.Context, kind Kind, id string) error

	// PurgeExpired drops every record that expired at or before now
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	// Close releases any resources held by the store
	Close() error
}
