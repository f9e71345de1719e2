package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/calvinwijaya/card-games-api/internal/events"
	"github.com/calvinwijaya/card-games-api/internal/game"
	"github.com/calvinwijaya/card-games-api/internal/store"
	"github.com/calvinwijaya/card-games-api/internal/types"
)

// DefaultTTL is how long a game lives after its last mutation
const DefaultTTL = 7 * 24 * time.Hour

const (
	msgNotFound = "A game with the given id does not exist"
	msgConflict = "The game was changed by another request, try again"
	msgInternal = "An internal server error occurred try again later"
)

// Service runs every game operation as a read-modify-write against one
// stored record, then publishes what happened.
type Service struct {
	engine   *game.Engine
	store    store.Store
	notifier events.Notifier
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Config holds the optional collaborators of a Service
type Config struct {
	TTL      time.Duration
	Notifier events.Notifier
	Logger   *slog.Logger
}

// New creates a service over engine and st
func New(engine *game.Engine, st store.Store, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Notifier == nil {
		cfg.Notifier = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		engine:   engine,
		store:    st,
		notifier: cfg.Notifier,
		ttl:      cfg.TTL,
		now:      time.Now,
		newID:    store.NewID,
		logger:   cfg.Logger,
	}
}

// WithClock replaces the time source used for expiry and events
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Catalog returns the catalog of the engine
func (s *Service) Catalog() *game.Catalog {
	return s.engine.Catalog
}

func (s *Service) expiry() time.Time {
	return s.now().Add(s.ttl)
}

// load reads the record of id and decodes its document into v
func (s *Service) load(ctx context.Context, kind store.Kind, id string, v any) (int64, error) {
	rec, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return 0, s.storeError(err, kind, id)
	}

	if err := json.Unmarshal(rec.Doc, v); err != nil {
		return 0, s.internal(err, "decode record", kind, id)
	}

	return rec.Version, nil
}

// create inserts a fresh record for doc
func (s *Service) create(ctx context.Context, kind store.Kind, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return s.internal(err, "encode record", kind, id)
	}

	err = s.store.Create(ctx, &store.Record{
		Kind:      kind,
		ID:        id,
		Doc:       raw,
		ExpiresAt: s.expiry(),
	})
	if err != nil {
		return s.storeError(err, kind, id)
	}

	return nil
}

// update commits patch against the version that was read
func (s *Service) update(ctx context.Context, kind store.Kind, id string, version int64, patch store.Patch) error {
	if _, err := s.store.Update(ctx, kind, id, version, patch, s.expiry()); err != nil {
		return s.storeError(err, kind, id)
	}
	return nil
}

// storeError maps store failures onto the caller-facing taxonomy
func (s *Service) storeError(err error, kind store.Kind, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return types.WrapError(types.ErrNotFound, msgNotFound, err).WithDetail("gameId", id)
	case errors.Is(err, store.ErrVersionConflict):
		return types.WrapError(types.ErrConflict, msgConflict, err).WithDetail("gameId", id)
	default:
		return s.internal(err, "store call failed", kind, id)
	}
}

func (s *Service) internal(err error, msg string, kind store.Kind, id string) error {
	s.logger.Error(msg, "kind", kind, "gameId", id, "error", err)
	return types.WrapError(types.ErrInternalError, msgInternal, err)
}

// publish notifies listeners. Delivery failures never fail the operation.
func (s *Service) publish(ctx context.Context, typ events.Type, kind store.Kind, id string, data any) {
	err := s.notifier.Publish(ctx, events.Event{
		Type:   typ,
		Kind:   string(kind),
		GameID: id,
		Data:   data,
		At:     s.now(),
	})
	if err != nil {
		s.logger.Warn("event not delivered", "type", typ, "gameId", id, "error", err)
	}
}
