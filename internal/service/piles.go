package service

import (
	"context"

	"github.com/calvinwijaya/card-games-api/internal/events"
	"github.com/calvinwijaya/card-games-api/internal/game"
	"github.com/calvinwijaya/card-games-api/internal/store"
)

// CreatedPile reports one pile of a new session
type CreatedPile struct {
	Created   bool `json:"created"`
	Remaining int  `json:"remaining"`
}

// CreatedSession is the response to creating a pile session
type CreatedSession struct {
	GameID string                 `json:"gameId"`
	Piles  map[string]CreatedPile `json:"piles"`
}

// DeckSession is the response to creating a session through the deck
// endpoint, which reveals every card
type DeckSession struct {
	GameID string                  `json:"gameId"`
	Piles  map[string][]*game.Card `json:"piles"`
}

// SessionSummary never exposes card identities
type SessionSummary struct {
	ID      string                     `json:"id"`
	Piles   map[string]game.PileStatus `json:"piles"`
	Discard string                     `json:"discard,omitempty"`
}

// DrawnCards are the cards returned by a draw
type DrawnCards struct {
	Cards []*game.Card `json:"cards"`
	Count int          `json:"count"`
}

// DrawResponse is the response to a draw
type DrawResponse struct {
	Drawn     DrawnCards `json:"drawn"`
	Pile      string     `json:"pile"`
	Remaining int        `json:"remaining"`
	GameID    string     `json:"gameId"`
}

// ShuffleResponse is the response to a shuffle
type ShuffleResponse struct {
	Piles  map[string]game.PileStatus `json:"piles"`
	GameID string                     `json:"gameId"`
}

// DeleteResponse confirms a deletion
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	GameID  string `json:"gameId"`
}

// ListCards returns the catalog, optionally shuffled and truncated to count.
// A count of zero or less returns every card.
func (s *Service) ListCards(random bool, count int) []*game.Card {
	codes := s.engine.Catalog.Codes()
	if random {
		codes = s.engine.Shuffle(codes)
	}
	if count > 0 && count < len(codes) {
		codes = codes[:count]
	}
	return s.engine.Catalog.Resolve(codes)
}

// CreateSession deals a new pile session and reports the size of each pile
func (s *Service) CreateSession(ctx context.Context, specs []game.PileSpec, discard string) (*CreatedSession, error) {
	session, err := s.newSession(ctx, specs, discard)
	if err != nil {
		return nil, err
	}

	piles := make(map[string]CreatedPile, len(session.Piles))
	for name, pile := range session.Piles {
		piles[name] = CreatedPile{Created: true, Remaining: len(pile)}
	}

	return &CreatedSession{GameID: session.ID, Piles: piles}, nil
}

// CreateDeck deals a new pile session with per-pile drawn piles and returns
// every card of every pile
func (s *Service) CreateDeck(ctx context.Context, specs []game.PileSpec) (*DeckSession, error) {
	session, err := s.newSession(ctx, specs, "")
	if err != nil {
		return nil, err
	}

	piles := make(map[string][]*game.Card, len(session.Piles))
	for name, pile := range session.Piles {
		piles[name] = s.engine.Catalog.Resolve(pile)
	}

	return &DeckSession{GameID: session.ID, Piles: piles}, nil
}

func (s *Service) newSession(ctx context.Context, specs []game.PileSpec, discard string) (*game.PileSession, error) {
	session, err := s.engine.NewPileSession(s.newID(), specs, discard)
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, store.KindPoker, session.ID, session); err != nil {
		return nil, err
	}

	s.publish(ctx, events.GameCreated, store.KindPoker, session.ID, session.Summary())
	s.logger.Debug("pile session created", "gameId", session.ID, "piles", len(session.Piles))

	return session, nil
}

// Summary returns the remaining count of every pile
func (s *Service) Summary(ctx context.Context, id string) (*SessionSummary, error) {
	var session game.PileSession
	if _, err := s.load(ctx, store.KindPoker, id, &session); err != nil {
		return nil, err
	}

	return &SessionSummary{
		ID:      session.ID,
		Piles:   session.Summary(),
		Discard: session.Discard,
	}, nil
}

// DeleteSession removes a pile session
func (s *Service) DeleteSession(ctx context.Context, id string) (*DeleteResponse, error) {
	if err := s.store.Delete(ctx, store.KindPoker, id); err != nil {
		return nil, s.storeError(err, store.KindPoker, id)
	}

	s.publish(ctx, events.GameDeleted, store.KindPoker, id, nil)

	return &DeleteResponse{Deleted: true, GameID: id}, nil
}

// Draw takes cards from a pile of session id
func (s *Service) Draw(ctx context.Context, id string, req game.DrawRequest) (*DrawResponse, error) {
	var session game.PileSession
	version, err := s.load(ctx, store.KindPoker, id, &session)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Draw(&session, req)
	if err != nil {
		return nil, err
	}

	patch := store.Patch{
		store.Set(session.Piles[result.Pile], "piles", result.Pile),
		store.Set(session.Piles[result.DrawnTo], "piles", result.DrawnTo),
	}
	if err := s.update(ctx, store.KindPoker, id, version, patch); err != nil {
		return nil, err
	}

	s.publish(ctx, events.CardsDrawn, store.KindPoker, id, map[string]any{
		"pile":      result.Pile,
		"count":     len(result.Drawn),
		"remaining": result.Remaining,
	})

	return &DrawResponse{
		Drawn: DrawnCards{
			Cards: s.engine.Catalog.Resolve(result.Drawn),
			Count: len(result.Drawn),
		},
		Pile:      result.Pile,
		Remaining: result.Remaining,
		GameID:    id,
	}, nil
}

// Shuffle randomizes the named piles of session id
func (s *Service) Shuffle(ctx context.Context, id string, piles []string, includeDrawn bool) (*ShuffleResponse, error) {
	var session game.PileSession
	version, err := s.load(ctx, store.KindPoker, id, &session)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ShufflePiles(&session, piles, includeDrawn)
	if err != nil {
		return nil, err
	}

	patch := make(store.Patch, 0, len(result.Touched))
	for _, name := range result.Touched {
		patch = append(patch, store.Set(session.Piles[name], "piles", name))
	}
	if err := s.update(ctx, store.KindPoker, id, version, patch); err != nil {
		return nil, err
	}

	s.publish(ctx, events.PilesShuffled, store.KindPoker, id, map[string]any{
		"piles":        result.Touched,
		"includeDrawn": includeDrawn,
	})

	return &ShuffleResponse{Piles: result.Piles, GameID: id}, nil
}
