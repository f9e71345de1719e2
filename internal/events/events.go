package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Type names what happened to a game
type Type string

const (
	GameCreated    Type = "created"
	GameDeleted    Type = "deleted"
	CardsDrawn     Type = "drawn"
	PilesShuffled  Type = "shuffled"
	RoundDealt     Type = "dealt"
	TurnPlayed     Type = "played"
	RoundResolved  Type = "resolved"
	TableRestarted Type = "restarted"
)

// Event is published after a state change has been persisted
type Event struct {
	Type   Type      `json:"type"`
	Kind   string    `json:"kind"`
	GameID string    `json:"gameId"`
	Data   any       `json:"data,omitempty"`
	At     time.Time `json:"at"`
}

// Notifier receives game events
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers each event to every sink. A failing sink is logged and
// does not stop delivery to the others.
type Fanout struct {
	sinks  []Notifier
	logger *slog.Logger
}

// NewFanout creates a fan-out over sinks, skipping nil entries
func NewFanout(logger *slog.Logger, sinks ...Notifier) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fanout{logger: logger}
	for _, sink := range sinks {
		if sink != nil {
			f.sinks = append(f.sinks, sink)
		}
	}
	return f
}

// Len returns the number of sinks
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Publish implements Notifier
func (f *Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			f.logger.Warn("event delivery failed",
				"type", event.Type,
				"kind", event.Kind,
				"gameId", event.GameID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
