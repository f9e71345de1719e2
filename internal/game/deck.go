package game

import (
	"math/rand"
)

const (
	DeckSize     = 52
	MaxDeckCards = 520
	MaxDecks     = 10
)

// Source supplies the randomness for shuffles
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.Intn(n) }

// DefaultSource is safe for concurrent use
var DefaultSource Source = globalSource{}

// Shuffle returns a shuffled copy of in using Fisher-Yates. in is left untouched.
func Shuffle[T any](src Source, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)

	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// DeckOptions selects the size of a deck. Decks and Cards are mutually exclusive.
type DeckOptions struct {
	Decks int `json:"decks,omitempty"`
	Cards int `json:"cards,omitempty"`
}

// Size resolves the requested card count
func (o DeckOptions) Size() (int, error) {
	switch {
	case o.Decks != 0 && o.Cards != 0:
		return 0, invalid("You may only specify one of cards or decks", ErrInvalidOptions).
			WithDetail("cards", o.Cards).
			WithDetail("decks", o.Decks)
	case o.Decks < 0 || o.Decks > MaxDecks:
		return 0, invalid("decks must be between 1 and 10", ErrOutOfRange).WithDetail("decks", o.Decks)
	case o.Cards < 0 || o.Cards > MaxDeckCards:
		return 0, invalid("cards must be between 1 and 520", ErrOutOfRange).WithDetail("cards", o.Cards)
	case o.Decks > 0:
		return o.Decks * DeckSize, nil
	case o.Cards > 0:
		return o.Cards, nil
	default:
		return DeckSize, nil
	}
}

// Engine applies game rules using a shared catalog and a randomness source
type Engine struct {
	Catalog *Catalog
	src     Source
}

// NewEngine creates an engine. A nil src uses DefaultSource.
func NewEngine(catalog *Catalog, src Source) *Engine {
	if src == nil {
		src = DefaultSource
	}
	return &Engine{Catalog: catalog, src: src}
}

// Shuffle returns a shuffled copy of codes
func (e *Engine) Shuffle(codes []string) []string {
	return Shuffle(e.src, codes)
}

// Deck builds a deck of card codes. Every 52-card block is an independently
// shuffled copy of the catalog, truncated to the requested length.
func (e *Engine) Deck(opts DeckOptions) ([]string, error) {
	size, err := opts.Size()
	if err != nil {
		return nil, err
	}

	blocks := (size + DeckSize - 1) / DeckSize
	deck := make([]string, 0, size)

	for b := 0; b < blocks; b++ {
		take := size - len(deck)
		if take > DeckSize {
			take = DeckSize
		}

		shuffled := e.Shuffle(e.Catalog.codes)
		deck = append(deck, shuffled[:take]...)
	}

	return deck, nil
}
