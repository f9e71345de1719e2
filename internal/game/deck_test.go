package game

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/calvinwijaya/card-games-api/internal/types"
)

// orderedSource never swaps, so Shuffle returns its input order
type orderedSource struct{}

func (orderedSource) IntN(n int) int { return n - 1 }

type DeckTestSuite struct {
	suite.Suite
	catalog *Catalog
	engine  *Engine
}

func TestDeckSuite(t *testing.T) {
	suite.Run(t, new(DeckTestSuite))
}

func (s *DeckTestSuite) SetupTest() {
	s.catalog = NewCatalog("")
	s.engine = NewEngine(s.catalog, nil)
}

func (s *DeckTestSuite) TestCatalog() {
	s.Equal(52, s.catalog.Size())

	codes := s.catalog.Codes()
	s.Equal([]string{"AC", "AS", "AH", "AD", "2C"}, codes[:5])
	s.Equal("KD", codes[51])

	card, ok := s.catalog.Lookup("10H")
	s.Require().True(ok)
	s.Equal(Ten, card.Value)
	s.Equal(Hearts, card.Suit)
	s.Equal(DefaultImageBase+"10H.png", card.Image)

	pair, ok := s.catalog.BlackjackValues("AS")
	s.True(ok)
	s.Equal([2]int{1, 11}, pair)

	pair, ok = s.catalog.BlackjackValues("QC")
	s.True(ok)
	s.Equal([2]int{10, 10}, pair)

	_, ok = s.catalog.BlackjackValues("ZZ")
	s.False(ok)
}

func (s *DeckTestSuite) TestCatalogCodesIsACopy() {
	codes := s.catalog.Codes()
	codes[0] = "XX"
	s.Equal("AC", s.catalog.Codes()[0])
}

func (s *DeckTestSuite) TestCatalogImageBase() {
	catalog := NewCatalog("http://cdn.local/")
	card, ok := catalog.Lookup("KS")
	s.Require().True(ok)
	s.Equal("http://cdn.local/KS.png", card.Image)
}

func (s *DeckTestSuite) TestResolve() {
	cards := s.catalog.Resolve([]string{"AS", "nope", "2D"})
	s.Require().Len(cards, 3)
	s.Equal("AS", cards[0].Code)
	s.Nil(cards[1])
	s.Equal(Diamonds, cards[2].Suit)
}

func (s *DeckTestSuite) TestShuffleIsPermutation() {
	in := s.catalog.Codes()
	original := append([]string(nil), in...)

	out := Shuffle(DefaultSource, in)

	s.Equal(original, in, "input must not be mutated")
	s.ElementsMatch(in, out)
}

func (s *DeckTestSuite) TestShuffleOrderedSource() {
	in := []int{1, 2, 3, 4}
	s.Equal(in, Shuffle(orderedSource{}, in))
	s.Empty(Shuffle(orderedSource{}, []int{}))
}

func (s *DeckTestSuite) TestDeckSizes() {
	for _, size := range []int{1, 13, 51, 52, 53, 104, 311, 520} {
		deck, err := s.engine.Deck(DeckOptions{Cards: size})
		s.Require().NoError(err)
		s.Len(deck, size)

		for start := 0; start < len(deck); start += DeckSize {
			end := start + DeckSize
			if end > len(deck) {
				end = len(deck)
			}
			seen := make(map[string]bool)
			for _, code := range deck[start:end] {
				_, ok := s.catalog.Lookup(code)
				s.True(ok, "unknown code %s", code)
				s.False(seen[code], "duplicate %s in block starting at %d", code, start)
				seen[code] = true
			}
		}
	}
}

func (s *DeckTestSuite) TestDeckBlocksAreFullDecks() {
	deck, err := s.engine.Deck(DeckOptions{Decks: 3})
	s.Require().NoError(err)
	s.Require().Len(deck, 156)

	expected := s.catalog.Codes()
	sort.Strings(expected)

	for b := 0; b < 3; b++ {
		block := append([]string(nil), deck[b*DeckSize:(b+1)*DeckSize]...)
		sort.Strings(block)
		s.Equal(expected, block)
	}
}

func (s *DeckTestSuite) TestDeckDefault() {
	deck, err := s.engine.Deck(DeckOptions{})
	s.Require().NoError(err)
	s.Len(deck, DeckSize)
}

func (s *DeckTestSuite) TestDeckOptionsErrors() {
	testCases := []struct {
		name     string
		opts     DeckOptions
		sentinel error
	}{
		{name: "Both set", opts: DeckOptions{Decks: 1, Cards: 10}, sentinel: ErrInvalidOptions},
		{name: "Too many cards", opts: DeckOptions{Cards: 521}, sentinel: ErrOutOfRange},
		{name: "Too many decks", opts: DeckOptions{Decks: 11}, sentinel: ErrOutOfRange},
		{name: "Negative cards", opts: DeckOptions{Cards: -1}, sentinel: ErrOutOfRange},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.engine.Deck(tc.opts)
			s.Require().Error(err)
			s.True(errors.Is(err, tc.sentinel))
			s.True(types.IsGameError(err, types.ErrInvalidInput))
		})
	}
}
