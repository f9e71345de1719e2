package game

import (
	"strings"

	"github.com/calvinwijaya/card-games-api/internal/types"
)

const (
	DrawnSuffix     = "_drawn"
	DefaultPileName = "main"
	MaxPiles        = 5
	MaxPileName     = 25
	MinDraw         = 1
	MaxDraw         = 100
)

// PileSpec requests one source pile at session creation
type PileSpec struct {
	Name string `json:"name"`
	DeckOptions
}

// PileSession is the persisted state of a pile-manager game
type PileSession struct {
	ID    string              `json:"id"`
	Piles map[string][]string `json:"piles"`
	// Counts holds each pile's size at creation and caps replenishment
	Counts map[string]int `json:"counts"`
	// Discard, when set, receives the draws of every pile
	Discard string `json:"discard,omitempty"`
	// Order lists the source piles in creation order
	Order []string `json:"order"`
}

// PileStatus is the redacted view of a pile
type PileStatus struct {
	Remaining int   `json:"remaining"`
	Shuffled  *bool `json:"shuffled,omitempty"`
}

// DrawRequest asks for Count cards from Pile
type DrawRequest struct {
	Pile  string
	Count int
	// Force reshuffles the pile with its drawn pile when it is short
	Force bool
	// Lenient falls back to the only source pile when Pile does not exist
	Lenient bool
}

// DrawResult describes a completed draw
type DrawResult struct {
	Pile      string
	DrawnTo   string
	Drawn     []string
	Remaining int
}

// ShuffleResult describes a completed shuffle
type ShuffleResult struct {
	Piles map[string]PileStatus
	// Touched lists every pile whose contents changed
	Touched []string
}

// NormalizePileName strips all spaces from a pile name
func NormalizePileName(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

// DrawnPileName returns the automatically paired pile of a source pile
func DrawnPileName(name string) string {
	return name + DrawnSuffix
}

// DrawnPileFor returns the pile that receives draws from name
func (s *PileSession) DrawnPileFor(name string) string {
	if s.Discard != "" {
		return s.Discard
	}
	return DrawnPileName(name)
}

// IsSource reports whether name is a drawable source pile
func (s *PileSession) IsSource(name string) bool {
	for _, source := range s.Order {
		if source == name {
			return true
		}
	}
	return false
}

// PileNames returns every pile name, sorted
func (s *PileSession) PileNames() []string {
	return sortedKeys(s.Piles)
}

// Summary projects each pile to its remaining count
func (s *PileSession) Summary() map[string]PileStatus {
	out := make(map[string]PileStatus, len(s.Piles))
	for name, pile := range s.Piles {
		out[name] = PileStatus{Remaining: len(pile)}
	}
	return out
}

// TotalCards counts cards across all piles
func (s *PileSession) TotalCards() int {
	total := 0
	for _, pile := range s.Piles {
		total += len(pile)
	}
	return total
}

// NewPileSession deals a fresh session. With no specs a single 52-card
// "main" pile is created.
func (e *Engine) NewPileSession(id string, specs []PileSpec, discard string) (*PileSession, error) {
	if len(specs) == 0 {
		specs = []PileSpec{{Name: DefaultPileName}}
	}
	if len(specs) > MaxPiles {
		return nil, invalid("You may create at most 5 piles", ErrOutOfRange).WithDetail("piles", len(specs))
	}

	discard = NormalizePileName(discard)
	names := make([]string, len(specs))
	seen := make(map[string]bool, len(specs))

	for i, spec := range specs {
		name := NormalizePileName(spec.Name)
		if name == "" || len(name) > MaxPileName {
			return nil, invalid("Pile names must be between 1 and 25 characters", ErrOutOfRange).
				WithDetail("pile", spec.Name)
		}
		if seen[name] {
			return nil, invalid("Pile names need to be unique", ErrDuplicatePileName).WithDetail("pile", name)
		}
		seen[name] = true
		names[i] = name
	}

	for _, name := range names {
		if strings.HasSuffix(name, DrawnSuffix) {
			return nil, invalid("You cannot create a drawn pile", ErrReservedPileName).WithDetail("pile", name)
		}
	}

	if discard != "" && seen[discard] {
		return nil, invalid("The discard pile cannot share a name with another pile", ErrDuplicatePileName).
			WithDetail("discard", discard)
	}

	s := &PileSession{
		ID:      id,
		Piles:   make(map[string][]string, len(specs)*2),
		Counts:  make(map[string]int, len(specs)*2),
		Discard: discard,
		Order:   names,
	}

	for i, spec := range specs {
		deck, err := e.Deck(spec.DeckOptions)
		if err != nil {
			var gameErr *types.GameError
			if types.As(err, &gameErr) {
				return nil, gameErr.WithDetail("pile", names[i])
			}
			return nil, err
		}
		s.Piles[names[i]] = deck
		if discard == "" {
			s.Piles[DrawnPileName(names[i])] = []string{}
		}
	}

	if discard != "" {
		s.Piles[discard] = []string{}
	}

	for name, pile := range s.Piles {
		s.Counts[name] = len(pile)
	}

	return s, nil
}

// Draw moves up to req.Count cards from the front of a source pile to the
// back of its drawn pile. A short pile yields fewer cards unless Force is
// set, in which case the pile is first reshuffled together with its drawn pile.
func (e *Engine) Draw(s *PileSession, req DrawRequest) (*DrawResult, error) {
	name := NormalizePileName(req.Pile)
	if name == "" {
		name = DefaultPileName
	}

	if _, ok := s.Piles[name]; !ok {
		if req.Lenient && len(s.Order) == 1 {
			name = s.Order[0]
		} else {
			return nil, invalid("A pile with the given name does not exist", ErrUnknownPile).
				WithDetail("pile", name).
				WithDetail("valid", s.PileNames())
		}
	}

	if !s.IsSource(name) {
		return nil, invalid("Cards can only be drawn from source piles", ErrNotDrawable).
			WithDetail("pile", name).
			WithDetail("valid", s.Order)
	}

	if req.Count < MinDraw || req.Count > MaxDraw {
		return nil, invalid("count must be between 1 and 100", ErrOutOfRange).WithDetail("count", req.Count)
	}

	drawnTo := s.DrawnPileFor(name)
	pile := s.Piles[name]
	drawnPile := s.Piles[drawnTo]

	if req.Force && len(pile) < req.Count {
		merged := make([]string, 0, len(pile)+len(drawnPile))
		merged = append(merged, pile...)
		merged = append(merged, drawnPile...)
		pile = e.Shuffle(merged)
		drawnPile = nil
	}

	n := req.Count
	if n > len(pile) {
		n = len(pile)
	}

	drawn := make([]string, n)
	copy(drawn, pile[:n])

	remaining := make([]string, len(pile)-n)
	copy(remaining, pile[n:])

	allDrawn := make([]string, 0, len(drawnPile)+n)
	allDrawn = append(allDrawn, drawnPile...)
	allDrawn = append(allDrawn, drawn...)

	s.Piles[name] = remaining
	s.Piles[drawnTo] = allDrawn

	return &DrawResult{
		Pile:      name,
		DrawnTo:   drawnTo,
		Drawn:     drawn,
		Remaining: len(remaining),
	}, nil
}

// ShufflePiles randomizes the named piles in place. With includeDrawn, each
// source pile first takes back cards from the front of its drawn pile, up to
// its size at creation.
func (e *Engine) ShufflePiles(s *PileSession, names []string, includeDrawn bool) (*ShuffleResult, error) {
	if len(names) == 0 {
		return nil, invalid("You must specify piles to shuffle", ErrOutOfRange).WithDetail("received", names)
	}

	requested := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := NormalizePileName(raw)
		if seen[name] {
			continue
		}
		seen[name] = true
		requested = append(requested, name)
	}

	for _, name := range requested {
		if _, ok := s.Piles[name]; !ok {
			return nil, invalid("You must specify piles which exist on the game", ErrUnknownPile).
				WithDetail("received", requested).
				WithDetail("valid", s.PileNames())
		}
	}

	touched := make(map[string]bool, len(requested))

	for _, name := range requested {
		pile := s.Piles[name]

		if includeDrawn && s.IsSource(name) {
			paired := s.DrawnPileFor(name)
			drawnPile, ok := s.Piles[paired]
			room := s.Counts[name] - len(pile)

			if ok && paired != name && room > 0 && len(drawnPile) > 0 {
				take := room
				if take > len(drawnPile) {
					take = len(drawnPile)
				}

				merged := make([]string, 0, len(pile)+take)
				merged = append(merged, pile...)
				merged = append(merged, drawnPile[:take]...)
				pile = merged

				rest := make([]string, len(drawnPile)-take)
				copy(rest, drawnPile[take:])
				s.Piles[paired] = rest
				touched[paired] = true
			}
		}

		s.Piles[name] = e.Shuffle(pile)
		touched[name] = true
	}

	result := &ShuffleResult{
		Piles:   make(map[string]PileStatus, len(s.Piles)),
		Touched: sortedKeys(touched),
	}

	for name, pile := range s.Piles {
		shuffled := seen[name]
		result.Piles[name] = PileStatus{Remaining: len(pile), Shuffled: &shuffled}
	}

	return result, nil
}
