package game

import (
	"sort"
	"strconv"
	"strings"
)

// GameState is the round lifecycle of a blackjack table
type GameState string

const (
	StateReady   GameState = "ready"   // No round in progress
	StatePlaying GameState = "playing" // Waiting on currentPlayer
)

// SeatStatus is a seat's position in the current round
type SeatStatus string

const (
	SeatPlaying  SeatStatus = "playing"
	SeatStanding SeatStatus = "standing"
	SeatBusted   SeatStatus = "busted"
)

// RoundStatus marks whether a round has been resolved
type RoundStatus string

const (
	RoundPlaying  RoundStatus = "playing"
	RoundComplete RoundStatus = "complete"
)

const (
	DealerSeat   = "dealer"
	PlayerPrefix = "player_"
	MinPlayers   = 1
	MaxPlayers   = 10
	ShoeDecks    = 6
)

// Seat is a player's (or the dealer's) hand
type Seat struct {
	Hand   []string   `json:"hand"`
	Values []int      `json:"values"`
	Status SeatStatus `json:"status,omitempty"`
}

// Shoe holds the undealt and dealt cards of a table
type Shoe struct {
	Main    []string `json:"main"`
	Discard []string `json:"discard"`
}

// Table tracks whose turn it is
type Table struct {
	State         GameState `json:"state"`
	CurrentPlayer *string   `json:"currentPlayer"`
}

// Round is one entry of the append-only round log
type Round struct {
	Round   int                `json:"round"`
	Status  RoundStatus        `json:"status"`
	Winners []string           `json:"winners"`
	Results map[string]Outcome `json:"results,omitempty"`
}

// Blackjack is the persisted state of a blackjack game
type Blackjack struct {
	ID      string           `json:"id"`
	Players map[string]*Seat `json:"players"`
	Cards   Shoe             `json:"cards"`
	Game    Table            `json:"game"`
	Rounds  []Round          `json:"rounds"`
}

// PlayerName returns the seat name of the i-th player
func PlayerName(i int) string {
	return PlayerPrefix + strconv.Itoa(i)
}

// NewSeats builds the dealer plus n empty player seats
func NewSeats(n int) map[string]*Seat {
	seats := make(map[string]*Seat, n+1)
	seats[DealerSeat] = &Seat{Hand: []string{}, Values: []int{}}
	for i := 0; i < n; i++ {
		seats[PlayerName(i)] = &Seat{Hand: []string{}, Values: []int{}}
	}
	return seats
}

// PlayerCount returns the number of non-dealer seats
func (g *Blackjack) PlayerCount() int {
	n := len(g.Players)
	if _, ok := g.Players[DealerSeat]; ok {
		n--
	}
	return n
}

// SeatOrder returns the dealing order: dealer, then players by number
func (g *Blackjack) SeatOrder() []string {
	order := make([]string, 0, len(g.Players))
	if _, ok := g.Players[DealerSeat]; ok {
		order = append(order, DealerSeat)
	}

	players := make([]string, 0, len(g.Players))
	for name := range g.Players {
		if name != DealerSeat {
			players = append(players, name)
		}
	}

	sort.Slice(players, func(i, j int) bool {
		a, aErr := strconv.Atoi(strings.TrimPrefix(players[i], PlayerPrefix))
		b, bErr := strconv.Atoi(strings.TrimPrefix(players[j], PlayerPrefix))
		if aErr == nil && bErr == nil {
			return a < b
		}
		if (aErr == nil) != (bErr == nil) {
			return aErr == nil
		}
		return players[i] < players[j]
	})

	return append(order, players...)
}

// Current returns the name and seat whose turn it is
func (g *Blackjack) Current() (string, *Seat, bool) {
	if g.Game.State != StatePlaying || g.Game.CurrentPlayer == nil {
		return "", nil, false
	}
	seat, ok := g.Players[*g.Game.CurrentPlayer]
	return *g.Game.CurrentPlayer, seat, ok
}

// NewBlackjack seats the dealer plus players and loads a fresh 6-deck shoe
func (e *Engine) NewBlackjack(id string, players int) (*Blackjack, error) {
	if players < MinPlayers || players > MaxPlayers {
		return nil, invalid("players must be between 1 and 10", ErrOutOfRange).WithDetail("players", players)
	}

	shoe, err := e.Deck(DeckOptions{Decks: ShoeDecks})
	if err != nil {
		return nil, err
	}

	return &Blackjack{
		ID:      id,
		Players: NewSeats(players),
		Cards:   Shoe{Main: shoe, Discard: []string{}},
		Game:    Table{State: StateReady},
		Rounds:  []Round{},
	}, nil
}

// Deal starts a round: two cards to every seat in order, the first player
// gets the turn and a round entry is appended.
func (e *Engine) Deal(g *Blackjack) error {
	if g.Game.State == StatePlaying {
		return conflict("This game is already in the started state", ErrAlreadyPlaying).
			WithDetail("state", g.Game.State)
	}

	order := g.SeatOrder()
	for _, name := range order {
		g.Players[name] = &Seat{Hand: []string{}, Values: []int{}}
	}

	dealt := e.take(g, len(order)*2)
	if len(dealt) < len(order)*2 {
		return conflict("The shoe does not hold enough cards to deal", ErrOutOfRange).
			WithDetail("remaining", len(dealt))
	}

	var current *string
	for i, name := range order {
		seat := g.Players[name]
		seat.Hand = dealt[i*2 : i*2+2 : i*2+2]
		seat.Status = SeatPlaying
		for _, code := range seat.Hand {
			pair, _ := e.Catalog.BlackjackValues(code)
			seat.Values = AddValues(seat.Values, pair)
		}

		if current == nil && name != DealerSeat {
			player := name
			current = &player
		}
	}

	g.Game = Table{State: StatePlaying, CurrentPlayer: current}
	g.Rounds = append(g.Rounds, Round{
		Round:   len(g.Rounds) + 1,
		Status:  RoundPlaying,
		Winners: []string{},
	})

	return nil
}

// Hit draws one card for the current player. A bust ends the turn.
func (e *Engine) Hit(g *Blackjack, player string) error {
	name, seat, err := turn(g, player)
	if err != nil {
		return err
	}

	drawn := e.take(g, 1)
	if len(drawn) == 0 {
		return conflict("The shoe is empty", ErrOutOfRange)
	}

	pair, _ := e.Catalog.BlackjackValues(drawn[0])
	seat.Hand = append(seat.Hand, drawn[0])
	seat.Values = AddValues(seat.Values, pair)

	if IsBust(seat.Values) {
		seat.Status = SeatBusted
		e.advance(g, name)
	}

	return nil
}

// Stay ends the current player's turn
func (e *Engine) Stay(g *Blackjack, player string) error {
	name, seat, err := turn(g, player)
	if err != nil {
		return err
	}

	seat.Status = SeatStanding
	e.advance(g, name)

	return nil
}

// Restart clears every hand and returns the table to ready. Cards and the
// round log are kept.
func (e *Engine) Restart(g *Blackjack) {
	g.Players = NewSeats(g.PlayerCount())
	g.Game = Table{State: StateReady}
}

func turn(g *Blackjack, player string) (string, *Seat, error) {
	name, seat, ok := g.Current()
	if !ok {
		return "", nil, conflict("This game is not in the started state", ErrNotPlaying).
			WithDetail("state", g.Game.State)
	}
	if player != "" && player != name {
		return "", nil, conflict("It is not this player's turn", ErrNotYourTurn).
			WithDetail("player", player).
			WithDetail("currentPlayer", name)
	}
	return name, seat, nil
}

// advance hands the turn to the next player still playing, or resolves the
// round when every player has acted.
func (e *Engine) advance(g *Blackjack, from string) {
	order := g.SeatOrder()

	passed := false
	for _, name := range order {
		if name == from {
			passed = true
			continue
		}
		if !passed || name == DealerSeat {
			continue
		}
		if g.Players[name].Status == SeatPlaying {
			next := name
			g.Game.CurrentPlayer = &next
			return
		}
	}

	e.resolve(g, order)
}

func (e *Engine) resolve(g *Blackjack, order []string) {
	dealer := g.Players[DealerSeat]

	for BestScore(dealer.Values) < DealerStandsOn {
		card := e.take(g, 1)
		if len(card) == 0 {
			break
		}
		pair, _ := e.Catalog.BlackjackValues(card[0])
		dealer.Hand = append(dealer.Hand, card[0])
		dealer.Values = AddValues(dealer.Values, pair)
	}

	if IsBust(dealer.Values) {
		dealer.Status = SeatBusted
	} else {
		dealer.Status = SeatStanding
	}

	results := make(map[string]Outcome, len(order))
	winners := []string{}
	anyPush := false

	for _, name := range order {
		if name == DealerSeat {
			continue
		}
		outcome := Settle(g.Players[name], dealer)
		results[name] = outcome

		switch outcome {
		case OutcomeWin, OutcomeBlackjack:
			winners = append(winners, name)
		case OutcomePush:
			anyPush = true
		}
	}

	if len(winners) == 0 && !anyPush {
		winners = append(winners, DealerSeat)
	}

	if n := len(g.Rounds); n > 0 {
		g.Rounds[n-1].Status = RoundComplete
		g.Rounds[n-1].Winners = winners
		g.Rounds[n-1].Results = results
	}

	g.Game = Table{State: StateReady}
}

// take removes n cards from the front of the shoe and appends them to the
// discard pile, refilling the shoe from the discard pile first when short.
func (e *Engine) take(g *Blackjack, n int) []string {
	if len(g.Cards.Main) < n {
		e.replenish(g)
	}
	if n > len(g.Cards.Main) {
		n = len(g.Cards.Main)
	}

	out := make([]string, n)
	copy(out, g.Cards.Main[:n])

	main := make([]string, len(g.Cards.Main)-n)
	copy(main, g.Cards.Main[n:])

	g.Cards.Main = main
	g.Cards.Discard = append(g.Cards.Discard, out...)

	return out
}

// replenish shuffles every discarded card not currently held in a hand back
// into the shoe.
func (e *Engine) replenish(g *Blackjack) {
	held := make(map[string]int)
	for _, seat := range g.Players {
		for _, code := range seat.Hand {
			held[code]++
		}
	}

	back := make([]string, 0, len(g.Cards.Discard))
	kept := make([]string, 0, len(g.Cards.Discard))
	for _, code := range g.Cards.Discard {
		if held[code] > 0 {
			held[code]--
			kept = append(kept, code)
			continue
		}
		back = append(back, code)
	}

	main := make([]string, 0, len(g.Cards.Main)+len(back))
	main = append(main, g.Cards.Main...)
	main = append(main, e.Shuffle(back)...)

	g.Cards.Main = main
	g.Cards.Discard = kept
}
