package service

import (
	"context"

	"github.com/calvinwijaya/card-games-api/internal/events"
	"github.com/calvinwijaya/card-games-api/internal/game"
	"github.com/calvinwijaya/card-games-api/internal/store"
	"github.com/calvinwijaya/card-games-api/internal/types"
)

// Table actions
const (
	ActionStart   = "start"
	ActionRestart = "restart"
)

// Turn actions
const (
	ActionHit  = "hit"
	ActionStay = "stay"
)

// PileCount is the redacted view of a shoe pile
type PileCount struct {
	Remaining int `json:"remaining"`
}

// ShoeView redacts the shoe to its counts
type ShoeView struct {
	Main    PileCount `json:"main"`
	Discard PileCount `json:"discard"`
}

// TableView is the full state of a blackjack game with the shoe redacted.
// Players holds every seat plus a "count" of non-dealer seats.
type TableView struct {
	ID      string         `json:"id"`
	Players map[string]any `json:"players"`
	Cards   ShoeView       `json:"cards"`
	Game    game.Table     `json:"game"`
	Rounds  []game.Round   `json:"rounds"`
}

// HandView is a seat with its cards resolved and its best score
type HandView struct {
	Name   string          `json:"name"`
	Hand   []*game.Card    `json:"hand"`
	Values []int           `json:"values"`
	Score  int             `json:"score"`
	Status game.SeatStatus `json:"status,omitempty"`
}

// DealtGame describes the table right after a deal
type DealtGame struct {
	CurrentPlayer *HandView      `json:"currentPlayer"`
	OtherPlayers  []HandView     `json:"otherPlayers"`
	State         game.GameState `json:"state"`
}

// DealView is the response to starting a round
type DealView struct {
	ID     string       `json:"id"`
	Rounds []game.Round `json:"rounds"`
	Game   DealtGame    `json:"game"`
}

// TurnView shows whose turn it is
type TurnView struct {
	CurrentPlayer HandView `json:"currentPlayer"`
	Cards         ShoeView `json:"cards"`
}

// PlayView is the response to a hit or a stay
type PlayView struct {
	ID     string     `json:"id"`
	Action string     `json:"action"`
	Player HandView   `json:"player"`
	Game   game.Table `json:"game"`
	// Round is the latest round; Dealer is revealed once it is complete
	Round  *game.Round `json:"round,omitempty"`
	Dealer *HandView   `json:"dealer,omitempty"`
	Cards  ShoeView    `json:"cards"`
}

// CreateBlackjack seats players plus the dealer and stores the new game
func (s *Service) CreateBlackjack(ctx context.Context, players int) (*TableView, error) {
	g, err := s.engine.NewBlackjack(s.newID(), players)
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, store.KindBlackjack, g.ID, g); err != nil {
		return nil, err
	}

	s.publish(ctx, events.GameCreated, store.KindBlackjack, g.ID, map[string]any{"players": players})

	return tableView(g), nil
}

// Blackjack returns the state of game id
func (s *Service) Blackjack(ctx context.Context, id string) (*TableView, error) {
	g, _, err := s.loadBlackjack(ctx, id)
	if err != nil {
		return nil, err
	}
	return tableView(g), nil
}

// Start deals a new round
func (s *Service) Start(ctx context.Context, id string) (*DealView, error) {
	g, version, err := s.loadBlackjack(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Deal(g); err != nil {
		return nil, err
	}

	patch := store.Patch{
		store.Set(g.Players, "players"),
		store.Set(g.Cards, "cards"),
		store.Set(g.Game, "game"),
		store.Append(g.Rounds[len(g.Rounds)-1:], "rounds"),
	}
	if err := s.update(ctx, store.KindBlackjack, id, version, patch); err != nil {
		return nil, err
	}

	s.publish(ctx, events.RoundDealt, store.KindBlackjack, id, map[string]any{
		"round":         len(g.Rounds),
		"currentPlayer": g.Game.CurrentPlayer,
	})

	return s.dealView(g), nil
}

// Restart clears every hand and returns the table to ready
func (s *Service) Restart(ctx context.Context, id string) (*TableView, error) {
	g, version, err := s.loadBlackjack(ctx, id)
	if err != nil {
		return nil, err
	}

	s.engine.Restart(g)

	patch := store.Patch{
		store.Set(g.Players, "players"),
		store.Set(g.Game, "game"),
	}
	if err := s.update(ctx, store.KindBlackjack, id, version, patch); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TableRestarted, store.KindBlackjack, id, nil)

	return tableView(g), nil
}

// Turn returns the hand of the player whose turn it is
func (s *Service) Turn(ctx context.Context, id string) (*TurnView, error) {
	g, _, err := s.loadBlackjack(ctx, id)
	if err != nil {
		return nil, err
	}

	name, seat, ok := g.Current()
	if !ok {
		return nil, types.WrapError(types.ErrConflict, "This game is not in the started state", game.ErrNotPlaying).
			WithDetail("state", g.Game.State)
	}

	return &TurnView{
		CurrentPlayer: s.handView(name, seat),
		Cards:         shoeView(g),
	}, nil
}

// Hit draws a card for the current player. player may be empty.
func (s *Service) Hit(ctx context.Context, id, player string) (*PlayView, error) {
	return s.play(ctx, id, ActionHit, player)
}

// Stay ends the current player's turn. player may be empty.
func (s *Service) Stay(ctx context.Context, id, player string) (*PlayView, error) {
	return s.play(ctx, id, ActionStay, player)
}

func (s *Service) play(ctx context.Context, id, action, player string) (*PlayView, error) {
	g, version, err := s.loadBlackjack(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, _, ok := g.Current()
	if !ok {
		return nil, types.WrapError(types.ErrConflict, "This game is not in the started state", game.ErrNotPlaying).
			WithDetail("state", g.Game.State)
	}

	switch action {
	case ActionHit:
		err = s.engine.Hit(g, player)
	case ActionStay:
		err = s.engine.Stay(g, player)
	default:
		err = types.NewGameError(types.ErrInvalidInput, "action must be one of hit, stay").WithDetail("action", action)
	}
	if err != nil {
		return nil, err
	}

	resolved := g.Game.State == game.StateReady

	patch := store.Patch{
		store.Set(g.Players, "players"),
		store.Set(g.Cards, "cards"),
		store.Set(g.Game, "game"),
	}
	if resolved {
		patch = append(patch, store.Set(g.Rounds, "rounds"))
	}
	if err := s.update(ctx, store.KindBlackjack, id, version, patch); err != nil {
		return nil, err
	}

	view := &PlayView{
		ID:     id,
		Action: action,
		Player: s.handView(actor, g.Players[actor]),
		Game:   g.Game,
		Cards:  shoeView(g),
	}
	if n := len(g.Rounds); n > 0 {
		round := g.Rounds[n-1]
		view.Round = &round
	}

	s.publish(ctx, events.TurnPlayed, store.KindBlackjack, id, map[string]any{
		"action": action,
		"player": actor,
		"values": g.Players[actor].Values,
	})

	if resolved {
		dealer := s.handView(game.DealerSeat, g.Players[game.DealerSeat])
		view.Dealer = &dealer
		s.publish(ctx, events.RoundResolved, store.KindBlackjack, id, view.Round)
	}

	return view, nil
}

func (s *Service) loadBlackjack(ctx context.Context, id string) (*game.Blackjack, int64, error) {
	var g game.Blackjack
	version, err := s.load(ctx, store.KindBlackjack, id, &g)
	if err != nil {
		return nil, 0, err
	}
	return &g, version, nil
}

func (s *Service) dealView(g *game.Blackjack) *DealView {
	view := &DealView{
		ID:     g.ID,
		Rounds: g.Rounds,
		Game: DealtGame{
			OtherPlayers: []HandView{},
			State:        g.Game.State,
		},
	}

	for _, name := range g.SeatOrder() {
		hand := s.handView(name, g.Players[name])
		if g.Game.CurrentPlayer != nil && name == *g.Game.CurrentPlayer {
			view.Game.CurrentPlayer = &hand
			continue
		}
		view.Game.OtherPlayers = append(view.Game.OtherPlayers, hand)
	}

	return view
}

func (s *Service) handView(name string, seat *game.Seat) HandView {
	if seat == nil {
		return HandView{Name: name, Hand: []*game.Card{}, Values: []int{}}
	}
	return HandView{
		Name:   name,
		Hand:   s.engine.Catalog.Resolve(seat.Hand),
		Values: seat.Values,
		Score:  game.BestScore(seat.Values),
		Status: seat.Status,
	}
}

func tableView(g *game.Blackjack) *TableView {
	players := make(map[string]any, len(g.Players)+1)
	for name, seat := range g.Players {
		players[name] = seat
	}
	players["count"] = g.PlayerCount()

	rounds := g.Rounds
	if rounds == nil {
		rounds = []game.Round{}
	}

	return &TableView{
		ID:      g.ID,
		Players: players,
		Cards:   shoeView(g),
		Game:    g.Game,
		Rounds:  rounds,
	}
}

func shoeView(g *game.Blackjack) ShoeView {
	return ShoeView{
		Main:    PileCount{Remaining: len(g.Cards.Main)},
		Discard: PileCount{Remaining: len(g.Cards.Discard)},
	}
}
