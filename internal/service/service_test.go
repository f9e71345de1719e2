package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/calvinwijaya/card-games-api/internal/events"
	"github.com/calvinwijaya/card-games-api/internal/game"
	"github.com/calvinwijaya/card-games-api/internal/store"
	mock_store "github.com/calvinwijaya/card-games-api/internal/store/mock"
	"github.com/calvinwijaya/card-games-api/internal/types"
)

// orderedSource never swaps, so every shuffle keeps catalog order
type orderedSource struct{}

func (orderedSource) IntN(n int) int { return n - 1 }

// recorder keeps every published event
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type ServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *store.MemoryStore
	events   *recorder
	service  *Service
	clock    time.Time
	clockMux sync.Mutex
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) now() time.Time {
	s.clockMux.Lock()
	defer s.clockMux.Unlock()
	return s.clock
}

func (s *ServiceTestSuite) advance(d time.Duration) {
	s.clockMux.Lock()
	defer s.clockMux.Unlock()
	s.clock = s.clock.Add(d)
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = testNow
	s.store = store.NewMemoryStore().WithClock(s.now)
	s.events = &recorder{}

	engine := game.NewEngine(game.NewCatalog(""), orderedSource{})
	s.service = New(engine, s.store, Config{
		TTL:      time.Hour,
		Notifier: s.events,
	}).WithClock(s.now)
}

func (s *ServiceTestSuite) session(id string) game.PileSession {
	rec, err := s.store.Get(s.ctx, store.KindPoker, id)
	s.Require().NoError(err)

	var session game.PileSession
	s.Require().NoError(json.Unmarshal(rec.Doc, &session))
	return session
}

func (s *ServiceTestSuite) table(id string) game.Blackjack {
	rec, err := s.store.Get(s.ctx, store.KindBlackjack, id)
	s.Require().NoError(err)

	var g game.Blackjack
	s.Require().NoError(json.Unmarshal(rec.Doc, &g))
	return g
}

func (s *ServiceTestSuite) TestListCards() {
	all := s.service.ListCards(false, 0)
	s.Len(all, 52)
	s.Equal("AC", all[0].Code)
	s.Equal("https://apiof-cards.vercel.app/static/poker/fronts/AC.png", all[0].Image)

	s.Len(s.service.ListCards(true, 5), 5)
	s.Len(s.service.ListCards(false, 100), 52)
}

func (s *ServiceTestSuite) TestCreateSession() {
	created, err := s.service.CreateSession(s.ctx, []game.PileSpec{
		{Name: "main", DeckOptions: game.DeckOptions{Cards: 52}},
		{Name: "extra", DeckOptions: game.DeckOptions{Decks: 2}},
	}, "")
	s.Require().NoError(err)

	s.True(store.IsValidID(created.GameID))
	s.Equal(map[string]CreatedPile{
		"main":        {Created: true, Remaining: 52},
		"main_drawn":  {Created: true, Remaining: 0},
		"extra":       {Created: true, Remaining: 104},
		"extra_drawn": {Created: true, Remaining: 0},
	}, created.Piles)

	rec, err := s.store.Get(s.ctx, store.KindPoker, created.GameID)
	s.Require().NoError(err)
	s.Equal(testNow.Add(time.Hour), rec.ExpiresAt)
	s.Equal([]events.Type{events.GameCreated}, s.events.types())
}

func (s *ServiceTestSuite) TestCreateSessionInvalid() {
	_, err := s.service.CreateSession(s.ctx, []game.PileSpec{{Name: "a"}, {Name: "a_drawn"}}, "")
	s.True(types.IsGameError(err, types.ErrInvalidInput))
	s.ErrorIs(err, game.ErrReservedPileName)
	s.Empty(s.events.types())
}

func (s *ServiceTestSuite) TestCreateDeck() {
	created, err := s.service.CreateDeck(s.ctx, []game.PileSpec{{Name: "main", DeckOptions: game.DeckOptions{Cards: 3}}})
	s.Require().NoError(err)

	s.Require().Len(created.Piles["main"], 3)
	s.Equal("AC", created.Piles["main"][0].Code)
	s.Empty(created.Piles["main_drawn"])
}

func (s *ServiceTestSuite) TestDrawTruncatesShortPile() {
	created, err := s.service.CreateSession(s.ctx, nil, "")
	s.Require().NoError(err)

	drawn, err := s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Pile: "main", Count: 60})
	s.Require().NoError(err)

	s.Equal(52, drawn.Drawn.Count)
	s.Len(drawn.Drawn.Cards, 52)
	s.Equal(0, drawn.Remaining)
	s.Equal(created.GameID, drawn.GameID)

	session := s.session(created.GameID)
	s.Empty(session.Piles["main"])
	s.Len(session.Piles["main_drawn"], 52)
}

func (s *ServiceTestSuite) TestDrawRefreshesExpiry() {
	created, err := s.service.CreateSession(s.ctx, nil, "")
	s.Require().NoError(err)

	s.advance(30 * time.Minute)
	_, err = s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Count: 2})
	s.Require().NoError(err)

	rec, err := s.store.Get(s.ctx, store.KindPoker, created.GameID)
	s.Require().NoError(err)
	s.Equal(testNow.Add(90*time.Minute), rec.ExpiresAt)
	s.Equal(int64(2), rec.Version)
}

func (s *ServiceTestSuite) TestDrawForceAndDiscard() {
	created, err := s.service.CreateSession(s.ctx, []game.PileSpec{
		{Name: "a", DeckOptions: game.DeckOptions{Cards: 5}},
		{Name: "b", DeckOptions: game.DeckOptions{Cards: 5}},
	}, "table")
	s.Require().NoError(err)
	s.Contains(created.Piles, "table")
	s.NotContains(created.Piles, "a_drawn")

	_, err = s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Pile: "a", Count: 4})
	s.Require().NoError(err)

	drawn, err := s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Pile: "a", Count: 3, Force: true})
	s.Require().NoError(err)
	s.Equal(3, drawn.Drawn.Count)
	s.Equal(2, drawn.Remaining)

	session := s.session(created.GameID)
	s.Len(session.Piles["table"], 3)
	s.Len(session.Piles["b"], 5)
}

func (s *ServiceTestSuite) TestDrawLenientFallback() {
	created, err := s.service.CreateSession(s.ctx, []game.PileSpec{{Name: "solo"}}, "")
	s.Require().NoError(err)

	_, err = s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Pile: "main", Count: 1})
	s.True(types.IsGameError(err, types.ErrInvalidInput))

	drawn, err := s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Pile: "main", Count: 1, Lenient: true})
	s.Require().NoError(err)
	s.Equal("solo", drawn.Pile)
	s.Equal(51, drawn.Remaining)
}

func (s *ServiceTestSuite) TestDrawUnknownGame() {
	_, err := s.service.Draw(s.ctx, store.NewID(), game.DrawRequest{Count: 1})

	var gameErr *types.GameError
	s.Require().True(types.As(err, &gameErr))
	s.Equal(types.ErrNotFound, gameErr.Code)
	s.Contains(gameErr.Details, "gameId")
}

func (s *ServiceTestSuite) TestShuffle() {
	created, err := s.service.CreateSession(s.ctx, nil, "")
	s.Require().NoError(err)

	_, err = s.service.Draw(s.ctx, created.GameID, game.DrawRequest{Count: 10})
	s.Require().NoError(err)

	shuffled, err := s.service.Shuffle(s.ctx, created.GameID, []string{"main"}, true)
	s.Require().NoError(err)

	s.Equal(52, shuffled.Piles["main"].Remaining)
	s.True(*shuffled.Piles["main"].Shuffled)
	s.Equal(0, shuffled.Piles["main_drawn"].Remaining)
	s.False(*shuffled.Piles["main_drawn"].Shuffled)

	session := s.session(created.GameID)
	s.Len(session.Piles["main"], 52)
	s.Empty(session.Piles["main_drawn"])
}

func (s *ServiceTestSuite) TestShuffleUnknownPile() {
	created, err := s.service.CreateSession(s.ctx, nil, "")
	s.Require().NoError(err)

	_, err = s.service.Shuffle(s.ctx, created.GameID, []string{"nope"}, false)
	s.True(types.IsGameError(err, types.ErrInvalidInput))
}

func (s *ServiceTestSuite) TestSummaryAndDelete() {
	created, err := s.service.CreateSession(s.ctx, nil, "")
	s.Require().NoError(err)

	summary, err := s.service.Summary(s.ctx, created.GameID)
	s.Require().NoError(err)
	s.Equal(created.GameID, summary.ID)
	s.Equal(52, summary.Piles["main"].Remaining)
	s.Nil(summary.Piles["main"].Shuffled)

	deleted, err := s.service.DeleteSession(s.ctx, created.GameID)
	s.Require().NoError(err)
	s.True(deleted.Deleted)

	_, err = s.service.Summary(s.ctx, created.GameID)
	s.True(types.IsGameError(err, types.ErrNotFound))

	_, err = s.service.DeleteSession(s.ctx, created.GameID)
	s.True(types.IsGameError(err, types.ErrNotFound))
}

func (s *ServiceTestSuite) TestExpiredSessionIsNotFound() {
	created, err := s.service.CreateSession(s.ctx, nil, "")
	s.Require().NoError(err)

	s.advance(2 * time.Hour)

	_, err = s.service.Summary(s.ctx, created.GameID)
	s.True(types.IsGameError(err, types.ErrNotFound))
}

func (s *ServiceTestSuite) TestBlackjackScenario() {
	created, err := s.service.CreateBlackjack(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1, created.Players["count"])
	s.Equal(312, created.Cards.Main.Remaining)
	s.Equal(game.StateReady, created.Game.State)

	dealt, err := s.service.Start(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(game.StatePlaying, dealt.Game.State)
	s.Require().NotNil(dealt.Game.CurrentPlayer)
	s.Equal("player_0", dealt.Game.CurrentPlayer.Name)
	s.Len(dealt.Game.CurrentPlayer.Hand, 2)
	s.Require().Len(dealt.Game.OtherPlayers, 1)
	s.Equal("dealer", dealt.Game.OtherPlayers[0].Name)
	s.Len(dealt.Rounds, 1)

	stored := s.table(created.ID)
	s.Len(stored.Cards.Main, 308)
	s.Len(stored.Cards.Discard, 4)
	s.Len(stored.Rounds, 1)

	_, err = s.service.Start(s.ctx, created.ID)
	s.True(types.IsGameError(err, types.ErrConflict))
	s.ErrorIs(err, game.ErrAlreadyPlaying)

	restarted, err := s.service.Restart(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(1, restarted.Players["count"])
	s.Equal(game.StateReady, restarted.Game.State)
	s.Len(restarted.Rounds, 1)

	stored = s.table(created.ID)
	s.Empty(stored.Players["player_0"].Hand)
	s.Empty(stored.Players["dealer"].Hand)
	s.Len(stored.Cards.Main, 308)
}

func (s *ServiceTestSuite) TestTurnAndStayResolvesRound() {
	created, err := s.service.CreateBlackjack(s.ctx, 1)
	s.Require().NoError(err)

	_, err = s.service.Turn(s.ctx, created.ID)
	s.True(types.IsGameError(err, types.ErrConflict))

	_, err = s.service.Start(s.ctx, created.ID)
	s.Require().NoError(err)

	turn, err := s.service.Turn(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("player_0", turn.CurrentPlayer.Name)
	s.Equal([]int{2, 22}, turn.CurrentPlayer.Values)
	s.Equal(12, turn.CurrentPlayer.Score)

	_, err = s.service.Stay(s.ctx, created.ID, "player_7")
	s.ErrorIs(err, game.ErrNotYourTurn)

	played, err := s.service.Stay(s.ctx, created.ID, "player_0")
	s.Require().NoError(err)

	s.Equal("player_0", played.Player.Name)
	s.Equal(game.SeatStanding, played.Player.Status)
	s.Equal(game.StateReady, played.Game.State)
	s.Nil(played.Game.CurrentPlayer)
	s.Require().NotNil(played.Dealer)
	s.Equal(18, played.Dealer.Score)
	s.Require().NotNil(played.Round)
	s.Equal(game.RoundComplete, played.Round.Status)
	s.Equal([]string{"dealer"}, played.Round.Winners)
	s.Equal(game.OutcomeLose, played.Round.Results["player_0"])

	stored := s.table(created.ID)
	s.Equal(game.RoundComplete, stored.Rounds[0].Status)
	s.Len(stored.Cards.Discard, 7)
	s.Len(stored.Cards.Main, 305)

	s.Equal([]events.Type{
		events.GameCreated,
		events.RoundDealt,
		events.TurnPlayed,
		events.RoundResolved,
	}, s.events.types())
}

func (s *ServiceTestSuite) TestHit() {
	created, err := s.service.CreateBlackjack(s.ctx, 2)
	s.Require().NoError(err)
	_, err = s.service.Start(s.ctx, created.ID)
	s.Require().NoError(err)

	played, err := s.service.Hit(s.ctx, created.ID, "")
	s.Require().NoError(err)

	s.Equal("player_0", played.Player.Name)
	s.Len(played.Player.Hand, 3)
	s.Equal(game.StatePlaying, played.Game.State)
	s.Nil(played.Dealer)

	stored := s.table(created.ID)
	s.Len(stored.Players["player_0"].Hand, 3)
	s.Len(stored.Cards.Discard, 7)
}

func (s *ServiceTestSuite) TestBlackjackNotFound() {
	_, err := s.service.Blackjack(s.ctx, store.NewID())
	s.True(types.IsGameError(err, types.ErrNotFound))
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	engine := game.NewEngine(game.NewCatalog(""), orderedSource{})

	t.Run("get failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mock_store.NewMockStore(ctrl)
		st.EXPECT().Get(gomock.Any(), store.KindPoker, "id").Return(nil, errors.New("connection refused"))

		_, err := New(engine, st, Config{}).Summary(ctx, "id")

		var gameErr *types.GameError
		require.True(t, types.As(err, &gameErr))
		assert.Equal(t, types.ErrInternalError, gameErr.Code)
		assert.Equal(t, msgInternal, gameErr.Message)
	})

	t.Run("stale version is conflict", func(t *testing.T) {
		session, err := engine.NewPileSession("id", nil, "")
		require.NoError(t, err)
		doc, err := json.Marshal(session)
		require.NoError(t, err)

		ctrl := gomock.NewController(t)
		st := mock_store.NewMockStore(ctrl)
		st.EXPECT().Get(gomock.Any(), store.KindPoker, "id").
			Return(&store.Record{Kind: store.KindPoker, ID: "id", Doc: doc, Version: 3}, nil)
		st.EXPECT().Update(gomock.Any(), store.KindPoker, "id", int64(3), gomock.Any(), gomock.Any()).
			Return(nil, store.ErrVersionConflict)

		_, err = New(engine, st, Config{}).Draw(ctx, "id", game.DrawRequest{Count: 1})
		assert.True(t, types.IsGameError(err, types.ErrConflict))
		assert.ErrorIs(t, err, store.ErrVersionConflict)
	})

	t.Run("create failure publishes nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mock_store.NewMockStore(ctrl)
		st.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		events := &recorder{}
		_, err := New(engine, st, Config{Notifier: events}).CreateBlackjack(ctx, 1)
		assert.True(t, types.IsGameError(err, types.ErrInternalError))
		assert.Empty(t, events.types())
	})
}
