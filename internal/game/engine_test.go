package game

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/bot"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/lox/ohhell/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupGameValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		players int
		rounds  int
		wantErr bool
	}{
		{name: "three players one round", players: 3, rounds: 1},
		{name: "three players thirteen rounds", players: 3, rounds: 13},
		{name: "too few players", players: 2, rounds: 3, wantErr: true},
		{name: "too many players", players: 7, rounds: 3, wantErr: true},
		{name: "zero rounds", players: 3, rounds: 0, wantErr: true},
		{name: "fourteen rounds", players: 3, rounds: 14, wantErr: true},
		{name: "six players four rounds fit the deck", players: 6, rounds: 4},
		{name: "six players five rounds overflow the deck", players: 6, rounds: 5, wantErr: true},
		{name: "five players capped hands fit the deck", players: 5, rounds: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t)
			names := make([]string, tt.players)
			err := e.SetupGame(names, tt.rounds)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Equal(t, PhaseSetup, e.Phase())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PhaseBidding, e.Phase())
		})
	}

	assert.Equal(t, 4, MaxRoundsFor(6))
	assert.Equal(t, 13, MaxRoundsFor(5))
	assert.Equal(t, 13, MaxRoundsFor(3))
}

func TestSetupGameSeatsPlayers(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.SetupGame([]string{"Ann", "  ", "Cy"}, 3))

	s := e.Snapshot()
	require.Len(t, s.Players, 3)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "player-0", s.HumanPlayerID)

	for i, p := range s.Players {
		assert.Equal(t, fmt.Sprintf("player-%d", i), p.ID)
		assert.Equal(t, i == 0, p.IsHuman)
		assert.Len(t, p.Hand, 5)
		assert.Zero(t, p.Points)
	}
	assert.Equal(t, "Ann", s.Players[0].Name)
	assert.Equal(t, "Player 2", s.Players[1].Name)
	assert.Equal(t, "Cy", s.Players[2].Name)

	assert.Equal(t, 1, s.RoundNumber)
	assert.Equal(t, 3, s.TotalRounds)
	assert.Equal(t, 5, s.CardsPerRound)
	assert.Equal(t, 1, s.DealerIndex)

	// Seat 2 bids first and is an AI, so the human is up next.
	assert.True(t, s.Players[2].Bid.Declared)
	assert.False(t, s.Players[0].Bid.Declared)
	assert.False(t, s.Players[1].Bid.Declared)
	assert.Equal(t, 0, s.ActivePlayerIndex)
	assert.True(t, s.Players[0].IsActive)

	assert.True(t, s.HasTrump)
	assert.Equal(t, s.TrumpCard.Suit, s.TrumpSuit)
	assert.Equal(t, []cards.Card{s.TrumpCard}, s.DiscardPile)
	assert.Len(t, s.Deck, cards.DeckSize-15-1)
	assert.Equal(t, cards.DeckSize, s.CardCount())

	assert.ErrorIs(t, e.SetupGame([]string{"a", "b", "c"}, 3), ErrWrongPhase)
}

func TestBidConstraint(t *testing.T) {
	t.Parallel()

	// Seat 2 bids first; a fixed bid of three leaves the human bidding
	// on top of three with five cards dealt.
	setup := func(t *testing.T) *Engine {
		e := newTestEngine(t, WithPolicy(fixedBidPolicy{count: 3}))
		require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))
		s := e.Snapshot()
		require.Equal(t, 3, s.DeclaredTotal())
		require.Equal(t, 5, s.CardsPerRound)
		forbidden, ok := s.ForbiddenBid()
		require.True(t, ok)
		require.Equal(t, 2, forbidden)
		assert.Equal(t, []int{0, 1, 3, 4, 5}, s.AllowedBids())
		return e
	}

	t.Run("total equal to cards dealt is rejected", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		before := e.Snapshot()
		assert.ErrorIs(t, e.DeclareTricks("player-0", 2), ErrForbiddenBidTotal)
		assert.Equal(t, before, e.Snapshot())
	})

	for _, n := range []int{1, 3} {
		t.Run(fmt.Sprintf("bid of %d is accepted", n), func(t *testing.T) {
			t.Parallel()
			e := setup(t)
			require.NoError(t, e.DeclareTricks("player-0", n))
			s := e.Snapshot()
			assert.Equal(t, Declared(n), s.Players[0].Bid)
			assert.Equal(t, PhasePlaying, s.Phase, "dealer bids last, then play starts")
		})
	}

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		assert.ErrorIs(t, e.DeclareTricks("player-0", -1), ErrBidOutOfRange)
		assert.ErrorIs(t, e.DeclareTricks("player-0", 6), ErrBidOutOfRange)
	})
}

func TestRejectedIntentsLeaveStateUnchanged(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	rec := &recorder{}
	e.Subscribe(rec)

	assert.ErrorIs(t, e.DeclareTricks("player-0", 1), ErrWrongPhase)
	assert.ErrorIs(t, e.AdvanceRound(), ErrWrongPhase)

	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 2))
	published := len(rec.all())
	before := e.Snapshot()

	tests := []struct {
		name   string
		intent func() error
		want   error
	}{
		{name: "play during bidding", intent: func() error { return e.PlayCard("player-0", before.Players[0].Hand[0].ID()) }, want: ErrWrongPhase},
		{name: "advance during bidding", intent: e.AdvanceRound, want: ErrWrongPhase},
		{name: "setup twice", intent: func() error { return e.SetupGame([]string{"a", "b", "c"}, 1) }, want: ErrWrongPhase},
		{name: "out of turn", intent: func() error { return e.DeclareTricks("player-1", 1) }, want: ErrNotYourTurn},
		{name: "unknown player", intent: func() error { return e.DeclareTricks("player-9", 1) }, want: ErrUnknownPlayer},
		{name: "bid too high", intent: func() error { return e.DeclareTricks("player-0", 99) }, want: ErrBidOutOfRange},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, tt.intent(), tt.want, tt.name)
		assert.Equal(t, before, e.Snapshot(), tt.name)
	}
	assert.Len(t, rec.all(), published, "rejected intents publish nothing")
}

func TestPlayCardRejections(t *testing.T) {
	t.Parallel()

	// Alice leads the king of trumps and Bob follows, so the human must
	// follow spades with 2s.
	e := riggedEngine(t, 0, [3]string{"Ah 2s", "Ks 3h", "4s 5d"}, "Qs")
	s := e.Snapshot()
	require.Equal(t, PhasePlaying, s.Phase)
	require.Equal(t, 0, s.ActivePlayerIndex)
	require.Equal(t, 2, s.CurrentTrick.Len())
	assert.Equal(t, cards.MustParseCards("2s"), s.PlayableCards("player-0"))
	assert.Empty(t, s.PlayableCards("player-1"))

	tests := []struct {
		name   string
		player string
		card   string
		want   error
	}{
		{name: "garbage id", player: "player-0", card: "bogus", want: ErrUnknownCard},
		{name: "card not held", player: "player-0", card: "diamonds-14", want: ErrCardNotInHand},
		{name: "must follow suit", player: "player-0", card: "hearts-14", want: ErrIllegalCard},
		{name: "not the active player", player: "player-1", card: "hearts-3", want: ErrNotYourTurn},
		{name: "unknown player", player: "nobody", card: "spades-2", want: ErrUnknownPlayer},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, e.PlayCard(tt.player, tt.card), tt.want, tt.name)
		assert.Equal(t, s, e.Snapshot(), tt.name)
	}
	assert.ErrorIs(t, e.DeclareTricks("player-0", 1), ErrWrongPhase)

	require.NoError(t, e.PlayCard("player-0", "spades-2"))
	s = e.Snapshot()
	require.NotNil(t, s.LastTrick)
	assert.Equal(t, "player-1", s.LastTrick.WinnerID)
	assert.Equal(t, 1, s.Players[1].WonTricks)
}

func TestTrickResolutionAndScoring(t *testing.T) {
	t.Parallel()

	// The human leads. Trick one: Ah Kh 5h, the ace wins. Trick two: 2c,
	// Alice is void in clubs and must trump with 3s, Bob discards 4d.
	e := riggedEngine(t, 2, [3]string{"Ah 2c", "Kh 3s", "5h 4d"}, "Qs")
	rec := &recorder{}
	e.Subscribe(rec)

	require.NoError(t, e.PlayCard("player-0", "hearts-14"))
	s := e.Snapshot()
	require.NotNil(t, s.LastTrick)
	assert.Equal(t, "player-0", s.LastTrick.WinnerID)
	assert.Equal(t, cards.MustParseCards("Ah Kh 5h"), rules.Trick{Plays: s.LastTrick.Plays}.Cards())
	assert.Equal(t, 0, s.ActivePlayerIndex, "trick winner leads")
	assert.True(t, s.CurrentTrick.IsEmpty())

	require.NoError(t, e.PlayCard("player-0", "clubs-2"))
	s = e.Snapshot()
	assert.Equal(t, PhaseScoring, s.Phase)
	assert.Equal(t, NoActivePlayer, s.ActivePlayerIndex)
	for _, p := range s.Players {
		assert.False(t, p.IsActive)
		assert.Empty(t, p.Hand)
	}
	assert.Equal(t, "player-1", s.LastTrick.WinnerID)

	require.Len(t, s.History, 1)
	assert.Equal(t, []PlayerResult{
		{PlayerID: "player-0", Declared: 1, Won: 1, Points: 13},
		{PlayerID: "player-1", Declared: 1, Won: 1, Points: 13},
		{PlayerID: "player-2", Declared: 1, Won: 0, Points: 0},
	}, s.History[0].Results)
	assert.Equal(t, cards.Spades, s.History[0].TrumpSuit)
	assert.Equal(t, cards.DeckSize, s.CardCount())

	require.NoError(t, e.AdvanceRound())
	s = e.Snapshot()
	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, 1, s.RoundNumber)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "player-0", s.Winner.ID, "ties go to the earlier seat")
	assert.ErrorIs(t, e.AdvanceRound(), ErrWrongPhase)

	assert.Equal(t, 2, rec.count(EventTypeTrickCompleted))
	assert.Equal(t, 1, rec.count(EventTypeRoundScored))
	assert.Equal(t, 1, rec.count(EventTypeGameOver))
}

func TestEndToEndGames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		players int
		rounds  int
		seed    int64
	}{
		{players: 3, rounds: 3, seed: 1},
		{players: 3, rounds: 3, seed: 2},
		{players: 4, rounds: 8, seed: 3},
		{players: 5, rounds: 13, seed: 4},
		{players: 6, rounds: 4, seed: 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dp_%dr_seed%d", tt.players, tt.rounds, tt.seed), func(t *testing.T) {
			t.Parallel()

			e := NewEngine(WithRNG(randutil.New(tt.seed)), WithLogger(quietLogger()))
			rec := &recorder{}
			e.Subscribe(rec)

			require.NoError(t, e.SetupGame(make([]string, tt.players), tt.rounds))
			playToEnd(t, e, randutil.New(tt.seed+100))

			s := e.Snapshot()
			assert.Equal(t, PhaseGameOver, s.Phase)
			assert.Equal(t, tt.rounds, s.RoundNumber)
			assert.Equal(t, NoActivePlayer, s.ActivePlayerIndex)
			require.Len(t, s.History, tt.rounds)

			tricks := 0
			for i, h := range s.History {
				assert.Equal(t, i+1, h.Round)
				won := 0
				for _, r := range h.Results {
					won += r.Won
					assert.Equal(t, rules.RoundPoints(r.Declared, r.Won), r.Points)
				}
				assert.Equal(t, rules.CardsForRound(h.Round), won, "every trick of round %d is won once", h.Round)
				tricks += won
			}

			best := 0
			for _, p := range s.Players {
				total := 0
				for _, h := range s.History {
					for _, r := range h.Results {
						if r.PlayerID == p.ID {
							total += r.Points
						}
					}
				}
				assert.Equal(t, total, p.Points, p.ID)
				best = max(best, p.Points)
			}
			require.NotNil(t, s.Winner)
			assert.Equal(t, best, s.Winner.Points)
			assert.Equal(t, s.Leaderboard()[0].ID, s.Winner.ID)

			assert.Equal(t, tt.rounds, rec.count(EventTypeRoundStarted))
			assert.Equal(t, tt.rounds, rec.count(EventTypeRoundScored))
			assert.Equal(t, tt.players*tt.rounds, rec.count(EventTypeBidDeclared))
			assert.Equal(t, tricks, rec.count(EventTypeTrickCompleted))
			assert.Equal(t, tricks*tt.players, rec.count(EventTypeCardPlayed))
			assert.Equal(t, 1, rec.count(EventTypeGameOver))

			for _, ev := range rec.all() {
				assert.NoError(t, checkInvariants(ev.Snapshot()), ev.Type().String())
			}
		})
	}
}

func TestSameSeedReplaysSameGame(t *testing.T) {
	t.Parallel()

	play := func() []RoundHistory {
		e := NewEngine(WithRNG(randutil.New(77)), WithLogger(quietLogger()))
		require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob", "Cy"}, 5))
		playToEnd(t, e, randutil.New(78))
		return e.Snapshot().History
	}
	assert.Equal(t, play(), play())
}

func TestBotFallbackKeepsGameMoving(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, WithPolicy(brokenPolicy{}))
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 2))
	playToEnd(t, e, randutil.New(5))
	assert.Equal(t, PhaseGameOver, e.Phase())
}

func TestSeatPolicies(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t,
		WithSeatPolicy(2, fixedBidPolicy{count: 0}),
		WithSeatPolicy(1, fixedBidPolicy{count: 4}))
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))
	require.NoError(t, e.DeclareTricks("player-0", 0))

	s := e.Snapshot()
	assert.Equal(t, Declared(0), s.Players[2].Bid)
	assert.Equal(t, Declared(4), s.Players[1].Bid)
	assert.Equal(t, PhasePlaying, s.Phase)
}

func TestAIDelayPacesBotTurns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mClock := quartz.NewMock(t)
	e := newTestEngine(t, WithClock(mClock), WithAIDelay(time.Second))
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))

	s := e.Snapshot()
	assert.Equal(t, 2, s.ActivePlayerIndex, "bot waits for the clock")
	assert.False(t, s.Players[2].Bid.Declared)

	mClock.Advance(time.Second).MustWait(ctx)
	s = e.Snapshot()
	assert.True(t, s.Players[2].Bid.Declared)
	assert.Equal(t, 0, s.ActivePlayerIndex)

	require.NoError(t, e.DeclareTricks("player-0", s.AllowedBids()[0]))
	assert.Equal(t, 1, e.Snapshot().ActivePlayerIndex)

	// Dealer bids, then seat 2 leads the first trick one tick later.
	mClock.Advance(time.Second).MustWait(ctx)
	s = e.Snapshot()
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 2, s.ActivePlayerIndex)
	assert.True(t, s.CurrentTrick.IsEmpty())

	mClock.Advance(time.Second).MustWait(ctx)
	s = e.Snapshot()
	assert.Equal(t, 1, s.CurrentTrick.Len())
	assert.Equal(t, 0, s.ActivePlayerIndex)
}

func TestResetCancelsPendingBotTurn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mClock := quartz.NewMock(t)
	e := newTestEngine(t, WithClock(mClock), WithAIDelay(time.Second))
	rec := &recorder{}
	e.Subscribe(rec)

	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 3))
	e.ResetGame()

	s := e.Snapshot()
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.Empty(t, s.Players)
	assert.Zero(t, s.RoundNumber)
	assert.Equal(t, NoActivePlayer, s.ActivePlayerIndex)

	published := len(rec.all())
	mClock.Advance(time.Second).MustWait(ctx)
	assert.Len(t, rec.all(), published, "cancelled bot turn must not run")
	assert.Equal(t, 1, rec.count(EventTypeGameReset))

	// A new game can be set up after a reset.
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 3))
	assert.Equal(t, PhaseBidding, e.Phase())
}

func TestStaleBotTimerIsDropped(t *testing.T) {
	t.Parallel()

	mClock := quartz.NewMock(t)
	e := newTestEngine(t, WithClock(mClock), WithAIDelay(time.Second))

	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 3))
	e.ResetGame()
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 3))
	before := e.Snapshot()

	// A callback from the first game fires late.
	e.onBotTimer(0)
	assert.Equal(t, before, e.Snapshot())

	e.mu.Lock()
	assert.NotNil(t, e.pending, "current game's timer survives")
	e.mu.Unlock()
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))

	s := e.Snapshot()
	s.Players[0].Hand[0] = cards.Card{}
	s.Players[0].Name = "Mallory"
	s.Deck = nil

	fresh := e.Snapshot()
	assert.NotEqual(t, cards.Card{}, fresh.Players[0].Hand[0])
	assert.Equal(t, "You", fresh.Players[0].Name)
	assert.NotEmpty(t, fresh.Deck)
}

func TestInvariantViolations(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))
	valid := e.Snapshot()
	require.NoError(t, checkInvariants(valid))

	tests := []struct {
		name    string
		corrupt func(s *GameState)
	}{
		{name: "lost card", corrupt: func(s *GameState) { s.Deck = s.Deck[1:] }},
		{name: "duplicated card", corrupt: func(s *GameState) { s.Deck[0] = s.Players[0].Hand[0] }},
		{name: "second active player", corrupt: func(s *GameState) { s.Players[1].IsActive = true }},
		{name: "nobody active while bidding", corrupt: func(s *GameState) {
			s.Players[s.ActivePlayerIndex].IsActive = false
			s.ActivePlayerIndex = NoActivePlayer
		}},
		{name: "active player while scoring", corrupt: func(s *GameState) { s.Phase = PhaseScoring }},
	}
	for _, tt := range tests {
		s := valid.Clone()
		tt.corrupt(&s)
		assert.ErrorIs(t, checkInvariants(s), ErrInvariant, tt.name)
	}
}

func TestInvariantViolationDiscardsCandidate(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))
	before := e.Snapshot()

	err := e.intent(func(tx *txn) error {
		tx.s.Deck = tx.s.Deck[1:]
		return nil
	})
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, before, e.Snapshot())
}

func TestEventsCarryCommittedSnapshot(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, WithPolicy(fixedBidPolicy{count: 0}))
	rec := &recorder{}
	e.Subscribe(rec)
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))

	events := rec.all()
	require.NotEmpty(t, events)

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type())
	}
	assert.Equal(t, []EventType{
		EventTypePhaseChanged, // setup -> dealing
		EventTypeRoundStarted,
		EventTypePhaseChanged, // dealing -> bidding
		EventTypeBidDeclared,  // seat 2
	}, types)

	first := events[0].(PhaseChangedEvent)
	assert.Equal(t, PhaseSetup, first.From)
	assert.Equal(t, PhaseDealing, first.To)
	assert.Equal(t, PhaseBidding, first.Snapshot().Phase, "snapshot is the committed state")

	bid := events[3].(BidDeclaredEvent)
	assert.Equal(t, "player-2", bid.PlayerID)
	assert.Equal(t, "fixed", bid.Reasoning)
	assert.Equal(t, Declared(0), bid.Snapshot().Players[2].Bid)

	e.Unsubscribe(rec)
	require.NoError(t, e.DeclareTricks("player-0", 0))
	assert.Len(t, rec.all(), len(events))
}

func TestNewEngineDefaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(WithLogger(quietLogger()))
	assert.Equal(t, PhaseSetup, e.Phase())
	assert.Equal(t, "heuristic", e.defaultPolicy.Name())
	assert.Panics(t, func() { NewEngine(WithRNG(nil)) })

	p, err := bot.New("random", randutil.New(1), quietLogger())
	require.NoError(t, err)
	e = newTestEngine(t, WithPolicy(p))
	require.NoError(t, e.SetupGame([]string{"You", "Alice", "Bob"}, 1))
	assert.Equal(t, "random", e.seatPolicy(1).Name())
	assert.Nil(t, e.policies[0], "human seat has no policy")
}
