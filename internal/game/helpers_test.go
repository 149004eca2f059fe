package game

import (
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/bot"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithRNG(randutil.New(42)), WithLogger(quietLogger())}
	return NewEngine(append(base, opts...)...)
}

// humanMove makes the human seat's move with the heuristic policy
func humanMove(t *testing.T, e *Engine, rng *rand.Rand) {
	t.Helper()
	s := e.Snapshot()
	p, ok := s.ActivePlayer()
	require.True(t, ok, "no active player in %s", s.Phase)
	require.True(t, p.IsHuman, "AI seat %s left waiting in %s", p.ID, s.Phase)

	switch s.Phase {
	case PhaseBidding:
		n := bot.EstimateBid(rng, p.Hand, s.TrumpSuit, s.CardsPerRound, s.DeclaredTotal())
		require.NoError(t, e.DeclareTricks(p.ID, n))
	case PhasePlaying:
		c, ok := bot.SelectCard(p.Hand, s.CurrentTrick, s.TrumpSuit)
		require.True(t, ok)
		require.NoError(t, e.PlayCard(p.ID, c.ID()))
	default:
		t.Fatalf("no human move in %s", s.Phase)
	}
}

// playToEnd plays the human seat and advances rounds until game over
func playToEnd(t *testing.T, e *Engine, rng *rand.Rand) {
	t.Helper()
	for range 10_000 {
		switch e.Phase() {
		case PhaseGameOver:
			return
		case PhaseScoring:
			require.NoError(t, e.AdvanceRound())
		default:
			humanMove(t, e, rng)
		}
	}
	t.Fatal("game did not finish")
}

// riggedEngine installs a playing-phase state with fixed hands for three
// players. Every player has bid one trick. The remaining cards go to the deck.
func riggedEngine(t *testing.T, dealer int, hands [3]string, trump string, opts ...Option) *Engine {
	t.Helper()
	e := newTestEngine(t, opts...)

	trumpCard := cards.MustParseCards(trump)[0]
	used := []cards.Card{trumpCard}
	players := make([]Player, len(hands))
	for i, h := range hands {
		hand := cards.MustParseCards(h)
		used = append(used, hand...)
		players[i] = Player{
			ID:      []string{"player-0", "player-1", "player-2"}[i],
			Name:    []string{"You", "Alice", "Bob"}[i],
			Hand:    hand,
			Bid:     Declared(1),
			IsHuman: i == 0,
		}
	}
	deck := slices.DeleteFunc(cards.NewDeck(), func(c cards.Card) bool { return cards.Contains(used, c) })

	s := GameState{
		ID:            "rigged",
		Players:       players,
		Deck:          deck,
		DiscardPile:   []cards.Card{trumpCard},
		TrumpSuit:     trumpCard.Suit,
		TrumpCard:     trumpCard,
		HasTrump:      true,
		DealerIndex:   dealer,
		RoundNumber:   1,
		TotalRounds:   1,
		CardsPerRound: len(players[0].Hand),
		Phase:         PhasePlaying,
		HumanPlayerID: "player-0",
	}
	leader := (dealer + FirstLeaderOffset) % len(players)
	s.ActivePlayerIndex = leader
	s.Players[leader].IsActive = true
	require.NoError(t, checkInvariants(s))

	e.mu.Lock()
	e.state = s
	e.policies = []bot.Policy{nil, e.defaultPolicy, e.defaultPolicy}
	e.mu.Unlock()
	e.drive()
	return e
}

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *recorder) count(et EventType) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Type() == et {
			n++
		}
	}
	return n
}

// fixedBidPolicy always bids count and plays like the heuristic
type fixedBidPolicy struct {
	count int
}

func (p fixedBidPolicy) Name() string { return "fixed" }

func (p fixedBidPolicy) Bid(bot.BidRequest) bot.Decision {
	return bot.Decision{Bid: p.count, Reasoning: "fixed"}
}

func (p fixedBidPolicy) Play(req bot.PlayRequest) bot.Decision {
	c, _ := bot.SelectCard(req.Hand, req.Trick, req.Trump)
	return bot.Decision{Card: c}
}

// brokenPolicy only ever proposes moves the engine rejects
type brokenPolicy struct{}

func (brokenPolicy) Name() string { return "broken" }

func (brokenPolicy) Bid(bot.BidRequest) bot.Decision {
	return bot.Decision{Bid: -1, Reasoning: "nonsense"}
}

func (brokenPolicy) Play(bot.PlayRequest) bot.Decision {
	return bot.Decision{Reasoning: "nonsense"}
}
