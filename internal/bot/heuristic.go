package bot

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/rules"
)

const (
	// HighCardThreshold is the lowest value counted as a likely trick winner.
	HighCardThreshold = cards.Ten
	// trumpWeight is the strength each trump adds to a hand.
	trumpWeight = 0.5
)

// Heuristic is the default AI: a strength-count bid and a greedy
// single-trick card choice.
type Heuristic struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewHeuristic creates a heuristic policy. The rng drives the bid
// perturbation only.
func NewHeuristic(rng *rand.Rand, logger *log.Logger) *Heuristic {
	if rng == nil {
		panic("rng is required for heuristic policy")
	}
	return &Heuristic{rng: rng, logger: logger.WithPrefix("bot")}
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Bid(req BidRequest) Decision {
	n := EstimateBid(h.rng, req.Hand, req.Trump, req.CardsPerRound, req.DeclaredSoFar)
	reasoning := fmt.Sprintf("strength %.1f with %s trump", Strength(req.Hand, req.Trump), req.Trump)
	h.logger.Debug("Bid decision",
		"player", req.PlayerID,
		"hand", cards.Format(req.Hand),
		"bid", n,
		"declaredSoFar", req.DeclaredSoFar,
		"cardsPerRound", req.CardsPerRound)
	return Decision{Bid: n, Reasoning: reasoning}
}

func (h *Heuristic) Play(req PlayRequest) Decision {
	c, ok := SelectCard(req.Hand, req.Trick, req.Trump)
	if !ok {
		return Decision{Reasoning: "no legal cards"}
	}

	reasoning := "lead high"
	if !req.Trick.IsEmpty() {
		if best, _ := rules.CurrentWinner(req.Trick, req.Trump); rules.Beats(c, best.Card, req.Trick.LeadSuit, req.Trump) {
			reasoning = "win cheaply over " + best.Card.String()
		} else {
			reasoning = "cannot win, discard low"
		}
	}

	h.logger.Debug("Play decision", "player", req.PlayerID, "card", c, "reasoning", reasoning)
	return Decision{Card: c, Reasoning: reasoning}
}

// Strength scores a hand: one per card of HighCardThreshold or better plus
// half per trump.
func Strength(hand []cards.Card, trump cards.Suit) float64 {
	var s float64
	for _, c := range hand {
		if c.Value >= HighCardThreshold {
			s++
		}
		if c.Suit == trump {
			s += trumpWeight
		}
	}
	return s
}

// EstimateBid rounds the hand's Strength to the nearest integer and clamps
// it to [0, cardsPerRound]. If that bid would bring the declared total to
// exactly cardsPerRound it is moved one step in a random direction; when that
// direction runs off the valid range the other one is taken, so the result is
// always a bid the engine accepts.
func EstimateBid(rng *rand.Rand, hand []cards.Card, trump cards.Suit, cardsPerRound, declaredSoFar int) int {
	bid := clamp(int(math.Round(Strength(hand, trump))), 0, cardsPerRound)
	if rules.BidAllowed(bid, cardsPerRound, declaredSoFar) {
		return bid
	}

	step := 1
	if rng.IntN(2) == 0 {
		step = -1
	}
	next := bid + step
	if next < 0 || next > cardsPerRound {
		next = bid - step
	}
	return clamp(next, 0, cardsPerRound)
}

// SelectCard chooses a legal card from hand.
//
// Leading: the highest trump if one is held, otherwise the highest card.
// Following: the lowest card that beats the current best card in the trick,
// or the lowest card if none can. Equal values resolve to the card held
// first. ok is false only when hand is empty.
func SelectCard(hand []cards.Card, trick rules.Trick, trump cards.Suit) (cards.Card, bool) {
	legal := rules.Playable(hand, trick, trump)
	if len(legal) == 0 {
		return cards.Card{}, false
	}

	if trick.IsEmpty() {
		if trumps := ofSuit(legal, trump); len(trumps) > 0 {
			return highest(trumps), true
		}
		return highest(legal), true
	}

	best, _ := rules.CurrentWinner(trick, trump)
	var winners []cards.Card
	for _, c := range legal {
		if rules.Beats(c, best.Card, trick.LeadSuit, trump) {
			winners = append(winners, c)
		}
	}
	if len(winners) > 0 {
		return lowest(winners), true
	}
	return lowest(legal), true
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
