// Package bot implements the decision policies that stand in for non-human
// players. Policies only look at read-only requests and return decisions;
// the game engine validates and applies them.
package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/rules"
)

// ErrUnknownPolicy is returned by New for an unregistered policy name
var ErrUnknownPolicy = errors.New("unknown bot policy")

// BidRequest is the read-only view a policy sees when asked to bid
type BidRequest struct {
	PlayerID      string
	Hand          []cards.Card
	Trump         cards.Suit
	CardsPerRound int
	DeclaredSoFar int // sum of bids already declared this round
}

// PlayRequest is the read-only view a policy sees when asked to play
type PlayRequest struct {
	PlayerID string
	Hand     []cards.Card
	Trick    rules.Trick
	Trump    cards.Suit
}

// Decision is a policy's answer. Bid is set for bid requests, Card for play
// requests.
type Decision struct {
	Bid       int
	Card      cards.Card
	Reasoning string
}

// Policy decides bids and card plays for a seat
type Policy interface {
	Name() string
	Bid(req BidRequest) Decision
	Play(req PlayRequest) Decision
}

// Names lists the registered policy names
func Names() []string {
	return []string{"heuristic", "random"}
}

// CheckName reports whether New accepts name. The empty name selects the
// heuristic policy.
func CheckName(name string) error {
	n := strings.ToLower(name)
	if n == "" || slices.Contains(Names(), n) {
		return nil
	}
	return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownPolicy, name, strings.Join(Names(), ", "))
}

// New constructs a policy by name
func New(name string, rng *rand.Rand, logger *log.Logger) (Policy, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	if strings.EqualFold(name, "random") {
		return NewRandom(rng, logger), nil
	}
	return NewHeuristic(rng, logger), nil
}

func highest(cs []cards.Card) cards.Card {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Value > best.Value {
			best = c
		}
	}
	return best
}

func lowest(cs []cards.Card) cards.Card {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Value < best.Value {
			best = c
		}
	}
	return best
}

func ofSuit(cs []cards.Card, s cards.Suit) []cards.Card {
	return slices.DeleteFunc(slices.Clone(cs), func(c cards.Card) bool { return c.Suit != s })
}
