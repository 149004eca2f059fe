package cards

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/lox/ohhell/internal/randutil"
)

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// ErrDeckExhausted is returned when a deal would need more cards than the deck holds
var ErrDeckExhausted = errors.New("not enough cards in deck")

// NewDeck returns all 52 cards in suit-major, ascending value order
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for value := Two; value <= Ace; value++ {
			deck = append(deck, NewCard(suit, value))
		}
	}
	return deck
}

// Shuffle returns a uniformly permuted copy of deck using Fisher-Yates.
// The input is not modified. A nil rng falls back to a time-seeded source.
func Shuffle(rng *rand.Rand, deck []Card) []Card {
	if rng == nil {
		rng = randutil.New(randutil.Seed(0))
	}

	out := slices.Clone(deck)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal distributes cards round-robin: one card to each seat in order,
// repeated perPlayer times. It returns the hands and the undealt remainder.
// When the deck runs out, dealing stops and later seats are left short;
// use CheckDeal beforehand to treat that as a configuration error.
func Deal(deck []Card, players, perPlayer int) ([][]Card, []Card) {
	hands := make([][]Card, players)
	for i := range hands {
		hands[i] = make([]Card, 0, perPlayer)
	}

	next := 0
	for range perPlayer {
		for seat := range players {
			if next >= len(deck) {
				return hands, []Card{}
			}
			hands[seat] = append(hands[seat], deck[next])
			next++
		}
	}

	return hands, slices.Clone(deck[next:])
}

// CheckDeal verifies that a full deck can deal perPlayer cards to every
// player and still turn up one trump card.
func CheckDeal(players, perPlayer int) error {
	if players <= 0 || perPlayer <= 0 {
		return fmt.Errorf("invalid deal of %d cards to %d players", perPlayer, players)
	}
	if need := players*perPlayer + 1; need > DeckSize {
		return fmt.Errorf("%w: %d players x %d cards + trump needs %d", ErrDeckExhausted, players, perPlayer, need)
	}
	return nil
}

// Sort returns a copy of cards ordered by suit (hearts, diamonds, clubs,
// spades) and then ascending value, for display.
func Sort(cards []Card) []Card {
	out := slices.Clone(cards)
	slices.SortStableFunc(out, func(a, b Card) int {
		if a.Suit != b.Suit {
			return int(a.Suit) - int(b.Suit)
		}
		return int(a.Value) - int(b.Value)
	})
	return out
}
