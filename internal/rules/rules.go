// Package rules holds the pure rules of the game: which cards may be played,
// who wins a trick, how many cards each round deals, which bids are allowed
// and how a round is scored. Nothing here owns state.
package rules

import (
	"github.com/lox/ohhell/cards"
)

// House rules
const (
	// BaseCardsPerRound plus the round number gives the hand size.
	BaseCardsPerRound = 4
	// MaxCardsPerRound caps the hand size however many rounds are played.
	MaxCardsPerRound = 10
	// ExactBidBonus is awarded for winning exactly the declared tricks.
	ExactBidBonus = 10
	// TrickBonus is awarded per trick won on an exact bid.
	TrickBonus = 3
)

// IsPlayable reports whether card may be played from hand to the trick.
//
// Leading, any card goes. Otherwise a player holding the lead suit must
// follow it; a player void in the lead suit but holding trump must trump,
// unless trump itself was led; a player void in both may play anything.
func IsPlayable(card cards.Card, hand []cards.Card, trick Trick, trump cards.Suit) bool {
	if !cards.Contains(hand, card) {
		return false
	}
	if trick.IsEmpty() || !trick.HasLead {
		return true
	}

	lead := trick.LeadSuit
	if cards.HasSuit(hand, lead) {
		return card.Suit == lead
	}
	if trump != lead && cards.HasSuit(hand, trump) {
		return card.Suit == trump
	}
	return true
}

// Playable returns the cards in hand that may legally be played, preserving
// hand order.
func Playable(hand []cards.Card, trick Trick, trump cards.Suit) []cards.Card {
	out := make([]cards.Card, 0, len(hand))
	for _, c := range hand {
		if IsPlayable(c, hand, trick, trump) {
			out = append(out, c)
		}
	}
	return out
}

// CardsForRound returns the hand size for a 1-based round number: five cards
// in round one, one more each round, capped at MaxCardsPerRound.
func CardsForRound(round int) int {
	return min(MaxCardsPerRound, BaseCardsPerRound+round)
}

// BidAllowed reports whether a player may declare count tricks when the bids
// already declared this round sum to declaredSoFar. A bid must lie in
// [0, cardsPerRound] and must not bring the total to exactly cardsPerRound.
func BidAllowed(count, cardsPerRound, declaredSoFar int) bool {
	if count < 0 || count > cardsPerRound {
		return false
	}
	return declaredSoFar+count != cardsPerRound
}

// AllowedBids lists every bid BidAllowed accepts, ascending.
func AllowedBids(cardsPerRound, declaredSoFar int) []int {
	out := make([]int, 0, cardsPerRound+1)
	for n := 0; n <= cardsPerRound; n++ {
		if BidAllowed(n, cardsPerRound, declaredSoFar) {
			out = append(out, n)
		}
	}
	return out
}

// RoundPoints scores one player's round. An exact bid earns the bonus plus
// TrickBonus per trick; a missed bid earns one point per trick won.
func RoundPoints(declared, won int) int {
	if declared == won {
		return ExactBidBonus + TrickBonus*won
	}
	return won
}
