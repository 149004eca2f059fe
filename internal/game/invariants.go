package game

import (
	"fmt"

	"github.com/lox/ohhell/cards"
)

// checkInvariants validates a candidate state before it is committed:
// once cards are dealt every card of the deck is held exactly once, and
// exactly the ActivePlayerIndex seat is active while bids or cards are due.
func checkInvariants(s GameState) error {
	if s.Phase == PhaseSetup || s.RoundNumber == 0 {
		return nil
	}

	if err := checkCards(s); err != nil {
		return err
	}

	switch s.Phase {
	case PhaseBidding, PhasePlaying:
		if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
			return fmt.Errorf("%w: no active player during %s", ErrInvariant, s.Phase)
		}
	default:
		if s.ActivePlayerIndex != NoActivePlayer {
			return fmt.Errorf("%w: seat %d active during %s", ErrInvariant, s.ActivePlayerIndex, s.Phase)
		}
	}

	for i, p := range s.Players {
		if p.IsActive != (i == s.ActivePlayerIndex) {
			return fmt.Errorf("%w: %s active flag is %t with active seat %d", ErrInvariant, p.ID, p.IsActive, s.ActivePlayerIndex)
		}
	}
	return nil
}

func checkCards(s GameState) error {
	if n := s.CardCount(); n != cards.DeckSize {
		return fmt.Errorf("%w: %d cards in play, want %d", ErrInvariant, n, cards.DeckSize)
	}

	seen := make(map[cards.Card]bool, cards.DeckSize)
	check := func(where string, cs []cards.Card) error {
		for _, c := range cs {
			if !c.Valid() {
				return fmt.Errorf("%w: invalid card %v in %s", ErrInvariant, c, where)
			}
			if seen[c] {
				return fmt.Errorf("%w: duplicate %s in %s", ErrInvariant, c, where)
			}
			seen[c] = true
		}
		return nil
	}

	for _, p := range s.Players {
		if err := check(p.ID, p.Hand); err != nil {
			return err
		}
	}
	if err := check("deck", s.Deck); err != nil {
		return err
	}
	if err := check("discard pile", s.DiscardPile); err != nil {
		return err
	}
	return check("trick", s.CurrentTrick.Cards())
}
