package rules

import (
	"errors"
	"slices"

	"github.com/lox/ohhell/cards"
)

// ErrEmptyTrick is returned when resolving a trick nobody has played to
var ErrEmptyTrick = errors.New("trick has no cards")

// Play is one card laid to a trick and who laid it
type Play struct {
	Card     cards.Card `json:"card"`
	PlayerID string     `json:"playerId"`
}

// Trick is the ordered list of plays for the trick in progress. LeadSuit is
// only meaningful when HasLead is set, which is exactly when Plays is non-empty.
type Trick struct {
	Plays    []Play     `json:"plays"`
	LeadSuit cards.Suit `json:"leadSuit"`
	HasLead  bool       `json:"hasLead"`
}

// Add returns a new trick with the play appended. The first play fixes the
// lead suit.
func (t Trick) Add(card cards.Card, playerID string) Trick {
	next := Trick{
		Plays:    append(slices.Clone(t.Plays), Play{Card: card, PlayerID: playerID}),
		LeadSuit: t.LeadSuit,
		HasLead:  t.HasLead,
	}
	if !next.HasLead {
		next.LeadSuit = card.Suit
		next.HasLead = true
	}
	return next
}

// Len returns the number of cards played so far
func (t Trick) Len() int {
	return len(t.Plays)
}

// IsEmpty reports whether no card has been led yet
func (t Trick) IsEmpty() bool {
	return len(t.Plays) == 0
}

// IsComplete reports whether every seat has played
func (t Trick) IsComplete(players int) bool {
	return len(t.Plays) >= players
}

// Cards returns the played cards in play order
func (t Trick) Cards() []cards.Card {
	out := make([]cards.Card, len(t.Plays))
	for i, p := range t.Plays {
		out[i] = p.Card
	}
	return out
}

// Clone returns a deep copy
func (t Trick) Clone() Trick {
	return Trick{Plays: slices.Clone(t.Plays), LeadSuit: t.LeadSuit, HasLead: t.HasLead}
}

// Beats reports whether challenger outranks best in a trick led in lead with
// trump as trump suit. Trump beats non-trump; within trump or within the
// lead suit the higher value wins; off-suit cards never win.
func Beats(challenger, best cards.Card, lead, trump cards.Suit) bool {
	switch {
	case challenger.Suit == trump && best.Suit != trump:
		return true
	case challenger.Suit != trump && best.Suit == trump:
		return false
	case challenger.Suit == trump && best.Suit == trump:
		return challenger.Value > best.Value
	case challenger.Suit == lead && best.Suit == lead:
		return challenger.Value > best.Value
	case challenger.Suit == lead:
		return true
	default:
		return false
	}
}

// CurrentWinner returns the play currently winning the trick
func CurrentWinner(t Trick, trump cards.Suit) (Play, bool) {
	if t.IsEmpty() {
		return Play{}, false
	}
	best := t.Plays[0]
	for _, p := range t.Plays[1:] {
		if Beats(p.Card, best.Card, t.LeadSuit, trump) {
			best = p
		}
	}
	return best, true
}

// ResolveTrick returns the id of the player who wins the trick. The highest
// trump wins if any trump was played, otherwise the highest card of the lead
// suit. Ties go to the first such card in play order.
func ResolveTrick(plays []Play, lead, trump cards.Suit) (string, error) {
	if len(plays) == 0 {
		return "", ErrEmptyTrick
	}
	winner, _ := CurrentWinner(Trick{Plays: plays, LeadSuit: lead, HasLead: true}, trump)
	return winner.PlayerID, nil
}
