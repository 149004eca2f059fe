package cards

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit represents a card suit
type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// Suits lists every suit in deck order
var Suits = [...]Suit{Hearts, Diamonds, Clubs, Spades}

// String returns the lowercase suit name used in card ids
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	case Spades:
		return "spades"
	default:
		return "unknown"
	}
}

// Symbol returns the unicode suit symbol
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// IsRed returns true for hearts and diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Valid reports whether s is one of the four suits
func (s Suit) Valid() bool {
	return s <= Spades
}

// Value is the face value of a card, 2 through 14 (ace high)
type Value uint8

const (
	Two Value = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the display form: numbers for pips, J/Q/K/A for court cards
func (v Value) String() string {
	switch v {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		if v.Valid() {
			return strconv.Itoa(int(v))
		}
		return "?"
	}
}

// Valid reports whether v lies in 2..14
func (v Value) Valid() bool {
	return v >= Two && v <= Ace
}

// Card is an immutable (suit, value) pair
type Card struct {
	Suit  Suit
	Value Value
}

// NewCard creates a new card
func NewCard(suit Suit, value Value) Card {
	return Card{Suit: suit, Value: value}
}

// ID returns the stable identifier used by intents, e.g. "hearts-10"
func (c Card) ID() string {
	return fmt.Sprintf("%s-%d", c.Suit, c.Value)
}

// String returns the short display form, e.g. "10♥" or "A♠"
func (c Card) String() string {
	return c.Value.String() + c.Suit.Symbol()
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Valid reports whether both suit and value are in range
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Value.Valid()
}

// ParseID parses an id produced by Card.ID
func ParseID(id string) (Card, error) {
	suitStr, valueStr, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, fmt.Errorf("invalid card id: %q", id)
	}

	suit, err := parseSuitName(suitStr)
	if err != nil {
		return Card{}, err
	}

	n, err := strconv.Atoi(valueStr)
	if err != nil || !Value(n).Valid() {
		return Card{}, fmt.Errorf("invalid card value in id: %q", id)
	}

	return NewCard(suit, Value(n)), nil
}

func parseSuitName(s string) (Suit, error) {
	for _, suit := range Suits {
		if suit.String() == s {
			return suit, nil
		}
	}
	return 0, fmt.Errorf("invalid suit: %q", s)
}

// ParseCard parses short notation like "Ah", "Td" or "10d" into a Card
func ParseCard(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card string: %s", s)
	}

	rankStr, suitChar := s[:len(s)-1], s[len(s)-1]

	var value Value
	switch strings.ToUpper(rankStr) {
	case "2":
		value = Two
	case "3":
		value = Three
	case "4":
		value = Four
	case "5":
		value = Five
	case "6":
		value = Six
	case "7":
		value = Seven
	case "8":
		value = Eight
	case "9":
		value = Nine
	case "T", "10":
		value = Ten
	case "J":
		value = Jack
	case "Q":
		value = Queen
	case "K":
		value = King
	case "A":
		value = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank: %s", rankStr)
	}

	var suit Suit
	switch suitChar {
	case 'h', 'H':
		suit = Hearts
	case 'd', 'D':
		suit = Diamonds
	case 'c', 'C':
		suit = Clubs
	case 's', 'S':
		suit = Spades
	default:
		return Card{}, fmt.Errorf("invalid suit: %c", suitChar)
	}

	return NewCard(suit, value), nil
}

// ParseCards parses whitespace separated short notation, e.g. "Ah 10d 2c"
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseCards is like ParseCards but panics on error. Intended for tests.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// Contains reports whether hand holds card
func Contains(hand []Card, card Card) bool {
	return IndexOf(hand, card) >= 0
}

// IndexOf returns the position of card in hand or -1
func IndexOf(hand []Card, card Card) int {
	for i, c := range hand {
		if c == card {
			return i
		}
	}
	return -1
}

// Remove returns a copy of hand without the first occurrence of card
func Remove(hand []Card, card Card) []Card {
	out := make([]Card, 0, len(hand))
	removed := false
	for _, c := range hand {
		if !removed && c == card {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}

// HasSuit reports whether any card in hand is of suit s
func HasSuit(hand []Card, s Suit) bool {
	for _, c := range hand {
		if c.Suit == s {
			return true
		}
	}
	return false
}

// Format joins the display form of cards with spaces
func Format(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// MarshalText encodes the suit by name
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit: %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a suit name
func (s *Suit) UnmarshalText(text []byte) error {
	suit, err := parseSuitName(string(text))
	if err != nil {
		return err
	}
	*s = suit
	return nil
}

// MarshalText encodes the card as its id. The zero Card, which is not a
// valid card, encodes as the empty string.
func (c Card) MarshalText() ([]byte, error) {
	if c == (Card{}) {
		return []byte{}, nil
	}
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card: %d-%d", c.Suit, c.Value)
	}
	return []byte(c.ID()), nil
}

// UnmarshalText decodes a card id
func (c *Card) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = Card{}
		return nil
	}
	card, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*c = card
	return nil
}
