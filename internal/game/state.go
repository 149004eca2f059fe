package game

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/rules"
)

// Phase is a stage of the game state machine
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseDealing  Phase = "dealing"
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseScoring  Phase = "scoring"
	PhaseGameOver Phase = "gameOver"
)

func (p Phase) String() string { return string(p) }

// Table limits
const (
	MinPlayers = 3
	MaxPlayers = 6
	MinRounds  = 1
	MaxRounds  = 13
)

// Seat rotation
const (
	// DealerAdvance is how many seats the dealer moves each round.
	DealerAdvance = 1
	// FirstBidderOffset is the bidder's distance from the dealer.
	FirstBidderOffset = 1
	// FirstLeaderOffset is the first trick leader's distance from the dealer.
	FirstLeaderOffset = 1
)

// NoActivePlayer is the ActivePlayerIndex when nobody may act
const NoActivePlayer = -1

// Bid is a declared trick count. The zero value is Undeclared, which is
// distinct from a declared bid of zero.
type Bid struct {
	Count    int
	Declared bool
}

// Undeclared is the bid of a player who has not bid yet this round
var Undeclared = Bid{}

// Declared returns a declared bid of n tricks
func Declared(n int) Bid {
	return Bid{Count: n, Declared: true}
}

func (b Bid) String() string {
	if !b.Declared {
		return "-"
	}
	return strconv.Itoa(b.Count)
}

// MarshalJSON encodes a declared bid as its count and an undeclared one as null
func (b Bid) MarshalJSON() ([]byte, error) {
	if !b.Declared {
		return []byte("null"), nil
	}
	return json.Marshal(b.Count)
}

// UnmarshalJSON is the inverse of MarshalJSON
func (b *Bid) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Undeclared
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = Declared(n)
	return nil
}

// Player is one seat at the table
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Hand      []cards.Card `json:"hand"`
	Bid       Bid          `json:"bid"`
	WonTricks int          `json:"wonTricks"`
	Points    int          `json:"points"`
	IsActive  bool         `json:"isActive"`
	IsHuman   bool         `json:"isHuman"`
}

// Clone returns a deep copy
func (p Player) Clone() Player {
	p.Hand = slices.Clone(p.Hand)
	return p
}

// PlayerResult is one player's line in a round summary
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Declared int    `json:"declared"`
	Won      int    `json:"won"`
	Points   int    `json:"points"`
}

// RoundHistory summarises a scored round
type RoundHistory struct {
	Round     int            `json:"round"`
	TrumpSuit cards.Suit     `json:"trumpSuit"`
	Results   []PlayerResult `json:"results"`
}

// Clone returns a deep copy
func (h RoundHistory) Clone() RoundHistory {
	h.Results = slices.Clone(h.Results)
	return h
}

// CompletedTrick is a resolved trick kept for display
type CompletedTrick struct {
	Plays    []rules.Play `json:"plays"`
	LeadSuit cards.Suit   `json:"leadSuit"`
	WinnerID string       `json:"winnerId"`
}

// GameState is the complete state of one game. The engine replaces it
// wholesale on every accepted intent; values handed out are deep copies.
type GameState struct {
	ID                string          `json:"id"`
	Players           []Player        `json:"players"`
	Deck              []cards.Card    `json:"deck"`
	DiscardPile       []cards.Card    `json:"discardPile"`
	TrumpSuit         cards.Suit      `json:"trumpSuit"`
	TrumpCard         cards.Card      `json:"trumpCard"`
	HasTrump          bool            `json:"hasTrump"`
	CurrentTrick      rules.Trick     `json:"currentTrick"`
	LastTrick         *CompletedTrick `json:"lastTrick,omitempty"`
	DealerIndex       int             `json:"dealerIndex"`
	ActivePlayerIndex int             `json:"activePlayerIndex"`
	RoundNumber       int             `json:"roundNumber"`
	TotalRounds       int             `json:"totalRounds"`
	CardsPerRound     int             `json:"cardsPerRound"`
	Phase             Phase           `json:"phase"`
	History           []RoundHistory  `json:"history"`
	Winner            *Player         `json:"winner,omitempty"`
	HumanPlayerID     string          `json:"humanPlayerId"`
}

func initialState() GameState {
	return GameState{
		Phase:             PhaseSetup,
		ActivePlayerIndex: NoActivePlayer,
	}
}

// Clone returns a deep copy sharing no memory with s
func (s GameState) Clone() GameState {
	out := s
	out.Players = slices.Clone(s.Players)
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	out.Deck = slices.Clone(s.Deck)
	out.DiscardPile = slices.Clone(s.DiscardPile)
	out.CurrentTrick = s.CurrentTrick.Clone()
	if s.LastTrick != nil {
		lt := *s.LastTrick
		lt.Plays = slices.Clone(lt.Plays)
		out.LastTrick = &lt
	}
	out.History = slices.Clone(s.History)
	for i, h := range s.History {
		out.History[i] = h.Clone()
	}
	if s.Winner != nil {
		w := s.Winner.Clone()
		out.Winner = &w
	}
	return out
}

// ActivePlayer returns the player who must act next
func (s GameState) ActivePlayer() (Player, bool) {
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.ActivePlayerIndex], true
}

// PlayerByID looks up a player by id
func (s GameState) PlayerByID(id string) (Player, bool) {
	if i := s.playerIndex(id); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

func (s GameState) playerIndex(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

// DeclaredTotal sums the bids declared so far this round
func (s GameState) DeclaredTotal() int {
	total := 0
	for _, p := range s.Players {
		if p.Bid.Declared {
			total += p.Bid.Count
		}
	}
	return total
}

// AllowedBids lists the bids the active player may declare. It is empty
// outside bidding.
func (s GameState) AllowedBids() []int {
	if s.Phase != PhaseBidding {
		return nil
	}
	return rules.AllowedBids(s.CardsPerRound, s.DeclaredTotal())
}

// ForbiddenBid returns the bid that would make the declared total equal the
// hand size, if that bid is within range.
func (s GameState) ForbiddenBid() (int, bool) {
	n := s.CardsPerRound - s.DeclaredTotal()
	if s.Phase != PhaseBidding || n < 0 || n > s.CardsPerRound {
		return 0, false
	}
	return n, true
}

// PlayableCards lists the cards playerID may play now. It is empty unless
// playerID is the active player during play.
func (s GameState) PlayableCards(playerID string) []cards.Card {
	p, ok := s.ActivePlayer()
	if s.Phase != PhasePlaying || !ok || p.ID != playerID {
		return nil
	}
	return rules.Playable(p.Hand, s.CurrentTrick, s.TrumpSuit)
}

// Leaderboard returns the players ordered by points, highest first. Equal
// scores keep seat order.
func (s GameState) Leaderboard() []Player {
	out := make([]Player, len(s.Players))
	for i, p := range s.Players {
		out[i] = p.Clone()
	}
	slices.SortStableFunc(out, func(a, b Player) int { return b.Points - a.Points })
	return out
}

// CardCount counts every card the state holds: hands, deck, discard pile and
// the trick in progress.
func (s GameState) CardCount() int {
	n := len(s.Deck) + len(s.DiscardPile) + s.CurrentTrick.Len()
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	return n
}
