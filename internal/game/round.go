package game

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/rules"
)

// txn is one transition in progress. s is a private copy of the state;
// events are collected and published only if the copy is committed.
type txn struct {
	s      *GameState
	meta   *eventMeta
	events []Event
	rng    *rand.Rand
	logger *log.Logger
}

func (tx *txn) base() baseEvent {
	return baseEvent{meta: tx.meta}
}

func (tx *txn) emit(e Event) {
	tx.events = append(tx.events, e)
}

func (tx *txn) setPhase(to Phase) {
	from := tx.s.Phase
	tx.s.Phase = to
	tx.emit(PhaseChangedEvent{baseEvent: tx.base(), From: from, To: to})
}

// activate makes seat the only active player. NoActivePlayer deactivates
// everyone.
func (tx *txn) activate(seat int) {
	tx.s.ActivePlayerIndex = seat
	for i := range tx.s.Players {
		tx.s.Players[i].IsActive = i == seat
	}
}

func (tx *txn) seat(offset int) int {
	n := len(tx.s.Players)
	return ((tx.s.DealerIndex+offset)%n + n) % n
}

// startRound deals the next round, or ends the game when every round has
// been played.
func (tx *txn) startRound() error {
	s := tx.s
	next := s.RoundNumber + 1
	if next > s.TotalRounds {
		tx.finishGame()
		return nil
	}
	if s.Phase != PhaseDealing {
		tx.setPhase(PhaseDealing)
	}

	n := len(s.Players)
	perPlayer := rules.CardsForRound(next)
	if err := cards.CheckDeal(n, perPlayer); err != nil {
		return fmt.Errorf("round %d: %w: %w", next, ErrInvalidConfig, err)
	}

	deck := cards.Shuffle(tx.rng, cards.NewDeck())
	hands, rest := cards.Deal(deck, n, perPlayer)
	trump := rest[0]

	s.RoundNumber = next
	s.CardsPerRound = perPlayer
	s.Deck = rest[1:]
	s.DiscardPile = []cards.Card{trump}
	s.TrumpCard = trump
	s.TrumpSuit = trump.Suit
	s.HasTrump = true
	s.CurrentTrick = rules.Trick{}
	s.LastTrick = nil
	s.DealerIndex = (s.DealerIndex + DealerAdvance) % n
	for i := range s.Players {
		s.Players[i].Hand = hands[i]
		s.Players[i].Bid = Undeclared
		s.Players[i].WonTricks = 0
	}
	tx.activate(tx.seat(FirstBidderOffset))

	tx.logger.Info("Round started",
		"game", s.ID,
		"round", next,
		"cards", perPlayer,
		"trump", trump,
		"dealer", s.Players[s.DealerIndex].ID)
	tx.emit(RoundStartedEvent{
		baseEvent:     tx.base(),
		Round:         next,
		CardsPerRound: perPlayer,
		Trump:         trump,
		DealerID:      s.Players[s.DealerIndex].ID,
	})
	tx.setPhase(PhaseBidding)
	return nil
}

// actor resolves playerID to the active seat
func (tx *txn) actor(playerID string) (int, error) {
	idx := tx.s.playerIndex(playerID)
	if idx < 0 {
		return -1, fmt.Errorf("%q: %w", playerID, ErrUnknownPlayer)
	}
	if idx != tx.s.ActivePlayerIndex {
		return -1, fmt.Errorf("%s acted out of turn: %w", playerID, ErrNotYourTurn)
	}
	return idx, nil
}

func (tx *txn) declare(playerID string, count int, reasoning string) error {
	s := tx.s
	if s.Phase != PhaseBidding {
		return fmt.Errorf("declare tricks in %s: %w", s.Phase, ErrWrongPhase)
	}
	idx, err := tx.actor(playerID)
	if err != nil {
		return err
	}
	if count < 0 || count > s.CardsPerRound {
		return fmt.Errorf("bid %d with %d cards: %w", count, s.CardsPerRound, ErrBidOutOfRange)
	}
	declared := s.DeclaredTotal()
	if !rules.BidAllowed(count, s.CardsPerRound, declared) {
		return fmt.Errorf("bid %d on top of %d with %d cards: %w", count, declared, s.CardsPerRound, ErrForbiddenBidTotal)
	}

	s.Players[idx].Bid = Declared(count)
	tx.emit(BidDeclaredEvent{baseEvent: tx.base(), PlayerID: playerID, Count: count, Reasoning: reasoning})

	n := len(s.Players)
	for step := 1; step < n; step++ {
		seat := (idx + step) % n
		if !s.Players[seat].Bid.Declared {
			tx.activate(seat)
			return nil
		}
	}

	tx.activate(tx.seat(FirstLeaderOffset))
	tx.setPhase(PhasePlaying)
	return nil
}

func (tx *txn) play(playerID, cardID, reasoning string) error {
	s := tx.s
	if s.Phase != PhasePlaying {
		return fmt.Errorf("play card in %s: %w", s.Phase, ErrWrongPhase)
	}
	idx, err := tx.actor(playerID)
	if err != nil {
		return err
	}
	card, err := cards.ParseID(cardID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownCard, err)
	}
	hand := s.Players[idx].Hand
	if !cards.Contains(hand, card) {
		return fmt.Errorf("%s does not hold %s: %w", playerID, card, ErrCardNotInHand)
	}
	if !rules.IsPlayable(card, hand, s.CurrentTrick, s.TrumpSuit) {
		return fmt.Errorf("%s to a %s lead with %s trump: %w", card, s.CurrentTrick.LeadSuit, s.TrumpSuit, ErrIllegalCard)
	}

	s.Players[idx].Hand = cards.Remove(hand, card)
	s.CurrentTrick = s.CurrentTrick.Add(card, playerID)
	tx.emit(CardPlayedEvent{baseEvent: tx.base(), PlayerID: playerID, Card: card, Reasoning: reasoning})

	n := len(s.Players)
	if !s.CurrentTrick.IsComplete(n) {
		tx.activate((idx + 1) % n)
		return nil
	}
	return tx.completeTrick()
}

func (tx *txn) completeTrick() error {
	s := tx.s
	trick := s.CurrentTrick
	winnerID, err := rules.ResolveTrick(trick.Plays, trick.LeadSuit, s.TrumpSuit)
	if err != nil {
		return err
	}
	winner := s.playerIndex(winnerID)

	s.Players[winner].WonTricks++
	s.DiscardPile = append(s.DiscardPile, trick.Cards()...)
	s.LastTrick = &CompletedTrick{Plays: slices.Clone(trick.Plays), LeadSuit: trick.LeadSuit, WinnerID: winnerID}
	s.CurrentTrick = rules.Trick{}
	tx.emit(TrickCompletedEvent{baseEvent: tx.base(), WinnerID: winnerID, Plays: slices.Clone(trick.Plays)})

	for _, p := range s.Players {
		if len(p.Hand) > 0 {
			tx.activate(winner)
			return nil
		}
	}

	tx.activate(NoActivePlayer)
	tx.setPhase(PhaseScoring)
	tx.computeScores()
	return nil
}

// computeScores adds each player's round points and records the round
func (tx *txn) computeScores() {
	s := tx.s
	h := RoundHistory{Round: s.RoundNumber, TrumpSuit: s.TrumpSuit, Results: make([]PlayerResult, len(s.Players))}
	for i := range s.Players {
		p := &s.Players[i]
		pts := rules.RoundPoints(p.Bid.Count, p.WonTricks)
		p.Points += pts
		h.Results[i] = PlayerResult{PlayerID: p.ID, Declared: p.Bid.Count, Won: p.WonTricks, Points: pts}
	}
	s.History = append(s.History, h)

	tx.logger.Info("Round scored", "game", s.ID, "round", s.RoundNumber)
	tx.emit(RoundScoredEvent{baseEvent: tx.base(), History: h.Clone()})
}

// finishGame picks the winner by points, earlier seats winning ties
func (tx *txn) finishGame() {
	s := tx.s
	best := 0
	for i, p := range s.Players {
		if p.Points > s.Players[best].Points {
			best = i
		}
	}
	w := s.Players[best].Clone()
	s.Winner = &w

	tx.activate(NoActivePlayer)
	tx.setPhase(PhaseGameOver)
	tx.logger.Info("Game over", "game", s.ID, "winner", w.Name, "points", w.Points)
	tx.emit(GameOverEvent{baseEvent: tx.base(), Winner: w.Clone()})
}
