package game

import (
	"github.com/lox/ohhell/internal/bot"
)

// drive runs AI turns until a human must act or the round needs advancing.
// Without a delay the turns run here, each as its own commit. With a delay
// the next turn is handed to a timer and drive returns.
func (e *Engine) drive() {
	for {
		e.mu.Lock()
		if !e.botToActLocked() {
			e.mu.Unlock()
			return
		}
		if e.aiDelay > 0 {
			e.scheduleLocked()
			e.mu.Unlock()
			return
		}

		events, err := e.botTurnLocked()
		if err != nil {
			e.mu.Unlock()
			return
		}
		e.publishAndUnlock(events)
	}
}

func (e *Engine) botToActLocked() bool {
	s := e.state
	if s.Phase != PhaseBidding && s.Phase != PhasePlaying {
		return false
	}
	p, ok := s.ActivePlayer()
	return ok && !p.IsHuman
}

func (e *Engine) scheduleLocked() {
	if e.pending != nil {
		return
	}
	epoch := e.epoch
	e.pending = e.clock.AfterFunc(e.aiDelay, func() { e.onBotTimer(epoch) }, "engine", "bot")
}

func (e *Engine) onBotTimer(epoch uint64) {
	e.mu.Lock()
	if epoch != e.epoch {
		e.mu.Unlock()
		e.logger.Debug("Dropping bot turn from before reset", "epoch", epoch)
		return
	}
	e.pending = nil
	if !e.botToActLocked() {
		e.mu.Unlock()
		return
	}

	events, err := e.botTurnLocked()
	if err != nil {
		e.mu.Unlock()
		return
	}
	e.publishAndUnlock(events)
	e.drive()
}

// botTurnLocked asks the active seat's policy for a decision and applies
// it. A rejected decision is replaced by the first legal one.
func (e *Engine) botTurnLocked() ([]Event, error) {
	s := e.state
	seat := s.ActivePlayerIndex
	p := s.Players[seat]
	policy := e.seatPolicy(seat)

	switch s.Phase {
	case PhaseBidding:
		d := policy.Bid(bot.BidRequest{
			PlayerID:      p.ID,
			Hand:          p.Hand,
			Trump:         s.TrumpSuit,
			CardsPerRound: s.CardsPerRound,
			DeclaredSoFar: s.DeclaredTotal(),
		})
		events, err := e.applyLocked(func(tx *txn) error { return tx.declare(p.ID, d.Bid, d.Reasoning) })
		if !isRejection(err) {
			return events, err
		}

		allowed := s.AllowedBids()
		e.logger.Warn("Bot bid rejected, using fallback",
			"player", p.ID, "policy", policy.Name(), "bid", d.Bid, "fallback", allowed[0], "error", err)
		events, err = e.applyLocked(func(tx *txn) error { return tx.declare(p.ID, allowed[0], "fallback") })
		if err != nil {
			e.logger.Error("Fallback bid rejected", "player", p.ID, "error", err)
		}
		return events, err

	default:
		d := policy.Play(bot.PlayRequest{
			PlayerID: p.ID,
			Hand:     p.Hand,
			Trick:    s.CurrentTrick,
			Trump:    s.TrumpSuit,
		})
		events, err := e.applyLocked(func(tx *txn) error { return tx.play(p.ID, d.Card.ID(), d.Reasoning) })
		if !isRejection(err) {
			return events, err
		}

		legal := s.PlayableCards(p.ID)
		e.logger.Warn("Bot card rejected, using fallback",
			"player", p.ID, "policy", policy.Name(), "card", d.Card, "fallback", legal[0], "error", err)
		events, err = e.applyLocked(func(tx *txn) error { return tx.play(p.ID, legal[0].ID(), "fallback") })
		if err != nil {
			e.logger.Error("Fallback card rejected", "player", p.ID, "error", err)
		}
		return events, err
	}
}

func (e *Engine) seatPolicy(seat int) bot.Policy {
	if seat < len(e.policies) && e.policies[seat] != nil {
		return e.policies[seat]
	}
	return e.defaultPolicy
}
