// Package game implements the state machine for a 3 to 6 player trick-taking
// game with bidding.
//
// The main type is Engine, which owns a GameState and moves it through the
// phases setup, dealing, bidding, playing and scoring, then either deals the
// next round or ends in gameOver.
//
// # Basic Usage
//
//	e := game.NewEngine(game.WithRNG(randutil.New(42)))
//	if err := e.SetupGame([]string{"You", "Alice", "Bob"}, 3); err != nil {
//	    return err
//	}
//	s := e.Snapshot()
//	err := e.DeclareTricks(s.HumanPlayerID, 1)
//
// Seat 0 is the human seat. Every other seat is played by a bot.Policy: after
// each accepted intent the engine runs AI turns until the human must act.
// With WithAIDelay the AI turns are paced on a quartz.Clock instead.
//
// # Intents and Snapshots
//
// DeclareTricks, PlayCard, AdvanceRound and SetupGame are intents. Each one is
// validated against a private copy of the state; a rejected intent returns a
// wrapped sentinel error (ErrWrongPhase, ErrNotYourTurn, ...) and changes
// nothing. Snapshot returns a deep copy, so callers may keep it.
//
// # Events
//
// Accepted intents publish events on an EventBus after the engine lock is
// released, in commit order. Every event carries the state as of its commit.
package game
