package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/bot"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/lox/ohhell/internal/rules"
)

// Engine owns one game. Intents are serialized by a mutex; every accepted
// intent replaces the state with a checked copy and publishes its events in
// commit order once the lock is released.
type Engine struct {
	mu    sync.Mutex
	state GameState

	// publishMu is taken before mu is released so events from consecutive
	// commits reach subscribers in order.
	publishMu sync.Mutex

	// policies holds the policy for each seat, nil for the human seat.
	policies []bot.Policy

	// epoch is bumped by ResetGame; timers scheduled under an older epoch
	// are ignored when they fire.
	epoch   uint64
	pending *quartz.Timer

	rng           *rand.Rand
	logger        *log.Logger
	clock         quartz.Clock
	aiDelay       time.Duration
	defaultPolicy bot.Policy
	seatPolicies  map[int]bot.Policy
	bus           EventBus
}

// NewEngine creates an engine in the setup phase
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.rng == nil {
		cfg.rng = randutil.New(randutil.Seed(0))
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	if cfg.clock == nil {
		cfg.clock = quartz.NewReal()
	}
	if cfg.bus == nil {
		cfg.bus = NewEventBus()
	}
	if cfg.policy == nil {
		cfg.policy = bot.NewHeuristic(cfg.rng, cfg.logger)
	}

	return &Engine{
		state:         initialState(),
		rng:           cfg.rng,
		logger:        cfg.logger.WithPrefix("engine"),
		clock:         cfg.clock,
		aiDelay:       cfg.aiDelay,
		defaultPolicy: cfg.policy,
		seatPolicies:  cfg.seatPolicies,
		bus:           cfg.bus,
	}
}

// Snapshot returns a deep copy of the current state
func (e *Engine) Snapshot() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Phase
}

// Subscribe registers a subscriber on the engine's event bus
func (e *Engine) Subscribe(subscriber EventSubscriber) {
	e.bus.Subscribe(subscriber)
}

// Unsubscribe removes a subscriber from the engine's event bus
func (e *Engine) Unsubscribe(subscriber EventSubscriber) {
	e.bus.Unsubscribe(subscriber)
}

// SetupGame seats the players and deals the first round. The first name is
// the human seat; the rest are AI. Blank names are replaced by "Player N".
func (e *Engine) SetupGame(names []string, totalRounds int) error {
	if err := e.intent(func(tx *txn) error {
		return e.setup(tx, names, totalRounds)
	}); err != nil {
		return err
	}
	e.drive()
	return nil
}

// DeclareTricks records the active player's bid
func (e *Engine) DeclareTricks(playerID string, count int) error {
	if err := e.intent(func(tx *txn) error {
		return tx.declare(playerID, count, "")
	}); err != nil {
		return err
	}
	e.drive()
	return nil
}

// PlayCard plays the card with the given id from the active player's hand
func (e *Engine) PlayCard(playerID, cardID string) error {
	if err := e.intent(func(tx *txn) error {
		return tx.play(playerID, cardID, "")
	}); err != nil {
		return err
	}
	e.drive()
	return nil
}

// AdvanceRound leaves the scoring phase, dealing the next round or ending
// the game after the last one.
func (e *Engine) AdvanceRound() error {
	if err := e.intent(func(tx *txn) error {
		if tx.s.Phase != PhaseScoring {
			return fmt.Errorf("advance round in %s: %w", tx.s.Phase, ErrWrongPhase)
		}
		return tx.startRound()
	}); err != nil {
		return err
	}
	e.drive()
	return nil
}

// ResetGame returns the engine to the setup phase from any phase. Pending
// AI turns are cancelled.
func (e *Engine) ResetGame() {
	e.mu.Lock()
	e.epoch++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	e.policies = nil

	tx := e.begin()
	*tx.s = initialState()
	tx.emit(GameResetEvent{baseEvent: tx.base()})
	e.commitLocked(tx)

	e.logger.Info("Game reset")
	e.publishAndUnlock(tx.events)
}

// intent applies fn to a copy of the state and commits the copy if fn and
// the invariant check both succeed. A rejected intent leaves the state as it
// was.
func (e *Engine) intent(fn func(tx *txn) error) error {
	e.mu.Lock()
	events, err := e.applyLocked(fn)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.publishAndUnlock(events)
	return nil
}

func (e *Engine) applyLocked(fn func(tx *txn) error) ([]Event, error) {
	tx := e.begin()
	if err := fn(tx); err != nil {
		e.logger.Debug("Intent rejected", "phase", e.state.Phase, "error", err)
		return nil, err
	}
	if err := checkInvariants(*tx.s); err != nil {
		e.logger.Error("Discarding inconsistent state", "phase", tx.s.Phase, "error", err)
		return nil, err
	}
	e.commitLocked(tx)
	return tx.events, nil
}

func (e *Engine) begin() *txn {
	next := e.state.Clone()
	return &txn{
		s:      &next,
		meta:   &eventMeta{at: e.clock.Now()},
		rng:    e.rng,
		logger: e.logger,
	}
}

func (e *Engine) commitLocked(tx *txn) {
	e.state = *tx.s
	tx.meta.state = e.state.Clone()
}

// publishAndUnlock releases mu and delivers events. publishMu is acquired
// first so a later commit cannot overtake these events.
func (e *Engine) publishAndUnlock(events []Event) {
	e.publishMu.Lock()
	e.mu.Unlock()
	defer e.publishMu.Unlock()

	for _, ev := range events {
		e.bus.Publish(ev)
	}
}

func (e *Engine) setup(tx *txn, names []string, totalRounds int) error {
	if tx.s.Phase != PhaseSetup {
		return fmt.Errorf("setup in %s: %w", tx.s.Phase, ErrWrongPhase)
	}
	if err := validateSetup(len(names), totalRounds); err != nil {
		return err
	}

	players := make([]Player, len(names))
	policies := make([]bot.Policy, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		players[i] = Player{
			ID:      fmt.Sprintf("player-%d", i),
			Name:    name,
			IsHuman: i == 0,
		}
		if i > 0 {
			policies[i] = e.policyFor(i)
		}
	}

	tx.s.ID = uuid.NewString()
	tx.s.Players = players
	tx.s.TotalRounds = totalRounds
	tx.s.HumanPlayerID = players[0].ID
	e.policies = policies

	e.logger.Info("Game setup", "game", tx.s.ID, "players", len(players), "rounds", totalRounds)
	tx.setPhase(PhaseDealing)
	return tx.startRound()
}

func (e *Engine) policyFor(seat int) bot.Policy {
	if p, ok := e.seatPolicies[seat]; ok && p != nil {
		return p
	}
	return e.defaultPolicy
}

// validateSetup checks the table size, the round count and that the largest
// round can be dealt with a trump card to spare.
func validateSetup(players, totalRounds int) error {
	if players < MinPlayers || players > MaxPlayers {
		return fmt.Errorf("%d players, want %d to %d: %w", players, MinPlayers, MaxPlayers, ErrInvalidConfig)
	}
	if totalRounds < MinRounds || totalRounds > MaxRounds {
		return fmt.Errorf("%d rounds, want %d to %d: %w", totalRounds, MinRounds, MaxRounds, ErrInvalidConfig)
	}
	largest := rules.CardsForRound(totalRounds)
	if err := cards.CheckDeal(players, largest); err != nil {
		return fmt.Errorf("%d players cannot be dealt %d cards each: %w: %w", players, largest, ErrInvalidConfig, err)
	}
	return nil
}

// ValidateSetup reports whether SetupGame would accept a table of this size
func ValidateSetup(players, totalRounds int) error {
	return validateSetup(players, totalRounds)
}

// MaxRoundsFor returns the most rounds a table of players can play
func MaxRoundsFor(players int) int {
	n := 0
	for r := MinRounds; r <= MaxRounds; r++ {
		if validateSetup(players, r) == nil {
			n = r
		}
	}
	return n
}

func isRejection(err error) bool {
	return err != nil && !errors.Is(err, ErrInvariant)
}
