package game

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/ohhell/internal/bot"
)

// Option configures an Engine during creation.
type Option func(*engineConfig)

// engineConfig holds everything NewEngine needs.
type engineConfig struct {
	rng          *rand.Rand
	logger       *log.Logger
	clock        quartz.Clock
	aiDelay      time.Duration
	policy       bot.Policy
	seatPolicies map[int]bot.Policy
	bus          EventBus
}

// WithRNG sets the source used for shuffling and for the default AI policy.
func WithRNG(rng *rand.Rand) Option {
	return func(c *engineConfig) {
		if rng == nil {
			panic("rng must not be nil")
		}
		c.rng = rng
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *engineConfig) { c.logger = logger }
}

// WithClock sets the clock used for event timestamps and AI pacing.
func WithClock(clock quartz.Clock) Option {
	return func(c *engineConfig) { c.clock = clock }
}

// WithAIDelay paces AI turns. Zero runs them synchronously inside the
// intent that handed them the turn.
func WithAIDelay(d time.Duration) Option {
	return func(c *engineConfig) { c.aiDelay = max(d, 0) }
}

// WithPolicy sets the policy used by every AI seat without its own.
func WithPolicy(p bot.Policy) Option {
	return func(c *engineConfig) { c.policy = p }
}

// WithSeatPolicy sets the policy for one AI seat. Seat 0 is the human seat
// and is never driven by the engine.
func WithSeatPolicy(seat int, p bot.Policy) Option {
	return func(c *engineConfig) {
		if c.seatPolicies == nil {
			c.seatPolicies = make(map[int]bot.Policy)
		}
		c.seatPolicies[seat] = p
	}
}

// WithEventBus publishes events on bus instead of a private one.
func WithEventBus(bus EventBus) Option {
	return func(c *engineConfig) { c.bus = bus }
}
