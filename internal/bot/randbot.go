package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/internal/rules"
)

// Random bids a uniformly random allowed count and plays a uniformly random
// legal card. It is a baseline opponent for simulations.
type Random struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandom creates a new Random policy
func NewRandom(rng *rand.Rand, logger *log.Logger) *Random {
	if rng == nil {
		panic("rng is required for random policy")
	}
	return &Random{rng: rng, logger: logger.WithPrefix("random-bot")}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Bid(req BidRequest) Decision {
	allowed := rules.AllowedBids(req.CardsPerRound, req.DeclaredSoFar)
	if len(allowed) == 0 {
		return Decision{Reasoning: "random-bot no allowed bids"}
	}
	n := allowed[r.rng.IntN(len(allowed))]
	r.logger.Debug("Bid", "player", req.PlayerID, "bid", n, "allowed", allowed)
	return Decision{Bid: n, Reasoning: "random-bot random bid"}
}

func (r *Random) Play(req PlayRequest) Decision {
	legal := rules.Playable(req.Hand, req.Trick, req.Trump)
	if len(legal) == 0 {
		return Decision{Reasoning: "random-bot no legal cards"}
	}
	c := legal[r.rng.IntN(len(legal))]
	r.logger.Debug("Play", "player", req.PlayerID, "card", c)
	return Decision{Card: c, Reasoning: "random-bot random card"}
}
