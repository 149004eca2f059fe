// Package simulator plays many headless games and collects statistics for
// the policy sitting in the human seat.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/internal/bot"
	"github.com/lox/ohhell/internal/game"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/lox/ohhell/internal/statistics"
	"golang.org/x/sync/errgroup"
)

// ErrStalled is returned when a game stops waiting on a seat the simulator
// does not drive.
var ErrStalled = errors.New("game stalled")

// Config holds configuration for running simulations
type Config struct {
	Games    int
	Players  int
	Rounds   int
	Policy   string // policy for the seat under test
	Opponent string // policy for every other seat
	Seed     int64
	Parallel int           // concurrent games, zero means GOMAXPROCS
	Timeout  time.Duration // per game, zero disables
	Logger   *log.Logger
}

// Validate reports configuration the engine or the policy registry would
// reject.
func (c Config) Validate() error {
	if c.Games <= 0 {
		return fmt.Errorf("games must be positive, got %d", c.Games)
	}
	if err := game.ValidateSetup(c.Players, c.Rounds); err != nil {
		return err
	}
	if err := bot.CheckName(c.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := bot.CheckName(c.Opponent); err != nil {
		return fmt.Errorf("opponent: %w", err)
	}
	return nil
}

// Simulator runs headless games
type Simulator struct {
	config Config
	logger *log.Logger
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{config: config, logger: logger.WithPrefix("simulator")}
}

// Run plays every game and returns the combined statistics. Games run in
// parallel but results are added in game order, so a seed always yields the
// same statistics.
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	parallel := s.config.Parallel
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	results := make([]statistics.GameResult, s.config.Games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	start := time.Now()
	for i := range s.config.Games {
		g.Go(func() error {
			result, err := s.PlayGame(ctx, i)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, r := range results {
		stats.Add(r)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}

	s.logger.Info("Simulation complete",
		"games", stats.Games,
		"parallel", parallel,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// PlayGame plays game n to completion. The seat under test is driven
// through the engine's public intents like a human player would be.
func (s *Simulator) PlayGame(ctx context.Context, n int) (statistics.GameResult, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	seed := randutil.Derive(s.config.Seed, n)
	logger := s.logger.With("game", n, "seed", seed)

	opponent, err := bot.New(s.config.Opponent, randutil.New(randutil.Derive(seed, 2)), logger)
	if err != nil {
		return statistics.GameResult{}, err
	}
	policy, err := bot.New(s.config.Policy, randutil.New(randutil.Derive(seed, 1)), logger)
	if err != nil {
		return statistics.GameResult{}, err
	}

	engine := game.NewEngine(
		game.WithRNG(randutil.New(seed)),
		game.WithLogger(logger),
		game.WithPolicy(opponent),
	)

	names := make([]string, s.config.Players)
	names[0] = "Under test"
	if err := engine.SetupGame(names, s.config.Rounds); err != nil {
		return statistics.GameResult{}, err
	}

	fallbacks := 0
	for {
		if err := ctx.Err(); err != nil {
			return statistics.GameResult{}, fmt.Errorf("game %d (seed %d): %w", n, seed, err)
		}

		st := engine.Snapshot()
		switch st.Phase {
		case game.PhaseGameOver:
			result := resultFor(st, seed)
			result.Fallbacks = fallbacks
			logger.Debug("Game finished", "points", result.Points, "rank", result.Rank)
			return result, nil

		case game.PhaseScoring:
			if err := engine.AdvanceRound(); err != nil {
				return statistics.GameResult{}, err
			}

		case game.PhaseBidding, game.PhasePlaying:
			used, err := move(engine, st, policy)
			if err != nil {
				return statistics.GameResult{}, fmt.Errorf("game %d (seed %d): %w", n, seed, err)
			}
			if used {
				fallbacks++
				logger.Warn("Policy decision rejected, used first legal move", "phase", st.Phase)
			}

		default:
			return statistics.GameResult{}, fmt.Errorf("game %d (seed %d) in %s: %w", n, seed, st.Phase, ErrStalled)
		}
	}
}

// move asks policy for the human seat's decision and submits it. A rejected
// decision is replaced by the first legal one; the bool reports that.
func move(engine *game.Engine, st game.GameState, policy bot.Policy) (bool, error) {
	p, ok := st.ActivePlayer()
	if !ok || !p.IsHuman {
		return false, fmt.Errorf("waiting on %q in %s: %w", p.ID, st.Phase, ErrStalled)
	}

	if st.Phase == game.PhaseBidding {
		d := policy.Bid(bot.BidRequest{
			PlayerID:      p.ID,
			Hand:          p.Hand,
			Trump:         st.TrumpSuit,
			CardsPerRound: st.CardsPerRound,
			DeclaredSoFar: st.DeclaredTotal(),
		})
		if engine.DeclareTricks(p.ID, d.Bid) == nil {
			return false, nil
		}
		return true, engine.DeclareTricks(p.ID, st.AllowedBids()[0])
	}

	d := policy.Play(bot.PlayRequest{
		PlayerID: p.ID,
		Hand:     p.Hand,
		Trick:    st.CurrentTrick,
		Trump:    st.TrumpSuit,
	})
	if engine.PlayCard(p.ID, d.Card.ID()) == nil {
		return false, nil
	}
	return true, engine.PlayCard(p.ID, st.PlayableCards(p.ID)[0].ID())
}

func resultFor(st game.GameState, seed int64) statistics.GameResult {
	result := statistics.GameResult{
		Seed:    seed,
		Players: len(st.Players),
		Rounds:  len(st.History),
	}

	for i, p := range st.Leaderboard() {
		if p.ID == st.HumanPlayerID {
			result.Points = p.Points
			result.Rank = i + 1
		}
	}
	if st.Winner != nil {
		result.TopPoints = st.Winner.Points
		result.Won = st.Winner.ID == st.HumanPlayerID
	}
	for _, h := range st.History {
		for _, r := range h.Results {
			if r.PlayerID == st.HumanPlayerID && r.Declared == r.Won {
				result.ExactBids++
			}
		}
	}
	return result
}

// RunSimulation is a convenience function for running a simulation
func RunSimulation(ctx context.Context, config Config) (*statistics.Statistics, error) {
	return New(config).Run(ctx)
}

// PrintSummary writes a summary of simulation results
func PrintSummary(w io.Writer, stats *statistics.Statistics, config Config) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== FINAL RESULTS: %s vs %s ===\n", config.Policy, config.Opponent)
	fmt.Fprintf(w, "Games played: %d (%d players, %d rounds)\n", stats.Games, config.Players, config.Rounds)

	fmt.Fprintf(w, "\n=== POINTS ===\n")
	fmt.Fprintf(w, "Mean: %.2f points/game\n", stats.Mean())
	fmt.Fprintf(w, "Median: %.2f points/game\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.2f\n", stats.StdDev())
	fmt.Fprintf(w, "Std Error: %.3f\n", stats.StdError())
	fmt.Fprintf(w, "95%% CI: [%.2f, %.2f]\n", low, high)
	fmt.Fprintf(w, "Percentiles: P5=%.1f, P25=%.1f, P75=%.1f, P95=%.1f\n",
		stats.Percentile(0.05), stats.Percentile(0.25), stats.Percentile(0.75), stats.Percentile(0.95))

	fmt.Fprintf(w, "\n=== BIDDING ===\n")
	fmt.Fprintf(w, "Exact bids: %d of %d rounds (%.1f%%)\n", stats.ExactBids, stats.Rounds, stats.ExactRate()*100)
	if stats.Fallbacks > 0 {
		fmt.Fprintf(w, "Rejected decisions: %d\n", stats.Fallbacks)
	}

	fmt.Fprintf(w, "\n=== PLACINGS ===\n")
	fmt.Fprintf(w, "Wins: %d (%.1f%%, fair share %.1f%%)\n", stats.Wins, stats.WinRate()*100, 100/float64(max(config.Players, 1)))
	fmt.Fprintf(w, "Mean deficit when beaten: %.2f points\n", stats.MeanDeficit())
	for rank := 1; rank <= statistics.MaxSeats; rank++ {
		rs := stats.RankResults[rank]
		if rs.Games > 0 {
			fmt.Fprintf(w, "Place %d: %d games (%.1f%%), %.2f points/game\n",
				rank, rs.Games, stats.RankShare(rank)*100, rs.Points/float64(rs.Games))
		}
	}
}
