package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/internal/fileutil"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/lox/ohhell/internal/simulator"
	"github.com/lox/ohhell/internal/statistics"
)

// SimulateCmd plays headless games with a policy in the first seat
type SimulateCmd struct {
	Games      int           `default:"1000" help:"Number of games to simulate"`
	Players    int           `default:"4" help:"Players per game, 3 to 6"`
	Rounds     int           `default:"8" help:"Rounds per game"`
	Policy     string        `default:"heuristic" help:"Policy under test: heuristic or random"`
	Opponent   string        `default:"random" help:"Policy for the other seats: heuristic or random"`
	Seed       int64         `default:"0" help:"RNG seed (0 for random)"`
	Parallel   int           `default:"0" help:"Concurrent games (0 for GOMAXPROCS)"`
	Timeout    time.Duration `default:"30s" help:"Per-game timeout"`
	WriteStats string        `type:"path" help:"Write statistics as JSON to this file"`
	Verbose    bool          `short:"v" help:"Verbose logging"`
}

// statsReport is the --write-stats file
type statsReport struct {
	Policy   string                 `json:"policy"`
	Opponent string                 `json:"opponent"`
	Players  int                    `json:"players"`
	Rounds   int                    `json:"rounds"`
	Seed     int64                  `json:"seed"`
	Mean     float64                `json:"mean"`
	StdError float64                `json:"stdError"`
	CI95     [2]float64             `json:"ci95"`
	WinRate  float64                `json:"winRate"`
	Stats    *statistics.Statistics `json:"stats"`
}

func (c *SimulateCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, os.Stdout, os.Stderr)
}

func (c *SimulateCmd) run(ctx context.Context, stdout, stderr io.Writer) error {
	level := log.WarnLevel
	if c.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(stderr, log.Options{Level: level, ReportTimestamp: true})

	cfg := simulator.Config{
		Games:    c.Games,
		Players:  c.Players,
		Rounds:   c.Rounds,
		Policy:   c.Policy,
		Opponent: c.Opponent,
		Seed:     randutil.Seed(c.Seed),
		Parallel: c.Parallel,
		Timeout:  c.Timeout,
		Logger:   logger,
	}
	logger.Info("Simulating", "games", cfg.Games, "seed", cfg.Seed)

	stats, err := simulator.RunSimulation(ctx, cfg)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	simulator.PrintSummary(stdout, stats, cfg)
	fmt.Fprintf(stdout, "\nSeed: %d\n", cfg.Seed)

	if c.WriteStats == "" {
		return nil
	}
	low, high := stats.ConfidenceInterval95()
	report := statsReport{
		Policy:   cfg.Policy,
		Opponent: cfg.Opponent,
		Players:  cfg.Players,
		Rounds:   cfg.Rounds,
		Seed:     cfg.Seed,
		Mean:     stats.Mean(),
		StdError: stats.StdError(),
		CI95:     [2]float64{low, high},
		WinRate:  stats.WinRate(),
		Stats:    stats,
	}
	if err := fileutil.WriteJSONAtomic(c.WriteStats, report, 0o644); err != nil {
		return err
	}
	logger.Info("Wrote statistics", "file", c.WriteStats)
	return nil
}
