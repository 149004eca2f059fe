package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/internal/bot"
	"github.com/lox/ohhell/internal/config"
	"github.com/lox/ohhell/internal/game"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/lox/ohhell/internal/spectate"
	"github.com/lox/ohhell/internal/tui"
)

// PlayCmd runs the interactive game. Flags override the config file.
type PlayCmd struct {
	Config   string         `short:"c" default:"ohhell.hcl" type:"path" help:"HCL config file; a missing file means defaults"`
	Players  *int           `short:"p" help:"Number of players, 3 to 6"`
	Rounds   *int           `short:"r" help:"Number of rounds, 1 to 13"`
	Names    []string       `short:"n" help:"Player names in seat order; the first seat is yours"`
	AIDelay  *time.Duration `name:"ai-delay" help:"Pause between computer turns, e.g. 500ms"`
	Policy   string         `help:"Computer player policy: heuristic or random"`
	Seed     *int64         `help:"Shuffle seed, 0 for random"`
	LogLevel string         `help:"Log level: debug, info, warn, error"`
	LogFile  string         `type:"path" help:"Log file; the terminal belongs to the game"`
	Spectate string         `help:"Serve a read-only websocket feed on this address, e.g. localhost:8081"`
}

// loadConfig reads the config file and applies flag overrides
func (c *PlayCmd) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	if len(c.Names) > 0 {
		cfg.Game.Names = c.Names
		if c.Players == nil {
			cfg.Game.Players = max(len(c.Names), cfg.Game.Players)
		}
	}
	if c.Players != nil {
		cfg.Game.Players = *c.Players
	}
	if c.Rounds != nil {
		cfg.Game.Rounds = *c.Rounds
	}
	if c.AIDelay != nil {
		cfg.AI.DelayMS = int(c.AIDelay.Milliseconds())
	}
	if c.Policy != "" {
		cfg.AI.Policy = c.Policy
	}
	if c.Seed != nil {
		cfg.Seed = *c.Seed
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.Log.File = c.LogFile
	}
	if c.Spectate != "" {
		cfg.Spectate.Address = c.Spectate
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *PlayCmd) Run() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			log.Error("Failed to close log file", "error", err)
		}
	}()

	level, _ := log.ParseLevel(cfg.Log.Level)
	logger := log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})

	seed := randutil.Seed(cfg.Seed)
	rng := randutil.New(seed)
	policy, err := bot.New(cfg.AI.Policy, rng, logger)
	if err != nil {
		return err
	}
	logger.Info("Starting", "seed", seed, "players", cfg.Game.Players, "rounds", cfg.Game.Rounds, "policy", policy.Name())

	engine := game.NewEngine(
		game.WithRNG(rng),
		game.WithLogger(logger),
		game.WithAIDelay(cfg.AIDelay()),
		game.WithPolicy(policy),
	)

	if addr := cfg.Spectate.Address; addr != "" {
		feed := spectate.NewServer(engine, logger)
		go func() {
			if err := feed.ListenAndServe(addr); err != nil {
				logger.Error("Spectator feed stopped", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = feed.Close(ctx)
		}()
	}

	// Quitting mid-game must not leave AI timers firing into a closed log
	defer engine.ResetGame()
	return tui.Run(engine, cfg.PlayerNames(), cfg.Game.Rounds, logger)
}
