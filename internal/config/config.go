// Package config loads the HCL game configuration file.
//
// Example:
//
//	seed = 42
//
//	game {
//	  players = 4
//	  names   = ["You", "Alice", "Bob", "Carol"]
//	  rounds  = 8
//	}
//
//	ai {
//	  delay_ms = 800
//	  policy   = "heuristic"
//	}
//
//	log {
//	  level = "info"
//	  file  = "ohhell.log"
//	}
//
//	spectate {
//	  address = "localhost:8081"
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/ohhell/internal/bot"
	"github.com/lox/ohhell/internal/game"
)

// Defaults
const (
	DefaultPlayers = 3
	DefaultRounds  = 8
	DefaultDelayMS = 1000
	DefaultPolicy  = "heuristic"
	DefaultLevel   = "info"
	DefaultLogFile = "ohhell.log"
)

// Config is the complete game configuration
type Config struct {
	Seed     int64             `hcl:"seed,optional"`
	Game     *GameSettings     `hcl:"game,block"`
	AI       *AISettings       `hcl:"ai,block"`
	Log      *LogSettings      `hcl:"log,block"`
	Spectate *SpectateSettings `hcl:"spectate,block"`
}

// GameSettings sizes the table
type GameSettings struct {
	Players int      `hcl:"players,optional"`
	Names   []string `hcl:"names,optional"`
	Rounds  int      `hcl:"rounds,optional"`
}

// AISettings configures the computer players
type AISettings struct {
	DelayMS int    `hcl:"delay_ms,optional"`
	Policy  string `hcl:"policy,optional"`
}

// LogSettings configures logging
type LogSettings struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
}

// SpectateSettings enables the read-only websocket feed
type SpectateSettings struct {
	Address string `hcl:"address,optional"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Game: &GameSettings{
			Players: DefaultPlayers,
			Rounds:  DefaultRounds,
		},
		AI: &AISettings{
			DelayMS: DefaultDelayMS,
			Policy:  DefaultPolicy,
		},
		Log: &LogSettings{
			Level: DefaultLevel,
			File:  DefaultLogFile,
		},
		Spectate: &SpectateSettings{},
	}
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	return decode(file, diags)
}

// Parse decodes HCL source; filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	return decode(file, diags)
}

func decode(file *hcl.File, diags hcl.Diagnostics) (*Config, error) {
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults fills in every value the file left out
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Game == nil {
		c.Game = defaults.Game
	}
	if c.Game.Players == 0 {
		c.Game.Players = max(len(c.Game.Names), defaults.Game.Players)
	}
	if c.Game.Rounds == 0 {
		c.Game.Rounds = defaults.Game.Rounds
	}

	if c.AI == nil {
		c.AI = defaults.AI
	}
	if c.AI.Policy == "" {
		c.AI.Policy = defaults.AI.Policy
	}

	if c.Log == nil {
		c.Log = defaults.Log
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.File == "" {
		c.Log.File = defaults.Log.File
	}

	if c.Spectate == nil {
		c.Spectate = defaults.Spectate
	}
}

// Validate checks the configuration describes a playable game
func (c *Config) Validate() error {
	if len(c.Game.Names) > c.Game.Players {
		return fmt.Errorf("%d names given for %d players", len(c.Game.Names), c.Game.Players)
	}
	if err := game.ValidateSetup(c.Game.Players, c.Game.Rounds); err != nil {
		return err
	}
	if c.AI.DelayMS < 0 {
		return fmt.Errorf("ai delay cannot be negative: %d", c.AI.DelayMS)
	}
	if err := bot.CheckName(c.AI.Policy); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// PlayerNames returns one name per seat. Seats without a configured name are
// left blank so the engine names them.
func (c *Config) PlayerNames() []string {
	names := make([]string, c.Game.Players)
	copy(names, c.Game.Names)
	return names
}

// AIDelay returns the pacing delay between AI turns
func (c *Config) AIDelay() time.Duration {
	return time.Duration(c.AI.DelayMS) * time.Millisecond
}
