package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Play        PlayCmd          `cmd:"" default:"withargs" help:"Play a game in the terminal against computer players"`
	Simulate    SimulateCmd      `cmd:"" help:"Play many headless games and report statistics"`
	VersionInfo VersionCmd       `cmd:"version" help:"Print the version"`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("ohhell", version)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ohhell"),
		kong.Description("Oh Hell: declare your tricks, then take exactly that many"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
