package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/game"
)

// CommandKind is what the player asked for
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdBid
	CmdPlay
	CmdNext
	CmdNew
	CmdHelp
	CmdQuit
)

// Command is a parsed line of input
type Command struct {
	Kind  CommandKind
	Count int
	Card  cards.Card
}

// ErrUnknownCommand is returned for input that means nothing in the current phase
var ErrUnknownCommand = errors.New("unknown command")

// HelpText lists the accepted commands
const HelpText = "bid N | play <card or #> (e.g. play Th, play 3) | next | new | help | quit"

// ParseCommand interprets input against the snapshot it was typed for. A bare
// number bids while bidding and picks the N-th card of the displayed hand
// while playing; a bare card plays it; an empty line advances after scoring.
func ParseCommand(input string, s game.GameState) (Command, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		if s.Phase == game.PhaseScoring {
			return Command{Kind: CmdNext}, nil
		}
		return Command{Kind: CmdNone}, nil
	}

	verb, args := fields[0], fields[1:]
	switch verb {
	case "quit", "exit", "q":
		return Command{Kind: CmdQuit}, nil
	case "help", "h", "?":
		return Command{Kind: CmdHelp}, nil
	case "next", "n", "continue":
		return Command{Kind: CmdNext}, nil
	case "new", "reset", "restart":
		return Command{Kind: CmdNew}, nil
	case "bid", "b", "declare":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: bid N")
		}
		return parseBid(args[0])
	case "play", "p":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: play <card>")
		}
		return parsePlay(args[0], s)
	}

	if len(args) > 0 {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, input)
	}
	switch s.Phase {
	case game.PhaseBidding:
		if _, err := strconv.Atoi(verb); err == nil {
			return parseBid(verb)
		}
	case game.PhasePlaying:
		return parsePlay(verb, s)
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, input)
}

func parseBid(arg string) (Command, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return Command{}, fmt.Errorf("bid must be a number: %q", arg)
	}
	return Command{Kind: CmdBid, Count: n}, nil
}

// parsePlay accepts short card notation or a 1-based position in the sorted
// hand the TUI displays.
func parsePlay(arg string, s game.GameState) (Command, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		hand := humanHand(s)
		if n < 1 || n > len(hand) {
			return Command{}, fmt.Errorf("no card #%d in a hand of %d", n, len(hand))
		}
		return Command{Kind: CmdPlay, Card: hand[n-1]}, nil
	}

	c, err := cards.ParseCard(arg)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: CmdPlay, Card: c}, nil
}

// humanHand returns the human seat's hand in display order
func humanHand(s game.GameState) []cards.Card {
	p, ok := s.PlayerByID(s.HumanPlayerID)
	if !ok {
		return nil
	}
	return cards.Sort(p.Hand)
}
