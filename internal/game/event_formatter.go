package game

import (
	"fmt"
	"strings"

	"github.com/lox/ohhell/cards"
)

// FormattingOptions controls how events are formatted for different contexts
type FormattingOptions struct {
	ShowReasonings bool   // Include AI reasoning
	Perspective    string // Player id whose own actions read as "You"
}

// EventFormatter renders events as single log lines
type EventFormatter struct {
	opts FormattingOptions
}

// NewEventFormatter creates a new event formatter with the given options
func NewEventFormatter(opts FormattingOptions) *EventFormatter {
	return &EventFormatter{opts: opts}
}

// Format renders any event. Events with nothing worth showing return "".
func (ef *EventFormatter) Format(event Event) string {
	s := event.Snapshot()
	switch ev := event.(type) {
	case RoundStartedEvent:
		return fmt.Sprintf("*** Round %d of %d *** %d cards, trump %s, %s deals",
			ev.Round, s.TotalRounds, ev.CardsPerRound, ev.Trump, ef.name(s, ev.DealerID))
	case BidDeclaredEvent:
		line := fmt.Sprintf("%s: bids %d", ef.name(s, ev.PlayerID), ev.Count)
		return ef.withReasoning(line, ev.Reasoning)
	case CardPlayedEvent:
		line := fmt.Sprintf("%s: plays %s", ef.name(s, ev.PlayerID), ev.Card)
		return ef.withReasoning(line, ev.Reasoning)
	case TrickCompletedEvent:
		verb := "wins"
		who := ef.name(s, ev.WinnerID)
		if who == "You" {
			verb = "win"
		}
		return fmt.Sprintf("%s %s the trick [%s]", who, verb, ef.formatPlays(ev))
	case RoundScoredEvent:
		return ef.FormatRoundSummary(s, ev.History)
	case GameOverEvent:
		return fmt.Sprintf("=== Game over === %s wins with %d points", ev.Winner.Name, ev.Winner.Points)
	case PhaseChangedEvent:
		if ev.To == PhasePlaying {
			return fmt.Sprintf("Bidding closed: %d tricks declared for %d cards", s.DeclaredTotal(), s.CardsPerRound)
		}
		return ""
	case GameResetEvent:
		return "Game reset"
	default:
		return ""
	}
}

// FormatRoundSummary renders one line per player: declared, won and points
func (ef *EventFormatter) FormatRoundSummary(s GameState, h RoundHistory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Round %d complete (trump %s) ===", h.Round, h.TrumpSuit.Symbol())
	for _, r := range h.Results {
		mark := " "
		if r.Declared == r.Won {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n%s %-12s bid %2d won %2d  +%d", mark, ef.name(s, r.PlayerID), r.Declared, r.Won, r.Points)
	}
	return b.String()
}

func (ef *EventFormatter) name(s GameState, playerID string) string {
	if ef.opts.Perspective != "" && playerID == ef.opts.Perspective {
		return "You"
	}
	if p, ok := s.PlayerByID(playerID); ok {
		return p.Name
	}
	return playerID
}

func (ef *EventFormatter) withReasoning(line, reasoning string) string {
	if ef.opts.ShowReasonings && reasoning != "" {
		return line + " (" + reasoning + ")"
	}
	return line
}

func (ef *EventFormatter) formatPlays(ev TrickCompletedEvent) string {
	played := make([]cards.Card, len(ev.Plays))
	for i, p := range ev.Plays {
		played[i] = p.Card
	}
	return cards.Format(played)
}
