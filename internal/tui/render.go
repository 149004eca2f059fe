package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/game"
	"github.com/lox/ohhell/internal/rules"
)

// renderSidebarPane shows the round, trump and the score board
func (m *TUIModel) renderSidebarPane() string {
	s := m.snapshot
	var content strings.Builder

	if s.Phase == game.PhaseSetup {
		content.WriteString(InfoStyle.Render("No game in progress"))
		return content.String()
	}

	content.WriteString(HeaderStyle.Render(fmt.Sprintf(" Round %d/%d ", s.RoundNumber, s.TotalRounds)))
	content.WriteString("\n")
	if s.HasTrump {
		content.WriteString(TrumpStyle.Render("Trump: ") + formatCard(s.TrumpCard))
		content.WriteString("\n")
	}
	content.WriteString(InfoStyle.Render(fmt.Sprintf("%d cards, %d declared", s.CardsPerRound, s.DeclaredTotal())))
	content.WriteString("\n\n")

	content.WriteString(InfoStyle.Render("Player        Bid Won  Pts"))
	content.WriteString("\n")
	for i, p := range s.Players {
		marker := " "
		if i == s.DealerIndex {
			marker = "D"
		}
		line := fmt.Sprintf("%s %-11s %3s %3d %4d", marker, truncate(p.Name, 11), p.Bid, p.WonTricks, p.Points)
		if p.IsActive {
			line = ActivePlayerStyle.Render(line)
		} else {
			line = PlayerInfoStyle.Render(line)
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	return content.String()
}

// renderActionPane renders the trick, the hand and the input line
func (m *TUIModel) renderActionPane() string {
	s := m.snapshot
	var content strings.Builder

	switch s.Phase {
	case game.PhaseSetup:
		content.WriteString(HandInfoStyle.Render("Type 'new' to start a game."))
		content.WriteString("\n")
		m.actionInput.Placeholder = "new, quit"

	case game.PhaseBidding, game.PhasePlaying:
		content.WriteString(m.renderTrick(s))
		content.WriteString("\n")
		content.WriteString(m.renderHand(s))
		content.WriteString("\n")
		content.WriteString(m.renderPrompt(s))
		content.WriteString("\n")

	case game.PhaseScoring:
		content.WriteString(renderRoundTable(s))
		content.WriteString("\n")
		m.actionInput.Placeholder = "Enter for the next round"

	case game.PhaseGameOver:
		content.WriteString(renderGameOver(s))
		content.WriteString("\n")
		m.actionInput.Placeholder = "new, quit"
	}

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render("Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render("Tab to scroll log • Enter to submit • help for commands • Ctrl+C to quit"))
	}

	return content.String()
}

func (m *TUIModel) renderTrick(s game.GameState) string {
	if !s.CurrentTrick.IsEmpty() {
		return HandInfoStyle.Render("Trick: ") + formatPlays(s, s.CurrentTrick.Plays)
	}
	if s.LastTrick != nil {
		winner, _ := s.PlayerByID(s.LastTrick.WinnerID)
		return InfoStyle.Render(fmt.Sprintf("Last trick to %s: ", winner.Name)) + formatPlays(s, s.LastTrick.Plays)
	}
	return InfoStyle.Render("Trick: (empty)")
}

// renderHand shows the human hand in display order, numbered for "play N".
// Cards that may not be played now are dimmed.
func (m *TUIModel) renderHand(s game.GameState) string {
	hand := humanHand(s)
	playable := s.PlayableCards(s.HumanPlayerID)

	parts := make([]string, len(hand))
	for i, c := range hand {
		label := strconv.Itoa(i+1) + ":"
		if s.Phase == game.PhasePlaying && !cards.Contains(playable, c) {
			parts[i] = DimCardStyle.Render(label + c.String())
			continue
		}
		parts[i] = InfoStyle.Render(label) + formatCard(c)
	}
	return HandInfoStyle.Render("Hand: ") + strings.Join(parts, " ")
}

func (m *TUIModel) renderPrompt(s game.GameState) string {
	active, ok := s.ActivePlayer()
	if !ok || !active.IsHuman {
		name := "..."
		if ok {
			name = active.Name
		}
		m.actionInput.Placeholder = "waiting"
		return HandInfoStyle.Render("Waiting for " + name)
	}

	if s.Phase == game.PhaseBidding {
		m.actionInput.Placeholder = "bid N"
		allowed := make([]string, 0, len(s.AllowedBids()))
		for _, n := range s.AllowedBids() {
			allowed = append(allowed, strconv.Itoa(n))
		}
		line := "Your bid: " + strings.Join(allowed, " ")
		if n, ok := s.ForbiddenBid(); ok {
			line += fmt.Sprintf("  (not %d)", n)
		}
		return ActionsStyle.Render(line)
	}

	m.actionInput.Placeholder = "play <card> or play N"
	return ActionsStyle.Render("Your lead") + InfoStyle.Render(leadHint(s))
}

func leadHint(s game.GameState) string {
	if !s.CurrentTrick.HasLead {
		return ""
	}
	return fmt.Sprintf("  (%s led, %s trump)", s.CurrentTrick.LeadSuit.Symbol(), s.TrumpSuit.Symbol())
}

// renderRoundTable shows the last scored round: declared, won and points
func renderRoundTable(s game.GameState) string {
	if len(s.History) == 0 {
		return ""
	}
	h := s.History[len(s.History)-1]

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf(" Round %d complete, trump %s ", h.Round, h.TrumpSuit.Symbol())))
	b.WriteString("\n")
	for _, r := range h.Results {
		p, _ := s.PlayerByID(r.PlayerID)
		line := fmt.Sprintf("%-11s bid %2d won %2d  +%-3d total %d", truncate(p.Name, 11), r.Declared, r.Won, r.Points, p.Points)
		if r.Declared == r.Won {
			b.WriteString(SuccessStyle.Render(line))
		} else {
			b.WriteString(PlayerInfoStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// renderGameOver shows the winner and the final standings
func renderGameOver(s game.GameState) string {
	var b strings.Builder
	if s.Winner != nil {
		b.WriteString(HeaderStyle.Render(fmt.Sprintf(" %s wins with %d points ", s.Winner.Name, s.Winner.Points)))
		b.WriteString("\n")
	}
	for i, p := range s.Leaderboard() {
		b.WriteString(PlayerInfoStyle.Render(fmt.Sprintf("%d. %-11s %4d", i+1, truncate(p.Name, 11), p.Points)))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatPlays(s game.GameState, plays []rules.Play) string {
	parts := make([]string, len(plays))
	for i, p := range plays {
		who, _ := s.PlayerByID(p.PlayerID)
		parts[i] = fmt.Sprintf("%s %s", truncate(who.Name, 8), formatCard(p.Card))
	}
	return strings.Join(parts, "  ")
}

// formatCard colours a card by suit
func formatCard(c cards.Card) string {
	if c.IsRed() {
		return RedCardStyle.Render(c.String())
	}
	return BlackCardStyle.Render(c.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
