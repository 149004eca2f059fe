package tui

import (
	"io"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/cards"
	"github.com/lox/ohhell/internal/game"
	"github.com/lox/ohhell/internal/randutil"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestModel(t *testing.T) (*TUIModel, *game.Engine) {
	t.Helper()
	engine := game.NewEngine(
		game.WithRNG(randutil.New(7)),
		game.WithLogger(quietLogger()),
	)
	m := NewTUIModel(engine, []string{"", "Alice", "Bob"}, 2, quietLogger())
	t.Cleanup(m.Close)
	return m, engine
}

// drain feeds every queued engine event through Update
func drain(m *TUIModel) {
	for {
		select {
		case ev := <-m.events.Events():
			m.Update(eventMsg{event: ev})
		default:
			return
		}
	}
}

// humanInput picks a legal line of input for the human seat
func humanInput(t *testing.T, s game.GameState) string {
	t.Helper()
	switch s.Phase {
	case game.PhaseBidding:
		allowed := s.AllowedBids()
		require.NotEmpty(t, allowed)
		return strconv.Itoa(allowed[0])
	case game.PhasePlaying:
		playable := s.PlayableCards(s.HumanPlayerID)
		require.NotEmpty(t, playable)
		idx := slices.Index(humanHand(s), playable[0])
		require.GreaterOrEqual(t, idx, 0)
		return "play " + strconv.Itoa(idx+1)
	case game.PhaseScoring:
		return ""
	}
	t.Fatalf("no input for %s", s.Phase)
	return ""
}

func TestModelPlaysAFullGame(t *testing.T) {
	m, engine := newTestModel(t)

	require.Nil(t, m.Submit("new"))
	drain(m)

	s := engine.Snapshot()
	require.Equal(t, game.PhaseBidding, s.Phase)
	active, ok := s.ActivePlayer()
	require.True(t, ok)
	assert.True(t, active.IsHuman, "AI seats bid before the human")
	assert.Equal(t, s, m.snapshot)

	for range 200 {
		s = engine.Snapshot()
		if s.Phase == game.PhaseGameOver {
			break
		}
		require.Nil(t, m.Submit(humanInput(t, s)))
		drain(m)
	}

	require.Equal(t, game.PhaseGameOver, engine.Snapshot().Phase)
	logText := m.Log()
	assert.Contains(t, logText[0], "Round 1 of 2")
	for _, r := range engine.Snapshot().History[0].Results {
		if r.PlayerID == "player-0" {
			assert.Contains(t, logText, "You: bids "+strconv.Itoa(r.Declared))
		}
	}
	assert.Contains(t, logText[len(logText)-1], "Game over")

	for _, line := range logText {
		assert.NotContains(t, line, "Not now", "no input was rejected")
	}
}

func TestModelReportsRejectedInput(t *testing.T) {
	m, engine := newTestModel(t)
	require.Nil(t, m.Submit("new"))
	drain(m)
	m.ClearLog()

	m.Submit("bid 99")
	m.Submit("play Zz")
	m.Submit("dance")

	logText := m.Log()
	require.Len(t, logText, 3)
	assert.Contains(t, logText[0], "Bid between zero")
	assert.Contains(t, logText[1], "invalid rank")
	assert.Contains(t, logText[2], "unknown command")
	assert.Equal(t, game.PhaseBidding, engine.Snapshot().Phase, "nothing was applied")
}

func TestModelHelpAndQuit(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Nil(t, m.Submit("help"))
	require.Len(t, m.Log(), 1)
	assert.Contains(t, m.Log()[0], HelpText)

	assert.NotNil(t, m.Submit("quit"))
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestModelNewGameResets(t *testing.T) {
	m, engine := newTestModel(t)
	require.Nil(t, m.Submit("new"))
	drain(m)
	first := engine.Snapshot().ID

	require.Nil(t, m.Submit("restart"))
	drain(m)

	s := engine.Snapshot()
	assert.NotEqual(t, first, s.ID)
	assert.Equal(t, 1, s.RoundNumber)
	assert.Contains(t, m.Log(), "Game reset")
}

func TestModelReportsDroppedEvents(t *testing.T) {
	m, engine := newTestModel(t)

	small := game.NewChannelSubscriber(1)
	engine.Unsubscribe(m.events)
	m.events = small
	engine.Subscribe(small)

	require.Nil(t, m.Submit("new"))
	drain(m)

	require.Positive(t, small.Dropped())
	assert.Equal(t, small.Dropped(), m.dropped)
	assert.True(t, slices.ContainsFunc(m.Log(), func(line string) bool {
		return strings.Contains(line, "events skipped, view resynced")
	}))
	assert.Equal(t, engine.Snapshot().Phase, m.snapshot.Phase, "snapshot is current despite the drops")

	before := len(m.Log())
	engine.ResetGame()
	drain(m)
	require.Len(t, m.Log(), before+1, "drops already reported are not repeated")
	assert.Equal(t, "Game reset", m.Log()[before])
}

func TestCloseReleasesPendingWait(t *testing.T) {
	m, _ := newTestModel(t)
	wait := m.waitForEvent()

	m.Close()
	m.Close()

	done := make(chan tea.Msg, 1)
	go func() { done <- wait() }()
	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(time.Second):
		t.Fatal("waitForEvent still blocked after Close")
	}
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, "Loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	assert.Contains(t, view, "No game in progress")
	assert.Contains(t, view, "Type 'new' to start a game.")

	m.Submit("new")
	drain(m)
	view = m.View()
	assert.Contains(t, view, "Round 1/2")
	assert.Contains(t, view, "Trump: ")
	assert.Contains(t, view, "Hand: 1:")
	assert.Contains(t, view, "Your bid:")
	assert.Contains(t, view, "Alice")
}

func TestFocusToggle(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, 1, m.focusedPane)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.focusedPane)
	assert.False(t, m.actionInput.Focused())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.focusedPane)
	assert.True(t, m.actionInput.Focused())
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	hand := cards.MustParseCards("2c Kd Ah")
	state := func(phase game.Phase) game.GameState {
		return game.GameState{
			Phase:         phase,
			HumanPlayerID: "player-0",
			Players:       []game.Player{{ID: "player-0", Name: "You", Hand: hand, IsHuman: true}},
		}
	}

	tests := []struct {
		name  string
		input string
		phase game.Phase
		want  Command
		err   bool
	}{
		{name: "explicit bid", input: "bid 2", phase: game.PhaseBidding, want: Command{Kind: CmdBid, Count: 2}},
		{name: "bare number bids", input: "0", phase: game.PhaseBidding, want: Command{Kind: CmdBid, Count: 0}},
		{name: "bid needs a number", input: "bid two", phase: game.PhaseBidding, err: true},
		{name: "play card", input: "play kd", phase: game.PhasePlaying, want: Command{Kind: CmdPlay, Card: cards.MustParseCards("Kd")[0]}},
		{name: "play by position", input: "p 1", phase: game.PhasePlaying, want: Command{Kind: CmdPlay, Card: cards.MustParseCards("Ah")[0]}},
		{name: "bare card plays", input: "2C", phase: game.PhasePlaying, want: Command{Kind: CmdPlay, Card: cards.MustParseCards("2c")[0]}},
		{name: "bare position plays", input: "3", phase: game.PhasePlaying, want: Command{Kind: CmdPlay, Card: cards.MustParseCards("2c")[0]}},
		{name: "position out of range", input: "play 4", phase: game.PhasePlaying, err: true},
		{name: "enter advances after scoring", input: "  ", phase: game.PhaseScoring, want: Command{Kind: CmdNext}},
		{name: "enter does nothing while bidding", input: "", phase: game.PhaseBidding, want: Command{Kind: CmdNone}},
		{name: "next", input: "continue", phase: game.PhaseScoring, want: Command{Kind: CmdNext}},
		{name: "new", input: "new", phase: game.PhaseGameOver, want: Command{Kind: CmdNew}},
		{name: "help", input: "?", phase: game.PhaseSetup, want: Command{Kind: CmdHelp}},
		{name: "quit", input: "Q", phase: game.PhasePlaying, want: Command{Kind: CmdQuit}},
		{name: "bare number outside bidding and playing", input: "2", phase: game.PhaseScoring, err: true},
		{name: "unknown verb", input: "fold now", phase: game.PhasePlaying, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCommand(tt.input, state(tt.phase))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
