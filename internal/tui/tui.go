package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/ohhell/internal/game"
)

// eventBuffer is how many engine events may queue before the oldest are
// dropped. The model re-reads the snapshot after every message, so a drop
// only loses a log line.
const eventBuffer = 1024

// Engine is the part of game.Engine the TUI drives
type Engine interface {
	Snapshot() game.GameState
	SetupGame(names []string, totalRounds int) error
	DeclareTricks(playerID string, count int) error
	PlayCard(playerID, cardID string) error
	AdvanceRound() error
	ResetGame()
	Subscribe(subscriber game.EventSubscriber)
	Unsubscribe(subscriber game.EventSubscriber)
}

// TUIModel represents the Bubble Tea model for the card game
type TUIModel struct {
	engine    Engine
	logger    *log.Logger
	formatter *game.EventFormatter
	events    *game.ChannelSubscriber
	dropped   int // events.Dropped() already reported
	done      chan struct{}
	closeOnce sync.Once

	// perspective is the human player id the formatter addresses as "You"
	perspective string

	// Replayed by the "new" command
	names  []string
	rounds int

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	snapshot    game.GameState
	gameLog     []string
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Dimensions
	width       int
	height      int
	initialized bool // Track if viewport has been properly sized
}

// eventMsg carries one engine event into the update loop
type eventMsg struct {
	event game.Event
}

// NewTUIModel creates a model for an engine. names and rounds are used to
// start a fresh game when the player asks for one.
func NewTUIModel(engine Engine, names []string, rounds int, logger *log.Logger) *TUIModel {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "bid N, play <card>, next, help"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	m := &TUIModel{
		engine:      engine,
		logger:      logger.WithPrefix("tui"),
		events:      game.NewChannelSubscriber(eventBuffer),
		done:        make(chan struct{}),
		names:       names,
		rounds:      rounds,
		logViewport: vp,
		actionInput: ti,
		focusedPane: 1, // Start with input focused
	}
	m.snapshot = engine.Snapshot()
	m.setPerspective(m.snapshot.HumanPlayerID)
	engine.Subscribe(m.events)
	return m
}

// Close detaches the model from the engine and releases a pending
// waitForEvent. It is safe to call more than once.
func (m *TUIModel) Close() {
	m.closeOnce.Do(func() {
		m.engine.Unsubscribe(m.events)
		close(m.done)
	})
}

// Init initializes the TUI model
func (m *TUIModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent())
}

// waitForEvent returns a command that delivers the next engine event
func (m *TUIModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events.Events():
			return eventMsg{event: ev}
		case <-m.done:
			return nil
		}
	}
}

// Update handles messages in the TUI
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg:
		m.handleEvent(msg.event)
		return m, m.waitForEvent()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if cmd := m.Submit(input); cmd != nil {
					return m, cmd
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TUIModel) handleEvent(ev game.Event) {
	if ev == nil {
		return
	}
	m.snapshot = m.engine.Snapshot()
	if dropped := m.events.Dropped(); dropped > m.dropped {
		skipped := dropped - m.dropped
		m.dropped = dropped
		m.logger.Warn("Event buffer overflowed", "skipped", skipped, "total", dropped)
		m.AddLogEntry(WarningStyle.Render(fmt.Sprintf("(%d events skipped, view resynced)", skipped)))
	}
	if human := ev.Snapshot().HumanPlayerID; human != m.perspective {
		m.setPerspective(human)
	}
	if line := m.formatter.Format(ev); line != "" {
		m.AddLogEntry(line)
	}
}

func (m *TUIModel) setPerspective(playerID string) {
	m.perspective = playerID
	m.formatter = game.NewEventFormatter(game.FormattingOptions{Perspective: playerID})
}

// Submit runs one line of player input against the engine. It returns
// tea.Quit for the quit command.
func (m *TUIModel) Submit(input string) tea.Cmd {
	defer func() { m.snapshot = m.engine.Snapshot() }()

	s := m.engine.Snapshot()
	cmd, err := ParseCommand(input, s)
	if err != nil {
		m.AddLogEntry(ErrorStyle.Render(err.Error()))
		return nil
	}

	human := s.HumanPlayerID
	switch cmd.Kind {
	case CmdNone:
		return nil
	case CmdQuit:
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	case CmdHelp:
		m.AddLogEntry(InfoStyle.Render(HelpText))
		return nil
	case CmdBid:
		err = m.engine.DeclareTricks(human, cmd.Count)
	case CmdPlay:
		err = m.engine.PlayCard(human, cmd.Card.ID())
	case CmdNext:
		err = m.engine.AdvanceRound()
	case CmdNew:
		if s.Phase != game.PhaseSetup {
			m.engine.ResetGame()
		}
		err = m.engine.SetupGame(m.names, m.rounds)
	}

	if err != nil {
		m.logger.Debug("Intent rejected", "input", input, "error", err)
		style := ErrorStyle
		if errors.Is(err, game.ErrWrongPhase) || errors.Is(err, game.ErrNotYourTurn) {
			style = WarningStyle
		}
		m.AddLogEntry(style.Render(describe(err)))
	}
	return nil
}

// describe turns an engine rejection into a message for the player
func describe(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "Wait for your turn."
	case errors.Is(err, game.ErrForbiddenBidTotal):
		return "That bid would make the declared tricks equal the cards dealt."
	case errors.Is(err, game.ErrBidOutOfRange):
		return "Bid between zero and the number of cards dealt."
	case errors.Is(err, game.ErrIllegalCard):
		return "You must follow the lead suit, or trump if you cannot."
	case errors.Is(err, game.ErrCardNotInHand):
		return "You do not hold that card."
	case errors.Is(err, game.ErrWrongPhase):
		return fmt.Sprintf("Not now: %v", err)
	default:
		return err.Error()
	}
}

// View renders the TUI
func (m *TUIModel) View() string {
	if m.quitting {
		return ""
	}

	// Don't render until we have valid dimensions
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1))
	if m.focusedPane == 1 {
		actionStyle = actionStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	actionPane := actionStyle.Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	m.logViewport.SetContent(m.renderLogPane())
	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight

	// On first proper sizing, reset to top to avoid starting scrolled down
	if !m.initialized && m.logViewport.Width > 1 && m.logViewport.Height > 1 {
		m.logViewport.GotoTop()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

// renderLogPane renders the game log pane content
func (m *TUIModel) renderLogPane() string {
	return strings.Join(m.gameLog, "\n")
}

// AddLogEntry adds an entry to the game log and scrolls to it
func (m *TUIModel) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(m.renderLogPane())

	// Only call GotoBottom if viewport has valid dimensions
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the log lines
func (m *TUIModel) Log() []string {
	out := make([]string, len(m.gameLog))
	copy(out, m.gameLog)
	return out
}

// ClearLog clears the game log
func (m *TUIModel) ClearLog() {
	m.gameLog = nil
	m.logViewport.SetContent("")
}

// Run deals a new game and starts a bubbletea program on the alternate
// screen. It blocks until the player quits.
func Run(engine Engine, names []string, rounds int, logger *log.Logger) error {
	m := NewTUIModel(engine, names, rounds, logger)
	defer m.Close()

	if err := engine.SetupGame(names, rounds); err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
