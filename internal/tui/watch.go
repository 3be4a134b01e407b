package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourusername/bgledger/pkg/api"
	"github.com/yourusername/bgledger/pkg/client"
	"github.com/yourusername/bgledger/pkg/engine"
)

const historyLines = 8

type updateMsg client.Update

// streamClosedMsg signals that the update channel was closed.
type streamClosedMsg struct{}

// WatchModel follows a game's pushed records.
type WatchModel struct {
	game     string
	you      engine.Player
	updates  <-chan client.Update
	snap     *engine.Snapshot
	history  []string
	closed   bool
	quitting bool
}

// NewWatchModel creates a model reading updates for game, drawn from you's
// side of the board.
func NewWatchModel(game string, you engine.Player, updates <-chan client.Update) *WatchModel {
	return &WatchModel{game: game, you: you, updates: updates}
}

// Snapshot returns the latest record seen, or nil.
func (m *WatchModel) Snapshot() *engine.Snapshot {
	return m.snap
}

// History returns the recent record log, oldest first.
func (m *WatchModel) History() []string {
	return m.history
}

func (m *WatchModel) Init() tea.Cmd {
	return m.next()
}

// next waits for the following update.
func (m *WatchModel) next() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return streamClosedMsg{}
		}
		return updateMsg(u)
	}
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case updateMsg:
		m.record(msg.Snapshot, msg.View.LastMoves)
		if msg.Snapshot.Status == engine.StatusFinished {
			m.closed = true
			return m, tea.Quit
		}
		return m, m.next()

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *WatchModel) record(s *engine.Snapshot, moves []api.SubMoveView) {
	line := fmt.Sprintf("#%d %s", s.Counter, s.Status)
	if m.snap == nil || slices.Contains(s.Diff(m.snap), "last_moves") {
		if len(moves) > 0 {
			notation := make([]string, len(moves))
			for i, mv := range moves {
				notation[i] = mv.Notation
			}
			line += "  " + strings.Join(notation, " ")
		}
	}
	m.snap = s
	m.history = append(m.history, line)
	if len(m.history) > historyLines {
		m.history = m.history[len(m.history)-historyLines:]
	}
}

func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		return InfoStyle.Render(fmt.Sprintf("waiting for game %s...", m.game)) + "\n"
	}

	var b strings.Builder
	b.WriteString(RenderBoard(m.snap, m.you))
	b.WriteString("\n\n")
	for _, h := range m.history {
		b.WriteString(InfoStyle.Render(h))
		b.WriteByte('\n')
	}
	if !m.closed {
		b.WriteString(InfoStyle.Render("q to quit"))
		b.WriteByte('\n')
	}
	return b.String()
}
