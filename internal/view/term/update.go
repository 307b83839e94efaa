package term

import (
	"context"
	"slices"

	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// chromeHeight is the number of lines taken by the title, the separator and the input line.
const chromeHeight = 4

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.input.Width = max(10, msg.Width-4)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.hasTyping() {
			m.refresh()
		}
		return m, cmd

	case appendRowMsg:
		m.rows = append(m.rows, msg.row)
		m.refresh()
		return m, nil

	case removeRowMsg:
		m.rows = slices.DeleteFunc(m.rows, func(r row) bool { return r.id == msg.id })
		m.refresh()
		return m, nil

	case scrollBottomMsg:
		m.viewport.GotoBottom()
		return m, nil

	case clearInputMsg:
		m.input.Reset()
		m.field.set("")
		return m, nil

	case submittedMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m, keyDownCmd(m.ctx, m.widget, widget.KeyEnter)

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.field.set(m.input.Value())
	return m, cmd
}

// keyDownCmd runs the widget's submission outside the event loop. Its view updates come back as
// messages while it waits for the endpoint.
func keyDownCmd(ctx context.Context, w *widget.Widget, key string) tea.Cmd {
	return func() tea.Msg {
		w.KeyDown(ctx, key)
		return submittedMsg{}
	}
}

func (m Model) hasTyping() bool {
	return slices.ContainsFunc(m.rows, func(r row) bool { return r.typing })
}

// refresh re-renders the rows into the viewport. Scrolling is left to scrollBottomMsg.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderRows())
}
