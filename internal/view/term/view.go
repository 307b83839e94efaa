package term

import (
	"strings"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles.
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	botBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	avatarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

const avatar = "●"

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(0, m.width)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString(hintStyle.Render("  [Enter to send, Esc to quit]"))

	return b.String()
}

func (m Model) renderRows() string {
	rows := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		rows = append(rows, m.renderRow(r))
	}
	return strings.Join(rows, "\n\n")
}

// renderRow draws one message: user bubbles hug the right edge without an avatar, bot bubbles sit on
// the left behind the avatar.
func (m Model) renderRow(r row) string {
	bubbleWidth := max(10, m.width*3/4)

	if r.typing {
		return avatarStyle.Render(avatar) + " " + botBubbleStyle.Render(m.spinner.View())
	}

	if r.origin == models.OriginUser {
		bubble := wrap(userBubbleStyle, r.text, bubbleWidth)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble)
	}

	text := r.text
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(text); err == nil {
			text = strings.TrimSpace(rendered)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, avatarStyle.Render(avatar)+" ", wrap(botBubbleStyle, text, bubbleWidth))
}

// wrap renders text in style, as narrow as the text allows and no wider than maxWidth.
func wrap(style lipgloss.Style, text string, maxWidth int) string {
	w := lipgloss.Width(text) + style.GetHorizontalFrameSize()
	if w > maxWidth {
		w = maxWidth
	}
	return style.Width(w).Render(text)
}
