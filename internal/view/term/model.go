// Package term is the terminal rendition of the chat widget: a full-screen bubbletea program whose
// viewport is the scrolling panel and whose text input is the input field.
package term

import (
	"context"
	"os"

	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Options configures the terminal UI.
type Options struct {
	// Title is shown above the panel.
	Title string
	// Markdown renders bot messages through glamour instead of verbatim.
	Markdown bool
	// WidgetOptions are passed to widget.New.
	WidgetOptions []widget.Option
}

// Model is the bubbletea model of the terminal widget.
type Model struct {
	ctx    context.Context
	widget *widget.Widget
	field  *Field

	title string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	rows []row

	// renderer is nil unless markdown rendering is enabled.
	renderer *glamour.TermRenderer

	width  int
	height int

	quitting bool
}

// UI couples a widget with the bubbletea program displaying it.
type UI struct {
	program *tea.Program
}

// NewModel creates the model and the widget it drives. send delivers messages to the running program.
func NewModel(ctx context.Context, predictor widget.Predictor, send func(tea.Msg), opts Options) (Model, error) {
	b := &bridge{send: send}
	panel := Panel{b: b}
	field := &Field{b: b}

	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 76

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = typingStyle

	var renderer *glamour.TermRenderer
	if opts.Markdown {
		rendererOpts := []glamour.TermRendererOption{glamour.WithWordWrap(60)}
		if os.Getenv("NO_COLOR") != "" {
			rendererOpts = append(rendererOpts, glamour.WithStylePath("notty"))
		} else {
			rendererOpts = append(rendererOpts, glamour.WithAutoStyle())
		}

		var err error
		renderer, err = glamour.NewTermRenderer(rendererOpts...)
		if err != nil {
			return Model{}, err
		}
	}

	title := opts.Title
	if title == "" {
		title = "Chat"
	}

	return Model{
		ctx:      ctx,
		widget:   widget.New(panel, field, panel, predictor, opts.WidgetOptions...),
		field:    field,
		title:    title,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  s,
		renderer: renderer,
		width:    80,
		height:   24,
	}, nil
}

// New creates a terminal UI talking to predictor.
func New(ctx context.Context, predictor widget.Predictor, opts Options) (*UI, error) {
	var program *tea.Program
	send := func(msg tea.Msg) { program.Send(msg) }

	m, err := NewModel(ctx, predictor, send, opts)
	if err != nil {
		return nil, err
	}

	program = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	return &UI{program: program}, nil
}

// Run blocks until the user quits or the context is canceled.
func (u *UI) Run() error {
	_, err := u.program.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}
