package term

import (
	"sync"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// bridge forwards view mutations from the widget's goroutine into the bubbletea event loop. send is
// set once the program exists.
type bridge struct {
	send func(tea.Msg)
}

// row is one line group of the chat panel.
type row struct {
	id     string
	origin models.Origin
	text   string
	typing bool
}

// Panel is the chat panel seen from the widget: it is both the Container and the Template.
type Panel struct {
	b *bridge
}

// Field mirrors the text input of the model so that the widget, running outside the event loop, can
// read and clear it.
type Field struct {
	b *bridge

	mu    sync.Mutex
	value string
}

// NodeID implements widget.Node.
func (r row) NodeID() string {
	return r.id
}

// Append implements widget.Container.
func (p Panel) Append(node widget.Node) {
	r, ok := node.(row)
	if !ok {
		return
	}
	p.b.send(appendRowMsg{row: r})
}

// Remove implements widget.Container.
func (p Panel) Remove(node widget.Node) {
	p.b.send(removeRowMsg{id: node.NodeID()})
}

// ScrollToBottom implements widget.Container.
func (p Panel) ScrollToBottom() {
	p.b.send(scrollBottomMsg{})
}

// Message implements widget.Template.
func (Panel) Message(msg models.Message) (widget.Node, error) {
	return row{id: msg.ID, origin: msg.Origin, text: msg.Text}, nil
}

// Typing implements widget.Template.
func (Panel) Typing() (widget.Node, error) {
	return row{id: uuid.New().String(), origin: models.OriginBot, typing: true}, nil
}

// Value implements widget.Input.
func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Clear implements widget.Input.
func (f *Field) Clear() {
	f.set("")
	f.b.send(clearInputMsg{})
}

func (f *Field) set(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}
