// Package web is the browser rendition of the chat widget. The widget runs on the server; the page's
// DOM is kept in sync by pushing rendered fragments and removal/scroll commands over Server-Sent
// Events, one topic per widget session.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tmaxmax/go-sse"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
)

// Publisher is the part of the SSE server the view needs.
type Publisher interface {
	Publish(message *sse.Message, topics ...string) error
}

// Node is a rendered row. Its ID is also the id attribute of the row's root element.
type Node struct {
	ID   string
	HTML string
}

// Container pushes view mutations to the browsers subscribed to one topic.
type Container struct {
	pub   Publisher
	topic string

	logger zerolog.Logger
}

// Input is the browser's text field. The browser owns its value and sends it along with every
// submission, so the server side only ever clears it.
type Input struct {
	pub   Publisher
	topic string

	logger zerolog.Logger
}

// Template renders rows from the embedded message_row and typing_row partials.
type Template struct {
	templates *template.Template
	markdown  goldmark.Markdown
}

type messageRow struct {
	ID   string
	User bool
	Text string
	HTML template.HTML
}

type typingRow struct {
	ID string
}

// SSE event types understood by the widget script.
const (
	AppendEvent     = "append"
	RemoveEvent     = "remove"
	ScrollEvent     = "scroll"
	ClearInputEvent = "clearInput"
	CloseEvent      = "closeWidget"
)

// TopicPrefix prefixes the per-session topics.
const TopicPrefix = "widget-"

// SessionTopic returns the topic a widget session publishes on.
func SessionTopic(sessionID string) string {
	return TopicPrefix + sessionID
}

// NodeID implements widget.Node.
func (n Node) NodeID() string {
	return n.ID
}

// NewContainer creates a Container publishing on the session's topic.
func NewContainer(pub Publisher, sessionID string, logger zerolog.Logger) Container {
	return Container{
		pub:    pub,
		topic:  SessionTopic(sessionID),
		logger: logger.With().Str("module", "web").Str("sessionID", sessionID).Logger(),
	}
}

// Append implements widget.Container.
func (c Container) Append(node widget.Node) {
	n, ok := node.(Node)
	if !ok {
		c.logger.Error().Str("node", fmt.Sprintf("%T", node)).Msg("Unsupported node")
		return
	}
	publish(c.pub, c.topic, AppendEvent, n.HTML, c.logger)
}

// Remove implements widget.Container.
func (c Container) Remove(node widget.Node) {
	publish(c.pub, c.topic, RemoveEvent, node.NodeID(), c.logger)
}

// ScrollToBottom implements widget.Container.
func (c Container) ScrollToBottom() {
	publish(c.pub, c.topic, ScrollEvent, "bottom", c.logger)
}

// NewInput creates an Input for the session's text field.
func NewInput(pub Publisher, sessionID string, logger zerolog.Logger) Input {
	return Input{
		pub:    pub,
		topic:  SessionTopic(sessionID),
		logger: logger.With().Str("module", "web").Str("sessionID", sessionID).Logger(),
	}
}

// Value implements widget.Input. It is always empty, see Input.
func (Input) Value() string {
	return ""
}

// Clear implements widget.Input.
func (i Input) Clear() {
	publish(i.pub, i.topic, ClearInputEvent, "clear", i.logger)
}

// NewTemplate creates a Template. With markdown set, bot messages are rendered as markdown; otherwise
// every bubble shows its text verbatim.
func NewTemplate(templates *template.Template, markdown bool) Template {
	t := Template{templates: templates}
	if markdown {
		t.markdown = goldmark.New(goldmark.WithExtensions(highlighting.Highlighting))
	}
	return t
}

// Message implements widget.Template.
func (t Template) Message(msg models.Message) (widget.Node, error) {
	row := messageRow{
		ID:   "msg-" + msg.ID,
		User: msg.IsUser(),
		Text: msg.Text,
	}

	if t.markdown != nil && !msg.IsUser() {
		var buf bytes.Buffer
		if err := t.markdown.Convert([]byte(msg.Text), &buf); err != nil {
			return nil, fmt.Errorf("failed to render markdown: %w", err)
		}
		// goldmark drops raw HTML unless configured otherwise, so its output is safe to embed.
		row.HTML = template.HTML(strings.TrimSpace(buf.String()))
	}

	return t.render("message_row", row.ID, row)
}

// Typing implements widget.Template.
func (t Template) Typing() (widget.Node, error) {
	row := typingRow{ID: "typing-" + uuid.New().String()}
	return t.render("typing_row", row.ID, row)
}

func (t Template) render(name, id string, data any) (widget.Node, error) {
	var sb strings.Builder
	if err := t.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return nil, fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return Node{ID: id, HTML: sb.String()}, nil
}

func publish(pub Publisher, topic, event, data string, logger zerolog.Logger) {
	msg := sse.Message{Type: sse.Type(event)}
	msg.AppendData(data)
	if err := pub.Publish(&msg, topic); err != nil {
		logger.Error().Err(err).Str("event", event).Msg("Failed to publish view update")
	}
}
