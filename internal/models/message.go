package models

import "time"

// Message is a single chat bubble rendered by the widget. It is created either when the user submits
// text or when the prediction endpoint answers (or fails to), and it never changes once rendered.
type Message struct {
	ID        string
	Text      string
	Origin    Origin
	Timestamp time.Time
}

// Origin tells whether a message was authored by the user or by the remote system.
type Origin string

const (
	// OriginUser marks a message typed by the user.
	OriginUser Origin = "user"
	// OriginBot marks a message produced on behalf of the prediction endpoint, including the fixed
	// failure texts.
	OriginBot Origin = "bot"
)

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool {
	return m.Origin == OriginUser
}
