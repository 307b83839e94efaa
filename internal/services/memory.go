package services

import (
	"context"
	"slices"
	"sync"

	"github.com/MegaGrindStone/chat-widget/internal/models"
)

// Memory keeps sessions in process memory. Everything is lost on restart.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]models.Session)}
}

// Session returns a copy of the stored session, or an empty session with the given ID.
func (m *Memory) Session(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return models.Session{ID: id}, nil
	}
	sess.History = slices.Clone(sess.History)
	return sess, nil
}

// SaveSession stores a copy of the session.
func (m *Memory) SaveSession(_ context.Context, sess models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.History = slices.Clone(sess.History)
	m.sessions[sess.ID] = sess
	return nil
}
