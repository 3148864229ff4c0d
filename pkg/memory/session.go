package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autoresearch/pkg/model"
	"autoresearch/pkg/store"
)

// SessionManager enforces the single-active-session-per-instance
// invariant on top of the document store.
type SessionManager struct {
	docs   store.DocumentStore
	logger *slog.Logger

	mu      sync.Mutex
	current *model.Session
}

func NewSessionManager(docs store.DocumentStore, logger *slog.Logger) *SessionManager {
	return &SessionManager{docs: docs, logger: logger}
}

// StartSession creates and activates a session. It fails if another
// session is already active on this instance.
func (m *SessionManager) StartSession(ctx context.Context, topic string, goal model.Goal, userID string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, fmt.Errorf("memory: session %s is already active", m.current.ID)
	}

	s := model.NewSession(topic, goal, userID)
	if err := m.docs.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("memory: create session: %w", err)
	}
	m.current = s
	return s, nil
}

// CompleteSession marks the active session completed and clears it. It
// is a no-op (with a logged warning) if no session is active.
func (m *SessionManager) CompleteSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.logger.Warn("memory: completeSession called with no active session")
		return nil
	}

	now := time.Now().UTC()
	m.current.Status = model.SessionCompleted
	m.current.CompletedAt = &now
	m.current.UpdatedAt = now
	if err := m.docs.UpdateSession(ctx, m.current); err != nil {
		return fmt.Errorf("memory: complete session: %w", err)
	}
	m.current = nil
	return nil
}

// GetCurrentSession returns the active session, or nil.
func (m *SessionManager) GetCurrentSession() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
