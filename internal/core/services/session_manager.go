package services

import (
	"context"
	"sync"

	"framewire/internal/core/domain"

	"go.uber.org/zap"
)

// SessionFactory builds a fresh Idle session for the manager.
type SessionFactory func() (*StreamSession, error)

// SessionManager owns at most one live StreamSession for the control API.
// A stopped session stays visible through Current until the next Start.
type SessionManager struct {
	factory SessionFactory
	logger  *zap.SugaredLogger

	mu      sync.RWMutex
	current *StreamSession
}

func NewSessionManager(factory SessionFactory, logger *zap.SugaredLogger) *SessionManager {
	return &SessionManager{
		factory: factory,
		logger:  logger,
	}
}

// Start creates and starts a new session unless one is already streaming.
func (m *SessionManager) Start(ctx context.Context, peerAddress string) (*StreamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.State() == domain.StateStreaming {
		return nil, domain.ErrAlreadyStarted
	}

	session, err := m.factory()
	if err != nil {
		return nil, err
	}
	if err := session.Start(ctx, peerAddress); err != nil {
		return nil, err
	}
	m.current = session
	return session, nil
}

// Stop stops the current session.
func (m *SessionManager) Stop(ctx context.Context) (*domain.SessionReport, error) {
	m.mu.RLock()
	session := m.current
	m.mu.RUnlock()

	if session == nil {
		return nil, domain.ErrNotStarted
	}
	return session.Stop(ctx)
}

func (m *SessionManager) Current() *StreamSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Shutdown stops a streaming session and waits for its loops to exit.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	session := m.Current()
	if session == nil || session.State() != domain.StateStreaming {
		return nil
	}
	if _, err := session.Stop(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		m.logger.Warnw("session loops did not exit before shutdown deadline", "session_id", string(session.ID()))
		return ctx.Err()
	}
}
