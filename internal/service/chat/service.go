package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/chat"
	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// Service is the in-memory registry of chat sessions.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	personas  persona.Store
	responder Responder
	logger    *zap.Logger
}

// NewService bootstraps the in-memory chat service.
func NewService(personas persona.Store, responder Responder, log *zap.Logger) *Service {
	return &Service{
		sessions:  make(map[string]*Session),
		personas:  personas,
		responder: responder,
		logger:    logger.OrNop(log),
	}
}

// CreateSession provisions a session for personaID, or the default persona when blank.
func (s *Service) CreateSession(_ context.Context, personaID string) (*Session, error) {
	p, err := persona.Resolve(s.personas, personaID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, personaID)
		}
		return nil, err
	}

	session := NewSession(uuid.NewString(), p, s.responder, s.logger)

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	s.logger.Named("chat").Info("session created", zap.String("session", session.ID()), zap.String("persona", p.ID))
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession closes and forgets a session.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// ListSessions returns session snapshots ordered by creation time.
func (s *Service) ListSessions(_ context.Context) []chat.SessionInfo {
	s.mu.RLock()
	infos := make([]chat.SessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		infos = append(infos, session.Info())
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Close closes every session.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.Close()
		delete(s.sessions, id)
	}
}
