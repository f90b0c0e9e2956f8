package media

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/zai-studio/backend/internal/storage"
)

// Service is the registry of media workspaces. Each workspace owns one Pipeline.
type Service struct {
	cfg PipelineConfig

	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

// NewService creates an empty registry sharing cfg's client, store and backend.
func NewService(cfg PipelineConfig) *Service {
	return &Service{cfg: cfg, pipelines: make(map[string]*Pipeline)}
}

// Store exposes the blob store that holds generated media.
func (s *Service) Store() storage.BlobStore { return s.cfg.Store }

// CreateWorkspace provisions a new pipeline.
func (s *Service) CreateWorkspace(_ context.Context) *Pipeline {
	p := NewPipeline(uuid.NewString(), s.cfg)
	s.mu.Lock()
	s.pipelines[p.ID()] = p
	s.mu.Unlock()
	return p
}

// Workspace looks up a pipeline by id.
func (s *Service) Workspace(id string) (*Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return p, nil
}

// DeleteWorkspace forgets a pipeline and releases its displayed result.
func (s *Service) DeleteWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	p, ok := s.pipelines[id]
	delete(s.pipelines, id)
	s.mu.Unlock()

	if !ok {
		return ErrWorkspaceNotFound
	}
	p.Release(ctx)
	return nil
}
