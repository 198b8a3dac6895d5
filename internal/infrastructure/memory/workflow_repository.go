package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

var _ repository.WorkflowRepository = (*WorkflowRepo)(nil)

// WorkflowRepo configuración de flujo en memoria; conserva el orden de inserción.
type WorkflowRepo struct {
	mu          sync.RWMutex
	stages      []entity.WorkflowStage
	transitions []entity.WorkflowTransition
}

// NewWorkflowRepository construye el repo, opcionalmente con una configuración inicial.
func NewWorkflowRepository(stages []entity.WorkflowStage, transitions []entity.WorkflowTransition) *WorkflowRepo {
	return &WorkflowRepo{
		stages:      append([]entity.WorkflowStage(nil), stages...),
		transitions: append([]entity.WorkflowTransition(nil), transitions...),
	}
}

func (r *WorkflowRepo) ListStages(_ context.Context) ([]entity.WorkflowStage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.WorkflowStage(nil), r.stages...), nil
}

func (r *WorkflowRepo) ListTransitions(_ context.Context) ([]entity.WorkflowTransition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.WorkflowTransition(nil), r.transitions...), nil
}

func (r *WorkflowRepo) UpsertStage(_ context.Context, s *entity.WorkflowStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.stages {
		if r.stages[i].ID == s.ID {
			r.stages[i] = *s
			return nil
		}
	}
	r.stages = append(r.stages, *s)
	return nil
}

func (r *WorkflowRepo) UpsertTransition(_ context.Context, t *entity.WorkflowTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.transitions {
		if r.transitions[i].ID == t.ID {
			r.transitions[i] = *t
			return nil
		}
	}
	r.transitions = append(r.transitions, *t)
	return nil
}
