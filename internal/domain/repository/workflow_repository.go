package repository

import (
	"context"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// WorkflowRepository persistencia de la configuración de etapas y transiciones.
type WorkflowRepository interface {
	ListStages(ctx context.Context) ([]entity.WorkflowStage, error)
	ListTransitions(ctx context.Context) ([]entity.WorkflowTransition, error)
	// UpsertStage inserta o actualiza por ID.
	UpsertStage(ctx context.Context, s *entity.WorkflowStage) error
	// UpsertTransition inserta o actualiza por ID.
	UpsertTransition(ctx context.Context, t *entity.WorkflowTransition) error
}
