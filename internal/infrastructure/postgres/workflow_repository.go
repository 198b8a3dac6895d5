package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

var _ repository.WorkflowRepository = (*WorkflowRepo)(nil)

// WorkflowRepo configuración de etapas y transiciones sobre PostgreSQL.
type WorkflowRepo struct {
	q Querier
}

// NewWorkflowRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWorkflowRepository(q Querier) *WorkflowRepo {
	return &WorkflowRepo{q: q}
}

func (r *WorkflowRepo) ListStages(ctx context.Context) ([]entity.WorkflowStage, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, code, document_type, sequence, allowed_actions, required_permissions,
			next_stages, return_stages, is_active, created_at, updated_at
		FROM workflow_stages ORDER BY sequence, id`)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()
	var out []entity.WorkflowStage
	for rows.Next() {
		var (
			s             entity.WorkflowStage
			actions, perm []string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.DocumentType, &s.Sequence, &actions, &perm,
			&s.NextStages, &s.ReturnStages, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		s.AllowedActions = textToActions(actions)
		s.RequiredPermissions = textToPermissions(perm)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *WorkflowRepo) ListTransitions(ctx context.Context) ([]entity.WorkflowTransition, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, from_stage_id, to_stage_id, action, conditions, auto_transition, required_fields,
			is_active, created_at, updated_at
		FROM workflow_transitions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()
	var out []entity.WorkflowTransition
	for rows.Next() {
		var (
			t      entity.WorkflowTransition
			action string
		)
		if err := rows.Scan(&t.ID, &t.FromStageID, &t.ToStageID, &action, &t.Conditions, &t.AutoTransition,
			&t.RequiredFields, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Action = entity.Action(action)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *WorkflowRepo) UpsertStage(ctx context.Context, s *entity.WorkflowStage) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO workflow_stages (id, name, code, document_type, sequence, allowed_actions, required_permissions,
			next_stages, return_stages, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, code = EXCLUDED.code, document_type = EXCLUDED.document_type,
			sequence = EXCLUDED.sequence, allowed_actions = EXCLUDED.allowed_actions,
			required_permissions = EXCLUDED.required_permissions, next_stages = EXCLUDED.next_stages,
			return_stages = EXCLUDED.return_stages, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`,
		s.ID, s.Name, s.Code, s.DocumentType, s.Sequence, actionsToText(s.AllowedActions),
		permissionsToText(s.RequiredPermissions), orEmpty(s.NextStages), orEmpty(s.ReturnStages),
		s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("código de etapa %q ya existe: %w", s.Code, domain.ErrDuplicate)
		}
		return fmt.Errorf("upsert stage: %w", err)
	}
	return nil
}

func (r *WorkflowRepo) UpsertTransition(ctx context.Context, t *entity.WorkflowTransition) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO workflow_transitions (id, from_stage_id, to_stage_id, action, conditions, auto_transition,
			required_fields, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			from_stage_id = EXCLUDED.from_stage_id, to_stage_id = EXCLUDED.to_stage_id, action = EXCLUDED.action,
			conditions = EXCLUDED.conditions, auto_transition = EXCLUDED.auto_transition,
			required_fields = EXCLUDED.required_fields, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`,
		t.ID, t.FromStageID, t.ToStageID, string(t.Action), t.Conditions, t.AutoTransition,
		orEmpty(t.RequiredFields), t.IsActive, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert transition: %w", err)
	}
	return nil
}
