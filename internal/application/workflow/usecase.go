// Package workflow expone la administración del grafo de etapas y transiciones y mantiene
// en memoria la instantánea validada que usan los casos de uso de aprobación.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/permission"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
	"github.com/jhoicas/farmadist-api/pkg/logger"
)

// UseCase administra la configuración del flujo. Cada escritura reconstruye y valida el
// grafo completo antes de persistir; si la validación falla no se guarda nada.
type UseCase struct {
	repo  repository.WorkflowRepository
	log   *logger.Logger
	now   func() time.Time
	mu    sync.Mutex
	graph atomic.Pointer[workflow.Graph]
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.WorkflowRepository, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{repo: repo, log: log.Component("workflow"), now: time.Now}
}

// Graph devuelve la instantánea vigente, cargándola la primera vez.
func (uc *UseCase) Graph(ctx context.Context) (*workflow.Graph, error) {
	if g := uc.graph.Load(); g != nil {
		return g, nil
	}
	return uc.Reload(ctx)
}

// Reload vuelve a leer la configuración del repositorio.
func (uc *UseCase) Reload(ctx context.Context) (*workflow.Graph, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	stages, transitions, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	g, err := workflow.NewGraph(stages, transitions)
	if err != nil {
		return nil, err
	}
	uc.graph.Store(g)
	return g, nil
}

func (uc *UseCase) load(ctx context.Context) ([]entity.WorkflowStage, []entity.WorkflowTransition, error) {
	stages, err := uc.repo.ListStages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list stages: %w", err)
	}
	transitions, err := uc.repo.ListTransitions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list transitions: %w", err)
	}
	return stages, transitions, nil
}

// SeedIfEmpty carga la configuración inicial solo si el repositorio no tiene etapas.
func (uc *UseCase) SeedIfEmpty(ctx context.Context, stages []entity.WorkflowStage, transitions []entity.WorkflowTransition) (bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	current, err := uc.repo.ListStages(ctx)
	if err != nil {
		return false, fmt.Errorf("list stages: %w", err)
	}
	if len(current) > 0 {
		return false, nil
	}
	now := uc.now()
	stages = append([]entity.WorkflowStage(nil), stages...)
	transitions = append([]entity.WorkflowTransition(nil), transitions...)
	for i := range stages {
		stamp(&stages[i].CreatedAt, &stages[i].UpdatedAt, now)
	}
	for i := range transitions {
		stamp(&transitions[i].CreatedAt, &transitions[i].UpdatedAt, now)
	}
	g, err := workflow.NewGraph(stages, transitions)
	if err != nil {
		return false, err
	}
	for i := range stages {
		if err := uc.repo.UpsertStage(ctx, &stages[i]); err != nil {
			return false, err
		}
	}
	for i := range transitions {
		if err := uc.repo.UpsertTransition(ctx, &transitions[i]); err != nil {
			return false, err
		}
	}
	uc.graph.Store(g)
	uc.log.Info().Int("stages", len(stages)).Int("transitions", len(transitions)).Msg("workflow seeded")
	return true, nil
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// Get devuelve etapas (por secuencia) y transiciones.
func (uc *UseCase) Get(ctx context.Context) (*dto.WorkflowResponse, error) {
	g, err := uc.Graph(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.WorkflowResponse{
		Stages:      make([]dto.StageResponse, 0),
		Transitions: make([]dto.TransitionResponse, 0),
	}
	for _, s := range g.Stages() {
		out.Stages = append(out.Stages, toStageResponse(&s))
	}
	for _, t := range g.Transitions() {
		out.Transitions = append(out.Transitions, toTransitionResponse(&t))
	}
	return out, nil
}

func requireManage(actor entity.Actor) error {
	if permission.Global(actor, entity.PermissionManageWorkflow) {
		return nil
	}
	return domain.NewError(domain.ErrPermissionDenied, "se requiere manage_workflow",
		map[string]any{"user_id": actor.ID, "permission": string(entity.PermissionManageWorkflow)})
}

// SaveStage crea o actualiza una etapa. El código se normaliza desde Name si viene vacío.
func (uc *UseCase) SaveStage(ctx context.Context, actor entity.Actor, in dto.StageRequest) (*dto.StageResponse, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	if in.DocumentType != entity.DocumentTypeQualityControl && in.DocumentType != entity.DocumentTypeWarehouseApproval {
		return nil, domain.NewError(domain.ErrInvalidInput, "tipo de documento no válido",
			map[string]any{"document_type": in.DocumentType})
	}
	code := in.Code
	if code == "" {
		code = in.Name
	}
	code = workflow.NormalizeCode(code)
	if code == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "la etapa requiere nombre o código", nil)
	}
	perms, err := toPermissions(in.RequiredPermissions)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	stages, transitions, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	stage := entity.WorkflowStage{
		ID:                  in.ID,
		Name:                in.Name,
		Code:                code,
		DocumentType:        in.DocumentType,
		Sequence:            in.Sequence,
		AllowedActions:      toActions(in.AllowedActions),
		RequiredPermissions: perms,
		NextStages:          in.NextStages,
		ReturnStages:        in.ReturnStages,
		IsActive:            in.IsActive == nil || *in.IsActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if stage.ID == "" {
		stage.ID = uuid.New().String()
	}
	replaced := false
	for i := range stages {
		if stages[i].ID == stage.ID {
			stage.CreatedAt = stages[i].CreatedAt
			stages[i] = stage
			replaced = true
			break
		}
	}
	if !replaced {
		stages = append(stages, stage)
	}
	g, err := workflow.NewGraph(stages, transitions)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.UpsertStage(ctx, &stage); err != nil {
		return nil, err
	}
	uc.graph.Store(g)
	uc.log.Info().Str("stage_id", stage.ID).Str("code", stage.Code).Str("user_id", actor.ID).Msg("stage saved")
	out := toStageResponse(&stage)
	return &out, nil
}

// SaveTransition crea o actualiza una transición.
func (uc *UseCase) SaveTransition(ctx context.Context, actor entity.Actor, in dto.TransitionRequest) (*dto.TransitionResponse, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	action := entity.Action(in.Action)
	if !action.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "acción desconocida", map[string]any{"action": in.Action})
	}
	active := in.IsActive == nil || *in.IsActive
	return uc.saveTransition(ctx, actor, entity.WorkflowTransition{
		ID:             in.ID,
		FromStageID:    in.FromStageID,
		ToStageID:      in.ToStageID,
		Action:         action,
		Conditions:     in.Conditions,
		AutoTransition: in.AutoTransition,
		RequiredFields: in.RequiredFields,
		IsActive:       active,
	})
}

// DeactivateTransition desactiva una transición existente.
func (uc *UseCase) DeactivateTransition(ctx context.Context, actor entity.Actor, id string) (*dto.TransitionResponse, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	g, err := uc.Graph(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range g.Transitions() {
		if t.ID == id {
			t.IsActive = false
			return uc.saveTransition(ctx, actor, t)
		}
	}
	return nil, domain.NewError(domain.ErrNotFound, "transición inexistente", map[string]any{"transition_id": id})
}

func (uc *UseCase) saveTransition(ctx context.Context, actor entity.Actor, t entity.WorkflowTransition) (*dto.TransitionResponse, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	stages, transitions, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	replaced := false
	for i := range transitions {
		if transitions[i].ID == t.ID {
			t.CreatedAt = transitions[i].CreatedAt
			transitions[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		transitions = append(transitions, t)
	}
	g, err := workflow.NewGraph(stages, transitions)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.UpsertTransition(ctx, &t); err != nil {
		return nil, err
	}
	uc.graph.Store(g)
	uc.log.Info().Str("transition_id", t.ID).Str("action", string(t.Action)).Bool("active", t.IsActive).
		Str("user_id", actor.ID).Msg("transition saved")
	out := toTransitionResponse(&t)
	return &out, nil
}

// Preview resuelve una transición contra la instantánea dada sin tocar ningún registro.
func (uc *UseCase) Preview(ctx context.Context, in dto.ResolvePreviewRequest) (*dto.ResolvePreviewResponse, error) {
	g, err := uc.Graph(ctx)
	if err != nil {
		return nil, err
	}
	res, err := g.ResolveTransition(in.FromStageID, entity.Action(in.Action), in.Snapshot)
	if err != nil {
		return nil, err
	}
	return &dto.ResolvePreviewResponse{
		TransitionID: res.Transition.ID,
		FromStageID:  res.From.ID,
		ToStageID:    res.To.ID,
		ToStageCode:  res.To.Code,
		ToStageName:  res.To.Name,
	}, nil
}

func toActions(in []string) []entity.Action {
	out := make([]entity.Action, 0, len(in))
	for _, a := range in {
		out = append(out, entity.Action(a))
	}
	return out
}

func toPermissions(in []string) ([]entity.Permission, error) {
	out := make([]entity.Permission, 0, len(in))
	for _, p := range in {
		perm := entity.Permission(p)
		if !perm.IsValid() {
			return nil, domain.NewError(domain.ErrInvalidInput, "permiso desconocido", map[string]any{"permission": p})
		}
		out = append(out, perm)
	}
	return out, nil
}

func toStageResponse(s *entity.WorkflowStage) dto.StageResponse {
	actions := make([]string, 0, len(s.AllowedActions))
	for _, a := range s.AllowedActions {
		actions = append(actions, string(a))
	}
	perms := make([]string, 0, len(s.RequiredPermissions))
	for _, p := range s.RequiredPermissions {
		perms = append(perms, string(p))
	}
	return dto.StageResponse{
		ID:                  s.ID,
		Name:                s.Name,
		Code:                s.Code,
		DocumentType:        s.DocumentType,
		Sequence:            s.Sequence,
		AllowedActions:      actions,
		RequiredPermissions: perms,
		NextStages:          orEmpty(s.NextStages),
		ReturnStages:        orEmpty(s.ReturnStages),
		IsActive:            s.IsActive,
		UpdatedAt:           s.UpdatedAt,
	}
}

func toTransitionResponse(t *entity.WorkflowTransition) dto.TransitionResponse {
	return dto.TransitionResponse{
		ID:             t.ID,
		FromStageID:    t.FromStageID,
		ToStageID:      t.ToStageID,
		Action:         string(t.Action),
		Conditions:     t.Conditions,
		AutoTransition: t.AutoTransition,
		RequiredFields: orEmpty(t.RequiredFields),
		IsActive:       t.IsActive,
		UpdatedAt:      t.UpdatedAt,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
