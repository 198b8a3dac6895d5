// Package permission administra los grants por etapa y responde has_permission
// apoyándose en la caché de grants por usuario.
package permission

import (
	"context"
	"fmt"
	"sync"
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

// GrantCache caché de grants por usuario (Redis en producción).
type GrantCache interface {
	GetOrLoad(ctx context.Context, userID string, load func(ctx context.Context, userID string) ([]entity.StagePermission, error)) ([]entity.StagePermission, error)
	Invalidate(ctx context.Context, userID string) error
}

// GraphProvider entrega el grafo vigente para validar etapas.
type GraphProvider interface {
	Graph(ctx context.Context) (*workflow.Graph, error)
}

// UseCase casos de uso del modelo de permisos.
type UseCase struct {
	repo   repository.StagePermissionRepository
	cache  GrantCache
	graphs GraphProvider
	log    *logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewUseCase construye el caso de uso. cache puede ser nil: se lee siempre del repositorio.
func NewUseCase(repo repository.StagePermissionRepository, cache GrantCache, graphs GraphProvider, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{repo: repo, cache: cache, graphs: graphs, log: log.Component("permission"), now: time.Now}
}

// GrantsFor grants activos del usuario (puede incluir vencidos; Evaluate los descarta).
func (uc *UseCase) GrantsFor(ctx context.Context, userID string) ([]entity.StagePermission, error) {
	if uc.cache != nil {
		return uc.cache.GetOrLoad(ctx, userID, uc.repo.ListActiveByUser)
	}
	return uc.repo.ListActiveByUser(ctx, userID)
}

// HasPermission permiso global del actor o grant activo y sin vencer sobre la etapa.
func (uc *UseCase) HasPermission(ctx context.Context, actor entity.Actor, stageID string, perm entity.Permission) (bool, error) {
	if permission.Global(actor, perm) {
		return true, nil
	}
	grants, err := uc.GrantsFor(ctx, actor.ID)
	if err != nil {
		return false, fmt.Errorf("load grants: %w", err)
	}
	return permission.Evaluate(actor, stageID, perm, grants, uc.now()), nil
}

// Check variante de HasPermission para la API.
func (uc *UseCase) Check(ctx context.Context, actor entity.Actor, stageID, perm string) (*dto.CheckPermissionResponse, error) {
	p := entity.Permission(perm)
	if !p.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "permiso desconocido", map[string]any{"permission": perm})
	}
	ok, err := uc.HasPermission(ctx, actor, stageID, p)
	if err != nil {
		return nil, err
	}
	return &dto.CheckPermissionResponse{UserID: actor.ID, StageID: stageID, Permission: perm, Allowed: ok}, nil
}

// ListByStage grants activos de la etapa.
func (uc *UseCase) ListByStage(ctx context.Context, stageID string) ([]dto.StagePermissionResponse, error) {
	grants, err := uc.repo.ListActiveByStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StagePermissionResponse, 0, len(grants))
	for i := range grants {
		out = append(out, toResponse(&grants[i]))
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

func (uc *UseCase) requireStage(ctx context.Context, stageID string) error {
	g, err := uc.graphs.Graph(ctx)
	if err != nil {
		return err
	}
	if _, ok := g.Stage(stageID); !ok {
		return domain.NewError(domain.ErrNotFound, "etapa inexistente", map[string]any{"stage_id": stageID})
	}
	return nil
}

func parsePermissions(in []string) ([]entity.Permission, error) {
	if len(in) == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "se requiere al menos un permiso", nil)
	}
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

// Assign une los permisos al grant activo del usuario en la etapa, o crea uno.
// Repetir la misma asignación no escribe nada.
func (uc *UseCase) Assign(ctx context.Context, actor entity.Actor, in dto.AssignPermissionRequest) (*dto.StagePermissionResponse, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "user_id requerido", nil)
	}
	perms, err := parsePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	if err := uc.requireStage(ctx, in.StageID); err != nil {
		return nil, err
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	grant, err := uc.assignLocked(ctx, actor, in.UserID, in.StageID, perms, in.ExpiresAt)
	if err != nil {
		return nil, err
	}
	out := toResponse(grant)
	return &out, nil
}

func (uc *UseCase) assignLocked(ctx context.Context, actor entity.Actor, userID, stageID string, perms []entity.Permission, expiresAt *time.Time) (*entity.StagePermission, error) {
	now := uc.now()
	current, err := uc.repo.GetActive(ctx, userID, stageID)
	if err != nil {
		return nil, err
	}
	var grant entity.StagePermission
	switch {
	case current == nil:
		grant = entity.StagePermission{
			ID:          uuid.New().String(),
			UserID:      userID,
			StageID:     stageID,
			Permissions: perms,
			ExpiresAt:   expiresAt,
			AssignedBy:  actor.ID,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	case !current.ActiveAt(now):
		// Vencido: se renueva con los permisos pedidos.
		grant = *current
		grant.Permissions = perms
		grant.ExpiresAt = expiresAt
		grant.AssignedBy = actor.ID
		grant.UpdatedAt = now
	default:
		merged, changed := permission.Merge(current.Permissions, perms)
		if expiresAt != nil && (current.ExpiresAt == nil || !current.ExpiresAt.Equal(*expiresAt)) {
			changed = true
		}
		if !changed {
			return current, nil
		}
		grant = *current
		grant.Permissions = merged
		if expiresAt != nil {
			grant.ExpiresAt = expiresAt
		}
		grant.AssignedBy = actor.ID
		grant.UpdatedAt = now
	}
	if err := uc.repo.Upsert(ctx, &grant); err != nil {
		return nil, err
	}
	uc.invalidate(ctx, userID)
	uc.log.Info().Str("user_id", userID).Str("stage_id", stageID).Str("by", actor.ID).Msg("permission assigned")
	return &grant, nil
}

// Revoke desactiva el grant. Sin grant activo no hace nada y devuelve false.
func (uc *UseCase) Revoke(ctx context.Context, actor entity.Actor, in dto.RevokePermissionRequest) (bool, error) {
	if err := requireManage(actor); err != nil {
		return false, err
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.revokeLocked(ctx, actor, in.UserID, in.StageID)
}

func (uc *UseCase) revokeLocked(ctx context.Context, actor entity.Actor, userID, stageID string) (bool, error) {
	changed, err := uc.repo.Deactivate(ctx, userID, stageID, uc.now())
	if err != nil {
		return false, err
	}
	if changed {
		uc.invalidate(ctx, userID)
		uc.log.Info().Str("user_id", userID).Str("stage_id", stageID).Str("by", actor.ID).Msg("permission revoked")
	}
	return changed, nil
}

// UpdateStageAssignments deja exactamente a UserIDs con grant vigente sobre la etapa:
// una asignación por usuario nuevo, una revocación por usuario que sale, nada para el resto.
func (uc *UseCase) UpdateStageAssignments(ctx context.Context, actor entity.Actor, in dto.UpdateAssignmentsRequest) (*dto.AssignmentDiffResponse, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	perms, err := parsePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	if err := uc.requireStage(ctx, in.StageID); err != nil {
		return nil, err
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()

	grants, err := uc.repo.ListActiveByStage(ctx, in.StageID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	current := make([]string, 0, len(grants))
	for i := range grants {
		if grants[i].ActiveAt(now) {
			current = append(current, grants[i].UserID)
		}
	}
	diff := permission.Diff(current, in.UserIDs)
	for _, userID := range diff.Assign {
		if _, err := uc.assignLocked(ctx, actor, userID, in.StageID, perms, in.ExpiresAt); err != nil {
			return nil, err
		}
	}
	for _, userID := range diff.Revoke {
		if _, err := uc.revokeLocked(ctx, actor, userID, in.StageID); err != nil {
			return nil, err
		}
	}
	return &dto.AssignmentDiffResponse{
		StageID:  in.StageID,
		Assigned: orEmpty(diff.Assign),
		Revoked:  orEmpty(diff.Revoke),
	}, nil
}

func (uc *UseCase) invalidate(ctx context.Context, userID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, userID); err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("grant cache invalidation failed")
	}
}

func toResponse(p *entity.StagePermission) dto.StagePermissionResponse {
	perms := make([]string, 0, len(p.Permissions))
	for _, x := range p.Permissions {
		perms = append(perms, string(x))
	}
	return dto.StagePermissionResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		StageID:     p.StageID,
		Permissions: perms,
		ExpiresAt:   p.ExpiresAt,
		AssignedBy:  p.AssignedBy,
		IsActive:    p.IsActive,
		UpdatedAt:   p.UpdatedAt,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
