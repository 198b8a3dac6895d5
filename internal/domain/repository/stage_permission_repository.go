package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// StagePermissionRepository persistencia de grants por (usuario, etapa).
// Las listas devuelven los grants con IsActive = true; el vencimiento se evalúa en el llamador.
type StagePermissionRepository interface {
	ListActiveByUser(ctx context.Context, userID string) ([]entity.StagePermission, error)
	ListActiveByStage(ctx context.Context, stageID string) ([]entity.StagePermission, error)
	// GetActive devuelve el grant activo del par o nil, nil si no hay.
	GetActive(ctx context.Context, userID, stageID string) (*entity.StagePermission, error)
	// Upsert inserta o actualiza por ID. Hay a lo sumo un grant activo por (usuario, etapa).
	Upsert(ctx context.Context, p *entity.StagePermission) error
	// Deactivate desactiva el grant activo del par; false si no había ninguno.
	Deactivate(ctx context.Context, userID, stageID string, at time.Time) (bool, error)
}
