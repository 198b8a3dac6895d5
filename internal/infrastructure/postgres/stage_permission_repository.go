package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

var _ repository.StagePermissionRepository = (*StagePermissionRepo)(nil)

// StagePermissionRepo grants por etapa sobre PostgreSQL. Un índice único parcial garantiza
// un solo grant activo por (user_id, stage_id).
type StagePermissionRepo struct {
	q Querier
}

// NewStagePermissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStagePermissionRepository(q Querier) *StagePermissionRepo {
	return &StagePermissionRepo{q: q}
}

const stagePermissionColumns = `id, user_id, stage_id, permissions, expires_at, assigned_by, is_active, created_at, updated_at`

func scanStagePermission(row pgx.Row) (entity.StagePermission, error) {
	var (
		p     entity.StagePermission
		perms []string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.StageID, &perms, &p.ExpiresAt, &p.AssignedBy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	p.Permissions = textToPermissions(perms)
	return p, err
}

func (r *StagePermissionRepo) list(ctx context.Context, where string, arg string) ([]entity.StagePermission, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stagePermissionColumns+` FROM stage_permissions WHERE is_active AND `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("list stage permissions: %w", err)
	}
	defer rows.Close()
	var out []entity.StagePermission
	for rows.Next() {
		p, err := scanStagePermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage permission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StagePermissionRepo) ListActiveByUser(ctx context.Context, userID string) ([]entity.StagePermission, error) {
	return r.list(ctx, "user_id = $1", userID)
}

func (r *StagePermissionRepo) ListActiveByStage(ctx context.Context, stageID string) ([]entity.StagePermission, error) {
	return r.list(ctx, "stage_id = $1", stageID)
}

func (r *StagePermissionRepo) GetActive(ctx context.Context, userID, stageID string) (*entity.StagePermission, error) {
	p, err := scanStagePermission(r.q.QueryRow(ctx,
		`SELECT `+stagePermissionColumns+` FROM stage_permissions WHERE is_active AND user_id = $1 AND stage_id = $2`,
		userID, stageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stage permission: %w", err)
	}
	return &p, nil
}

func (r *StagePermissionRepo) Upsert(ctx context.Context, p *entity.StagePermission) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stage_permissions (`+stagePermissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			permissions = EXCLUDED.permissions, expires_at = EXCLUDED.expires_at,
			assigned_by = EXCLUDED.assigned_by, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`,
		p.ID, p.UserID, p.StageID, permissionsToText(p.Permissions), p.ExpiresAt, p.AssignedBy,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrDuplicate, "ya existe un grant activo para el usuario y la etapa",
				map[string]any{"user_id": p.UserID, "stage_id": p.StageID})
		}
		return fmt.Errorf("upsert stage permission: %w", err)
	}
	return nil
}

func (r *StagePermissionRepo) Deactivate(ctx context.Context, userID, stageID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE stage_permissions SET is_active = FALSE, updated_at = $3
		WHERE is_active AND user_id = $1 AND stage_id = $2`, userID, stageID, at)
	if err != nil {
		return false, fmt.Errorf("deactivate stage permission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
