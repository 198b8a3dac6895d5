package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

var _ repository.StagePermissionRepository = (*StagePermissionRepo)(nil)

// StagePermissionRepo grants por etapa en memoria.
type StagePermissionRepo struct {
	mu     sync.RWMutex
	grants []entity.StagePermission
}

// NewStagePermissionRepository construye el repo vacío.
func NewStagePermissionRepository() *StagePermissionRepo {
	return &StagePermissionRepo{}
}

func clonePermission(p entity.StagePermission) entity.StagePermission {
	p.Permissions = append([]entity.Permission(nil), p.Permissions...)
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		p.ExpiresAt = &t
	}
	return p
}

func (r *StagePermissionRepo) ListActiveByUser(_ context.Context, userID string) ([]entity.StagePermission, error) {
	return r.filter(func(p *entity.StagePermission) bool { return p.UserID == userID }), nil
}

func (r *StagePermissionRepo) ListActiveByStage(_ context.Context, stageID string) ([]entity.StagePermission, error) {
	return r.filter(func(p *entity.StagePermission) bool { return p.StageID == stageID }), nil
}

func (r *StagePermissionRepo) filter(match func(*entity.StagePermission) bool) []entity.StagePermission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.StagePermission
	for i := range r.grants {
		if r.grants[i].IsActive && match(&r.grants[i]) {
			out = append(out, clonePermission(r.grants[i]))
		}
	}
	return out
}

func (r *StagePermissionRepo) GetActive(_ context.Context, userID, stageID string) (*entity.StagePermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.grants {
		g := &r.grants[i]
		if g.IsActive && g.UserID == userID && g.StageID == stageID {
			c := clonePermission(*g)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *StagePermissionRepo) Upsert(_ context.Context, p *entity.StagePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.grants {
		if r.grants[i].ID == p.ID {
			r.grants[i] = clonePermission(*p)
			return nil
		}
	}
	r.grants = append(r.grants, clonePermission(*p))
	return nil
}

func (r *StagePermissionRepo) Deactivate(_ context.Context, userID, stageID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for i := range r.grants {
		g := &r.grants[i]
		if g.IsActive && g.UserID == userID && g.StageID == stageID {
			g.IsActive = false
			g.UpdatedAt = at
			changed = true
		}
	}
	return changed, nil
}
