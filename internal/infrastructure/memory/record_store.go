// Package memory implementa los puertos de persistencia en memoria. Se usa con
// STORAGE_DRIVER=memory (desarrollo local) y en las pruebas de los casos de uso.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

var _ repository.ApprovalRecordRepository = (*RecordStore)(nil)

// RecordStore registros de aprobación en memoria. Devuelve siempre copias.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]*entity.ApprovalRecord
}

// NewRecordStore construye el store vacío.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]*entity.ApprovalRecord)}
}

func notFound(id string) error {
	return domain.NewError(domain.ErrRecordNotFound, "", map[string]any{"record_id": id})
}

func duplicate(rec *entity.ApprovalRecord) error {
	return domain.NewError(domain.ErrDuplicate, "ya existe un registro para el documento de origen",
		map[string]any{"type": rec.Type, "upstream_id": rec.UpstreamID})
}

func conflict(id string, version, current int64) error {
	return domain.NewError(domain.ErrConcurrentModification, "", map[string]any{
		"record_id": id, "version": version, "current_version": current,
	})
}

func (s *RecordStore) Create(_ context.Context, rec *entity.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(rec)
}

func (s *RecordStore) createLocked(rec *entity.ApprovalRecord) error {
	if _, ok := s.records[rec.ID]; ok || s.existsLocked(rec.Type, rec.UpstreamID) {
		return duplicate(rec)
	}
	rec.Version = 1
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *RecordStore) GetByID(_ context.Context, id string) (*entity.ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

// GetForUpdate en memoria no bloquea: la serialización la aporta el caso de uso y Save valida la versión.
func (s *RecordStore) GetForUpdate(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	return s.GetByID(ctx, id)
}

func (s *RecordStore) Save(_ context.Context, rec *entity.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(rec); err != nil {
		return err
	}
	rec.Version++
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *RecordStore) checkVersionLocked(rec *entity.ApprovalRecord) error {
	cur, ok := s.records[rec.ID]
	if !ok {
		return notFound(rec.ID)
	}
	if cur.Version != rec.Version {
		return conflict(rec.ID, rec.Version, cur.Version)
	}
	return nil
}

func (s *RecordStore) ExistsByUpstream(_ context.Context, recordType, upstreamID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(recordType, upstreamID), nil
}

func (s *RecordStore) existsLocked(recordType, upstreamID string) bool {
	for _, r := range s.records {
		if r.Type == recordType && r.UpstreamID == upstreamID {
			return true
		}
	}
	return false
}

// List ordena por fecha de creación descendente.
func (s *RecordStore) List(_ context.Context, f repository.RecordFilter) ([]*entity.ApprovalRecord, error) {
	s.mu.RLock()
	out := make([]*entity.ApprovalRecord, 0, len(s.records))
	for _, r := range s.records {
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.AssignedTo != "" && r.AssignedTo != f.AssignedTo {
			continue
		}
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*entity.ApprovalRecord{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
