package memory

import (
	"context"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

// TxRunner ejecuta el callback con un repositorio que acumula escrituras y las aplica
// todas juntas al final; si fn falla no se aplica ninguna.
type TxRunner struct {
	store *RecordStore
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *RecordStore) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn y confirma las escrituras acumuladas.
func (r *TxRunner) Run(ctx context.Context, fn func(records repository.ApprovalRecordRepository) error) error {
	tx := &txRecords{store: r.store}
	if err := fn(tx); err != nil {
		return err
	}
	return r.store.commit(tx.ops)
}

type txOp struct {
	create bool
	rec    *entity.ApprovalRecord
}

type txRecords struct {
	store *RecordStore
	ops   []txOp
}

func (t *txRecords) staged(id string) *entity.ApprovalRecord {
	for i := len(t.ops) - 1; i >= 0; i-- {
		if t.ops[i].rec.ID == id {
			return t.ops[i].rec
		}
	}
	return nil
}

func (t *txRecords) Create(_ context.Context, rec *entity.ApprovalRecord) error {
	rec.Version = 1
	t.ops = append(t.ops, txOp{create: true, rec: rec.Clone()})
	return nil
}

func (t *txRecords) GetByID(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	if rec := t.staged(id); rec != nil {
		return rec.Clone(), nil
	}
	return t.store.GetByID(ctx, id)
}

func (t *txRecords) GetForUpdate(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	return t.GetByID(ctx, id)
}

func (t *txRecords) Save(_ context.Context, rec *entity.ApprovalRecord) error {
	next := rec.Clone()
	next.Version = rec.Version + 1
	t.ops = append(t.ops, txOp{rec: next})
	rec.Version++
	return nil
}

func (t *txRecords) ExistsByUpstream(ctx context.Context, recordType, upstreamID string) (bool, error) {
	for _, op := range t.ops {
		if op.create && op.rec.Type == recordType && op.rec.UpstreamID == upstreamID {
			return true, nil
		}
	}
	return t.store.ExistsByUpstream(ctx, recordType, upstreamID)
}

func (t *txRecords) List(ctx context.Context, f repository.RecordFilter) ([]*entity.ApprovalRecord, error) {
	return t.store.List(ctx, f)
}

// commit valida todas las operaciones contra el estado actual y solo entonces las aplica.
func (s *RecordStore) commit(ops []txOp) error {
	if len(ops) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := make(map[string]int64)
	for _, op := range ops {
		id := op.rec.ID
		if op.create {
			if _, ok := s.records[id]; ok || s.existsLocked(op.rec.Type, op.rec.UpstreamID) {
				return duplicate(op.rec)
			}
			versions[id] = op.rec.Version
			continue
		}
		cur, ok := versions[id]
		if !ok {
			stored, exists := s.records[id]
			if !exists {
				return notFound(id)
			}
			cur = stored.Version
		}
		prev := op.rec.Version - 1
		if prev != cur {
			return conflict(id, prev, cur)
		}
		versions[id] = op.rec.Version
	}
	for _, op := range ops {
		s.records[op.rec.ID] = op.rec.Clone()
	}
	return nil
}
