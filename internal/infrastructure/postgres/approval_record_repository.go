package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

var _ repository.ApprovalRecordRepository = (*ApprovalRecordRepo)(nil)

// ApprovalRecordRepo implementación de ApprovalRecordRepository (usable con pool o tx).
// Cabecera en approval_records; ítems, cadena gerencial e historial en tablas hijas.
type ApprovalRecordRepo struct {
	q Querier
}

// NewApprovalRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewApprovalRecordRepository(q Querier) *ApprovalRecordRepo {
	return &ApprovalRecordRepo{q: q}
}

const recordColumns = `
	id, number, type, upstream_type, upstream_id, priority, status, stage_id,
	assigned_to, submitted_by, submitted_at, required_levels, rejection_reason,
	final_approval_date, notes, total_items, approved_items, rejected_items, pending_items,
	version, created_by, created_at, updated_at`

// Create inserta cabecera, ítems e historial inicial. La unicidad (type, upstream_id) se traduce a ErrDuplicate.
func (r *ApprovalRecordRepo) Create(ctx context.Context, rec *entity.ApprovalRecord) error {
	rec.Version = 1
	query := `
		INSERT INTO approval_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.Number, rec.Type, rec.UpstreamType, rec.UpstreamID, rec.Priority, rec.Status, rec.StageID,
		nullIfEmpty(rec.AssignedTo), nullIfEmpty(rec.SubmittedBy), rec.SubmittedAt, rec.RequiredLevels,
		nullIfEmpty(rec.RejectionReason), rec.FinalApprovalDate, nullIfEmpty(rec.Notes),
		rec.TotalItems, rec.ApprovedItems, rec.RejectedItems, rec.PendingItems,
		rec.Version, rec.CreatedBy, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrDuplicate, "ya existe un registro para el documento de origen",
				map[string]any{"type": rec.Type, "upstream_id": rec.UpstreamID})
		}
		return fmt.Errorf("insert approval record: %w", err)
	}
	for i := range rec.Items {
		if err := r.insertItem(ctx, rec.ID, i, &rec.Items[i]); err != nil {
			return err
		}
	}
	return r.appendChildren(ctx, rec)
}

func (r *ApprovalRecordRepo) insertItem(ctx context.Context, recordID string, pos int, it *entity.LineItemDecision) error {
	checks, err := marshalChecks(it.Checks)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO approval_items (id, record_id, position, product_id, product_name, batch_number, expiry_date,
			expected_qty, foc_qty, decided_qty, decision, remarks, decided_by, decided_at, checks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.q.Exec(ctx, query,
		it.ID, recordID, pos, it.ProductID, it.ProductName, it.BatchNumber, it.ExpiryDate,
		it.ExpectedQty, it.FocQty, it.DecidedQty, string(it.Decision), it.Remarks,
		nullIfEmpty(it.DecidedBy), it.DecidedAt, checks,
	)
	if err != nil {
		return fmt.Errorf("insert approval item: %w", err)
	}
	return nil
}

// appendChildren inserta las entradas nuevas de la cadena gerencial y del historial.
// Ambas son de solo-agregar: las ya persistidas se ignoran por ID.
func (r *ApprovalRecordRepo) appendChildren(ctx context.Context, rec *entity.ApprovalRecord) error {
	for _, m := range rec.ManagerApprovals {
		_, err := r.q.Exec(ctx, `
			INSERT INTO manager_approvals (id, record_id, level, approver_id, approver_role, action, remarks, stage_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			m.ID, rec.ID, m.Level, m.ApproverID, m.ApproverRole, m.Action, m.Remarks, m.StageID, m.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewError(domain.ErrOutOfSequenceApproval, "nivel ya registrado",
					map[string]any{"record_id": rec.ID, "level": m.Level})
			}
			return fmt.Errorf("insert manager approval: %w", err)
		}
	}
	for _, h := range rec.StageHistory {
		_, err := r.q.Exec(ctx, `
			INSERT INTO approval_stage_history (id, record_id, from_stage_id, from_stage_code, to_stage_id, to_stage_code,
				to_stage_name, action, auto, actor_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			h.ID, rec.ID, nullIfEmpty(h.FromStageID), nullIfEmpty(h.FromStageCode), h.ToStageID, h.ToStageCode,
			h.ToStageName, string(h.Action), h.Auto, h.ActorID, h.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert stage history: %w", err)
		}
	}
	return nil
}

func (r *ApprovalRecordRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate bloquea la cabecera (SELECT ... FOR UPDATE) hasta el fin de la transacción.
func (r *ApprovalRecordRepo) GetForUpdate(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	return r.get(ctx, id, true)
}

func (r *ApprovalRecordRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rec, err := scanRecord(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.ErrRecordNotFound, "", map[string]any{"record_id": id})
		}
		return nil, fmt.Errorf("get approval record: %w", err)
	}
	if err := r.loadChildren(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*entity.ApprovalRecord, error) {
	var (
		rec                                          entity.ApprovalRecord
		assignedTo, submittedBy, rejectionReason, nt *string
	)
	err := row.Scan(
		&rec.ID, &rec.Number, &rec.Type, &rec.UpstreamType, &rec.UpstreamID, &rec.Priority, &rec.Status, &rec.StageID,
		&assignedTo, &submittedBy, &rec.SubmittedAt, &rec.RequiredLevels, &rejectionReason,
		&rec.FinalApprovalDate, &nt, &rec.TotalItems, &rec.ApprovedItems, &rec.RejectedItems, &rec.PendingItems,
		&rec.Version, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.AssignedTo = deref(assignedTo)
	rec.SubmittedBy = deref(submittedBy)
	rec.RejectionReason = deref(rejectionReason)
	rec.Notes = deref(nt)
	return &rec, nil
}

func (r *ApprovalRecordRepo) loadChildren(ctx context.Context, rec *entity.ApprovalRecord) error {
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, product_name, batch_number, expiry_date, expected_qty, foc_qty, decided_qty,
			decision, remarks, decided_by, decided_at, checks
		FROM approval_items WHERE record_id = $1 ORDER BY position`, rec.ID)
	if err != nil {
		return fmt.Errorf("list approval items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it        entity.LineItemDecision
			decision  string
			decidedBy *string
			checks    []byte
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.BatchNumber, &it.ExpiryDate,
			&it.ExpectedQty, &it.FocQty, &it.DecidedQty, &decision, &it.Remarks, &decidedBy, &it.DecidedAt, &checks); err != nil {
			return fmt.Errorf("scan approval item: %w", err)
		}
		it.Decision = entity.Decision(decision)
		it.DecidedBy = deref(decidedBy)
		if len(checks) > 0 {
			var c entity.ItemChecks
			if err := json.Unmarshal(checks, &c); err != nil {
				return fmt.Errorf("decode item checks: %w", err)
			}
			it.Checks = &c
		}
		rec.Items = append(rec.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate approval items: %w", err)
	}

	mrows, err := r.q.Query(ctx, `
		SELECT id, level, approver_id, approver_role, action, remarks, stage_id, created_at
		FROM manager_approvals WHERE record_id = $1 ORDER BY level`, rec.ID)
	if err != nil {
		return fmt.Errorf("list manager approvals: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m entity.ManagerApproval
		if err := mrows.Scan(&m.ID, &m.Level, &m.ApproverID, &m.ApproverRole, &m.Action, &m.Remarks, &m.StageID, &m.CreatedAt); err != nil {
			return fmt.Errorf("scan manager approval: %w", err)
		}
		rec.ManagerApprovals = append(rec.ManagerApprovals, m)
	}
	if err := mrows.Err(); err != nil {
		return fmt.Errorf("iterate manager approvals: %w", err)
	}

	hrows, err := r.q.Query(ctx, `
		SELECT id, from_stage_id, from_stage_code, to_stage_id, to_stage_code, to_stage_name, action, auto, actor_id, created_at
		FROM approval_stage_history WHERE record_id = $1 ORDER BY created_at, id`, rec.ID)
	if err != nil {
		return fmt.Errorf("list stage history: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var (
			h                entity.StageHistoryEntry
			fromID, fromCode *string
			action           string
		)
		if err := hrows.Scan(&h.ID, &fromID, &fromCode, &h.ToStageID, &h.ToStageCode, &h.ToStageName,
			&action, &h.Auto, &h.ActorID, &h.CreatedAt); err != nil {
			return fmt.Errorf("scan stage history: %w", err)
		}
		h.FromStageID = deref(fromID)
		h.FromStageCode = deref(fromCode)
		h.Action = entity.Action(action)
		rec.StageHistory = append(rec.StageHistory, h)
	}
	return hrows.Err()
}

// Save actualiza con control optimista: WHERE version = rec.Version. Sin filas afectadas
// devuelve ErrConcurrentModification y no toca hijos.
func (r *ApprovalRecordRepo) Save(ctx context.Context, rec *entity.ApprovalRecord) error {
	query := `
		UPDATE approval_records
		SET priority = $3, status = $4, stage_id = $5, assigned_to = $6, submitted_by = $7, submitted_at = $8,
		    required_levels = $9, rejection_reason = $10, final_approval_date = $11, notes = $12,
		    total_items = $13, approved_items = $14, rejected_items = $15, pending_items = $16,
		    version = version + 1, updated_at = $17
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		rec.ID, rec.Version, rec.Priority, rec.Status, rec.StageID, nullIfEmpty(rec.AssignedTo),
		nullIfEmpty(rec.SubmittedBy), rec.SubmittedAt, rec.RequiredLevels, nullIfEmpty(rec.RejectionReason),
		rec.FinalApprovalDate, nullIfEmpty(rec.Notes),
		rec.TotalItems, rec.ApprovedItems, rec.RejectedItems, rec.PendingItems, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update approval record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewError(domain.ErrConcurrentModification, "", map[string]any{
			"record_id": rec.ID, "version": rec.Version,
		})
	}
	for i := range rec.Items {
		if err := r.updateItem(ctx, &rec.Items[i]); err != nil {
			return err
		}
	}
	if err := r.appendChildren(ctx, rec); err != nil {
		return err
	}
	rec.Version++
	return nil
}

func (r *ApprovalRecordRepo) updateItem(ctx context.Context, it *entity.LineItemDecision) error {
	checks, err := marshalChecks(it.Checks)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		UPDATE approval_items
		SET decided_qty = $2, decision = $3, remarks = $4, decided_by = $5, decided_at = $6, checks = $7
		WHERE id = $1`,
		it.ID, it.DecidedQty, string(it.Decision), it.Remarks, nullIfEmpty(it.DecidedBy), it.DecidedAt, checks,
	)
	if err != nil {
		return fmt.Errorf("update approval item: %w", err)
	}
	return nil
}

func (r *ApprovalRecordRepo) ExistsByUpstream(ctx context.Context, recordType, upstreamID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM approval_records WHERE type = $1 AND upstream_id = $2)`,
		recordType, upstreamID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by upstream: %w", err)
	}
	return exists, nil
}

// List devuelve cabeceras (con contadores, sin ítems) ordenadas por fecha de creación descendente.
func (r *ApprovalRecordRepo) List(ctx context.Context, f repository.RecordFilter) ([]*entity.ApprovalRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("type", f.Type)
	add("status", f.Status)
	add("assigned_to", f.AssignedTo)

	query := `SELECT ` + recordColumns + ` FROM approval_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approval records: %w", err)
	}
	defer rows.Close()
	var out []*entity.ApprovalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func marshalChecks(c *entity.ItemChecks) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode item checks: %w", err)
	}
	return b, nil
}
